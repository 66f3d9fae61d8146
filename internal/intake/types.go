package intake

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the lifecycle state of a staged file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConverting Status = "converting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Candidate is a file accepted by Pick or Drop but not yet staged.
type Candidate struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// StagedFile is a file queued for conversion.
type StagedFile struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified"`
	Status  Status    `json:"status"`
	Error   string    `json:"error,omitempty"`
}

// SizeLabel renders the size for display.
func (f StagedFile) SizeLabel() string {
	if f.Size < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(f.Size))
}

// FileID derives the staging identifier. order counts every file staged in
// the session so re-adding the same file still yields a distinct ID.
func FileID(name string, size int64, modTime time.Time, order int) string {
	return fmt.Sprintf("%s-%d-%d-%d", name, size, modTime.UnixMilli(), order)
}

// Stage turns a candidate into a pending StagedFile.
func Stage(c Candidate, order int) StagedFile {
	return StagedFile{
		ID:      FileID(c.Name, c.Size, c.ModTime, order),
		Path:    c.Path,
		Name:    c.Name,
		Size:    c.Size,
		ModTime: c.ModTime,
		Status:  StatusPending,
	}
}

// Summary tallies a set of staged files by status.
type Summary struct {
	Total      int   `json:"total"`
	Pending    int   `json:"pending"`
	Converting int   `json:"converting"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
	Bytes      int64 `json:"bytes"`
}

// Summarize counts files by status and sums their sizes.
func Summarize(files []StagedFile) Summary {
	var s Summary
	for _, f := range files {
		s.Total++
		if f.Size > 0 {
			s.Bytes += f.Size
		}
		switch f.Status {
		case StatusPending:
			s.Pending++
		case StatusConverting:
			s.Converting++
		case StatusSuccess:
			s.Succeeded++
		case StatusError:
			s.Failed++
		}
	}
	return s
}

// BytesLabel renders the summed size for display.
func (s Summary) BytesLabel() string {
	return humanize.Bytes(uint64(s.Bytes))
}
