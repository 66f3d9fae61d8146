package history

import (
	"time"

	"wordxl/internal/intake"
	"wordxl/internal/session"
)

// Entry is one finished session.
type Entry struct {
	ID         int64     `json:"id"`
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	FileCount  int       `json:"file_count"`
	Succeeded  int       `json:"succeeded"`
	Progress   int       `json:"progress"`
	ResultPath string    `json:"result_path,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      []File    `json:"files,omitempty"`
}

// File is one document that was part of a session.
type File struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Status string `json:"status"`
}

// Duration is the wall time between start and finish.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// FromSnapshot builds an entry from a session's final snapshot. A session
// abandoned while still active is recorded as cancelled.
func FromSnapshot(snap session.Snapshot, started, finished time.Time) Entry {
	status := string(snap.Phase)
	if snap.Phase.Active() || snap.Phase == session.PhaseIdle {
		status = "cancelled"
	}
	entry := Entry{
		JobID:      snap.JobID,
		Status:     status,
		FileCount:  snap.Summary.Total,
		Succeeded:  snap.Summary.Succeeded,
		Progress:   snap.Progress,
		Error:      snap.Error,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	if snap.Result != nil {
		entry.ResultPath = snap.Result.Path
	}
	entry.Files = make([]File, 0, len(snap.Files))
	for _, f := range snap.Files {
		entry.Files = append(entry.Files, fileFrom(f))
	}
	return entry
}

func fileFrom(f intake.StagedFile) File {
	return File{Name: f.Name, Size: f.Size, Status: string(f.Status)}
}
