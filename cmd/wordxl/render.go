package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"wordxl/internal/intake"
	"wordxl/internal/logging"
	"wordxl/internal/session"
)

// sessionRenderer receives every controller snapshot.
type sessionRenderer interface {
	observe(session.Snapshot)
	finish(session.Snapshot)
}

// plainRenderer draws a progress bar on terminals and sampled progress
// lines elsewhere. File status changes are printed as they happen.
type plainRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	bar      *progressbar.ProgressBar
	sampler  *logging.ProgressSampler
	statuses map[string]intake.Status
}

func newPlainRenderer(out io.Writer, interactive bool) *plainRenderer {
	r := &plainRenderer{
		out:      out,
		sampler:  logging.NewProgressSampler(10),
		statuses: make(map[string]intake.Status),
	}
	if interactive {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionEnableColorCodes(shouldColorize(out)),
		)
	}
	return r
}

func (r *plainRenderer) observe(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lines []string
	for _, f := range snap.Files {
		if prev, ok := r.statuses[f.ID]; ok && prev == f.Status {
			continue
		}
		r.statuses[f.ID] = f.Status
		if f.Status.Terminal() {
			lines = append(lines, fmt.Sprintf("  %-10s %s (%s)", f.Status, f.Name, f.SizeLabel()))
		}
	}

	if r.bar == nil {
		for _, line := range lines {
			fmt.Fprintln(r.out, line)
		}
		if snap.Message != "" && r.sampler.ShouldLog(snap.Progress, snap.Message) {
			fmt.Fprintf(r.out, "%3d%% %s\n", snap.Progress, snap.Message)
		}
		return
	}

	if len(lines) > 0 {
		_ = r.bar.Clear()
		for _, line := range lines {
			fmt.Fprintln(r.out, line)
		}
	}
	if snap.Message != "" {
		r.bar.Describe(snap.Message)
	}
	_ = r.bar.Set(snap.Progress)
}

func (r *plainRenderer) finish(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		if snap.Phase == session.PhaseComplete {
			_ = r.bar.Finish()
		}
		fmt.Fprintln(r.out)
	}
}

// jsonRenderer streams one JSON object per snapshot.
type jsonRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

type snapshotLine struct {
	Phase    string         `json:"phase"`
	JobID    string         `json:"job_id,omitempty"`
	Progress int            `json:"progress"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Result   string         `json:"result,omitempty"`
	Files    []fileLine     `json:"files"`
	Summary  intake.Summary `json:"summary"`
}

type fileLine struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Status string `json:"status"`
}

func newJSONRenderer(out io.Writer) *jsonRenderer {
	return &jsonRenderer{out: out}
}

func (r *jsonRenderer) observe(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = writeJSONLine(r.out, toSnapshotLine(snap))
}

func (r *jsonRenderer) finish(session.Snapshot) {}

func toSnapshotLine(snap session.Snapshot) snapshotLine {
	line := snapshotLine{
		Phase:    string(snap.Phase),
		JobID:    snap.JobID,
		Progress: snap.Progress,
		Message:  snap.Message,
		Error:    snap.Error,
		Files:    make([]fileLine, 0, len(snap.Files)),
		Summary:  snap.Summary,
	}
	if snap.Result != nil {
		line.Result = snap.Result.Path
	}
	for _, f := range snap.Files {
		line.Files = append(line.Files, fileLine{Name: f.Name, Size: f.Size, Status: string(f.Status)})
	}
	return line
}
