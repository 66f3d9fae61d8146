package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wordxl/internal/convertapi"
	"wordxl/internal/intake"
	"wordxl/internal/services"
	"wordxl/internal/session"
)

type fakeAPI struct {
	mu sync.Mutex

	uploadErr error
	startErr  error
	pollErr   error
	resultErr error
	script    []convertapi.Progress
	release   chan struct{}

	uploads  int
	starts   int
	polls    int
	fetches  int
	uploaded []convertapi.File
}

func (f *fakeAPI) Upload(ctx context.Context, files []convertapi.File) (convertapi.UploadResponse, error) {
	f.mu.Lock()
	f.uploads++
	f.uploaded = append(f.uploaded, files...)
	release := f.release
	err := f.uploadErr
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	if err != nil {
		return convertapi.UploadResponse{}, err
	}
	return convertapi.UploadResponse{JobID: "job-1"}, nil
}

func (f *fakeAPI) Start(ctx context.Context, jobID string) (convertapi.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return convertapi.StartResponse{}, f.startErr
	}
	return convertapi.StartResponse{Started: true}, nil
}

func (f *fakeAPI) Poll(ctx context.Context, jobID string) (convertapi.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.script) == 0 {
		if f.pollErr != nil {
			return convertapi.Progress{}, f.pollErr
		}
		return convertapi.Progress{Progress: 50}, nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next, nil
}

func (f *fakeAPI) FetchResult(ctx context.Context, jobID string) (convertapi.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.resultErr != nil {
		return convertapi.Result{}, f.resultErr
	}
	return convertapi.Result{JobID: jobID, Path: "/out/result.xlsx", Format: "xlsx", Size: 4}, nil
}

func (f *fakeAPI) counts() (uploads, starts, polls, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.starts, f.polls, f.fetches
}

type recorder struct {
	mu    sync.Mutex
	snaps []session.Snapshot
}

func (r *recorder) observe(s session.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []session.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Snapshot(nil), r.snaps...)
}

func newController(t *testing.T, api session.API, n int, opts ...session.Option) (*session.Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]session.Option{session.WithPollInterval(time.Millisecond), session.WithObserver(rec.observe)}, opts...)
	c := session.New(api, opts...)
	candidates := make([]intake.Candidate, 0, n)
	for i := 0; i < n; i++ {
		candidates = append(candidates, intake.Candidate{
			Path:    "/docs/report.docx",
			Name:    "report.docx",
			Size:    int64(10 * (i + 1)),
			ModTime: time.UnixMilli(1700000000000),
		})
	}
	if err := c.Stage(candidates); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	return c, rec
}

func waitTask(t *testing.T, task *session.Task) error {
	t.Helper()
	select {
	case <-task.Done():
		return task.Err()
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
		return nil
	}
}

func TestScriptedThreeFileSession(t *testing.T) {
	api := &fakeAPI{script: []convertapi.Progress{
		{Progress: 5},
		{Progress: 45},
		{Progress: 100, Done: true},
	}}
	c, rec := newController(t, api, 3)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}

	var successesAt45, successesAtFinalizing = -1, -1
	lastProgress := 0
	for _, snap := range rec.all() {
		if snap.Progress < lastProgress {
			t.Fatalf("progress regressed: %d after %d", snap.Progress, lastProgress)
		}
		lastProgress = snap.Progress
		if snap.Progress == 45 && successesAt45 < 0 {
			successesAt45 = snap.Summary.Succeeded
		}
		if snap.Phase == session.PhaseFinalizing && successesAtFinalizing < 0 {
			successesAtFinalizing = snap.Summary.Succeeded
			if snap.Summary.Converting != 0 {
				t.Fatalf("files left converting after done: %+v", snap.Summary)
			}
		}
	}
	if successesAt45 != 1 {
		t.Fatalf("expected 1 success at 45%%, got %d", successesAt45)
	}
	if successesAtFinalizing != 3 {
		t.Fatalf("expected 3 successes when finalizing, got %d", successesAtFinalizing)
	}

	final := c.Snapshot()
	if final.Phase != session.PhaseComplete || final.Progress != 100 || final.Message != session.MessageComplete {
		t.Fatalf("unexpected final state: %+v", final.State)
	}
	if final.Result == nil || final.Result.Path != "/out/result.xlsx" {
		t.Fatalf("expected result, got %+v", final.Result)
	}
	if final.JobID != "job-1" {
		t.Fatalf("expected job id, got %q", final.JobID)
	}
	if c.Task() != nil {
		t.Fatal("expected no active task after completion")
	}
	if _, _, polls, fetches := api.counts(); polls != 3 || fetches != 1 {
		t.Fatalf("expected 3 polls and 1 fetch, got %d and %d", polls, fetches)
	}
}

func TestUploadFailureFailsSession(t *testing.T) {
	api := &fakeAPI{uploadErr: &convertapi.StatusError{Op: "upload", Message: "upload failed", StatusCode: 500}}
	c, _ := newController(t, api, 2)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err = waitTask(t, task)
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Phase != session.PhaseFailed || snap.Error != "upload failed" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
	if snap.Summary.Pending != 0 {
		t.Fatalf("files must not be pending after failed upload: %+v", snap.Summary)
	}
	if c.Task() != nil {
		t.Fatal("expected no active task")
	}
	if _, starts, polls, _ := api.counts(); starts != 0 || polls != 0 {
		t.Fatalf("expected no start or poll calls, got %d/%d", starts, polls)
	}
}

func TestStartFailureFailsSession(t *testing.T) {
	api := &fakeAPI{startErr: &convertapi.StatusError{Op: "start", Message: "failed to start conversion", StatusCode: 400}}
	c, _ := newController(t, api, 1)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err == nil {
		t.Fatal("expected error")
	}
	if snap := c.Snapshot(); snap.Error != "failed to start conversion" || snap.JobID != "job-1" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
}

func TestPollBusinessErrorStopsPolling(t *testing.T) {
	api := &fakeAPI{script: []convertapi.Progress{
		{Progress: 10},
		{Progress: 20, Error: "document is corrupt"},
	}}
	c, _ := newController(t, api, 2)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err == nil {
		t.Fatal("expected error")
	}
	snap := c.Snapshot()
	if snap.Phase != session.PhaseFailed || snap.Error != "document is corrupt" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
	_, _, polls, _ := api.counts()
	time.Sleep(20 * time.Millisecond)
	if _, _, after, fetches := api.counts(); after != polls || fetches != 0 {
		t.Fatalf("polling continued after failure: %d -> %d (fetches %d)", polls, after, fetches)
	}
}

func TestPollTransportErrorFailsSession(t *testing.T) {
	api := &fakeAPI{pollErr: &convertapi.StatusError{Op: "poll", Message: "progress check failed", StatusCode: 502}}
	c, _ := newController(t, api, 1)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = waitTask(t, task)
	if snap := c.Snapshot(); snap.Phase != session.PhaseFailed || snap.Error != "progress check failed" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
}

func TestResultFailureFailsSession(t *testing.T) {
	api := &fakeAPI{
		script:    []convertapi.Progress{{Progress: 100, Done: true}},
		resultErr: &convertapi.StatusError{Op: "result", Message: "result not ready", StatusCode: 404},
	}
	c, _ := newController(t, api, 1)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = waitTask(t, task)
	snap := c.Snapshot()
	if snap.Phase != session.PhaseFailed || snap.Error != "result not ready" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
	if snap.Summary.Succeeded != 1 {
		t.Fatalf("done sweep should survive result failure: %+v", snap.Summary)
	}
}

func TestBeginWithoutFilesMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	c := session.New(api)
	if _, err := c.Begin(context.Background()); !errors.Is(err, session.ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
	if uploads, starts, polls, fetches := api.counts(); uploads+starts+polls+fetches != 0 {
		t.Fatal("expected no network calls")
	}
	if c.Snapshot().Phase != session.PhaseIdle {
		t.Fatal("expected idle session")
	}
}

func TestDoubleBeginAndRemovalRejectedWhileActive(t *testing.T) {
	api := &fakeAPI{release: make(chan struct{})}
	c, _ := newController(t, api, 1)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := c.Begin(context.Background()); !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	id := c.Snapshot().Files[0].ID
	if err := c.Remove(id); !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive on remove, got %v", err)
	}
	api.mu.Lock()
	api.script = []convertapi.Progress{{Progress: 100, Done: true}}
	api.mu.Unlock()
	close(api.release)
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}
}

func TestResetDuringUploadIgnoresLateEvents(t *testing.T) {
	api := &fakeAPI{release: make(chan struct{})}
	c, _ := newController(t, api, 2)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.Reset()
	c.Reset()
	close(api.release)

	if err := waitTask(t, task); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	snap := c.Snapshot()
	if snap.Phase != session.PhaseIdle || len(snap.Files) != 0 || snap.JobID != "" || snap.Progress != 0 || snap.Message != "" {
		t.Fatalf("expected initial state after reset, got %+v", snap.State)
	}
	if _, starts, _, _ := api.counts(); starts != 0 {
		t.Fatalf("late upload result must not start conversion, got %d starts", starts)
	}
	if c.Task() != nil {
		t.Fatal("expected no active task after reset")
	}
}

func TestResetAfterCompletionAllowsNewSession(t *testing.T) {
	api := &fakeAPI{script: []convertapi.Progress{{Progress: 100, Done: true}}}
	c, _ := newController(t, api, 1)

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}
	if _, err := c.Begin(context.Background()); !errors.Is(err, session.ErrSessionActive) {
		t.Fatalf("completed session must require reset, got %v", err)
	}
	c.Reset()
	if _, err := c.Begin(context.Background()); !errors.Is(err, session.ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles after reset, got %v", err)
	}
}

func TestCancelledContextFailsSession(t *testing.T) {
	api := &fakeAPI{}
	c, _ := newController(t, api, 1, session.WithPollInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	task, err := c.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for c.Snapshot().Message != session.MessageConverting {
		select {
		case <-deadline:
			t.Fatal("session never reached polling")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := waitTask(t, task); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if snap := c.Snapshot(); snap.Phase != session.PhaseFailed || snap.Error != "conversion cancelled" {
		t.Fatalf("unexpected state: %+v", snap.State)
	}
}

func TestRemovePendingFile(t *testing.T) {
	c, _ := newController(t, &fakeAPI{}, 2)
	files := c.Snapshot().Files
	if err := c.Remove(files[0].ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := c.Snapshot().Files; len(got) != 1 || got[0].ID != files[1].ID {
		t.Fatalf("unexpected files after remove: %+v", got)
	}
	if err := c.Remove(files[0].ID); !errors.Is(err, session.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestResetDuringDeliveryEndsOnIdleSnapshot(t *testing.T) {
	api := &fakeAPI{}
	held := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once

	rec := &recorder{}
	observer := func(s session.Snapshot) {
		if s.Phase == session.PhaseConverting && s.Progress == 50 {
			once.Do(func() {
				close(held)
				<-proceed
			})
		}
		rec.observe(s)
	}
	c, _ := newController(t, api, 1, session.WithObserver(observer))

	task, err := c.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	select {
	case <-held:
	case <-time.After(5 * time.Second):
		t.Fatal("poll snapshot never delivered")
	}

	resetDone := make(chan struct{})
	go func() {
		c.Reset()
		close(resetDone)
	}()
	select {
	case <-resetDone:
		t.Fatal("reset delivered its snapshot while an earlier one was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(proceed)

	select {
	case <-resetDone:
	case <-time.After(5 * time.Second):
		t.Fatal("reset did not finish")
	}
	if err := waitTask(t, task); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled task, got %v", err)
	}

	snaps := rec.all()
	if len(snaps) == 0 {
		t.Fatal("no snapshots recorded")
	}
	last := snaps[len(snaps)-1]
	if last.Phase != session.PhaseIdle || len(last.Files) != 0 {
		t.Fatalf("expected final snapshot idle, got %+v", last.State)
	}
}
