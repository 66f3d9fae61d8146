package fakebackend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordxl/internal/auth"
	"wordxl/internal/convertapi"
	"wordxl/internal/fakebackend"
	"wordxl/internal/intake"
	"wordxl/internal/services"
	"wordxl/internal/session"
	"wordxl/internal/testsupport"
)

func newBackend(t *testing.T) (*fakebackend.Server, *httptest.Server) {
	t.Helper()
	backend := fakebackend.New(fakebackend.Options{Tick: 5 * time.Millisecond, Step: 40})
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return backend, srv
}

func newController(t *testing.T, baseURL string) (*session.Controller, *convertapi.Client, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(baseURL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	client := convertapi.NewFromConfig(cfg)
	ctrl := session.New(client, session.WithPollInterval(cfg.PollInterval()))
	return ctrl, client, cfg.Paths.OutputDir
}

func waitTask(t *testing.T, task *session.Task) error {
	t.Helper()
	select {
	case <-task.Done():
		return task.Err()
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestSessionCompletesAgainstBackend(t *testing.T) {
	backend, srv := newBackend(t)
	backend.SetScript(
		fakebackend.Step{Progress: 45},
		fakebackend.Step{Progress: 100, Done: true},
	)
	ctrl, _, outDir := newController(t, srv.URL)

	docs := testsupport.WriteDocuments(t, t.TempDir(), "one.docx", "two.doc", "three.docx")
	if n, err := ctrl.Pick(docs...); err != nil || n != 3 {
		t.Fatalf("Pick = %d, %v", n, err)
	}
	task, err := ctrl.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}

	snap := ctrl.Snapshot()
	if snap.Phase != session.PhaseComplete {
		t.Fatalf("expected complete, got %s (%s)", snap.Phase, snap.Error)
	}
	if snap.Summary.Succeeded != 3 {
		t.Fatalf("expected 3 succeeded, got %+v", snap.Summary)
	}
	if snap.Result == nil || filepath.Dir(snap.Result.Path) != outDir {
		t.Fatalf("unexpected result: %+v", snap.Result)
	}
	data, err := os.ReadFile(snap.Result.Path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if !strings.HasPrefix(string(data), "PK") {
		t.Fatalf("unexpected result payload %q", data)
	}

	uploads := backend.Uploads(snap.JobID)
	if len(uploads) != 3 || uploads[0].Name != "one.docx" || uploads[2].Size != 192 {
		t.Fatalf("unexpected uploads: %+v", uploads)
	}
	for _, rid := range backend.RequestIDs() {
		if rid == "" {
			t.Fatal("expected every request to carry a request ID")
		}
	}
}

func TestSessionTimedProgressReachesDone(t *testing.T) {
	_, srv := newBackend(t)
	ctrl, _, _ := newController(t, srv.URL)

	docs := testsupport.WriteDocuments(t, t.TempDir(), "report.docx")
	if _, err := ctrl.Pick(docs...); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	task, err := ctrl.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}
	if snap := ctrl.Snapshot(); snap.Phase != session.PhaseComplete || snap.Progress != 100 {
		t.Fatalf("expected complete at 100, got %s %d", snap.Phase, snap.Progress)
	}
}

func TestSessionUploadFailure(t *testing.T) {
	backend, srv := newBackend(t)
	backend.FailUpload(true)
	ctrl, _, _ := newController(t, srv.URL)

	docs := testsupport.WriteDocuments(t, t.TempDir(), "a.docx", "b.docx")
	if _, err := ctrl.Pick(docs...); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	task, err := ctrl.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
	snap := ctrl.Snapshot()
	if snap.Phase != session.PhaseFailed || snap.Error != "upload failed" {
		t.Fatalf("unexpected state: %s %q", snap.Phase, snap.Error)
	}
	if backend.Jobs() != 0 {
		t.Fatalf("expected no jobs, got %d", backend.Jobs())
	}
}

func TestSessionBusinessErrorFromProgress(t *testing.T) {
	backend, srv := newBackend(t)
	backend.SetScript(fakebackend.Step{Progress: 30, Error: "document is encrypted"})
	ctrl, _, _ := newController(t, srv.URL)

	docs := testsupport.WriteDocuments(t, t.TempDir(), "locked.docx")
	if _, err := ctrl.Pick(docs...); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	task, err := ctrl.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = waitTask(t, task)
	snap := ctrl.Snapshot()
	if snap.Phase != session.PhaseFailed || snap.Error != "document is encrypted" {
		t.Fatalf("unexpected state: %s %q", snap.Phase, snap.Error)
	}
	if snap.Files[0].Status != intake.StatusConverting {
		t.Fatalf("expected file left converting, got %s", snap.Files[0].Status)
	}
}

func TestCSVAndReset(t *testing.T) {
	backend, srv := newBackend(t)
	backend.SetScript(fakebackend.Step{Progress: 100, Done: true})
	ctrl, client, _ := newController(t, srv.URL)

	docs := testsupport.WriteDocuments(t, t.TempDir(), "q1.docx", "q2.docx")
	if _, err := ctrl.Pick(docs...); err != nil {
		t.Fatalf("Pick: %v", err)
	}
	task, err := ctrl.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := waitTask(t, task); err != nil {
		t.Fatalf("task error: %v", err)
	}
	jobID := ctrl.Snapshot().JobID

	csv, err := client.FetchCSV(context.Background(), jobID)
	if err != nil {
		t.Fatalf("FetchCSV: %v", err)
	}
	if !strings.HasPrefix(csv, "file,document,bytes\n") || !strings.Contains(csv, "q2.docx,q2,128") {
		t.Fatalf("unexpected csv %q", csv)
	}

	if err := client.ResetJob(context.Background(), jobID); err != nil {
		t.Fatalf("ResetJob: %v", err)
	}
	_, err = client.FetchCSV(context.Background(), jobID)
	if !convertapi.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 after reset, got %v", err)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	backend, srv := newBackend(t)
	backend.AddUser(fakebackend.User{Email: "ana@example.com", FirstName: "Ana", LastName: "Ng"}, "s3cret")
	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(srv.URL))
	client := auth.NewFromConfig(cfg)
	ctx := context.Background()

	if _, err := client.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	user, err := client.Login(ctx, "ANA@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.DisplayName() != "Ana Ng" {
		t.Fatalf("unexpected user %+v", user)
	}

	id, err := client.Check(ctx)
	if err != nil || !id.Verified || id.User.Email != "ana@example.com" {
		t.Fatalf("Check = %+v, %v", id, err)
	}

	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if backend.Sessions() != 0 {
		t.Fatalf("expected backend session ended, got %d", backend.Sessions())
	}
	if _, err := client.Check(ctx); !errors.Is(err, auth.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}
