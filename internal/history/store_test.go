package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"wordxl/internal/convertapi"
	"wordxl/internal/history"
	"wordxl/internal/intake"
	"wordxl/internal/session"
	"wordxl/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	id, err := store.Record(ctx, history.Entry{
		JobID:      "job-1",
		Status:     "complete",
		FileCount:  2,
		Succeeded:  2,
		Progress:   100,
		ResultPath: "/out/result.xlsx",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Files: []history.File{
			{Name: "reports/a.docx", Size: 10, Status: "success"},
			{Name: "b.doc", Size: 20, Status: "success"},
		},
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != "complete" || got.ResultPath != "/out/result.xlsx" || got.Succeeded != 2 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %s", got.Duration())
	}
	if len(got.Files) != 2 || got.Files[0].Name != "reports/a.docx" || got.Files[1].Size != 20 {
		t.Fatalf("unexpected files %+v", got.Files)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirstAndLimits(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, job := range []string{"old", "middle", "new"} {
		finished := base.Add(time.Duration(i) * time.Minute)
		if i == 1 {
			finished = finished.Add(500 * time.Millisecond)
		}
		if _, err := store.Record(ctx, history.Entry{JobID: job, Status: "complete", StartedAt: base, FinishedAt: finished}); err != nil {
			t.Fatalf("Record %s: %v", job, err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].JobID != "new" || all[2].JobID != "old" {
		t.Fatalf("unexpected order %+v", all)
	}
	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 || limited[1].JobID != "middle" {
		t.Fatalf("unexpected limited list %+v", limited)
	}
}

func TestClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, err := store.Record(ctx, history.Entry{Status: "failed", Error: "upload failed", Files: []history.File{{Name: "a.docx", Status: "converting"}}}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	entries, err := store.List(ctx, 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %+v (%v)", entries, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Record(context.Background(), history.Entry{JobID: "persist", Status: "complete"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), "persist"); err != nil {
		t.Fatalf("expected entry after reopen: %v", err)
	}
}

func TestFromSnapshot(t *testing.T) {
	snap := session.Snapshot{
		State: session.State{
			Phase:    session.PhaseComplete,
			JobID:    "job-9",
			Progress: 100,
			Files: []intake.StagedFile{
				{Name: "a.docx", Size: 5, Status: intake.StatusSuccess},
			},
			Result: &convertapi.Result{Path: "/out/r.xlsx"},
		},
		Summary: intake.Summary{Total: 1, Succeeded: 1},
	}
	entry := history.FromSnapshot(snap, time.Now().Add(-time.Second), time.Now())
	if entry.Status != "complete" || entry.ResultPath != "/out/r.xlsx" || len(entry.Files) != 1 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	snap.Phase = session.PhaseConverting
	if got := history.FromSnapshot(snap, time.Now(), time.Now()).Status; got != "cancelled" {
		t.Fatalf("expected cancelled for abandoned session, got %q", got)
	}
}
