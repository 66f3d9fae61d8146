package session

import (
	"errors"
	"testing"
	"time"

	"wordxl/internal/convertapi"
	"wordxl/internal/intake"
)

func stagedState(t *testing.T, n int) State {
	t.Helper()
	candidates := make([]intake.Candidate, 0, n)
	for i := 0; i < n; i++ {
		candidates = append(candidates, intake.Candidate{
			Path:    "/docs/file.docx",
			Name:    "file.docx",
			Size:    int64(100 + i),
			ModTime: time.UnixMilli(1700000000000),
		})
	}
	s, effects := Transition(Initial(), EventStage{Candidates: candidates})
	if len(effects) != 0 {
		t.Fatalf("staging should not produce effects, got %v", effects)
	}
	return s
}

func converting(t *testing.T, n int) State {
	t.Helper()
	s := stagedState(t, n)
	s, _ = Transition(s, EventBegin{})
	s, _ = Transition(s, EventUploaded{JobID: "job"})
	s, _ = Transition(s, EventStarted{})
	if s.Phase != PhaseConverting || s.Progress != 5 {
		t.Fatalf("unexpected converting state: %+v", s)
	}
	return s
}

func countStatus(files []intake.StagedFile, status intake.Status) int {
	n := 0
	for _, f := range files {
		if f.Status == status {
			n++
		}
	}
	return n
}

func TestProjectedCompletions(t *testing.T) {
	tests := []struct {
		progress, total, want int
	}{
		{0, 3, 0},
		{5, 3, 0},
		{45, 3, 1},
		{84, 3, 2},
		{85, 3, 3},
		{100, 3, 3},
		{45, 0, 0},
		{25, 4, 1},
		{-10, 4, 0},
	}
	for _, tt := range tests {
		if got := ProjectedCompletions(tt.progress, tt.total); got != tt.want {
			t.Fatalf("ProjectedCompletions(%d, %d) = %d, want %d", tt.progress, tt.total, got, tt.want)
		}
	}
}

func TestProjectedCompletionsMonotonic(t *testing.T) {
	for total := 1; total <= 12; total++ {
		prev := 0
		for p := 0; p <= 100; p++ {
			got := ProjectedCompletions(p, total)
			if got < prev || got > total {
				t.Fatalf("total=%d p=%d: got %d after %d", total, p, got, prev)
			}
			prev = got
		}
	}
}

func TestStageAssignsUniqueOrders(t *testing.T) {
	s := stagedState(t, 2)
	if len(s.Files) != 2 || s.NextOrder != 2 {
		t.Fatalf("unexpected staged state: %+v", s)
	}
	if s.Files[0].ID == s.Files[1].ID {
		t.Fatalf("expected unique IDs, got %q twice", s.Files[0].ID)
	}
	s, _ = Transition(s, EventRemove{ID: s.Files[0].ID})
	s, _ = Transition(s, EventStage{Candidates: []intake.Candidate{{Name: "file.docx", Size: 100, ModTime: time.UnixMilli(1700000000000)}}})
	if s.Files[1].ID == s.Files[0].ID || s.Files[1].ID != "file.docx-100-1700000000000-2" {
		t.Fatalf("expected order to continue after removal, got %q", s.Files[1].ID)
	}
}

func TestBeginMarksFilesConvertingAndRequestsUpload(t *testing.T) {
	s := stagedState(t, 2)
	next, effects := Transition(s, EventBegin{})
	if next.Phase != PhaseUploading || next.Message != MessageUploading {
		t.Fatalf("unexpected state %+v", next)
	}
	if countStatus(next.Files, intake.StatusConverting) != 2 {
		t.Fatalf("expected all files converting: %+v", next.Files)
	}
	if countStatus(s.Files, intake.StatusPending) != 2 {
		t.Fatal("Transition mutated its input")
	}
	if len(effects) != 1 {
		t.Fatalf("expected one effect, got %v", effects)
	}
	upload, ok := effects[0].(EffectUpload)
	if !ok || len(upload.Files) != 2 {
		t.Fatalf("expected upload effect with two files, got %#v", effects[0])
	}
}

func TestCheckRejections(t *testing.T) {
	if err := Check(Initial(), EventBegin{}); !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
	active := converting(t, 1)
	if err := Check(active, EventBegin{}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if err := Check(active, EventRemove{ID: active.Files[0].ID}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive for removal, got %v", err)
	}
	if err := Check(active, EventStage{}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive for staging, got %v", err)
	}
	if err := Check(stagedState(t, 1), EventRemove{ID: "nope"}); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestScriptedProgressSequence(t *testing.T) {
	s := converting(t, 3)

	s, _ = Transition(s, EventProgress{Progress: convertapi.Progress{Progress: 5}})
	if got := countStatus(s.Files, intake.StatusSuccess); got != 0 {
		t.Fatalf("after 5%%: %d successes", got)
	}
	s, _ = Transition(s, EventProgress{Progress: convertapi.Progress{Progress: 45}})
	if got := countStatus(s.Files, intake.StatusSuccess); got != 1 {
		t.Fatalf("after 45%%: %d successes", got)
	}
	if s.Files[0].Status != intake.StatusSuccess {
		t.Fatal("expected the first file to be marked first")
	}
	s, effects := Transition(s, EventProgress{Progress: convertapi.Progress{Progress: 100, Done: true}})
	if got := countStatus(s.Files, intake.StatusSuccess); got != 3 {
		t.Fatalf("after done: %d successes", got)
	}
	if s.Phase != PhaseFinalizing || s.Message != MessageFinalizing {
		t.Fatalf("expected finalizing, got %+v", s)
	}
	if len(effects) != 2 {
		t.Fatalf("expected stop + fetch effects, got %v", effects)
	}
	if _, ok := effects[1].(EffectFetchResult); !ok {
		t.Fatalf("expected fetch effect, got %#v", effects[1])
	}

	s, _ = Transition(s, EventResult{Result: convertapi.Result{Path: "/out/result.xlsx"}})
	if s.Phase != PhaseComplete || s.Progress != 100 || s.Message != MessageComplete {
		t.Fatalf("expected complete, got %+v", s)
	}
	if s.Result == nil || s.Result.Path != "/out/result.xlsx" {
		t.Fatalf("expected result reference, got %+v", s.Result)
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	s := converting(t, 4)
	for _, p := range []int{50, 30, 60, -5, 250} {
		prev := s.Progress
		prevSuccess := countStatus(s.Files, intake.StatusSuccess)
		s, _ = Transition(s, EventProgress{Progress: convertapi.Progress{Progress: p}})
		if s.Progress < prev {
			t.Fatalf("progress regressed from %d to %d", prev, s.Progress)
		}
		if got := countStatus(s.Files, intake.StatusSuccess); got < prevSuccess {
			t.Fatalf("successes regressed from %d to %d", prevSuccess, got)
		}
	}
	if s.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %d", s.Progress)
	}
	if s.Phase != PhaseConverting {
		t.Fatalf("progress without done must not finish, got %s", s.Phase)
	}
}

func TestPollErrorFailsAndStopsPolling(t *testing.T) {
	s := converting(t, 2)
	s, effects := Transition(s, EventProgress{Progress: convertapi.Progress{Progress: 20, Error: "bad document"}})
	if s.Phase != PhaseFailed || s.Error != "bad document" {
		t.Fatalf("expected failed with message, got %+v", s)
	}
	if len(effects) != 1 {
		t.Fatalf("expected stop polling, got %v", effects)
	}
	if _, ok := effects[0].(EffectStopPolling); !ok {
		t.Fatalf("expected stop polling, got %#v", effects[0])
	}
	if countStatus(s.Files, intake.StatusConverting) != 2 {
		t.Fatal("converting files should be left as-is on failure")
	}
}

func TestUploadFailureLeavesFilesConverting(t *testing.T) {
	s := stagedState(t, 2)
	s, _ = Transition(s, EventBegin{})
	s, effects := Transition(s, EventUploadFailed{Message: "upload failed"})
	if s.Phase != PhaseFailed || s.Error != "upload failed" || len(effects) != 0 {
		t.Fatalf("unexpected state %+v effects %v", s, effects)
	}
	if countStatus(s.Files, intake.StatusPending) != 0 {
		t.Fatal("files must not return to pending")
	}
}

func TestTerminalStatesIgnoreLateEvents(t *testing.T) {
	s := converting(t, 1)
	s, _ = Transition(s, EventPollFailed{Message: "progress check failed"})
	after, effects := Transition(s, EventProgress{Progress: convertapi.Progress{Progress: 100, Done: true}})
	if after.Phase != PhaseFailed || len(effects) != 0 {
		t.Fatalf("failed session must ignore late progress, got %+v", after)
	}
	if _, effects := Transition(s, EventBegin{}); len(effects) != 0 {
		t.Fatal("failed session must not begin again without reset")
	}
}

func TestResetFromAnyPhase(t *testing.T) {
	states := []State{Initial(), stagedState(t, 2), converting(t, 2)}
	failed, _ := Transition(converting(t, 1), EventPollFailed{Message: "x"})
	states = append(states, failed)
	for _, s := range states {
		got, effects := Transition(s, EventReset{})
		if got.Phase != PhaseIdle || len(got.Files) != 0 || got.JobID != "" || got.Progress != 0 || got.Message != "" || got.Error != "" || got.Result != nil {
			t.Fatalf("reset from %s left %+v", s.Phase, got)
		}
		if len(effects) != 0 {
			t.Fatalf("reset should not emit effects, got %v", effects)
		}
		again, _ := Transition(got, EventReset{})
		if again.Phase != got.Phase || len(again.Files) != 0 || again.NextOrder != got.NextOrder {
			t.Fatal("reset is not idempotent")
		}
	}
}
