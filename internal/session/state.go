package session

import (
	"errors"

	"wordxl/internal/convertapi"
	"wordxl/internal/intake"
)

// Phase is the session lifecycle stage.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseUploading  Phase = "uploading"
	PhaseConverting Phase = "converting"
	PhaseFinalizing Phase = "finalizing"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// Active reports whether a task is driving the session.
func (p Phase) Active() bool {
	return p == PhaseUploading || p == PhaseConverting || p == PhaseFinalizing
}

// Terminal reports whether the session is waiting for Reset.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

const (
	MessageUploading  = "Uploading files..."
	MessageStarting   = "Starting conversion..."
	MessageConverting = "Converting..."
	MessageFinalizing = "Finalizing..."
	MessageComplete   = "Conversion complete"
)

// Progress band the service reports while it works through files.
const (
	fileBandStart = 5
	fileBandWidth = 80
)

var (
	// ErrNoFiles is returned by Begin when nothing is staged.
	ErrNoFiles = errors.New("no files staged")
	// ErrSessionActive is returned when an operation needs an idle session.
	ErrSessionActive = errors.New("conversion session already started; reset first")
	// ErrFileNotFound is returned by Remove for an unknown ID.
	ErrFileNotFound = errors.New("staged file not found")
	// ErrFileNotPending is returned by Remove for a file past pending.
	ErrFileNotPending = errors.New("only pending files can be removed")
)

// State is the complete session state.
type State struct {
	Phase     Phase
	Files     []intake.StagedFile
	NextOrder int
	JobID     string
	Progress  int
	Marked    int
	Message   string
	Error     string
	Result    *convertapi.Result
}

// Initial returns the idle state with nothing staged.
func Initial() State {
	return State{Phase: PhaseIdle}
}

// Event is an input to Transition.
type Event interface{ event() }

type (
	// EventStage appends accepted candidates as pending files.
	EventStage struct{ Candidates []intake.Candidate }
	// EventRemove drops a pending file.
	EventRemove struct{ ID string }
	// EventBegin starts the upload.
	EventBegin struct{}
	// EventUploaded carries the job ID issued by the service.
	EventUploaded struct{ JobID string }
	// EventUploadFailed aborts during upload.
	EventUploadFailed struct{ Message string }
	// EventStarted acknowledges the conversion start.
	EventStarted struct{}
	// EventStartFailed aborts during start.
	EventStartFailed struct{ Message string }
	// EventProgress is one successful poll response.
	EventProgress struct{ Progress convertapi.Progress }
	// EventPollFailed reports a poll that could not complete.
	EventPollFailed struct{ Message string }
	// EventResult carries the downloaded result.
	EventResult struct{ Result convertapi.Result }
	// EventResultFailed aborts during finalizing.
	EventResultFailed struct{ Message string }
	// EventReset discards the session.
	EventReset struct{}
)

func (EventStage) event()        {}
func (EventRemove) event()       {}
func (EventBegin) event()        {}
func (EventUploaded) event()     {}
func (EventUploadFailed) event() {}
func (EventStarted) event()      {}
func (EventStartFailed) event()  {}
func (EventProgress) event()     {}
func (EventPollFailed) event()   {}
func (EventResult) event()       {}
func (EventResultFailed) event() {}
func (EventReset) event()        {}

// Effect is work the controller performs after a transition.
type Effect interface{ effect() }

type (
	EffectUpload       struct{ Files []convertapi.File }
	EffectStart        struct{ JobID string }
	EffectStartPolling struct{ JobID string }
	EffectStopPolling  struct{}
	EffectFetchResult  struct{ JobID string }
)

func (EffectUpload) effect()       {}
func (EffectStart) effect()        {}
func (EffectStartPolling) effect() {}
func (EffectStopPolling) effect()  {}
func (EffectFetchResult) effect()  {}

// Check reports whether ev is allowed in s. Transition ignores events that
// Check rejects.
func Check(s State, ev Event) error {
	switch e := ev.(type) {
	case EventStage:
		if s.Phase != PhaseIdle {
			return ErrSessionActive
		}
	case EventRemove:
		if s.Phase != PhaseIdle {
			return ErrSessionActive
		}
		idx := indexOf(s.Files, e.ID)
		if idx < 0 {
			return ErrFileNotFound
		}
		if s.Files[idx].Status != intake.StatusPending {
			return ErrFileNotPending
		}
	case EventBegin:
		if s.Phase != PhaseIdle {
			return ErrSessionActive
		}
		if len(s.Files) == 0 {
			return ErrNoFiles
		}
	}
	return nil
}

// Transition computes the next state and the effects to execute. It never
// mutates s.
func Transition(s State, ev Event) (State, []Effect) {
	if Check(s, ev) != nil {
		return s, nil
	}
	switch e := ev.(type) {
	case EventReset:
		return Initial(), nil

	case EventStage:
		next := s
		next.Files = cloneFiles(s.Files, len(e.Candidates))
		for _, c := range e.Candidates {
			next.Files = append(next.Files, intake.Stage(c, next.NextOrder))
			next.NextOrder++
		}
		return next, nil

	case EventRemove:
		next := s
		idx := indexOf(s.Files, e.ID)
		next.Files = make([]intake.StagedFile, 0, len(s.Files)-1)
		next.Files = append(next.Files, s.Files[:idx]...)
		next.Files = append(next.Files, s.Files[idx+1:]...)
		return next, nil

	case EventBegin:
		next := s
		next.Files = cloneFiles(s.Files, 0)
		uploads := make([]convertapi.File, 0, len(next.Files))
		for i := range next.Files {
			next.Files[i].Status = intake.StatusConverting
			next.Files[i].Error = ""
			uploads = append(uploads, convertapi.File{Path: next.Files[i].Path, Name: next.Files[i].Name})
		}
		next.Phase = PhaseUploading
		next.Message = MessageUploading
		next.Error = ""
		next.Progress = 0
		next.Marked = 0
		next.JobID = ""
		next.Result = nil
		return next, []Effect{EffectUpload{Files: uploads}}

	case EventUploaded:
		if s.Phase != PhaseUploading {
			return s, nil
		}
		next := s
		next.JobID = e.JobID
		next.Phase = PhaseConverting
		next.Message = MessageStarting
		return next, []Effect{EffectStart{JobID: e.JobID}}

	case EventUploadFailed:
		if s.Phase != PhaseUploading {
			return s, nil
		}
		return fail(s, e.Message), nil

	case EventStarted:
		if s.Phase != PhaseConverting {
			return s, nil
		}
		next := s
		next.Message = MessageConverting
		next.Progress = max(next.Progress, fileBandStart)
		return next, []Effect{EffectStartPolling{JobID: s.JobID}}

	case EventStartFailed:
		if s.Phase != PhaseConverting {
			return s, nil
		}
		return fail(s, e.Message), nil

	case EventProgress:
		if s.Phase != PhaseConverting {
			return s, nil
		}
		return applyProgress(s, e.Progress)

	case EventPollFailed:
		if s.Phase != PhaseConverting {
			return s, nil
		}
		return fail(s, e.Message), []Effect{EffectStopPolling{}}

	case EventResult:
		if s.Phase != PhaseFinalizing {
			return s, nil
		}
		next := s
		res := e.Result
		next.Result = &res
		next.Phase = PhaseComplete
		next.Progress = 100
		next.Message = MessageComplete
		return next, nil

	case EventResultFailed:
		if s.Phase != PhaseFinalizing {
			return s, nil
		}
		return fail(s, e.Message), nil
	}
	return s, nil
}

func applyProgress(s State, p convertapi.Progress) (State, []Effect) {
	if p.Error != "" {
		return fail(s, p.Error), []Effect{EffectStopPolling{}}
	}

	next := s
	next.Files = cloneFiles(s.Files, 0)
	value := clamp(p.Progress, 0, 100)
	if value > next.Progress {
		next.Progress = value
		completed := ProjectedCompletions(value, len(next.Files))
		for i := next.Marked; i < completed; i++ {
			if next.Files[i].Status == intake.StatusConverting {
				next.Files[i].Status = intake.StatusSuccess
			}
		}
		next.Marked = max(next.Marked, completed)
	}

	if !p.Done {
		return next, nil
	}
	for i := range next.Files {
		if next.Files[i].Status == intake.StatusConverting {
			next.Files[i].Status = intake.StatusSuccess
		}
	}
	next.Marked = len(next.Files)
	next.Phase = PhaseFinalizing
	next.Message = MessageFinalizing
	return next, []Effect{EffectStopPolling{}, EffectFetchResult{JobID: s.JobID}}
}

// ProjectedCompletions maps aggregate progress onto a count of finished
// files: the service spends 5..85 working through files, so the count is
// floor(clamp((p-5)/80, 0, 1) * total).
func ProjectedCompletions(progress, total int) int {
	if total <= 0 || progress <= fileBandStart {
		return 0
	}
	if progress >= fileBandStart+fileBandWidth {
		return total
	}
	return (progress - fileBandStart) * total / fileBandWidth
}

func fail(s State, message string) State {
	next := s
	next.Phase = PhaseFailed
	next.Message = ""
	if message == "" {
		message = "An error occurred during conversion."
	}
	next.Error = message
	return next
}

func cloneFiles(files []intake.StagedFile, extra int) []intake.StagedFile {
	out := make([]intake.StagedFile, len(files), len(files)+extra)
	copy(out, files)
	return out
}

func indexOf(files []intake.StagedFile, id string) int {
	for i, f := range files {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
