package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wordxl/internal/convertapi"
	"wordxl/internal/intake"
	"wordxl/internal/logging"
	"wordxl/internal/services"
)

// DefaultPollInterval is the progress polling cadence.
const DefaultPollInterval = 300 * time.Millisecond

// API is the subset of the conversion client the controller drives.
type API interface {
	Upload(ctx context.Context, files []convertapi.File) (convertapi.UploadResponse, error)
	Start(ctx context.Context, jobID string) (convertapi.StartResponse, error)
	Poll(ctx context.Context, jobID string) (convertapi.Progress, error)
	FetchResult(ctx context.Context, jobID string) (convertapi.Result, error)
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	State
	Summary intake.Summary
}

// Observer receives a snapshot after every applied transition, in the order
// the transitions were applied. It must not call methods that change state.
type Observer func(Snapshot)

// Controller owns one conversion session.
type Controller struct {
	api      API
	logger   *slog.Logger
	interval time.Duration

	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     State
	gen       uint64
	task      *Task
	observers []Observer
}

// Option customizes the controller.
type Option func(*Controller)

// WithPollInterval overrides the polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers fn to receive snapshots.
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		if fn != nil {
			c.observers = append(c.observers, fn)
		}
	}
}

// New constructs an idle controller.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		logger:   logging.NewNop(),
		interval: DefaultPollInterval,
		state:    Initial(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "session")
	return c
}

// Observe registers fn to receive snapshots from now on.
func (c *Controller) Observe(fn Observer) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(c.state)
}

// Pick stages an explicit file or folder selection and returns how many
// files were accepted.
func (c *Controller) Pick(paths ...string) (int, error) {
	candidates, err := intake.Pick(paths...)
	if err != nil {
		return 0, err
	}
	return len(candidates), c.Stage(candidates)
}

// Drop stages dropped entries and returns how many files were accepted.
func (c *Controller) Drop(paths ...string) (int, error) {
	candidates, err := intake.Drop(paths...)
	if err != nil {
		return 0, err
	}
	return len(candidates), c.Stage(candidates)
}

// Stage appends candidates as pending files.
func (c *Controller) Stage(candidates []intake.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	_, err := c.dispatch(EventStage{Candidates: candidates})
	return err
}

// Remove drops a pending file while the session is idle.
func (c *Controller) Remove(id string) error {
	_, err := c.dispatch(EventRemove{ID: id})
	return err
}

// Begin uploads the staged files and runs the session in a background task.
func (c *Controller) Begin(ctx context.Context) (*Task, error) {
	c.mu.Lock()
	if err := Check(c.state, EventBegin{}); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.gen++
	gen := c.gen
	next, effects := Transition(c.state, EventBegin{})
	c.state = next
	task, taskCtx := newTask(ctx)
	c.task = task
	snap, observers := snapshotOf(c.state), c.observersLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()

	c.logger.Info("conversion session started",
		logging.String(logging.FieldPhase, string(snap.Phase)),
		logging.Int("files", len(snap.Files)),
		logging.String("bytes", snap.Summary.BytesLabel()),
	)
	notify(observers, snap)
	c.notifyMu.Unlock()

	go c.run(taskCtx, task, gen, effects)
	return task, nil
}

// Reset cancels any running task and returns to the initial state. It is
// safe to call at any time and more than once.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.gen++
	task := c.task
	c.task = nil
	prevJob := c.state.JobID
	c.state, _ = Transition(c.state, EventReset{})
	snap, observers := snapshotOf(c.state), c.observersLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	if task != nil {
		task.Cancel()
	}
	if prevJob != "" {
		c.logger.Info("conversion session reset", logging.String(logging.FieldJobID, prevJob))
	}
	notify(observers, snap)
}

// Task returns the running task, if any.
func (c *Controller) Task() *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

func (c *Controller) dispatch(ev Event) (Snapshot, error) {
	c.mu.Lock()
	if err := Check(c.state, ev); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	c.state, _ = Transition(c.state, ev)
	snap := c.publishLocked()
	return snap, nil
}

// apply feeds an outcome from the task back into the state machine. It
// returns ok=false when the task's generation is stale.
func (c *Controller) apply(gen uint64, ev Event) ([]Effect, Snapshot, bool) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, Snapshot{}, false
	}
	next, effects := Transition(c.state, ev)
	c.state = next
	snap := c.publishLocked()
	return effects, snap, true
}

func (c *Controller) run(ctx context.Context, task *Task, gen uint64, effects []Effect) {
	var failure error
	defer func() {
		c.mu.Lock()
		if c.task == task {
			c.task = nil
		}
		stale := gen != c.gen
		c.mu.Unlock()
		if stale && failure == nil {
			failure = context.Canceled
		}
		task.finish(failure)
	}()

	queue := append([]Effect(nil), effects...)
	for len(queue) > 0 {
		effect := queue[0]
		queue = queue[1:]

		ev, err := c.execute(ctx, gen, effect)
		if ev == nil {
			if err != nil {
				failure = err
				return
			}
			continue
		}
		more, snap, ok := c.apply(gen, ev)
		if !ok {
			failure = context.Canceled
			return
		}
		if err != nil {
			failure = err
			c.logFailure(snap, err)
			return
		}
		queue = append(queue, more...)
	}

	snap := c.Snapshot()
	if snap.Phase == PhaseComplete && snap.Result != nil {
		c.logger.Info("conversion complete",
			logging.String(logging.FieldJobID, snap.JobID),
			logging.Int("files", snap.Summary.Succeeded),
			logging.String("result", snap.Result.Path),
		)
	}
}

// execute performs one effect and converts its outcome into an event. A
// non-nil error alongside the event means the event moved the session to
// failed.
func (c *Controller) execute(ctx context.Context, gen uint64, effect Effect) (Event, error) {
	switch e := effect.(type) {
	case EffectUpload:
		resp, err := c.api.Upload(ctx, e.Files)
		if err != nil {
			return EventUploadFailed{Message: failureMessage(err)}, err
		}
		return EventUploaded{JobID: resp.JobID}, nil

	case EffectStart:
		ctx = services.WithJobID(ctx, e.JobID)
		if _, err := c.api.Start(ctx, e.JobID); err != nil {
			return EventStartFailed{Message: failureMessage(err)}, err
		}
		return EventStarted{}, nil

	case EffectStartPolling:
		return c.poll(services.WithJobID(ctx, e.JobID), gen, e.JobID)

	case EffectStopPolling:
		return nil, nil

	case EffectFetchResult:
		ctx = services.WithJobID(ctx, e.JobID)
		res, err := c.api.FetchResult(ctx, e.JobID)
		if err != nil {
			return EventResultFailed{Message: failureMessage(err)}, err
		}
		return EventResult{Result: res}, nil
	}
	return nil, nil
}

// poll ticks until a poll response stops polling. The event that ended the
// loop is returned so its follow-up effects run in the task.
func (c *Controller) poll(ctx context.Context, gen uint64, jobID string) (Event, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	sampler := logging.NewProgressSampler(10)

	for {
		select {
		case <-ctx.Done():
			return EventPollFailed{Message: failureMessage(ctx.Err())}, ctx.Err()
		case <-ticker.C:
		}

		progress, err := c.api.Poll(ctx, jobID)
		if err != nil {
			return EventPollFailed{Message: failureMessage(err)}, err
		}
		ev := EventProgress{Progress: progress}
		if progress.Error != "" {
			return ev, services.Wrap(services.ErrRemote, "session", "poll", progress.Error, nil)
		}
		if progress.Done {
			return ev, nil
		}

		effects, snap, ok := c.apply(gen, ev)
		if !ok {
			return nil, context.Canceled
		}
		if sampler.ShouldLog(snap.Progress, string(snap.Phase)) {
			logging.WithContext(ctx, c.logger).Info("conversion progress",
				logging.Int("progress", snap.Progress),
				logging.Int("succeeded", snap.Summary.Succeeded),
				logging.Int("files", snap.Summary.Total),
			)
		}
		if stopsPolling(effects) {
			return nil, nil
		}
	}
}

func stopsPolling(effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(EffectStopPolling); ok {
			return true
		}
	}
	return false
}

func (c *Controller) logFailure(snap Snapshot, err error) {
	if errors.Is(err, context.Canceled) {
		c.logger.Info("conversion cancelled", logging.String(logging.FieldJobID, snap.JobID))
		return
	}
	logging.ErrorWithContext(c.logger, "conversion failed", "session_failed",
		logging.String(logging.FieldJobID, snap.JobID),
		logging.String("message", snap.Error),
		logging.String("kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the conversion service logs, then reset and retry"),
	)
}

func failureMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "conversion cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "conversion timed out"
	default:
		return convertapi.UserMessage(err)
	}
}

func (c *Controller) observersLocked() []Observer {
	if len(c.observers) == 0 {
		return nil
	}
	return append([]Observer(nil), c.observers...)
}

// publishLocked releases c.mu and delivers the current state. notifyMu is
// taken before c.mu is released, so observers see transitions in the order
// they were applied. Observers must not call back into Reset, Begin or
// Stage.
func (c *Controller) publishLocked() Snapshot {
	snap, observers := snapshotOf(c.state), c.observersLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	notify(observers, snap)
	c.notifyMu.Unlock()
	return snap
}

func notify(observers []Observer, snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}

func snapshotOf(s State) Snapshot {
	cp := s
	cp.Files = append([]intake.StagedFile(nil), s.Files...)
	if s.Result != nil {
		res := *s.Result
		cp.Result = &res
	}
	return Snapshot{State: cp, Summary: intake.Summarize(cp.Files)}
}
