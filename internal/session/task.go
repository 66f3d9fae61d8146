package session

import (
	"context"
	"sync"
)

// Task is the handle for one running session workflow.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func newTask(parent context.Context) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Task{cancel: cancel, done: make(chan struct{})}, ctx
}

// Cancel stops the workflow. It is safe to call more than once.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancel()
}

// Done is closed when the workflow goroutine exits.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the workflow exits and returns its error: nil when the
// session completed, the failing call's error when it failed, and
// context.Canceled when it was cancelled or reset.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}

// Err returns the workflow error once Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}
