// Package kworker implements the task-bound, cancelable asynchronous
// unit with its own abort signal: a Worker runs a caller-supplied
// function and observes whether its own Signal was aborted to decide
// whether a returned error is a clean cancellation or a real failure.
package kworker

import (
	"errors"
	"sync"

	"kestrel/pkg/kid"
	"kestrel/pkg/ksignal"
)

// Status is the lifecycle state of a Worker.
type Status int

const (
	Idle Status = iota
	Running
	Terminated
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrNotIdle is returned by Start when the Worker is not idle.
var ErrNotIdle = errors.New("kworker: start requires idle status")

// Worker is a task-bound cooperative unit of work with its own
// cancellation signal, independent of its parent Task's signal. The
// zero value is not usable; use New. Worker is safe for concurrent use.
type Worker struct {
	mu     sync.Mutex
	id     kid.WorkerID
	parent kid.Ref
	status Status
	signal *ksignal.Signal
	err    error
}

// New creates an idle Worker owned by the given parent Task Ref, with
// its own fresh Signal.
func New(parent kid.Ref) *Worker {
	return &Worker{
		id:     kid.NewWorkerID(),
		parent: parent,
		status: Idle,
		signal: ksignal.New(),
	}
}

// ID returns the Worker's identity.
func (w *Worker) ID() kid.WorkerID { return w.id }

// Signal returns the Worker's own cancellation signal.
func (w *Worker) Signal() *ksignal.Signal { return w.signal }

// Status returns the current lifecycle status.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// IsActive reports whether the Worker is idle or running.
func (w *Worker) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == Idle || w.status == Running
}

// Err returns the captured failure, if any.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Start runs fn, passing the Worker's own Signal so fn can observe
// cancellation cooperatively. Start requires Idle status and blocks the
// calling goroutine until fn returns.
//
// On normal return, if the Worker is still Running (i.e. Terminate was
// not called mid-flight to force it elsewhere), it moves to Terminated.
// On error: if the Signal was aborted, the error is swallowed and the
// Worker moves to Terminated (a clean cancellation); otherwise the
// Worker moves to Failed, the error is captured, and it is re-raised to
// the caller.
func (w *Worker) Start(fn func(*ksignal.Signal) error) error {
	w.mu.Lock()
	if w.status != Idle {
		w.mu.Unlock()
		return ErrNotIdle
	}
	w.status = Running
	sig := w.signal
	w.mu.Unlock()

	err := fn(sig)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		if sig.Aborted() {
			w.status = Terminated
			return nil
		}
		w.status = Failed
		w.err = err
		return err
	}
	if w.status == Running {
		w.status = Terminated
	}
	return nil
}

// Terminate raises the Worker's abort signal and moves it to
// Terminated, if it is currently active. Idempotent. Never downgrades
// a Failed Worker to Terminated.
func (w *Worker) Terminate() {
	w.mu.Lock()
	active := w.status == Idle || w.status == Running
	if active {
		w.status = Terminated
	}
	sig := w.signal
	w.mu.Unlock()

	if active {
		sig.Abort()
	}
}
