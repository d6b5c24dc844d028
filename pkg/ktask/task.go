// Package ktask implements the Task: a single execution instance with
// an immutable Ref that owns every Worker, Handler, and Stream created
// within its run. Task is the largest module in the kernel because it
// is where every other module's lifecycle is anchored — abort a Task
// and everything it owns is torn down synchronously with it.
package ktask

import (
	"runtime"
	"sync"

	"kestrel/pkg/kerrors"
	"kestrel/pkg/khandler"
	"kestrel/pkg/kid"
	"kestrel/pkg/ksignal"
	"kestrel/pkg/kstream"
	"kestrel/pkg/kstreambuf"
	"kestrel/pkg/kworker"
	"kestrel/pkg/kworkerpool"
)

// Status is the lifecycle state of a Task.
type Status int

const (
	Pending Status = iota
	Running
	Success
	Error
	Aborted
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Error:
		return "error"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is a Task's final, terminal result classification. OutcomeNone
// means the Task is still active (spec: "outcome ... ∪ {null while active}").
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ownedStream is the minimal interface a kstream.Stream[T] instance
// satisfies regardless of its element type, letting a Task hold streams
// of different T in one map.
type ownedStream interface {
	Abort()
}

// RunOptions controls Task.Run's scheduling behavior.
type RunOptions struct {
	// Deferred yields the current goroutine once before running fn,
	// the closest Go analogue to scheduling fn on an idle callback or a
	// zero-delay timer, with no fairness guarantee.
	Deferred bool
	// Streaming, when true, makes ctx.Emit non-nil, backed by an
	// internal StreamBuffer the caller can use to report incremental
	// results.
	Streaming bool
}

// WorkerHandle is returned by Context.SpawnWorker: a minimal control
// surface exposing the Worker's id and a terminate function.
type WorkerHandle struct {
	ID        kid.WorkerID
	Terminate func()
}

// HandlerHandle is returned by Context.AddHandler: a minimal control
// surface exposing the Handler's id, execute, and cancel functions.
type HandlerHandle struct {
	ID      kid.HandlerID
	Execute func() error
	Cancel  func()
}

// StreamHandle is returned by CreateStream: a minimal control surface
// exposing the Stream's id, emit, subscribe, and abort functions.
// CreateStream is a package-level generic function, not a Context
// method, because Go does not allow methods with their own type
// parameters.
type StreamHandle[T any] struct {
	ID        kid.StreamID
	Emit      func(T)
	Subscribe func(func(T)) (unsubscribe func())
	Abort     func()
}

// Context is passed to the function supplied to Run. Emit is non-nil
// only when RunOptions.Streaming was set.
type Context struct {
	Ref    kid.Ref
	Signal *ksignal.Signal
	Emit   func(v any) bool

	task *Task
}

// SpawnWorker creates a Worker owned by this Context's Task. Requires
// the Task to be active.
func (c *Context) SpawnWorker(fn func(*ksignal.Signal) error) (WorkerHandle, error) {
	return c.task.SpawnWorker(fn)
}

// AddHandler creates a Handler owned by this Context's Task. Requires
// the Task to be active.
func (c *Context) AddHandler(fn func() error) (HandlerHandle, error) {
	return c.task.AddHandler(fn)
}

// CreateStream creates a Stream[T] owned by ctx's Task. Requires the
// Task to be active. A package-level generic function stands in for a
// generic Context method, since Go methods cannot carry their own type
// parameters.
func CreateStream[T any](ctx *Context) (StreamHandle[T], error) {
	return createStream[T](ctx.task)
}

type runResult struct {
	val any
	err error
}

// Task is a single execution instance. The zero value is not usable;
// use New. Task is safe for concurrent use.
type Task struct {
	mu      sync.Mutex
	ref     kid.Ref
	scopeID string
	status  Status
	outcome Outcome
	signal  *ksignal.Signal
	result  any
	err     error

	pool *kworkerpool.Pool

	workers  map[kid.WorkerID]*kworker.Worker
	handlers map[kid.HandlerID]*khandler.Handler
	streams  map[kid.StreamID]ownedStream

	streamBuf *kstreambuf.Buffer[any]
}

// New creates a pending Task for scopeID. pool is optional: if nil,
// Run invokes the supplied function directly rather than submitting it
// to a WorkerPool. If ref is empty, a fresh Ref is minted.
func New(scopeID string, pool *kworkerpool.Pool, ref kid.Ref) *Task {
	if ref == "" {
		ref = kid.NewRef()
	}
	return &Task{
		ref:      ref,
		scopeID:  scopeID,
		status:   Pending,
		signal:   ksignal.New(),
		pool:     pool,
		workers:  make(map[kid.WorkerID]*kworker.Worker),
		handlers: make(map[kid.HandlerID]*khandler.Handler),
		streams:  make(map[kid.StreamID]ownedStream),
	}
}

// Ref returns the Task's immutable execution identity.
func (t *Task) Ref() kid.Ref { return t.ref }

// ScopeID returns the id of the owning Scope.
func (t *Task) ScopeID() string { return t.scopeID }

// Signal returns the Task's cancellation signal.
func (t *Task) Signal() *ksignal.Signal { return t.signal }

// Status returns the current lifecycle status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Outcome returns the final outcome, or OutcomeNone while active.
func (t *Task) Outcome() Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Result returns the captured result of a successful run.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the captured error of a failed run.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// IsActive reports whether status is pending or running.
func (t *Task) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isActiveLocked()
}

func (t *Task) isActiveLocked() bool {
	return t.status == Pending || t.status == Running
}

// IsComplete reports whether the Task has reached a terminal status.
func (t *Task) IsComplete() bool {
	return !t.IsActive()
}

// WorkerCount, HandlerCount, and StreamCount report the number of
// owned units of each kind, for the observable surface in spec §6.
func (t *Task) WorkerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.workers)
}

func (t *Task) HandlerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handlers)
}

func (t *Task) StreamCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// Effect is the fast-path execution mode: zero scheduling overhead, no
// WorkerPool, no queueing. It requires the Task to be active and simply
// invokes fn, returning its result directly.
func (t *Task) Effect(fn func() (any, error)) (any, error) {
	if !t.IsActive() {
		return nil, kerrors.NewExecutionRejectedError("task is not active")
	}
	return fn()
}

// Run transitions the Task from Pending to Running and executes fn.
// A Task runs at most once: calling Run on a Task that is no longer
// Pending fails fast, with ErrAborted if the Task was aborted and with a
// DeveloperError otherwise.
func (t *Task) Run(fn func(*Context) (any, error), opts RunOptions) (any, error) {
	t.mu.Lock()
	if t.status == Aborted {
		t.mu.Unlock()
		return nil, ErrAborted
	}
	if t.status != Pending {
		t.mu.Unlock()
		return nil, kerrors.NewDeveloperError("task already run")
	}
	t.status = Running
	sig := t.signal
	if opts.Streaming {
		t.streamBuf = kstreambuf.New[any]()
	}
	t.mu.Unlock()

	if sig.Aborted() {
		return t.finalizeAborted()
	}

	ctx := &Context{Ref: t.ref, Signal: sig, task: t}
	if opts.Streaming {
		ctx.Emit = func(v any) bool { return t.streamBuf.Push(v) }
	}

	var res runResult
	switch {
	case opts.Deferred:
		ch := make(chan runResult, 1)
		go func() {
			runtime.Gosched()
			v, e := fn(ctx)
			ch <- runResult{val: v, err: e}
		}()
		res = <-ch
	case t.pool != nil:
		v, e := t.pool.Execute(func() (any, error) { return fn(ctx) })
		res = runResult{val: v, err: e}
	default:
		v, e := fn(ctx)
		res = runResult{val: v, err: e}
	}

	if sig.Aborted() {
		return t.finalizeAborted()
	}
	if res.err != nil {
		t.finalize(Error, OutcomeError, nil, res.err)
		return nil, res.err
	}
	t.finalize(Success, OutcomeSuccess, res.val, nil)
	return res.val, nil
}

// ErrAborted is returned by Run when the Task's signal was observed
// aborted before or after the supplied function settled.
var ErrAborted = kerrors.New("kestrel: task aborted")

func (t *Task) finalizeAborted() (any, error) {
	t.finalize(Aborted, OutcomeAborted, nil, nil)
	return nil, ErrAborted
}

// finalize transitions the Task to a terminal status exactly once. If
// the Task has already reached a terminal status (e.g. because Abort
// raced with Run's own settlement), finalize is a no-op — terminal
// status never mutates again.
func (t *Task) finalize(status Status, outcome Outcome, result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalizeLocked(status, outcome, result, err)
}

// finalizeLocked is finalize's body, callable by a caller that already
// holds t.mu — used by Abort so that marking the Task terminal and
// snapshotting its owned units happen atomically, with no window in
// which SpawnWorker/AddHandler/createStream could still see the Task as
// active and register a unit Abort's cascade will never reach.
func (t *Task) finalizeLocked(status Status, outcome Outcome, result any, err error) {
	if !t.isActiveLocked() {
		return
	}
	t.status = status
	t.outcome = outcome
	t.result = result
	t.err = err
}

// Abort is a no-op if the Task is already terminal. Otherwise it marks
// the Task Aborted and snapshots every owned Worker/Handler/Stream in
// one critical section — so no concurrent SpawnWorker/AddHandler/
// createStream call can register a new unit after the snapshot is taken
// but before the Task stops being active — then, outside the lock,
// raises the Task's signal, terminates every owned Worker, cancels
// every owned Handler, and aborts every owned Stream.
func (t *Task) Abort() {
	t.mu.Lock()
	if !t.isActiveLocked() {
		t.mu.Unlock()
		return
	}
	t.finalizeLocked(Aborted, OutcomeAborted, nil, nil)

	workers := make([]*kworker.Worker, 0, len(t.workers))
	for _, w := range t.workers {
		workers = append(workers, w)
	}
	handlers := make([]*khandler.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	streams := make([]ownedStream, 0, len(t.streams))
	for _, s := range t.streams {
		streams = append(streams, s)
	}
	sig := t.signal
	t.mu.Unlock()

	sig.Abort()
	for _, w := range workers {
		w.Terminate()
	}
	for _, h := range handlers {
		h.Cancel()
	}
	for _, s := range streams {
		s.Abort()
	}
}

// SpawnWorker creates a Worker owned by this Task. Requires the Task to
// be active.
func (t *Task) SpawnWorker(fn func(*ksignal.Signal) error) (WorkerHandle, error) {
	t.mu.Lock()
	if !t.isActiveLocked() {
		t.mu.Unlock()
		return WorkerHandle{}, kerrors.NewExecutionRejectedError("task is not active")
	}
	w := kworker.New(t.ref)
	t.workers[w.ID()] = w
	t.mu.Unlock()

	go func() {
		_ = w.Start(fn)
	}()

	return WorkerHandle{ID: w.ID(), Terminate: w.Terminate}, nil
}

// AddHandler creates a Handler owned by this Task. Requires the Task to
// be active.
func (t *Task) AddHandler(fn func() error) (HandlerHandle, error) {
	t.mu.Lock()
	if !t.isActiveLocked() {
		t.mu.Unlock()
		return HandlerHandle{}, kerrors.NewExecutionRejectedError("task is not active")
	}
	h := khandler.New(t.ref)
	_ = h.SetFunction(fn)
	t.handlers[h.ID()] = h
	t.mu.Unlock()

	return HandlerHandle{ID: h.ID(), Execute: h.Execute, Cancel: h.Cancel}, nil
}

// createStream creates a Stream[T] owned by t. Requires the Task to be active.
func createStream[T any](t *Task) (StreamHandle[T], error) {
	t.mu.Lock()
	if !t.isActiveLocked() {
		t.mu.Unlock()
		return StreamHandle[T]{}, kerrors.NewExecutionRejectedError("task is not active")
	}
	s := kstream.New[T](t.ref)
	t.streams[s.ID()] = s
	t.mu.Unlock()

	return StreamHandle[T]{
		ID:        s.ID(),
		Emit:      s.Emit,
		Subscribe: s.Subscribe,
		Abort:     s.Abort,
	}, nil
}
