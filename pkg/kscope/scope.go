// Package kscope implements the Scope: a named, FSM-gated execution
// lane that creates and supervises Tasks. A Scope owns a TaskTable (a
// registry, not a containment field) and borrows its WorkerPool from
// the owning Authority. Disposing a Scope aborts every Task it has
// registered, which in turn tears down every Worker, Handler, and
// Stream those Tasks own.
package kscope

import (
	"sync"

	"kestrel/internal/klog"
	"kestrel/pkg/kerrors"
	"kestrel/pkg/kfsm"
	"kestrel/pkg/kid"
	"kestrel/pkg/ktask"
	"kestrel/pkg/ktasktable"
	"kestrel/pkg/kworkerpool"
)

// Config is the construction config passed by an Authority when
// creating a Scope.
type Config struct {
	ID      string
	Name    string
	Workers int // requested worker count, 0 means "no request"
}

// Scope is a named execution lane gated by an internal FSM. The zero
// value is not usable; use New. Scope is safe for concurrent use.
type Scope struct {
	// mu serializes CreateTask against Dispose: both are compound
	// check-then-act sequences over the FSM and the TaskTable together
	// (CreateTask's alive/canExecute check plus registration; Dispose's
	// abort-all plus FSM transition), and neither the FSM's own mutex
	// nor the TaskTable's own mutex alone can make the pair atomic.
	mu    sync.Mutex
	id    string
	name  string
	fsm   *kfsm.FSM
	table *ktasktable.Table
	pool  *kworkerpool.Pool
	log   *klog.Logger
}

// Option configures optional Scope construction parameters.
type Option func(*Scope)

// WithLogger attaches a Logger the Scope uses for lifecycle tracing.
// Without this option a Scope logs nothing (klog.Nop).
func WithLogger(l *klog.Logger) Option {
	return func(s *Scope) { s.log = l }
}

// New constructs a Scope in state Init, bound to pool (borrowed from
// the owning Authority, may be nil for a pool-less Scope).
func New(cfg Config, pool *kworkerpool.Pool, opts ...Option) *Scope {
	s := &Scope{
		id:    cfg.ID,
		name:  cfg.Name,
		fsm:   kfsm.New(),
		table: ktasktable.New(),
		pool:  pool,
		log:   klog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the Scope's caller-chosen identity.
func (s *Scope) ID() string { return s.id }

// Name returns the Scope's human-readable name.
func (s *Scope) Name() string { return s.name }

// State returns the underlying FSM state.
func (s *Scope) State() kfsm.State { return s.fsm.State() }

// IsAlive reports whether the Scope has not yet been disposed.
func (s *Scope) IsAlive() bool { return s.fsm.IsAlive() }

// CanExecute reports whether the Scope currently permits new work.
func (s *Scope) CanExecute() bool { return s.fsm.CanExecute() }

// WorkerCount returns the logical worker count of the borrowed pool, 0
// if no pool is bound.
func (s *Scope) WorkerCount() int {
	if s.pool == nil {
		return 0
	}
	return s.pool.Size()
}

// TaskCount returns the live TaskTable size.
func (s *Scope) TaskCount() int { return s.table.Len() }

// Mount requests the FSM's Mounted transition. Callable from any
// state, but only takes effect from Init; later calls silently return
// false (idempotency, matching the kernel's own undocumented-but-
// intentional behavior).
func (s *Scope) Mount() bool {
	changed := s.fsm.Transition(kfsm.Mounted)
	if changed {
		s.log.Debug("scope mounted", "scope_id", s.id, "state", s.fsm.State().String())
	}
	return changed
}

// Suspend requests the Running -> Suspended transition.
func (s *Scope) Suspend() bool {
	changed := s.fsm.Transition(kfsm.Suspend)
	if changed {
		s.log.Debug("scope suspended", "scope_id", s.id)
	}
	return changed
}

// Resume requests the Suspended -> Running transition.
func (s *Scope) Resume() bool {
	changed := s.fsm.Transition(kfsm.Resume)
	if changed {
		s.log.Debug("scope resumed", "scope_id", s.id)
	}
	return changed
}

// CreateTask constructs a Task bound to this Scope and its borrowed
// pool, registers it in the TaskTable, and — if the FSM is currently
// Attached — triggers the TaskStarted transition into Running. Fails
// if the Scope is not alive ("disposed") or cannot currently execute
// ("not ready").
//
// The alive/canExecute check and the registration that follows it run
// under s.mu as one atomic sequence, so a concurrent Dispose cannot
// finish aborting-and-transitioning while a Task is only half-created
// here: either CreateTask observes the Scope alive and fully registers
// before Dispose's cascade begins, or it observes disposal underway and
// fails, leaving no Task an in-flight Dispose could miss.
func (s *Scope) CreateTask(ref kid.Ref) (*ktask.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsAlive() {
		return nil, kerrors.NewScopeInactiveError(s.id, "disposed")
	}
	if !s.CanExecute() {
		return nil, kerrors.NewScopeInactiveError(s.id, "not ready")
	}

	task := ktask.New(s.id, s.pool, ref)
	s.table.Register(task)
	if s.fsm.State() == kfsm.Attached {
		s.fsm.Transition(kfsm.TaskStarted)
		s.log.Debug("scope running", "scope_id", s.id, "task_ref", string(task.Ref()))
	}
	return task, nil
}

// Run is the convenience path: createTask, run it, and unregister it
// from the TaskTable on settlement regardless of outcome.
func (s *Scope) Run(fn func(*ktask.Context) (any, error), opts ktask.RunOptions) (any, error) {
	task, err := s.CreateTask("")
	if err != nil {
		return nil, err
	}
	defer s.table.Unregister(task.Ref())
	return task.Run(fn, opts)
}

// Effect delegates to the supplied function directly, with no Task
// created and no TaskTable registration. It requires only that the
// Scope is alive (not disposed/disposing); unlike CreateTask, it does
// not require the Scope to have mounted or run any Task yet. This is a
// deliberate carve-out: see the Open Question in the kernel's design
// notes on effect() bypassing the "Tasks are the sole execution origin"
// claim.
func (s *Scope) Effect(fn func() (any, error)) (any, error) {
	if !s.IsAlive() {
		return nil, kerrors.NewScopeInactiveError(s.id, "disposed")
	}
	return fn()
}

// GetTask looks up a registered Task by Ref.
func (s *Scope) GetTask(ref kid.Ref) (*ktask.Task, bool) {
	return s.table.Get(ref)
}

// AbortTask aborts and unregisters a single Task by Ref. Returns false
// if no such Task is registered.
func (s *Scope) AbortTask(ref kid.Ref) bool {
	task, ok := s.table.Get(ref)
	if !ok {
		return false
	}
	task.Abort()
	s.table.Unregister(ref)
	return true
}

// AbortAll aborts every Task currently registered in the TaskTable,
// without unregistering them.
func (s *Scope) AbortAll() {
	s.table.AbortAll(s.id)
}

// Dispose is a no-op if the Scope is already not alive. Otherwise it
// aborts every registered Task via the TaskTable, then drives the FSM
// through Dispose twice in succession — first into Disposing, then the
// automatic secondary step into Disposed. Idempotent. A Scope that was
// never mounted stays in Init and remains alive, since the FSM has no
// dispose transition out of Init.
//
// The abort-all-then-transition sequence runs under s.mu, the same lock
// CreateTask holds across its own alive-check-and-register sequence, so
// the two can never interleave: no Task can be registered after
// AbortAll has already swept past it and before the FSM lands on
// Disposed, mirroring kauthority.Authority's single-critical-section
// CreateScope/Dispose pairing.
func (s *Scope) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsAlive() {
		return
	}
	taskCount := s.table.Len()
	if taskCount > 0 {
		s.log.Warn("scope disposing, aborting live tasks", "scope_id", s.id, "task_count", taskCount)
	}
	s.table.AbortAll(s.id)
	s.fsm.Transition(kfsm.Dispose)
	s.fsm.Transition(kfsm.Dispose)
	s.log.Debug("scope disposed", "scope_id", s.id)
}
