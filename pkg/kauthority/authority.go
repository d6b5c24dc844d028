// Package kauthority implements the Authority: the process-wide
// registry of Scopes, owner of the shared WorkerPool, and broadcast
// mediator. At most one live Scope exists per id within an Authority.
// Disposing an Authority cascades: dispose every Scope, clear the
// broadcast table, dispose the pool.
package kauthority

import (
	"sync"

	"kestrel/internal/kbus"
	"kestrel/internal/klog"
	"kestrel/pkg/kconfig"
	"kestrel/pkg/kerrors"
	"kestrel/pkg/kscope"
	"kestrel/pkg/kworkerpool"
)

// Metrics is a point-in-time snapshot of Authority state, exposed for
// external consumers (e.g. a dashboard) to poll without subscribing to
// every event.
type Metrics struct {
	IsDisposed     bool
	ScopeCount     int
	WorkerPoolSize int
	IdleWorkers    int
	BusyWorkers    int
}

// Authority is the process-wide registry of Scopes. The zero value is
// not usable; use New. Authority is safe for concurrent use.
type Authority struct {
	mu       sync.RWMutex
	scopes   map[string]*kscope.Scope
	bus      *kbus.Bus
	pool     *kworkerpool.Pool
	disposed bool
	log      *klog.Logger
}

// Option configures optional Authority construction parameters.
type Option func(*Authority)

// WithLogger attaches a Logger the Authority and every Scope it creates
// use for lifecycle tracing. Without this option, nothing is logged
// (klog.Nop).
func WithLogger(l *klog.Logger) Option {
	return func(a *Authority) { a.log = l }
}

// New constructs an Authority from cfg, with its own WorkerPool sized
// by cfg.DefaultWorkers/cfg.MaxWorkers.
func New(cfg kconfig.EngineConfig, opts ...Option) *Authority {
	a := &Authority{
		scopes: make(map[string]*kscope.Scope),
		bus:    kbus.New(),
		pool:   kworkerpool.New(cfg.DefaultWorkers, cfg.MaxWorkers),
		log:    klog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateScope constructs and registers a Scope under cfg.ID. Fails if
// the Authority is disposed, or a Scope with cfg.ID already exists. If
// cfg.Workers exceeds the current pool size, the pool is scaled up to
// accommodate it.
func (a *Authority) CreateScope(cfg kscope.Config) (*kscope.Scope, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.disposed {
		return nil, kerrors.NewAuthorityNotInitializedError()
	}
	if _, exists := a.scopes[cfg.ID]; exists {
		return nil, kerrors.NewAuthorityAlreadyExistsError("scope", cfg.ID)
	}

	if cfg.Workers > a.pool.Size() {
		a.pool.Scale(cfg.Workers)
	}

	scope := kscope.New(cfg, a.pool, kscope.WithLogger(a.log.WithScope(cfg.ID)))
	a.scopes[cfg.ID] = scope
	a.log.Debug("scope created", "scope_id", cfg.ID, "name", cfg.Name)
	return scope, nil
}

// GetScope looks up a registered Scope by id.
func (a *Authority) GetScope(id string) (*kscope.Scope, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.scopes[id]
	return s, ok
}

// HasScope reports whether a Scope is registered under id.
func (a *Authority) HasScope(id string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.scopes[id]
	return ok
}

// UnregisterScope removes the mapping for id without disposing the
// Scope — used by callers that want to tear down their Scope
// themselves and then drop the reference. Returns false if no such
// Scope was registered.
func (a *Authority) UnregisterScope(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.scopes[id]; !ok {
		return false
	}
	delete(a.scopes, id)
	return true
}

// GetScopeIds returns every currently registered Scope id.
func (a *Authority) GetScopeIds() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.scopes))
	for id := range a.scopes {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers fn to be called on every Broadcast to channel.
// The returned function removes the subscription.
func (a *Authority) Subscribe(channel string, fn func(any)) (unsubscribe func()) {
	return a.bus.Subscribe(channel, fn)
}

// Broadcast synchronously fans data out to every current subscriber of channel.
func (a *Authority) Broadcast(channel string, data any) {
	a.bus.Broadcast(channel, data)
}

// Metrics returns a point-in-time snapshot of Authority state.
func (a *Authority) Metrics() Metrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	poolMetrics := a.pool.Metrics()
	return Metrics{
		IsDisposed:     a.disposed,
		ScopeCount:     len(a.scopes),
		WorkerPoolSize: poolMetrics.Size,
		IdleWorkers:    poolMetrics.Idle,
		BusyWorkers:    poolMetrics.Busy,
	}
}

// Dispose is idempotent: it disposes every registered Scope, clears the
// Scope map and broadcast table, and disposes the pool.
func (a *Authority) Dispose() {
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	a.disposed = true
	scopes := make([]*kscope.Scope, 0, len(a.scopes))
	for _, s := range a.scopes {
		scopes = append(scopes, s)
	}
	a.scopes = make(map[string]*kscope.Scope)
	a.mu.Unlock()

	a.log.Info("authority disposing", "scope_count", len(scopes))
	for _, s := range scopes {
		s.Dispose()
	}
	a.bus.Clear()
	a.pool.Dispose()
}
