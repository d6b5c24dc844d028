// Package kestrel is the kernel's public factory surface: the three
// helpers that assemble Authority, Scope, and Task constructors without
// leaking internal state — the only entry point most callers need.
package kestrel

import (
	"kestrel/pkg/kauthority"
	"kestrel/pkg/kconfig"
	"kestrel/pkg/kscope"
	"kestrel/pkg/ktask"
)

// NewAuthority constructs an Authority from cfg.
func NewAuthority(cfg kconfig.EngineConfig, opts ...kauthority.Option) *kauthority.Authority {
	return kauthority.New(cfg, opts...)
}

// NewScopeFactory returns a function that creates many Scopes under a,
// with no need to repeat the Authority reference at each call site.
func NewScopeFactory(a *kauthority.Authority) func(kscope.Config) (*kscope.Scope, error) {
	return func(cfg kscope.Config) (*kscope.Scope, error) {
		return a.CreateScope(cfg)
	}
}

// TaskFactory is the minimal surface a caller needs once it holds a
// Scope: effect for synchronous side-effects, run for managed Task
// execution.
type TaskFactory struct {
	Effect func(fn func() (any, error)) (any, error)
	Run    func(fn func(*ktask.Context) (any, error), opts ktask.RunOptions) (any, error)
}

// NewTaskFactory returns a TaskFactory bound to s.
func NewTaskFactory(s *kscope.Scope) *TaskFactory {
	return &TaskFactory{
		Effect: s.Effect,
		Run:    s.Run,
	}
}
