package kestrel

import (
	"testing"

	"kestrel/pkg/kconfig"
	"kestrel/pkg/ktask"
	"kestrel/pkg/kscope"
)

func TestFactorySurfaceEndToEnd(t *testing.T) {
	authority := NewAuthority(kconfig.Default())
	defer authority.Dispose()

	newScope := NewScopeFactory(authority)
	scope, err := newScope(kscope.Config{ID: "s", Name: "S"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scope.Mount()

	tasks := NewTaskFactory(scope)
	val, err := tasks.Run(func(ctx *ktask.Context) (any, error) {
		return "done", nil
	}, ktask.RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "done" {
		t.Fatalf("expected done, got %v", val)
	}

	effectVal, err := tasks.Effect(func() (any, error) { return 1, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effectVal != 1 {
		t.Fatalf("expected 1, got %v", effectVal)
	}
}
