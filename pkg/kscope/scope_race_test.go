package kscope

import (
	"sync"
	"testing"

	"kestrel/pkg/kfsm"
	"kestrel/pkg/ktask"
	"kestrel/pkg/kworkerpool"
)

// TestConcurrentCreateTaskDisposeRace hammers a single Scope with many
// concurrent CreateTask calls racing a single Dispose. CreateTask's
// alive/canExecute check and its TaskTable registration, and Dispose's
// abort-all and FSM transition, each run under s.mu as one section, so
// every Task that CreateTask manages to register must be visible to
// Dispose's AbortAll (and therefore end up aborted) or CreateTask must
// observe the Scope already disposed and fail outright — there is no
// window in which a Task is registered but never reached by Dispose's
// cascade. Run with -race to catch data races in the FSM/TaskTable pair.
func TestConcurrentCreateTaskDisposeRace(t *testing.T) {
	const attempts = 200

	pool := kworkerpool.New(2, 8)
	s := New(Config{ID: "d", Name: "D"}, pool)
	s.Mount()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []*ktask.Task

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Dispose()
	}()

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := s.CreateTask("")
			if err != nil {
				return
			}
			mu.Lock()
			created = append(created, task)
			mu.Unlock()
		}()
	}

	wg.Wait()

	if s.State() != kfsm.Disposed {
		t.Fatalf("expected scope to finalize Disposed, got %v", s.State())
	}

	// Dispose's AbortAll runs synchronously against the same s.mu section
	// that guards CreateTask's registration, so every Task that made it
	// into the table is guaranteed to have been aborted by the time
	// Dispose() returned above.
	for _, task := range created {
		if task.IsActive() {
			t.Fatalf("task %s still active after Scope.Dispose returned", task.Ref())
		}
		if !task.Signal().Aborted() {
			t.Fatalf("task %s signal not aborted after Scope.Dispose returned", task.Ref())
		}
	}

	if _, err := s.CreateTask(""); err == nil {
		t.Fatalf("expected CreateTask after Dispose to be rejected")
	}
}
