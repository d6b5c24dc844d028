// Package ktasktable implements the Scope-indexed Task registry: a Ref
// keyed map of every Task currently tracked by a Scope. Lookups by scope
// id (GetByScope, GetActiveCount, AbortAll) scan the whole map and
// filter on each Task's ScopeID; there is no separate scope index.
package ktasktable

import (
	"sync"

	"kestrel/pkg/kid"
	"kestrel/pkg/ktask"
)

// Table is the Ref -> Task registry. The zero value is not usable; use
// New. Table is safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	tasks map[kid.Ref]*ktask.Task
}

// New creates an empty Table.
func New() *Table {
	return &Table{tasks: make(map[kid.Ref]*ktask.Task)}
}

// Register adds task to the table, keyed by its Ref.
func (t *Table) Register(task *ktask.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[task.Ref()] = task
}

// Unregister removes the Task with the given Ref, if present.
func (t *Table) Unregister(ref kid.Ref) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, ref)
}

// Get returns the Task registered under ref, if any.
func (t *Table) Get(ref kid.Ref) (*ktask.Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[ref]
	return task, ok
}

// Has reports whether ref is registered.
func (t *Table) Has(ref kid.Ref) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tasks[ref]
	return ok
}

// GetByScope returns every registered Task whose ScopeID matches scopeID.
func (t *Table) GetByScope(scopeID string) []*ktask.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*ktask.Task
	for _, task := range t.tasks {
		if task.ScopeID() == scopeID {
			out = append(out, task)
		}
	}
	return out
}

// GetActiveCount returns the number of registered Tasks for scopeID that
// are still active. scopeID is retained for parity with GetByScope/
// AbortAll even though, in practice, a Table only ever holds one Scope's
// Tasks (kscope.Scope owns a private Table per spec §5).
func (t *Table) GetActiveCount(scopeID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, task := range t.tasks {
		if task.ScopeID() == scopeID && task.IsActive() {
			n++
		}
	}
	return n
}

// Len returns the total number of registered Tasks, active or not.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tasks)
}

// AbortAll aborts every registered Task for scopeID. Used by Scope
// disposal to cascade into every Task it owns.
func (t *Table) AbortAll(scopeID string) {
	for _, task := range t.GetByScope(scopeID) {
		task.Abort()
	}
}

// Clear removes every registered Task, without aborting them. Callers
// that need cascading abort should call AbortAll first.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = make(map[kid.Ref]*ktask.Task)
}
