// Package kid generates the kernel's opaque identities: Ref, WorkerID,
// HandlerID, and StreamID. Each is a UUIDv4 string minted with
// google/uuid.
package kid

import "github.com/google/uuid"

// Ref is a Task's immutable execution identity. No two Tasks observed
// within a process ever share a Ref; a retry is a new Task with a new Ref.
type Ref string

// WorkerID identifies a Worker, unique within its owning Task.
type WorkerID string

// HandlerID identifies a Handler, unique within its owning Task.
type HandlerID string

// StreamID identifies a Stream, unique within its owning Task.
type StreamID string

// NewRef mints a fresh, globally-unique-within-process Ref.
func NewRef() Ref { return Ref(uuid.New().String()) }

// NewWorkerID mints a fresh WorkerID.
func NewWorkerID() WorkerID { return WorkerID(uuid.New().String()) }

// NewHandlerID mints a fresh HandlerID.
func NewHandlerID() HandlerID { return HandlerID(uuid.New().String()) }

// NewStreamID mints a fresh StreamID.
func NewStreamID() StreamID { return StreamID(uuid.New().String()) }
