// Package session owns the in-memory session cache, its persistence, and the
// session lifecycle rules.
package session

import "fmt"

// NotFoundError reports an operation against a session id that does not exist
// or has already expired.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// StateError reports an operation that is not valid for the session's current
// state (e.g. resuming a completed session).
type StateError struct {
	SessionID string
	State     string
	Op        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s session %s in state %s", e.Op, e.SessionID, e.State)
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a persistence failure. The affected session stays dirty
// in the cache so a later flush can retry it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
