package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an update or delete target does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrUnavailable is returned by a remote store that was never initialized.
	ErrUnavailable = errors.New("store not initialized")
)

// StoreError represents an error from a store operation.
// It carries the operation and store context alongside the underlying error.
type StoreError struct {
	Op     string // e.g., "List", "Create", "Update"
	Store  string // "local" or "remote"
	TaskID string // Optional: affected task id
	UserID string // Optional: partition the call targeted
	Err    error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Store, e.Op)
	if e.TaskID != "" {
		msg += fmt.Sprintf(" for task %s", e.TaskID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error wrapping
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error wraps ErrNotFound
func (e *StoreError) IsNotFound() bool {
	return errors.Is(e.Err, ErrNotFound)
}

// NewStoreError creates a new StoreError
func NewStoreError(store, op string, err error) *StoreError {
	return &StoreError{Op: op, Store: store, Err: err}
}

// WithTaskID adds the task id to the error for context
func (e *StoreError) WithTaskID(id string) *StoreError {
	e.TaskID = id
	return e
}

// WithUserID adds the caller partition to the error for context
func (e *StoreError) WithUserID(userID string) *StoreError {
	e.UserID = userID
	return e
}

// IsNotFound reports whether err signals a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
