// Package apperr holds the error taxonomy shared by the navigation,
// path-resolution and content-assembly layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown concept or user reference.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a start/complete request against a
	// status that forbids it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPrerequisiteNotMet is a specific ErrInvalidTransition raised when a
	// concept is completed before its prerequisites.
	ErrPrerequisiteNotMet = fmt.Errorf("%w: prerequisite not met", ErrInvalidTransition)

	// ErrConflict indicates a commit whose expected prior status no longer
	// matches what is stored, typically a concurrent writer got there first.
	ErrConflict = errors.New("conflicting progress update")

	// ErrCycle indicates an edge insertion that would make the prerequisite
	// relation cyclic.
	ErrCycle = errors.New("prerequisite cycle")

	// ErrUnreachable signals a structural inconsistency in stored graph data.
	// It is an internal error, never a normal user error.
	ErrUnreachable = errors.New("unreachable: inconsistent prerequisite graph")

	// ErrInvalidInput indicates a malformed request (empty ids, negative budgets).
	ErrInvalidInput = errors.New("invalid input")
)

// AdapterError wraps a failure returned by one of the external stores.
// The core never retries or swallows these.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("adapter %s failed", e.Op)
	}
	return fmt.Sprintf("adapter %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Adapter wraps err as an *AdapterError for op. Domain sentinels raised by
// an adapter (ErrNotFound, ErrCycle, ErrConflict, ErrInvalidTransition) are
// returned unchanged so callers can
// classify them directly. Returns nil when err is nil.
func Adapter(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidTransition) {
		return err
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return err
	}
	return &AdapterError{Op: op, Err: err}
}

// IsAdapterFailure reports whether err originated in an external store.
func IsAdapterFailure(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
