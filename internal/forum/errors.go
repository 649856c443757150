// Package forum holds the error kinds and caller identity shared by the forum services.
package forum

import (
	"errors"
)

var (
	// ErrNotFound is returned when a post, comment or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the target exists but the operation is not allowed on it
	// (inactive content, or the actor lacks the role).
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is returned before any store access for malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStoreUnavailable wraps persistence failures of the primary write.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError wraps err as ErrStoreUnavailable unless it already carries one of the forum error kinds.
func StoreError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	return &storeError{op: op, err: err}
}

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return e.op + ": " + ErrStoreUnavailable.Error() + ": " + e.err.Error()
}

func (e *storeError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *storeError) Unwrap() error {
	return e.err
}
