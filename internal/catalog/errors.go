package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a missing library or record.
var ErrNotFound = errors.New("not found")

// StoreError wraps a failure returned by a backing store call. Op names the
// store operation and ID the record or library involved, when known.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("catalog %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrorKind classifies store failures for callers that map errors to statuses.
func (e *StoreError) ErrorKind() string {
	if errors.Is(e.Err, ErrNotFound) {
		return "not_found"
	}
	return "store"
}

// WrapError returns err wrapped in a StoreError, or nil when err is nil.
func WrapError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StoreError
	if errors.As(err, &existing) {
		return err
	}
	return &StoreError{Op: op, ID: id, Err: err}
}
