package engine

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned from a progress callback to abort a transfer
// after a cancel request.
var ErrCancelled = errors.New("download cancelled")

// ValidationError rejects a descriptor before it is queued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// MetadataFetchError wraps a resolver failure.
type MetadataFetchError struct {
	URL string
	Err error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("Failed to fetch info: %v", e.Err)
}

func (e *MetadataFetchError) Unwrap() error { return e.Err }

// ExecutionError wraps an executor failure.
type ExecutionError struct {
	URL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("download failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
