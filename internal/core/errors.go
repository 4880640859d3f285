package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned (wrapped) by stores when a lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned (wrapped) when a uniqueness rule would be violated.
	ErrConflict = errors.New("already exists")

	// ErrMalformedFeed is returned when the catalog feed cannot be parsed as CSV.
	ErrMalformedFeed = errors.New("invalid csv feed")

	// ErrEmptyFeed is returned when the catalog feed has no content at all.
	ErrEmptyFeed = errors.New("empty file")
)

// RequestValidationError rejects a single request with a fixed message.
// The message is shown to the caller verbatim.
type RequestValidationError struct {
	Message string
}

func (e *RequestValidationError) Error() string {
	return e.Message
}

func rejectf(format string, args ...any) error {
	return &RequestValidationError{Message: fmt.Sprintf(format, args...)}
}

// DependencyFailure wraps an error from a store or the blob store.
// Message, when set, replaces the technical error in responses.
type DependencyFailure struct {
	Op      string
	Message string
	Err     error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

func dependencyFailure(op string, err error) error {
	return &DependencyFailure{Op: op, Err: err}
}

// IsRequestValidation reports whether err is, or wraps, a RequestValidationError.
func IsRequestValidation(err error) bool {
	var rv *RequestValidationError
	return errors.As(err, &rv)
}

// IsDependencyFailure reports whether err is, or wraps, a DependencyFailure.
func IsDependencyFailure(err error) bool {
	var df *DependencyFailure
	return errors.As(err, &df)
}
