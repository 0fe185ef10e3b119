// Package apperrors defines the error kinds shared by the stores, services
// and handlers. Handlers switch on the kind with errors.Is to pick a status
// code; the wrapped Error carries the user-facing message.
package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrPersistence   = errors.New("persistence failure")
	ErrConcurrency   = errors.New("identifier collision")
)

// Error is an application error tagged with one of the kinds above.
type Error struct {
	Kind    error
	Message string
	Field   string // set for validation errors
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is lets errors.Is match both the kind and the wrapped cause.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a missing or malformed field.
func Validation(field, message string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: message}
}

// NotFound reports an unknown identifier.
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Unauthorized reports a role mismatch or failed login.
func Unauthorized(message string) error {
	return &Error{Kind: ErrAuthorization, Message: message}
}

// Conflict reports a uniqueness violation such as a duplicate email.
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Persistence wraps a backend failure. op names the store operation.
func Persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Message: op, Err: err}
}

// Concurrency reports an identifier collision detected on insert.
func Concurrency(op string, err error) error {
	return &Error{Kind: ErrConcurrency, Message: op, Err: err}
}

// Message returns the user-facing message of err, falling back to its text.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Message != "" && !errors.Is(ae.Kind, ErrPersistence) && !errors.Is(ae.Kind, ErrConcurrency) {
			return ae.Message
		}
		return ae.Kind.Error()
	}
	return err.Error()
}

// IsRetryable reports whether the caller may retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrConcurrency)
}
