// Package httperr carries the error classes the schedule engine distinguishes:
// bad requests, missing credentials, pre-flight validation failures, rejected
// persists, and partially applied compound operations.
package httperr

import (
	"errors"
	"strings"
)

type BadRequestError struct {
	msg string
}

func (e *BadRequestError) Error() string { return e.msg }

func NewBadRequest(msg string) error { return &BadRequestError{msg: msg} }

func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}

// AuthError means no usable credential was available. Terminal for the
// operation, never retried.
type AuthError struct {
	msg string
}

func (e *AuthError) Error() string { return e.msg }

func NewAuth(msg string) error { return &AuthError{msg: msg} }

func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// ValidationError rejects an operation before any network call is made.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidation(msg string) error { return &ValidationError{msg: msg} }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// PersistenceError is a non-2xx or transport failure from the backend. Code
// is the server-provided stable code when the response carried one.
type PersistenceError struct {
	Code string
	msg  string
}

func (e *PersistenceError) Error() string { return e.msg }

func NewPersistence(code string, msg string) error {
	if msg == "" {
		msg = "persist failed"
	}
	return &PersistenceError{Code: code, msg: msg}
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// PartialOperationError reports a compound operation that failed after some
// sub-steps already took effect. Applied lists what was not undone.
type PartialOperationError struct {
	Applied []string
	Err     error
}

func (e *PartialOperationError) Error() string {
	if len(e.Applied) == 0 {
		return "partial operation: " + e.Err.Error()
	}
	return "partial operation (applied: " + strings.Join(e.Applied, ", ") + "): " + e.Err.Error()
}

func (e *PartialOperationError) Unwrap() error { return e.Err }

func NewPartialOperation(applied []string, err error) error {
	return &PartialOperationError{Applied: applied, Err: err}
}

func IsPartialOperation(err error) bool {
	var target *PartialOperationError
	return errors.As(err, &target)
}
