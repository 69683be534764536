// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-sched.

package api

import "fmt"

// Common errors used across the library.
var (
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrResourceExhausted = fmt.Errorf("resource exhausted")
	ErrNotSupported      = fmt.Errorf("operation not supported")
	ErrAlreadyExists     = fmt.Errorf("resource already exists")
	ErrNotFound          = fmt.Errorf("resource not found")
	ErrAlreadyStarted    = fmt.Errorf("runtime already started")
	ErrNotStarted        = fmt.Errorf("runtime not started")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeAlreadyExists
	ErrCodeNotFound
	ErrCodeInvariantViolation
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeAlreadyExists:
		return "already_exists"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeInvariantViolation:
		return "invariant_violation"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap maps codes onto the sentinel errors so errors.Is works.
func (e *Error) Unwrap() error {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return ErrInvalidArgument
	case ErrCodeResourceExhausted:
		return ErrResourceExhausted
	case ErrCodeNotSupported:
		return ErrNotSupported
	case ErrCodeAlreadyExists:
		return ErrAlreadyExists
	case ErrCodeNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
