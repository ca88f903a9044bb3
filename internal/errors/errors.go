// Package errors defines the coded error type shared by the index, the
// coordinator and the socket protocol. Codes are stable strings so that CLI
// clients can branch on them after a round trip through JSON.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies a failure mode.
type Code string

const (
	// UnknownDocument is returned when a query names a path that was never
	// opened or indexed.
	UnknownDocument Code = "UNKNOWN_DOCUMENT"
	// NoStepAtPosition is returned by reference lookups on a line that holds
	// no step.
	NoStepAtPosition Code = "NO_STEP_AT_POSITION"
	// DialectLoad marks a malformed localization resource. Fatal at startup.
	DialectLoad Code = "DIALECT_LOAD"
	// ParseFailed wraps a front-end failure that is not a syntax error.
	ParseFailed Code = "PARSE_FAILED"
	// Storage wraps cache and filesystem failures.
	Storage Code = "STORAGE"
	// Unavailable is returned when the coordinator has been stopped.
	Unavailable Code = "UNAVAILABLE"
	// Internal marks unexpected conditions.
	Internal Code = "INTERNAL"
)

// Error carries a code, a message and an optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around cause. Returns nil if cause is nil.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so errors.Is(err,
// errors.New(UnknownDocument, "")) works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or Internal
// if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

// HasCode reports whether err's chain contains an *Error with code.
func HasCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.cause
	}
	return false
}
