// Package apperr defines the error kinds shared by services and handlers.
// Each kind maps to a distinct recovery strategy: validation errors are
// re-prompted locally, conflicts and not-found surface a user message,
// persistence failures abort the current dialog.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for routing and logging.
type Kind string

const (
	// KindValidation marks locally recoverable input errors.
	KindValidation Kind = "VALIDATION"
	// KindAlreadyExists marks duplicate identity or phone conflicts.
	KindAlreadyExists Kind = "ALREADY_EXISTS"
	// KindNotFound marks lookups of absent records.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidTransition marks illegal order status changes.
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	// KindPersistence marks storage failures other than the handled conflicts.
	KindPersistence Kind = "PERSISTENCE"
)

// Error carries a kind, a message, and an optional cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

// New constructs an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf constructs an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs an error of the given kind preserving the cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.err }

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the kind as a stable string; the router's summary logging
// picks it up to derive err_code.
func (e *Error) Code() string { return string(e.kind) }

// KindOf extracts the kind from an error chain, or "" if none is present.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsAlreadyExists reports whether err is a duplicate conflict.
func IsAlreadyExists(err error) bool { return KindOf(err) == KindAlreadyExists }

// IsNotFound reports whether err marks an absent record.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsInvalidTransition reports whether err marks an illegal status change.
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }

// IsPersistence reports whether err marks a storage failure.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }
