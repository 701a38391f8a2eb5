// Package common defines the error taxonomy shared by all layers of the
// service. Every expected failure carries a Kind, so boundary code can map
// errors to responses without string matching. Callers match kinds with
// errors.Is and the sentinel values below.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindUnauthorized
	KindConflict
	KindBadRequest
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad request"
	case KindNotFound:
		return "not found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a kinded error. Message is safe to show to clients; Err, when
// set, holds the underlying cause and stays server-side.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, ErrNotFound) holds for any
// NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New returns an Error with the given kind and client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is matching.
var (
	ErrValidation   = New(KindValidation, "validation error")
	ErrUnauthorized = New(KindUnauthorized, "unauthorized")
	ErrConflict     = New(KindConflict, "conflict")
	ErrBadRequest   = New(KindBadRequest, "bad request")
	ErrNotFound     = New(KindNotFound, "not found")
	ErrInternal     = New(KindInternal, "internal error")
)

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message from an error chain, falling back
// to a generic message for unclassified errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
