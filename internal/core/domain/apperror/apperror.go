// Package apperror provides the error taxonomy used across service
// boundaries: callers branch on the kind, the HTTP layer maps kinds to
// status codes.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindInvalid
	KindUnauthorized
	// KindUnavailable marks failures of upstream collaborators (store,
	// database, event log) as opposed to caller mistakes.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two apperrors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func NotFound(msg string, err error) error {
	return &Error{Kind: KindNotFound, Msg: msg, Err: err}
}

func Conflict(msg string, err error) error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

func Invalid(msg string, err error) error {
	return &Error{Kind: KindInvalid, Msg: msg, Err: err}
}

func Unauthorized(msg string, err error) error {
	return &Error{Kind: KindUnauthorized, Msg: msg, Err: err}
}

func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if absent.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsInvalid(err error) bool      { return KindOf(err) == KindInvalid }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsUnavailable(err error) bool  { return KindOf(err) == KindUnavailable }
