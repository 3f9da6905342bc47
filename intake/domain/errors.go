package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an intake error for callers and for log err_code fields.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindDispatchFailure Kind = "DISPATCH_FAILURE"
	KindInvalidState    Kind = "INVALID_STATE"
)

// Error is the single error type returned by intake operations.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "submission.create".
	Op  string
	Msg string
	// Remaining is set for KindRateLimited.
	Remaining time.Duration
	Err       error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code reports the kind; the router logs it as err_code.
func (e *Error) Code() string { return string(e.Kind) }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == ""
}

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrDispatchFailure = &Error{Kind: KindDispatchFailure}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
)

// E builds an *Error of kind for op.
func E(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// RateLimited builds a KindRateLimited error carrying the remaining wait.
func RateLimited(op string, remaining time.Duration) *Error {
	return &Error{
		Kind:      KindRateLimited,
		Op:        op,
		Msg:       fmt.Sprintf("cooldown active, %s remaining", remaining.Round(time.Second)),
		Remaining: remaining,
	}
}

// Wrap builds an *Error of kind around err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// RemainingOf returns the cooldown remaining carried by a rate-limit error.
func RemainingOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimited {
		return e.Remaining, true
	}
	return 0, false
}
