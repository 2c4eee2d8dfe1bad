package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the taxonomy of failures the core can surface
// (spec.md §7). These are kinds, not exhaustive types: most are silently
// dropped, some escalate to the host via an outbound event, and Fatal halts
// the engine outright.
type ErrorKind uint8

const (
	// ErrValidation covers malformed messages, wrong peer set, wrong
	// leader, or a bad hash. Dropped; the engine logs the drop at debug
	// level and keeps no counter of such drops.
	ErrValidation ErrorKind = iota + 1

	// ErrOutOfDate is height <= last_confirmed.height. Surfaced via
	// OutOutOfDate; the host discards.
	ErrOutOfDate

	// ErrDuplicate is a hash already present in the register. Surfaced via
	// OutDuplicate; the host discards.
	ErrDuplicate

	// ErrOutOfSync is a future height observed, or pending commits
	// detected at commit time. Surfaced via OutOutOfSync; the host
	// initiates catch-up.
	ErrOutOfSync

	// ErrFatal means an internal invariant was violated (e.g. the leader
	// schedule disagrees with a self-produced proposal). No engine code
	// path produces this kind, and the engine has no halted state.
	ErrFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrValidation:
		return "validation"
	case ErrOutOfDate:
		return "out_of_date"
	case ErrDuplicate:
		return "duplicate"
	case ErrOutOfSync:
		return "out_of_sync"
	case ErrFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the error type produced by core operations. Nothing is retried
// inside the core (spec.md §7) — callers branch on Kind to decide whether to
// drop, escalate, or halt.
type Error struct {
	Kind ErrorKind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("solid: %s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("solid: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// NewError builds an *Error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError builds an *Error of the given kind wrapping an underlying cause.
func WrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, err: err}
}

// KindOf extracts the ErrorKind from err, if it is (or wraps) a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var se *Error
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Kind, true
}
