package support

import (
	"errors"
	"fmt"
)

// Kind classifies handler failures for the dispatcher.
type Kind int

const (
	KindInternal Kind = iota
	// KindSessionMissing: input that needs a session arrived without one.
	KindSessionMissing
	// KindStale: a button click the current state does not accept.
	KindStale
	// KindDelivery: the gateway failed to deliver a required message.
	KindDelivery
	// KindCorrelation: a staff reply could not be matched to a user.
	KindCorrelation
)

func (k Kind) String() string {
	switch k {
	case KindSessionMissing:
		return "session_missing"
	case KindStale:
		return "stale"
	case KindDelivery:
		return "delivery"
	case KindCorrelation:
		return "correlation"
	default:
		return "internal"
	}
}

// Error is a classified handler failure. Notice, when set, replaces the
// default text shown to the side that triggered the event.
type Error struct {
	Kind   Kind
	Op     string
	Notice string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func noticeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Notice
	}
	return ""
}
