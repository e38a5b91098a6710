package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an expected, recoverable outcome reported to the caller.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindTimeWindow       Kind = "time_window"
	KindDuplicateCheckIn Kind = "duplicate_checkin"
	KindNotFound         Kind = "not_found"
)

// Reason is the machine-readable rejection code surfaced to check-in clients.
type Reason string

const (
	ReasonTooEarly  Reason = "too_early"
	ReasonTooLate   Reason = "too_late"
	ReasonFull      Reason = "full"
	ReasonDuplicate Reason = "duplicate"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrTimeWindow       = &Error{Kind: KindTimeWindow}
	ErrDuplicateCheckIn = &Error{Kind: KindDuplicateCheckIn}
	ErrNotFound         = &Error{Kind: KindNotFound}
)

// Error is a typed domain outcome. Infrastructure failures are never an *Error.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	// Offset is how far outside the admission window the request landed.
	Offset time.Duration
}

// Error implements error.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same Kind, so errors.Is(err, ErrConflict) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// CapacityExceeded reports a slot that has no seats left.
func CapacityExceeded(occupancy, capacity int) *Error {
	return &Error{
		Kind:    KindCapacityExceeded,
		Reason:  ReasonFull,
		Message: fmt.Sprintf("class is full (%d/%d)", occupancy, capacity),
	}
}

// DuplicateCheckIn reports a second check-in for the same member and slot.
func DuplicateCheckIn() *Error {
	return &Error{
		Kind:    KindDuplicateCheckIn,
		Reason:  ReasonDuplicate,
		Message: "member is already checked in to this class",
	}
}

// TooEarly reports a check-in before the admission window opens.
// PRE: until > 0
func TooEarly(until time.Duration) *Error {
	return &Error{
		Kind:    KindTimeWindow,
		Reason:  ReasonTooEarly,
		Message: fmt.Sprintf("check-in opens in %s", until.Round(time.Second)),
		Offset:  until,
	}
}

// TooLate reports a check-in after the admission window closed.
// PRE: since > 0
func TooLate(since time.Duration) *Error {
	return &Error{
		Kind:    KindTimeWindow,
		Reason:  ReasonTooLate,
		Message: fmt.Sprintf("check-in closed %s ago", since.Round(time.Second)),
		Offset:  since,
	}
}

// KindOf returns the Kind of err, or "" when err is not a domain outcome.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
