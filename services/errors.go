package services

import (
	"errors"
	"fmt"

	"agencyops/backend/database"
)

// ErrorKind classifies domain failures so the HTTP layer can map them
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindInactive
	KindInvalidReference
	KindInvalidStateTransition
	KindConflict
	KindRateFetchFailure
	KindMissingRate
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInactive:
		return "inactive"
	case KindInvalidReference:
		return "invalid_reference"
	case KindInvalidStateTransition:
		return "invalid_state_transition"
	case KindConflict:
		return "conflict"
	case KindRateFetchFailure:
		return "rate_fetch_failure"
	case KindMissingRate:
		return "missing_rate"
	case KindValidation:
		return "validation"
	}
	return "internal"
}

// IsClientError reports whether the caller caused the failure. Everything
// else is an operational incident.
func (k ErrorKind) IsClientError() bool {
	switch k {
	case KindNotFound, KindInactive, KindInvalidReference, KindInvalidStateTransition, KindConflict, KindValidation:
		return true
	}
	return false
}

// Error is the typed failure returned by the services
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func inactive(format string, args ...any) *Error {
	return newError(KindInactive, format, args...)
}

func invalidReference(format string, args ...any) *Error {
	return newError(KindInvalidReference, format, args...)
}

func validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

// internal wraps an infrastructure failure
func internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// writeError converts storage failures into service errors. A UNIQUE
// violation becomes a Conflict carrying msg; service errors pass through.
func writeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Message: msg, Err: err}
	}
	return internal(err, "database write failed")
}
