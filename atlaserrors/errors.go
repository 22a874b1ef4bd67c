// Package atlaserrors defines the typed failure taxonomy shared by every
// Atlas component. Lower layers (graphstore, ingest, query, workflowstore,
// statetracker) raise these kinds; apiserver is the only layer that maps
// a Kind to a transport status code.
package atlaserrors

import "fmt"

// Kind identifies the category of failure, independent of any transport.
type Kind string

const (
	KindAuthFailure         Kind = "AuthFailure"
	KindValidationFailure   Kind = "ValidationFailure"
	KindReferentialIntegrity Kind = "ReferentialIntegrity"
	KindNotFound            Kind = "NotFound"
	KindCapacityExceeded    Kind = "CapacityExceeded"
	KindConflict            Kind = "Conflict"
	KindInternal            Kind = "Internal"
)

// Error is the single error type raised across Atlas's core. Message is
// human-readable and safe to return over the wire; Cause, when present,
// is wrapped but never itself serialized to a client.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if asError(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// asError is a small local errors.As to avoid importing errors just for this.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
