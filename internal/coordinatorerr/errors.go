// Package coordinatorerr defines the error kinds surfaced identically by the
// Store, the Coordinator service, and the Client façade, whichever mode a
// client is running in.
//
// # Usage
//
// Constructing an error:
//
//	err := coordinatorerr.New(coordinatorerr.NotFound, "task not found").WithTaskID("task-004")
//
// Checking an error:
//
//	if coordinatorerr.KindOf(err) == coordinatorerr.Conflict { ... }
//	if coordinatorerr.IsRetryable(err) { ... }
package coordinatorerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way §7 of the coordination-core design
// requires: the same kind must be observable whether the error originated
// in an in-process Store transaction or crossed the wire from the
// Coordinator service.
type Kind int

const (
	// NotFound indicates a task, session, or template id is unknown.
	NotFound Kind = iota
	// InvalidArgument indicates malformed input, an unknown status, or an
	// empty required field (e.g. task title).
	InvalidArgument
	// Conflict indicates a committed invariant would be violated: a cycle
	// in blocked_by, a delete with children and no force flag, completing
	// a task not owned by the caller without force, or a non-reversible
	// undo target.
	Conflict
	// LockTimeout indicates the store's advisory lock could not be
	// acquired within the configured timeout.
	LockTimeout
	// Unavailable indicates the coordinator was unreachable after the
	// client façade exhausted its retry budget.
	Unavailable
	// Stale indicates an operation referenced a session whose heartbeat
	// has expired.
	Stale
	// Internal indicates an unexpected I/O or serialization failure.
	Internal
)

// String returns the wire name used in the JSON error body and matched
// against HTTP status codes.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case Conflict:
		return "conflict"
	case LockTimeout:
		return "lock_timeout"
	case Unavailable:
		return "unavailable"
	case Stale:
		return "stale"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the status code the Coordinator service uses for this
// kind, per the table in §6.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return 404
	case InvalidArgument:
		return 400
	case Conflict:
		return 409
	case LockTimeout:
		return 503
	case Unavailable:
		return 503
	case Stale:
		return 409
	default:
		return 500
	}
}

// KindFromHTTPStatus maps a response status code and decoded kind string
// back to a Kind. The client façade calls this to translate an HTTP error
// response into the same Kind a single-mode caller would see.
func KindFromHTTPStatus(status int, wireKind string) Kind {
	for _, k := range []Kind{NotFound, InvalidArgument, Conflict, LockTimeout, Unavailable, Stale, Internal} {
		if k.String() == wireKind {
			return k
		}
	}
	switch status {
	case 400:
		return InvalidArgument
	case 404:
		return NotFound
	case 409:
		return Conflict
	case 503:
		return Unavailable
	default:
		return Internal
	}
}

// Error is the concrete error type returned by every operation on the
// Store, Scheduler, Session registry, Coordinator, and Client façade.
type Error struct {
	kind      Kind
	message   string
	cause     error
	taskID    string
	sessionID string
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Wrap creates an Error of the given kind that carries cause as its
// underlying error, reachable via errors.Unwrap.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// WithTaskID attaches a task id to the error context.
func (e *Error) WithTaskID(id string) *Error {
	e.taskID = id
	return e
}

// WithSessionID attaches a session id to the error context.
func (e *Error) WithSessionID(id string) *Error {
	e.sessionID = id
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.kind.String()
	if e.taskID != "" {
		prefix = fmt.Sprintf("%s [task=%s]", prefix, e.taskID)
	}
	if e.sessionID != "" {
		prefix = fmt.Sprintf("%s [session=%s]", prefix, e.sessionID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a *Error of the same Kind, so callers can
// write errors.Is(err, coordinatorerr.New(coordinatorerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.kind == e.kind
	}
	return false
}

// IsRetryable reports whether the operation may succeed if retried, per
// §7: only LockTimeout and Unavailable are transient.
func (e *Error) IsRetryable() bool {
	return e.kind == LockTimeout || e.kind == Unavailable
}

// KindOf extracts the Kind from err, defaulting to Internal if err is not
// (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind
	}
	return Internal
}

// IsRetryable reports whether err is retryable per its Kind. Non-*Error
// values are treated as non-retryable.
func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// TaskID returns the task id attached to err, if any.
func TaskID(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.taskID
	}
	return ""
}

// SessionID returns the session id attached to err, if any.
func SessionID(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.sessionID
	}
	return ""
}
