// Package service provides the error taxonomy, identifiers and request
// options shared by the connector, job and document services.
package service

import (
	"errors"
	"fmt"

	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

var (
	// ErrNotFound is returned when a connector, job, checkpoint or document is absent
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a precondition on the stored state does not hold
	ErrConflict = errors.New("conflict")
	// ErrInternal is returned when a storage or backend call failed for another reason
	ErrInternal = errors.New("internal error")
	// ErrBadRequest is returned when a request is malformed
	ErrBadRequest = errors.New("bad request")
)

// Error carries a client facing message together with its kind. The kind is
// one of the sentinel errors above and is matched with errors.Is.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == ErrInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFoundf returns an ErrNotFound error with a formatted message.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf returns an ErrConflict error with a formatted message.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// BadRequestf returns an ErrBadRequest error with a formatted message.
func BadRequestf(format string, args ...any) error {
	return &Error{Kind: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps err as an ErrInternal error.
func Internal(err error, message string) error {
	return &Error{Kind: ErrInternal, Message: message, Err: err}
}

// FromStore maps a storage error onto exactly one kind: a missing item is
// NotFound, a failed precondition is Conflict and anything else is Internal.
// resource describes the item, for example "custom connector cc-123".
func FromStore(err error, resource string) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, kv.ErrNotFound):
		return &Error{Kind: ErrNotFound, Message: resource + " not found", Err: err}
	case errors.Is(err, kv.ErrInvalidCursor):
		return &Error{Kind: ErrBadRequest, Message: "invalid next_token", Err: err}
	case errors.Is(err, kv.ErrConditionFailed):
		return &Error{
			Kind:    ErrConflict,
			Message: resource + " was modified concurrently, retry the request",
			Err:     err,
		}
	default:
		return Internal(err, "failed to access "+resource)
	}
}

// Message returns the client facing message of err. Internal errors are
// reported generically.
func Message(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) && svcErr.Kind != ErrInternal {
		return svcErr.Message
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrBadRequest) {
		return err.Error()
	}
	return "Internal server error"
}
