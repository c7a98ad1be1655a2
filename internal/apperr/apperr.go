// Package apperr is the error taxonomy shared by the services and the HTTP
// layer. Store and blob failures are translated into these kinds before they
// leave a service.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/lalith-99/potluck/internal/docstore"
)

// Kind classifies an error. A Kind is itself an error so callers can write
// errors.Is(err, apperr.NotFound).
type Kind string

const (
	Internal         Kind = "internal"
	NotFound         Kind = "not_found"
	PermissionDenied Kind = "permission_denied"
	Conflict         Kind = "conflict"
	AlreadyLiked     Kind = "already_liked"
	AlreadySaved     Kind = "already_saved"
	Unauthenticated  Kind = "unauthenticated"
	Unavailable      Kind = "store_unavailable"
	Validation       Kind = "validation_error"
)

func (k Kind) Error() string { return string(k) }

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error's own kind. AlreadyLiked and AlreadySaved also
// match Conflict.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	if !ok {
		return false
	}
	if k == e.Kind {
		return true
	}
	return k == Conflict && (e.Kind == AlreadyLiked || e.Kind == AlreadySaved)
}

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFoundf(format string, args ...any) error {
	return New(NotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return New(PermissionDenied, format, args...)
}

func Invalidf(format string, args ...any) error {
	return New(Validation, format, args...)
}

// KindOf returns the kind of err, or Internal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return Internal
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Retryable reports whether the caller may retry the whole operation.
func Retryable(err error) bool {
	return errors.Is(err, Unavailable)
}

// FromStore classifies a document store error. what names the entity for the
// message, e.g. "community abc". Errors that are already classified pass
// through unchanged.
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	var k Kind
	if errors.As(err, &e) || errors.As(err, &k) {
		return err
	}
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return Wrap(NotFound, err, "%s not found", what)
	case errors.Is(err, docstore.ErrAlreadyExists):
		return Wrap(Conflict, err, "%s already exists", what)
	case errors.Is(err, docstore.ErrContention),
		errors.Is(err, docstore.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return Wrap(Unavailable, err, "store unavailable, retry %s", what)
	}
	return Wrap(Internal, err, "unexpected store failure on %s", what)
}
