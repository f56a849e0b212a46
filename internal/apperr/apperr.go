// Package apperr defines the error taxonomy shared by the template runtime,
// the task worker, and the HTTP facade.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for status-code mapping and logging.
type Kind string

const (
	KindNotFound     Kind = "NotFound"
	KindInvalidInput Kind = "InvalidInput"
	KindScript       Kind = "Script"
	KindRepo         Kind = "Repo"
	KindUnauthorized Kind = "UnAuthorized"
	KindOther        Kind = "Other"
)

// Error is the concrete error type carried across component boundaries.
type Error struct {
	Kind     Kind
	Resource string
	ID       string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	default:
		if e.Err != nil {
			if e.Message != "" {
				return fmt.Sprintf("%s: %v", e.Message, e.Err)
			}
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, ID: id}
}

func InvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Script(message string, err error) *Error {
	return &Error{Kind: KindScript, Message: message, Err: err}
}

func Repo(message string, err error) *Error {
	return &Error{Kind: KindRepo, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Other(message string, err error) *Error {
	return &Error{Kind: KindOther, Message: message, Err: err}
}

// As unwraps err into an *Error, returning false if it isn't one.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf classifies an arbitrary error, defaulting to KindOther.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindOther
}

// Wrap adds a location breadcrumb to an error without losing its Kind,
// mirroring the operator-location breadcrumbs the interpreter attaches
// while unwinding a failed render.
func Wrap(breadcrumb string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return &Error{Kind: e.Kind, Resource: e.Resource, ID: e.ID, Message: breadcrumb + ": " + e.Message, Err: e.Err}
	}
	return fmt.Errorf("%s: %w", breadcrumb, err)
}
