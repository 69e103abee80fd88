// Package shoperr defines the failure taxonomy shared by the store, the
// dispatcher and the presentation adapters.
package shoperr

import (
	"context"
	"errors"
	"strings"
)

type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindUnauthorized  Kind = "unauthorized"
	KindInvalidState  Kind = "invalid_state"
	KindInvalidAction Kind = "invalid_action"
	KindUpstream      Kind = "upstream_error"
	KindInternal      Kind = "internal_error"
)

// Error is a classified failure. Fields names the offending payload fields for
// validation errors.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrInvalidAction = &Error{Kind: KindInvalidAction}
	ErrUpstream      = &Error{Kind: KindUpstream}
)

// FieldError is one offending field of a validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Validation joins one or more field errors into a single validation failure.
func Validation(problems ...FieldError) error {
	if len(problems) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(problems))
	fields := make([]string, 0, len(problems))
	for _, p := range problems {
		msgs = append(msgs, p.Field+": "+p.Message)
		fields = append(fields, p.Field)
	}
	return &Error{Kind: KindValidation, Message: strings.Join(msgs, "; "), Fields: fields}
}

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func InvalidState(msg string) error { return &Error{Kind: KindInvalidState, Message: msg} }

func InvalidAction(msg string) error { return &Error{Kind: KindInvalidAction, Message: msg} }

// Upstream wraps a collaborator failure.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf classifies err; unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldsOf returns the offending fields of a validation error.
func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// Unavailable reports whether the collaborator could not serve the request at
// all, as opposed to answering with an error.
func Unavailable(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrCircuitOpen) ||
		errors.Is(err, ErrEmptyResult)
}

var (
	// ErrUnavailable marks a collaborator that is not configured or reachable.
	ErrUnavailable = errors.New("upstream: unavailable")
	// ErrCircuitOpen marks calls short-circuited by an open breaker.
	ErrCircuitOpen = errors.New("upstream: circuit open")
	// ErrEmptyResult marks a collaborator that answered with nothing usable.
	ErrEmptyResult = errors.New("upstream: empty result")
)

// MessageOf returns the shopper-facing message of err without the wrapped cause.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
