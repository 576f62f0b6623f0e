// Copyright 2024-2026 Aiku AI

// Package usererr defines the errors whose message is safe and useful to show
// to the person who triggered an operation.
package usererr

import (
	"errors"
	"fmt"
)

// Code classifies a user-facing error.
type Code int

const (
	InvalidInput Code = iota + 1
	Permission
	NotFound
	Conflict
	Cancelled
)

func (c Code) String() string {
	switch c {
	case InvalidInput:
		return "invalid_input"
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// GenericMessage is shown when an error carries no user-facing message.
const GenericMessage = "Something went wrong while processing that. The error has been logged."

// Error is an error with an actionable, user-facing message.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code and message, so sentinel
// errors keep matching after being wrapped with a cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) *Error {
	return Newf(InvalidInput, format, args...)
}

// Message returns the text to show the user for err.
func Message(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Message
	}
	return GenericMessage
}

// IsUserError reports whether err carries a user-facing message.
func IsUserError(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}

var (
	ErrCannotManageWebhooks = New(Permission, "I don't have permission to manage incoming webhooks in this channel. Ask a team or system administrator to grant the bot account the \"Manage Incoming Webhooks\" permission.")
	ErrCannotDeleteMessages = New(Permission, "Your message was proxied, but I don't have permission to delete the original. Ask an administrator to allow the bot account to delete others' posts.")
	ErrWebhookLimit         = New(Conflict, "This channel has reached its incoming webhook limit. Remove an unused webhook and try again.")
	ErrPrivateChannel       = New(InvalidInput, "Messages can't be proxied in direct or group messages.")
	ErrTimedOut             = New(Cancelled, "Timed out - try again.")
)
