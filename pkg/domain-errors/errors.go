// Package domainerrors defines coded errors shared across services.
//
// Services return these instead of raw errors so transport layers can map
// failures onto HTTP responses without inspecting error strings. Codes are
// stable identifiers; messages are human-readable and may change.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping.
type Code string

const (
	CodeBadRequest      Code = "bad_request"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeTooManyRequests Code = "too_many_requests"
	CodeInvalidInput    Code = "invalid_input"
	CodeUnavailable     Code = "unavailable"
	CodeInternal        Code = "internal_error"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from an error chain. Internal errors return
// an empty message so callers never leak infrastructure details.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return ""
}
