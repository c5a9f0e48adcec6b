package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error so transport layers can map it without
// string matching.
type Code string

const (
	CodeInternal       Code = "internal_error"
	CodeValidation     Code = "validation_error"
	CodeBadRequest     Code = "bad_request"
	CodeUnauthorized   Code = "unauthorized"
	CodeNotFound       Code = "not_found"
	CodeAlreadyExists  Code = "already_exists"
	CodeAlreadyRevoked Code = "already_revoked"
	CodePendingTimeout Code = "pending_timeout"
)

// Error is a coded domain error. Services return these so handlers can pick
// status codes and callers can branch on Code rather than message text.
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

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var domErr *Error
	for errors.As(err, &domErr) {
		if domErr.Code == code {
			return true
		}
		err = domErr.cause
		domErr = nil
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not a domain error.
func CodeOf(err error) Code {
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost domain message, or the plain error text.
func MessageOf(err error) string {
	var domErr *Error
	if errors.As(err, &domErr) {
		return domErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
