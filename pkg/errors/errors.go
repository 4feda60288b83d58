package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Chat handlers use
// the Code to pick the private reply shown to the acting user.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so clones compare equal to their
// predefined origin.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrValidation       = New("validation_error", http.StatusUnprocessableEntity, "validation failed")
	ErrInvalidEmail     = New("invalid_email", http.StatusUnprocessableEntity, "Invalid email")
	ErrForbidden        = New("forbidden", http.StatusForbidden, "You do not have permission for this action.")
	ErrOriginNotAllowed = New("origin_not_allowed", http.StatusForbidden, "Origin not allowed")
	ErrNotFound         = New("not_found", http.StatusNotFound, "resource not found")
	ErrConflict         = New("conflict", http.StatusConflict, "conflict")
	ErrRateLimited      = New("rate_limited", http.StatusTooManyRequests, "Too many requests")
	ErrNotConfigured    = New("not_configured", http.StatusInternalServerError, "not configured")
	ErrUpstream         = New("telegram_send_failed", http.StatusBadGateway, "upstream request failed")
	ErrInternal         = New("internal_error", http.StatusInternalServerError, "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// CloneWrap is Clone that also records the underlying cause.
func CloneWrap(err *Error, cause error, message string) *Error {
	clone := Clone(err, message)
	if clone != nil {
		clone.Err = cause
	}
	return clone
}

// HasCode reports whether err carries the code of target.
func HasCode(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
