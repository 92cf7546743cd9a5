package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed domain error carrying the HTTP status and the
// machine-readable code returned to API consumers.
type Error struct {
	Code            string                 `json:"code"`
	Message         string                 `json:"error"`
	Status          int                    `json:"-"`
	Details         string                 `json:"details,omitempty"`
	SuggestedAction string                 `json:"suggestedAction,omitempty"`
	Meta            map[string]interface{} `json:"-"`
	Err             error                  `json:"-"`
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
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

// NotFound builds a 404 with the human-readable details consumers rely on.
func NotFound(message, details string) *Error {
	e := Clone(ErrNotFound, message)
	e.Details = details
	return e
}

// Conflict builds a 409 carrying a suggested action for the caller.
func Conflict(message, suggestedAction string) *Error {
	e := Clone(ErrConflict, message)
	e.SuggestedAction = suggestedAction
	return e
}

// ConflictWithCounts builds a 409 whose body includes dependency counts,
// used by the cascade guards on delete endpoints.
func ConflictWithCounts(message string, counts map[string]interface{}) *Error {
	e := Clone(ErrConflict, message)
	e.Meta = counts
	return e
}

// Internal builds a 500 with an operation-specific code for log correlation.
func Internal(err error, code string) *Error {
	return Wrap(err, code, http.StatusInternalServerError, ErrInternal.Message)
}
