package api

import (
	"errors"
	"fmt"
)

// Common API errors. Every *Error unwraps to exactly one of these.
var (
	// ErrUnauthorized is returned when the session token is missing or expired.
	ErrUnauthorized = errors.New("unauthorized: log in again")
	// ErrForbidden is returned when the admin lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a resource already exists.
	ErrConflict = errors.New("conflict")
	// ErrServer is returned for any other non-2xx status.
	ErrServer = errors.New("server error")
	// ErrRejected is returned when a 2xx envelope reports status false.
	ErrRejected = errors.New("request rejected")
	// ErrNetwork is returned when no response was received.
	ErrNetwork = errors.New("network error")
	// ErrUnexpectedShape is returned when a payload cannot be normalized.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// Error is a failed request. Message carries the server-supplied text when
// the response had one.
type Error struct {
	Method     string
	Path       string
	StatusCode int // 0 when no response was received
	Message    string
	Err        error // one of the sentinels above
	cause      error
}

func (e *Error) Error() string {
	detail := e.Message
	if detail == "" && e.cause != nil {
		detail = e.cause.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v: %s", e.Method, e.Path, e.Err, detail)
	}
	if detail == "" {
		return fmt.Sprintf("%s %s: %v (%d)", e.Method, e.Path, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v (%d): %s", e.Method, e.Path, e.Err, e.StatusCode, detail)
}

// Unwrap exposes both the sentinel and the transport cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// UserMessage is the text shown in a notification: the server message when
// present, otherwise the sentinel.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Message extracts a user-facing message from any error, preferring the
// server-supplied text of an *Error.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
