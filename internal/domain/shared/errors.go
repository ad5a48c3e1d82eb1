package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
)

// Request-layer errors. The session manager and API client return these so
// callers can distinguish an expired session from an ordinary HTTP failure.
var (
	// ErrSessionExpired signals that the bearer token was missing, expired, or
	// rejected with a 401. The session has already been torn down when this is
	// returned; callers should short-circuit and let the session-expired hook
	// take over.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidCredentials is returned by login when the server rejects the
	// credentials or responds without a usable token.
	ErrInvalidCredentials = errors.New("invalid credentials or unexpected server response")
)

// HTTPError is any non-2xx response other than a 401 on an authenticated
// call. Message carries the best available server-provided text.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// NewHTTPError builds an HTTPError, falling back to the generic status
// message when the server gave none.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = fmt.Sprintf("HTTP error! status: %d", status)
	}
	return &HTTPError{Status: status, Message: message}
}

// HTTPErrorFromResponse builds an HTTPError from a response body, preferring
// the server's JSON "message" field, then the raw body text, then the
// generic status message.
func HTTPErrorFromResponse(status int, body []byte) *HTTPError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return NewHTTPError(status, payload.Message)
	}
	return NewHTTPError(status, strings.TrimSpace(string(body)))
}

// NetworkError wraps a low-level transport failure (connection refused, DNS,
// offline) with a user-presentable message.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "connection error, check your network connectivity"
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports a multi-step operation that failed midway.
// Completed lists the steps whose effects were applied and are NOT rolled
// back; the caller decides whether to retry the remainder or surface the
// inconsistent state.
type PartialFailureError struct {
	Op        string
	Completed []string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed after %d completed steps: %v", e.Op, len(e.Completed), e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}
