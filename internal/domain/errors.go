package domain

import (
	"errors"
	"fmt"
)

// Predefined domain errors.
var (
	// ErrInvalidInput marks a malformed request (bad message shape, bad data URI).
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream marks a non-2xx answer from the workflow backend.
	ErrUpstream = errors.New("upstream error")
	// ErrBackendSignaled marks an error event emitted by the backend itself.
	ErrBackendSignaled = errors.New("backend signaled error")
	// ErrInternal marks an internal error.
	ErrInternal = errors.New("internal error")
)

// DomainError carries a stable code plus a user-facing message.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface (for logs and internal propagation).
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the user-facing message without internal details.
func (e *DomainError) UserMessage() string {
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// UpstreamError carries the status code and body of a failed backend call so
// the handler can forward them verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap makes UpstreamError match ErrUpstream under errors.Is.
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// NewInvalidInputError creates an invalid input error.
func NewInvalidInputError(message string) error {
	return &DomainError{
		Code:    "INVALID_INPUT",
		Message: message,
		Err:     ErrInvalidInput,
	}
}

// NewUpstreamError creates an upstream error from a backend response.
func NewUpstreamError(statusCode int, body []byte) error {
	return &UpstreamError{
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// NewBackendSignaledError creates an error for an error event sent by the
// backend inside an otherwise healthy stream.
func NewBackendSignaledError(code, message string) error {
	if message == "" {
		message = "workflow execution failed"
	}
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     ErrBackendSignaled,
	}
}

// NewInternalError creates an internal error without exposing details.
func NewInternalError(err error) error {
	return &DomainError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Err:     fmt.Errorf("%w: %v", ErrInternal, err),
	}
}

// IsInvalidInput reports whether err is an invalid input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUpstream reports whether err is an upstream error.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsBackendSignaled reports whether err is a backend-signaled error.
func IsBackendSignaled(err error) bool {
	return errors.Is(err, ErrBackendSignaled)
}

// IsInternalError reports whether err is an internal error.
func IsInternalError(err error) bool {
	return errors.Is(err, ErrInternal)
}
