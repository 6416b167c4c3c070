package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures surfaced by the Helix client and the collector.
type ErrorType string

const (
	// ErrorTypeAuth means the identity provider rejected our client credentials.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeQuotaExceeded means the throttle retry budget ran out.
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"
	// ErrorTypeAPI is any unexpected non-2xx response.
	ErrorTypeAPI ErrorType = "api"
	// ErrorTypeTransport is a network level failure (timeout, reset, DNS).
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeValidation is malformed input detected before any request.
	ErrorTypeValidation ErrorType = "validation"
)

// Error represents a classified failure with optional HTTP details
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, &Error{Type: ErrorTypeAuth})
// works as a type probe.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// NewAuthFailure builds an auth error from a rejected token exchange.
func NewAuthFailure(message string, code int, err error) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message, Code: code, Err: err}
}

// NewQuotaExceeded builds the error returned once 429 retries are exhausted.
func NewQuotaExceeded(attempts int) *Error {
	return &Error{
		Type:    ErrorTypeQuotaExceeded,
		Message: fmt.Sprintf("rate limit still exceeded after %d attempts", attempts),
		Code:    http.StatusTooManyRequests,
	}
}

// NewAPIError builds an error for an unexpected status.
func NewAPIError(code int, body string) *Error {
	return &Error{
		Type:    ErrorTypeAPI,
		Message: fmt.Sprintf("unexpected response: %s", http.StatusText(code)),
		Code:    code,
		Body:    body,
	}
}

// NewTransportFailure wraps a network error.
func NewTransportFailure(err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: "request failed", Err: err}
}

// NewValidationError builds an input validation error. Multiple causes can be
// passed in as an errors.Join value.
func NewValidationError(message string, err error) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, Err: err}
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType reports whether err carries the given type.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried by the request loop
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeQuotaExceeded:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err must abort a whole collection run instead of
// only truncating the current phase.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeValidation:
		return true
	default:
		return false
	}
}
