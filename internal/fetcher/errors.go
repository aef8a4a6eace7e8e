package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType says which step of a quote fetch went wrong
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"    // connection refused, DNS, reset
	ErrorTypeTimeout    ErrorType = "timeout"    // per-request timeout or context deadline
	ErrorTypeRateLimit  ErrorType = "rate_limit" // HTTP 429
	ErrorTypeServer     ErrorType = "server"     // HTTP 5xx
	ErrorTypeClient     ErrorType = "client"     // HTTP 4xx other than 429
	ErrorTypeValidation ErrorType = "validation" // body arrived but not in the expected shape
	ErrorTypeUnknown    ErrorType = "unknown"
)

// FetchError is returned by fetchers for every failed quote retrieval
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError wraps a transport failure
func NewNetworkError(cause error) *FetchError {
	return &FetchError{Type: ErrorTypeNetwork, Message: "network request failed", Cause: cause}
}

// NewTimeoutError wraps a request that ran out of time
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{Type: ErrorTypeTimeout, Message: "request timed out", Cause: cause}
}

// NewValidationError reports a response that is missing required data
func NewValidationError(message string) *FetchError {
	return &FetchError{Type: ErrorTypeValidation, Message: message}
}

// ClassifyHTTPError maps a non-success status code to a FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	e := &FetchError{StatusCode: statusCode}

	switch {
	case statusCode == http.StatusTooManyRequests:
		e.Type, e.Message = ErrorTypeRateLimit, "rate limit exceeded"
	case statusCode >= 500:
		e.Type, e.Message = ErrorTypeServer, "server returned an error"
	case statusCode >= 400:
		e.Type, e.Message = ErrorTypeClient, fmt.Sprintf("client error: HTTP %d", statusCode)
	default:
		e.Type, e.Message = ErrorTypeUnknown, fmt.Sprintf("unexpected status code: %d", statusCode)
	}

	return e
}

// ClassifyTransportError maps an error from the HTTP client to a timeout or
// network FetchError.
func ClassifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}

	return NewNetworkError(err)
}
