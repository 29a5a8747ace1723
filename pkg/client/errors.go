package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during a request or backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrBadSubdomain is returned by Probe when the subdomain does not exist.
	ErrBadSubdomain = errors.New("subdomain not found")

	// ErrBadCredentials is returned by Probe when authentication fails.
	ErrBadCredentials = errors.New("invalid credentials")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors other than auth, not-found and throttling.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassAuth represents 401 and 403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a non-2xx response from the Zendesk API.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	URL        string

	// RetryAfter is the server-requested delay on 429 responses.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("zendesk %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("zendesk %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a transport failure: connection errors, timeouts or a
// body that could not be read.
type NetworkError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("zendesk network error: %v", e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Classify returns the error class of err. Errors that are neither an
// APIError nor a NetworkError have no class.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}
	return ""
}

// IsAuth reports whether err was caused by rejected credentials.
func IsAuth(err error) bool {
	return Classify(err) == ErrorClassAuth
}

// IsNotFound reports whether err was caused by a 404.
func IsNotFound(err error) bool {
	return Classify(err) == ErrorClassNotFound
}

// Retryable determines if an error class should be retried.
func Retryable(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// Auth, not-found and other 4xx cannot succeed on retry.
		return false
	}
}

// classifyStatus maps a non-2xx status code to its class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 401 || status == 403:
		return ErrorClassAuth
	case status == 404:
		return ErrorClassNotFound
	case status == 429:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
