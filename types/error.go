package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the scheduler.
type ErrorCode string

// Oracle error codes
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrUnsupportedProvider ErrorCode = "UNSUPPORTED_PROVIDER"
)

// Decision error codes
const (
	ErrSchemaViolation   ErrorCode = "SCHEMA_VIOLATION"
	ErrDecisionExhausted ErrorCode = "DECISION_EXHAUSTED"
	ErrUnknownAgent      ErrorCode = "UNKNOWN_AGENT"
)

// Context error codes
const (
	ErrCompressionFailed ErrorCode = "COMPRESSION_FAILED"
	ErrTokenizerError    ErrorCode = "TOKENIZER_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error chain carries a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// DecisionExhaustedError is returned by the decision client when every
// attempt allowed by the retry policy failed. Last is the error of the final
// attempt; no best-guess value accompanies it.
type DecisionExhaustedError struct {
	Attempts int
	Last     error
}

func (e *DecisionExhaustedError) Error() string {
	return fmt.Sprintf("decision exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *DecisionExhaustedError) Unwrap() error {
	return e.Last
}

// UnsupportedProviderError is returned instead of panicking when no client
// can be built for a provider. It is a configuration error and is never retried.
type UnsupportedProviderError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *UnsupportedProviderError) Error() string {
	msg := fmt.Sprintf("unsupported provider %q", e.Provider)
	if e.Model != "" {
		msg += fmt.Sprintf(" (model %q)", e.Model)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
