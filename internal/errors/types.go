package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrorType classifies errors for retry and surfacing decisions.
type ErrorType int

const (
	// ErrorTypeTransient - retry-able errors (network, timeout, 5xx)
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent - non-retry-able errors
	ErrorTypePermanent
	// ErrorTypeValidation - malformed input, rejected before any work starts
	ErrorTypeValidation
	// ErrorTypeSchema - LLM produced output that does not match the expected shape
	ErrorTypeSchema
)

// TransientError represents an error that can be retried
type TransientError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // user-facing message
}

func (e *TransientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError represents an error that should not be retried
type PermanentError struct {
	Err        error
	StatusCode int
	Message    string
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ValidationError represents a rejected request. Surfaced as HTTP 4xx and
// never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// SchemaError indicates the LLM returned output that could not be coerced
// into the requested shape, even after repair and retry.
type SchemaError struct {
	Expected string // short description of the wanted shape
	Raw      string // offending model output, truncated by the caller
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("llm output does not match %s: %v", e.Expected, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NewTransientError creates a transient error with a user-facing message.
func NewTransientError(err error, message string) *TransientError {
	return &TransientError{Err: err, Message: message}
}

// NewPermanentError creates a permanent error with a user-facing message.
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{Err: err, Message: message}
}

// NewValidationError creates a validation error for the named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewSchemaError wraps a coercion failure.
func NewSchemaError(expected, raw string, err error) *SchemaError {
	return &SchemaError{Expected: expected, Raw: raw, Err: err}
}

// IsTransient checks if an error is retry-able.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return false
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return false
	}

	if isNetworkError(err) || isSyscallError(err) {
		return true
	}

	return false
}

// IsValidation checks whether the error should surface as a 4xx.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsSchema checks whether the error is a structured-output failure.
func IsSchema(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// GetErrorType classifies an error. Unknown errors default to permanent so
// callers never loop on them.
func GetErrorType(err error) ErrorType {
	switch {
	case IsValidation(err):
		return ErrorTypeValidation
	case IsSchema(err):
		return ErrorTypeSchema
	case IsTransient(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// FromHTTPStatus maps an HTTP status code from an upstream API to the
// taxonomy.
func FromHTTPStatus(statusCode int, err error) error {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return &TransientError{Err: err, StatusCode: statusCode}
	default:
		return &PermanentError{Err: err, StatusCode: statusCode}
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	return false
}

func isSyscallError(err error) bool {
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE,
			syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return true
		}
	}
	return false
}
