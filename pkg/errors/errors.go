package errors

import (
	"errors"
	"fmt"
)

// Common error types for REST invoke tasks
var (
	// Configuration errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMissingRequired  = errors.New("missing required field")
	ErrMalformedMapping = errors.New("malformed output mapping")

	// Invocation errors
	ErrInvocationFailed = errors.New("http invocation failed")

	// Mapping errors
	ErrInvalidJSON  = errors.New("response body is not valid JSON")
	ErrPathNotFound = errors.New("json path did not match")

	// Variable errors
	ErrVariableNotFound = errors.New("variable not found")
	ErrVariableWrite    = errors.New("variable write failed")
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Configuration error codes
	CodeConfiguration    ErrorCode = "CONFIGURATION_ERROR"
	CodeMissingRequired  ErrorCode = "MISSING_REQUIRED"
	CodeMalformedMapping ErrorCode = "MALFORMED_MAPPING"

	// Runtime error codes
	CodeNetwork           ErrorCode = "NETWORK_ERROR"
	CodeMappingEvaluation ErrorCode = "MAPPING_EVALUATION_FAILED"
	CodeVariableWrite     ErrorCode = "VARIABLE_WRITE_FAILED"

	// Internal error codes
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// InvokeError represents a structured error with code and context
type InvokeError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *InvokeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *InvokeError) Unwrap() error {
	return e.Cause
}

// NewInvokeError creates a new InvokeError
func NewInvokeError(code ErrorCode, message string) *InvokeError {
	return &InvokeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// NewInvokeErrorWithCause creates a new InvokeError with a cause
func NewInvokeErrorWithCause(code ErrorCode, message string, cause error) *InvokeError {
	return &InvokeError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *InvokeError) WithDetail(key string, value interface{}) *InvokeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetErrorCode extracts the error code from an error chain
func GetErrorCode(err error) ErrorCode {
	var invokeErr *InvokeError
	if errors.As(err, &invokeErr) {
		return invokeErr.Code
	}
	return CodeInternalError
}

// IsConfigurationError reports whether err stems from task configuration
// rather than from the remote call or the response.
func IsConfigurationError(err error) bool {
	switch GetErrorCode(err) {
	case CodeConfiguration, CodeMissingRequired, CodeMalformedMapping:
		return true
	}
	return false
}

// Convenience functions for common errors
func MissingField(field string) *InvokeError {
	return NewInvokeErrorWithCause(CodeMissingRequired, "missing required field", ErrMissingRequired).
		WithDetail("field", field)
}

func InvalidConfig(field string, reason string) *InvokeError {
	return NewInvokeErrorWithCause(CodeConfiguration, reason, ErrInvalidConfig).
		WithDetail("field", field)
}

func MalformedMapping(entry string, reason string) *InvokeError {
	return NewInvokeErrorWithCause(CodeMalformedMapping, reason, ErrMalformedMapping).
		WithDetail("entry", entry)
}

func NetworkFailure(method, url string, cause error) *InvokeError {
	return NewInvokeErrorWithCause(CodeNetwork, "http invocation failed", fmt.Errorf("%w: %w", ErrInvocationFailed, cause)).
		WithDetail("method", method).
		WithDetail("url", url)
}

func MappingFailed(variable, path string, cause error) *InvokeError {
	return NewInvokeErrorWithCause(CodeMappingEvaluation, "output mapping evaluation failed", cause).
		WithDetail("variable", variable).
		WithDetail("path", path)
}

func VariableWriteFailed(variable string, cause error) *InvokeError {
	return NewInvokeErrorWithCause(CodeVariableWrite, "failed to write variable", fmt.Errorf("%w: %w", ErrVariableWrite, cause)).
		WithDetail("variable", variable)
}
