package api

import (
	"time"
)

// Error codes returned by the API
const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeInvalidDefinition = "INVALID_DEFINITION"
	ErrorCodeExecutionNotFound = "EXECUTION_NOT_FOUND"
	ErrorCodeInternalError     = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   code,
		Message: message,
	}
}

// WithDetails adds details to an error response
func (e *ErrorResponse) WithDetails(details map[string]interface{}) *ErrorResponse {
	e.Details = details
	return e
}

// WithRequestID adds a request ID to an error response
func (e *ErrorResponse) WithRequestID(requestID string) *ErrorResponse {
	e.RequestID = requestID
	return e
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// VariablesResponse lists the variables of one execution
type VariablesResponse struct {
	ExecutionID string                 `json:"execution_id"`
	Variables   map[string]interface{} `json:"variables"`
}
