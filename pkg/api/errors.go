package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError           ErrorType = "server_error"
	ErrorTypeInvalidRequest        ErrorType = "invalid_request"
	ErrorTypeSessionNotFound       ErrorType = "session_not_found"
	ErrorTypeRateLimited           ErrorType = "rate_limited"
	ErrorTypeProvisioning          ErrorType = "provisioning_error"
	ErrorTypeExecutionTimeout      ErrorType = "execution_timeout"
	ErrorTypeGenerationUnavailable ErrorType = "generation_unavailable"
	ErrorTypeMalformedGeneration   ErrorType = "malformed_generation"
	ErrorTypeSetupExecution        ErrorType = "setup_execution_error"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewSessionNotFoundError creates an APIError for unknown or expired sessions.
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Type:    ErrorTypeSessionNotFound,
		Message: fmt.Sprintf("session %q not found", sessionID),
	}
}

// NewRateLimitedError creates an APIError for callers over their generation budget.
func NewRateLimitedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeRateLimited,
		Message: message,
	}
}

// NewProvisioningError creates an APIError for sandbox namespace failures.
func NewProvisioningError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeProvisioning,
		Message: message,
	}
}

// NewExecutionTimeoutError creates an APIError for statements that
// exceeded the sandbox statement timeout.
func NewExecutionTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeExecutionTimeout,
		Message: message,
	}
}

// NewGenerationUnavailableError creates an APIError for question
// generation that failed because the model backend was unreachable.
func NewGenerationUnavailableError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeGenerationUnavailable,
		Message: message,
	}
}

// NewMalformedGenerationError creates an APIError for model output that
// could not be parsed into a question even after repair.
func NewMalformedGenerationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeMalformedGeneration,
		Message: message,
	}
}

// NewSetupExecutionError creates an APIError for generated setup SQL
// that failed to execute inside a fresh namespace.
func NewSetupExecutionError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeSetupExecution,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
