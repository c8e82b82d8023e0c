package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxSQLLength    int
	MaxPromptLength int
	MaxDomainLength int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxSQLLength:    64 * 1024,
		MaxPromptLength: 2000,
		MaxDomainLength: 100,
	}
}

// OrDefault returns the difficulty itself, or medium when unset.
func (d Difficulty) OrDefault() Difficulty {
	if d == "" {
		return DifficultyMedium
	}
	return d
}

// ValidateGenerateRequest checks a GenerateRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateGenerateRequest(req *GenerateRequest, cfg ValidationConfig) *APIError {
	if d := req.Difficulty.OrDefault(); !d.Valid() {
		return NewInvalidRequestError("difficulty",
			fmt.Sprintf("difficulty must be one of easy, medium, hard; got %q", req.Difficulty))
	}
	if cfg.MaxDomainLength > 0 && len(req.Domain) > cfg.MaxDomainLength {
		return NewInvalidRequestError("domain",
			fmt.Sprintf("domain exceeds maximum of %d characters", cfg.MaxDomainLength))
	}
	return nil
}

// ValidateGenerateCustomRequest checks a GenerateCustomRequest for validity.
func ValidateGenerateCustomRequest(req *GenerateCustomRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Prompt) == "" {
		return NewInvalidRequestError("prompt", "prompt is required")
	}
	if cfg.MaxPromptLength > 0 && len(req.Prompt) > cfg.MaxPromptLength {
		return NewInvalidRequestError("prompt",
			fmt.Sprintf("prompt exceeds maximum of %d characters", cfg.MaxPromptLength))
	}
	if d := req.Difficulty.OrDefault(); !d.Valid() {
		return NewInvalidRequestError("difficulty",
			fmt.Sprintf("difficulty must be one of easy, medium, hard; got %q", req.Difficulty))
	}
	return nil
}

// ValidateCheckRequest checks a CheckRequest for validity.
func ValidateCheckRequest(req *CheckRequest, cfg ValidationConfig) *APIError {
	if req.SessionID == "" {
		return NewInvalidRequestError("session_id", "session_id is required")
	}
	if !ValidateSessionID(req.SessionID) {
		return NewInvalidRequestError("session_id",
			fmt.Sprintf("%q is not a valid session ID", req.SessionID))
	}
	return validateSQL(req.SQL, cfg)
}

// ValidateExecuteRequest checks an ExecuteRequest for validity.
func ValidateExecuteRequest(req *ExecuteRequest, cfg ValidationConfig) *APIError {
	if req.Namespace != "" && !ValidateNamespace(req.Namespace) {
		return NewInvalidRequestError("namespace",
			fmt.Sprintf("%q is not a valid sandbox namespace", req.Namespace))
	}
	return validateSQL(req.SQL, cfg)
}

func validateSQL(sql string, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(sql) == "" {
		return NewInvalidRequestError("sql", "sql is required")
	}
	if cfg.MaxSQLLength > 0 && len(sql) > cfg.MaxSQLLength {
		return NewInvalidRequestError("sql",
			fmt.Sprintf("sql exceeds maximum of %d bytes", cfg.MaxSQLLength))
	}
	return nil
}
