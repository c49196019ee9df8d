package utils

import (
	"fmt"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Retryable tells clients that re-triggering the same request may succeed.
	Retryable bool `json:"retryable,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// NewRetryableError builds an AppError flagged as retryable.
func NewRetryableError(code string, message string, details ...string) *AppError {
	err := NewAppError(code, message, details...)
	err.Retryable = true
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeInvalidRoster          = "INVALID_ROSTER"
	ErrCodeEngineUnavailable      = "ENGINE_UNAVAILABLE"
	ErrCodeMalformedResponse      = "MALFORMED_RESPONSE"
	ErrCodeInconsistentAssignment = "INCONSISTENT_ASSIGNMENT"
	ErrCodeGenerationInProgress   = "GENERATION_IN_PROGRESS"
	ErrCodeMatchClosed            = "MATCH_CLOSED"
)
