package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy for the extraction pipeline.
var (
	// ErrConfiguration marks missing or invalid service credentials/config.
	// Fatal, never retried, surfaced immediately.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks throttling, unavailability, internal errors and
	// timeouts from external services. Retried with backoff, then surfaced.
	ErrTransient = errors.New("transient service error")
	// ErrParse marks a model response from which no JSON value could be
	// recovered. Not retried in isolation; the orchestrator switches strategy.
	ErrParse = errors.New("response parse error")
	// ErrValidation marks model output that parsed as JSON but violated the
	// expected schema. Worth one corrective re-prompt before giving up.
	ErrValidation = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ConfigurationError(message string) error {
	return NewAppError("CONFIG_ERROR", message, ErrConfiguration)
}

func TransientError(message string, cause error) error {
	if cause == nil {
		cause = ErrTransient
	} else {
		cause = fmt.Errorf("%w: %w", ErrTransient, cause)
	}
	return NewAppError("TRANSIENT_ERROR", message, cause)
}

func ParseError(message string) error {
	return NewAppError("PARSE_ERROR", message, ErrParse)
}

func ValidationError(message string) error {
	return NewAppError("VALIDATION_ERROR", message, ErrValidation)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
