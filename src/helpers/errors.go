package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// DeskError is the base error carried by all failure categories.
type DeskError struct {
	Message string
	Cause   error
}

func (e *DeskError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DeskError) Unwrap() error {
	return e.Cause
}

// Failure categories:
//   - NetworkError: market-data provider / transport failures. Logged, result
//     degrades to a placeholder or an unchanged panel.
//   - BackendError: backend service rejections. Surfaced to the caller.
//   - ValidationError: bad user input, detected before any network call.
type ConfigurationError struct{ DeskError }
type NetworkError struct{ DeskError }
type BackendError struct{ DeskError }
type ValidationError struct{ DeskError }

// -----------------------------------------------------------------------------

// NewConfigurationError reports an invalid or unusable configuration.
func NewConfigurationError(msg string, cause error) *ConfigurationError {
	return &ConfigurationError{DeskError{Message: msg, Cause: cause}}
}

// NewNetworkError wraps a transport or provider failure.
func NewNetworkError(msg string, cause error) *NetworkError {
	return &NetworkError{DeskError{Message: msg, Cause: cause}}
}

// NewBackendError wraps a backend service failure.
func NewBackendError(msg string, cause error) *BackendError {
	return &BackendError{DeskError{Message: msg, Cause: cause}}
}

// NewValidationError reports rejected user input.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{DeskError{Message: msg}}
}

// -----------------------------------------------------------------------------

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
