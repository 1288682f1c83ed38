package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"tokenfarm/chain"
)

// Error codes for external consumption
// Internal details are logged but not exposed in error messages
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeReverted      = "REVERTED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// SanitizedError wraps an internal error with a safe external message
type SanitizedError struct {
	Code     string // Error code for programmatic handling
	Message  string // Safe message for external consumption
	internal error  // Internal error for logging (not exposed)
}

func (e *SanitizedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error for logging
func (e *SanitizedError) Unwrap() error {
	return e.internal
}

// StatusCode maps the error code to an HTTP status
func (e *SanitizedError) StatusCode() int {
	switch e.Code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeReverted:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func ErrInvalidInput(detail string) error {
	return &SanitizedError{
		Code:    ErrCodeInvalidInput,
		Message: detail,
	}
}

func ErrNotFound(what string, internal error) error {
	return &SanitizedError{
		Code:     ErrCodeNotFound,
		Message:  what + " not found",
		internal: internal,
	}
}

// ErrReverted exposes the revert reason; reasons are public contract strings
func ErrReverted(internal error) error {
	reason := chain.RevertReason(internal)
	if reason == "" {
		reason = "execution reverted"
	}
	return &SanitizedError{
		Code:     ErrCodeReverted,
		Message:  reason,
		internal: internal,
	}
}

func ErrInternal(internal error) error {
	return &SanitizedError{
		Code:     ErrCodeInternalError,
		Message:  "an internal error occurred",
		internal: internal,
	}
}

// Sanitize converts any error to a SanitizedError
func Sanitize(err error) *SanitizedError {
	var sanitized *SanitizedError
	if errors.As(err, &sanitized) {
		return sanitized
	}
	switch {
	case errors.Is(err, chain.ErrNoDeployment), errors.Is(err, chain.ErrUnknownContract):
		sanitized, _ = ErrNotFound("contract", err).(*SanitizedError)
	case errors.Is(err, chain.ErrVMError):
		sanitized, _ = ErrReverted(err).(*SanitizedError)
	default:
		sanitized, _ = ErrInternal(err).(*SanitizedError)
	}
	return sanitized
}
