// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrCatalogUnavailable indicates the course catalog could not be loaded.
	// The assistant keeps answering with an empty catalog when this happens.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrBackendUnavailable indicates no generative backend is configured
	// or every configured provider failed.
	ErrBackendUnavailable = errors.New("generative backend unavailable")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConnected indicates the messaging transport is not connected.
	ErrNotConnected = errors.New("transport not connected")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
