// Package llm integrates the generative backends (Gemini and Groq).
// This file contains error classification for retry/fallback decisions.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry indicates the request should be retried with the same provider.
	ActionRetry ErrorAction = iota
	// ActionFallback indicates the next provider should be attempted.
	ActionFallback
	// ActionFail indicates the request should fail immediately (permanent error).
	ActionFail
)

// String returns a human-readable string for the error action.
func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// BackendError wraps an error with context for retry/fallback decisions.
type BackendError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// ClassifyError determines the appropriate action for a backend error:
//   - transient errors (429, 5xx, network, timeout) → retry
//   - quota exhaustion → fall back to the next provider
//   - permanent errors (400, 401, 403, 404) → fail immediately
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) && backendErr.StatusCode > 0 {
		return classifyStatusCode(backendErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion is more severe than rate limiting: the provider
	// will not recover within a retry window, so switch providers.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}

	if containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429") {
		return ActionRetry
	}
	if containsAny(errStr, "unavailable", "503", "502", "500", "504",
		"internal server error", "bad gateway", "gateway timeout", "overloaded", "capacity") {
		return ActionRetry
	}
	if containsAny(errStr, "408", "timeout", "deadline", "connection") {
		return ActionRetry
	}

	if containsAny(errStr, "400", "invalid", "bad request", "malformed") {
		return ActionFail
	}
	if containsAny(errStr, "401", "unauthorized", "unauthenticated", "invalid api key") {
		return ActionFail
	}
	if containsAny(errStr, "403", "forbidden", "permission denied") {
		return ActionFail
	}
	if containsAny(errStr, "404", "not found") {
		return ActionFail
	}

	// Unknown errors default to retry.
	return ActionRetry
}

// classifyStatusCode determines the action based on an HTTP status code.
func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ActionRetry
	case statusCode == http.StatusRequestTimeout:
		return ActionRetry
	case statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// IsRetryable returns true if the error is transient and can be retried.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent returns true if the error should not be retried.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

// wrapError attaches provider and model context to a backend error.
func wrapError(err error, provider Provider, model string, statusCode int) error {
	if err == nil {
		return nil
	}
	return &BackendError{
		Err:        err,
		StatusCode: statusCode,
		Provider:   provider,
		Model:      model,
	}
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
