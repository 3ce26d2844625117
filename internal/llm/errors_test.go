package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"Nil error", nil, ActionFail},
		{"Context canceled", context.Canceled, ActionFail},
		{"Deadline exceeded", context.DeadlineExceeded, ActionRetry},
		{"Quota exhausted", errors.New("quota exceeded for project"), ActionFallback},
		{"Daily limit", errors.New("daily limit reached, see billing"), ActionFallback},
		{"Rate limited", errors.New("429 too many requests"), ActionRetry},
		{"Server error", errors.New("503 service unavailable"), ActionRetry},
		{"Overloaded", errors.New("model is overloaded"), ActionRetry},
		{"Connection reset", errors.New("connection reset by peer"), ActionRetry},
		{"Bad request", errors.New("400 bad request"), ActionFail},
		{"Invalid API key", errors.New("invalid api key"), ActionFail},
		{"Forbidden", errors.New("403 forbidden"), ActionFail},
		{"Not found", errors.New("model not found (404)"), ActionFail},
		{"Unknown defaults to retry", errors.New("something odd happened"), ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorAction
	}{
		{429, ActionRetry},
		{408, ActionRetry},
		{500, ActionRetry},
		{503, ActionRetry},
		{400, ActionFail},
		{401, ActionFail},
		{404, ActionFail},
		{422, ActionFail},
	}

	for _, tt := range tests {
		err := wrapError(errors.New("backend call failed"), ProviderGroq, "m", tt.status)
		if got := ClassifyError(err); got != tt.want {
			t.Errorf("ClassifyError(status %d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBackendErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := wrapError(inner, ProviderGemini, "gemini-2.5-flash", 500)

	if !errors.Is(err, inner) {
		t.Error("wrapped error should match the inner error with errors.Is")
	}

	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatal("errors.As should find *BackendError")
	}
	if backendErr.Provider != ProviderGemini || backendErr.Model != "gemini-2.5-flash" {
		t.Errorf("BackendError = %+v", backendErr)
	}

	// Wrapped errors keep classification through fmt wrapping.
	outer := fmt.Errorf("generate: %w", err)
	if got := ClassifyError(outer); got != ActionRetry {
		t.Errorf("ClassifyError(wrapped 500) = %v, want retry", got)
	}
}

func TestWrapErrorNil(t *testing.T) {
	if wrapError(nil, ProviderGroq, "m", 500) != nil {
		t.Error("wrapError(nil) should return nil")
	}
}
