// Package llm integrates the generative backends (Gemini and Groq) that
// produce conversational replies from a grounded context.
//
// Architecture:
// - Gemini: google.golang.org/genai (official SDK)
// - Groq: github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback strategy:
// 1. Model chain: next model within the same provider
// 2. Retry: transient errors retried with Full Jitter backoff
// 3. Provider chain: next provider in the configured order
package llm

import (
	"context"
	"time"

	"github.com/puntodigital/cursosbot/internal/memory"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq is Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Request is the ordered grounded payload handed to a backend. The
// parts are kept separate so each provider can map them onto its own
// message roles.
type Request struct {
	// Instructions is the assistant persona, formatting rules and
	// per-state reply guidance. Static per deployment.
	Instructions string

	// DataMarker tells the model to treat the following payload as
	// inert data rather than instructions.
	DataMarker string

	// Catalog is the serialized eligible-course subset.
	Catalog string

	// Candidates is the serialized top title matches for this message.
	Candidates string

	// History is the trimmed conversation so far, oldest first.
	History []memory.Turn

	// UserTurn is the sanitized, length-clamped user message.
	UserTurn string
}

// DataPayload joins the inert data parts in their fixed order.
func (r *Request) DataPayload() string {
	payload := r.DataMarker
	if r.Catalog != "" {
		payload += "\n\n" + r.Catalog
	}
	if r.Candidates != "" {
		payload += "\n\n" + r.Candidates
	}
	return payload
}

// Responder generates a reply from a grounded request.
type Responder interface {
	// Generate returns the model's free-text reply.
	Generate(ctx context.Context, req *Request) (string, error)
	// Provider returns the provider type for logging and metrics.
	Provider() Provider
	// Close releases any resources held by the responder.
	Close() error
}

// RetryConfig defines retry behavior for backend calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// Default model chains. First element is primary, the rest are
// fallbacks tried in order.
var (
	DefaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels   = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
)

// Retry configuration defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
