// Package llm integrates the generative backends (Gemini and Groq).
// This file contains the cross-provider fallback chain.
package llm

import (
	"context"
	"fmt"

	"github.com/puntodigital/cursosbot/internal/config"
	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

// Chain tries each configured responder in order, retrying transient
// errors with backoff before moving to the next provider. It implements
// the Responder interface itself so callers see a single backend.
type Chain struct {
	responders []Responder
	retry      RetryConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewChain builds the provider chain from configuration. Providers
// without an API key are skipped; an empty chain is valid and fails
// every request with ErrBackendUnavailable.
func NewChain(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Chain, error) {
	chain := &Chain{
		retry:   DefaultRetryConfig(),
		logger:  log.WithModule("llm"),
		metrics: m,
	}

	for _, name := range cfg.LLMProviders {
		var (
			responder Responder
			err       error
		)
		switch Provider(name) {
		case ProviderGemini:
			responder, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModels, log, m)
		case ProviderGroq:
			responder, err = NewOpenAICompatible(ProviderGroq, cfg.GroqAPIKey, cfg.GroqModels, log, m)
		default:
			return nil, fmt.Errorf("unknown LLM provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("initialize %s: %w", name, err)
		}
		if responder != nil {
			chain.responders = append(chain.responders, responder)
		}
	}

	if len(chain.responders) == 0 {
		chain.logger.Warn("No generative backend configured, replies will degrade to the apology template")
	}
	return chain, nil
}

// newChainWith builds a chain from explicit responders, used in tests.
func newChainWith(retry RetryConfig, log *logger.Logger, m *metrics.Metrics, responders ...Responder) *Chain {
	return &Chain{responders: responders, retry: retry, logger: log.WithModule("llm"), metrics: m}
}

// Enabled reports whether at least one backend is configured.
func (c *Chain) Enabled() bool {
	return c != nil && len(c.responders) > 0
}

// Generate tries each provider in order. A permanent error aborts the
// chain immediately; transient errors are retried with Full Jitter
// backoff before falling through to the next provider.
func (c *Chain) Generate(ctx context.Context, req *Request) (string, error) {
	if !c.Enabled() {
		return "", apperrors.ErrBackendUnavailable
	}

	var lastErr error
	for _, responder := range c.responders {
		text, err := c.generateWithRetry(ctx, responder, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		action := ClassifyError(err)
		c.logger.WithError(err).
			WithField("provider", responder.Provider().String()).
			WithField("action", action.String()).
			Warn("Provider failed")

		if action == ActionFail {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: all providers failed: %w", apperrors.ErrBackendUnavailable, lastErr)
}

// generateWithRetry runs a single provider with the retry policy.
func (c *Chain) generateWithRetry(ctx context.Context, responder Responder, req *Request) (string, error) {
	var lastErr error

	for attempt := range c.retry.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		text, err := responder.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return "", err
		}
		if attempt == c.retry.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, c.retry.InitialDelay, c.retry.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		c.metrics.RecordLLMRetry(responder.Provider().String())
		c.logger.WithError(err).
			WithField("provider", responder.Provider().String()).
			WithField("attempt", attempt+1).
			WithField("backoff_ms", backoff.Milliseconds()).
			Debug("Retrying generation")

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// Provider returns the primary provider of the chain.
func (c *Chain) Provider() Provider {
	if !c.Enabled() {
		return ""
	}
	return c.responders[0].Provider()
}

// Close closes every responder in the chain.
func (c *Chain) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, responder := range c.responders {
		if err := responder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
