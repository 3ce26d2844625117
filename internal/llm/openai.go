// Package llm integrates the generative backends (Gemini and Groq).
// This file contains the unified OpenAI-compatible responder, used for
// Groq via a custom base URL.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

const (
	openaiTemperature = 0.4
	openaiMaxTokens   = 1024
)

// openaiResponder generates replies through an OpenAI-compatible API.
// It implements the Responder interface.
type openaiResponder struct {
	client   openai.Client
	models   []string
	provider Provider
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewOpenAICompatible creates a responder for an OpenAI-compatible
// provider. Returns nil if apiKey is empty (provider disabled).
func NewOpenAICompatible(provider Provider, apiKey string, models []string, log *logger.Logger, m *metrics.Metrics) (Responder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}
	if len(models) == 0 {
		if provider != ProviderGroq {
			return nil, fmt.Errorf("no default models for provider: %s", provider)
		}
		models = DefaultGroqModels
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiResponder{
		client:   client,
		models:   models,
		provider: provider,
		logger:   log.WithModule("llm." + string(provider)),
		metrics:  m,
	}, nil
}

// Generate tries each configured model in order, moving to the next on
// transient failure. Permanent errors abort the chain.
func (o *openaiResponder) Generate(ctx context.Context, req *Request) (string, error) {
	if o == nil {
		return "", wrapError(fmt.Errorf("responder not configured"), "", "", 0)
	}

	messages := o.buildMessages(req)

	var lastErr error
	for _, model := range o.models {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		params := openai.ChatCompletionNewParams{
			Model:       model,
			Messages:    messages,
			Temperature: openai.Float(openaiTemperature),
			MaxTokens:   openai.Int(openaiMaxTokens),
		}

		start := time.Now()
		resp, err := o.client.Chat.Completions.New(ctx, params)
		elapsed := time.Since(start)

		if err != nil {
			o.metrics.RecordLLMRequest(string(o.provider), model, "error", elapsed.Seconds())
			o.logger.WithError(err).WithField("model", model).
				WithField("duration_ms", elapsed.Milliseconds()).
				Warn("Chat completion failed")
			lastErr = wrapError(err, o.provider, model, 0)
			if IsPermanent(lastErr) {
				return "", lastErr
			}
			continue
		}

		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			o.metrics.RecordLLMRequest(string(o.provider), model, "error", elapsed.Seconds())
			lastErr = wrapError(fmt.Errorf("empty response"), o.provider, model, 0)
			continue
		}

		o.metrics.RecordLLMRequest(string(o.provider), model, "success", elapsed.Seconds())
		if resp.Usage.TotalTokens > 0 {
			o.logger.WithField("model", model).
				WithField("input_tokens", resp.Usage.PromptTokens).
				WithField("output_tokens", resp.Usage.CompletionTokens).
				WithField("duration_ms", elapsed.Milliseconds()).
				Debug("Chat completion finished")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}

	return "", lastErr
}

// buildMessages maps the grounded request onto chat messages: the
// instructions and the inert data payload as system messages, then
// history, then the user turn.
func (o *openaiResponder) buildMessages(req *Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+3)
	messages = append(messages,
		openai.SystemMessage(req.Instructions),
		openai.SystemMessage(req.DataPayload()),
	)
	for _, turn := range req.History {
		if turn.Role == memory.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	return append(messages, openai.UserMessage(req.UserTurn))
}

// Provider returns the provider type for this responder.
func (o *openaiResponder) Provider() Provider {
	if o == nil {
		return ""
	}
	return o.provider
}

// Close releases resources. Safe to call on nil receiver.
func (o *openaiResponder) Close() error {
	// openai-go client doesn't require cleanup
	return nil
}
