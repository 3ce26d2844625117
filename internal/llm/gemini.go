// Package llm integrates the generative backends (Gemini and Groq).
// This file contains the Gemini responder.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

const (
	// Low temperature keeps replies close to the grounded catalog data.
	geminiTemperature     = 0.4
	geminiMaxOutputTokens = 1024
)

// geminiResponder generates replies with Google's Gemini API.
// It implements the Responder interface.
type geminiResponder struct {
	client  *genai.Client
	models  []string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewGemini creates a Gemini-backed responder. Returns nil if apiKey is
// empty (provider disabled).
func NewGemini(ctx context.Context, apiKey string, models []string, log *logger.Logger, m *metrics.Metrics) (Responder, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}
	if len(models) == 0 {
		models = DefaultGeminiModels
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiResponder{
		client:  client,
		models:  models,
		logger:  log.WithModule("llm.gemini"),
		metrics: m,
	}, nil
}

// Generate tries each configured model in order, moving to the next on
// transient failure. Permanent errors abort the chain.
func (g *geminiResponder) Generate(ctx context.Context, req *Request) (string, error) {
	if g == nil || g.client == nil {
		return "", wrapError(fmt.Errorf("gemini responder not configured"), ProviderGemini, "", 0)
	}

	contents := g.buildContents(req)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.Instructions, genai.RoleUser),
		Temperature:       genai.Ptr[float32](geminiTemperature),
		MaxOutputTokens:   geminiMaxOutputTokens,
	}

	var lastErr error
	for _, model := range g.models {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		start := time.Now()
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
		elapsed := time.Since(start)

		if err != nil {
			g.metrics.RecordLLMRequest(string(ProviderGemini), model, "error", elapsed.Seconds())
			g.logger.WithError(err).WithField("model", model).
				WithField("duration_ms", elapsed.Milliseconds()).
				Warn("Gemini generation failed")
			lastErr = wrapError(err, ProviderGemini, model, 0)
			if IsPermanent(lastErr) {
				return "", lastErr
			}
			continue
		}

		text := extractGeminiText(resp)
		if text == "" {
			g.metrics.RecordLLMRequest(string(ProviderGemini), model, "error", elapsed.Seconds())
			lastErr = wrapError(fmt.Errorf("empty response"), ProviderGemini, model, 0)
			continue
		}

		g.metrics.RecordLLMRequest(string(ProviderGemini), model, "success", elapsed.Seconds())
		if resp.UsageMetadata != nil {
			g.logger.WithField("model", model).
				WithField("input_tokens", resp.UsageMetadata.PromptTokenCount).
				WithField("output_tokens", resp.UsageMetadata.CandidatesTokenCount).
				WithField("duration_ms", elapsed.Milliseconds()).
				Debug("Gemini generation completed")
		}
		return text, nil
	}

	return "", lastErr
}

// buildContents maps the grounded request onto Gemini's content list:
// the inert data payload first, then history, then the user turn.
func (g *geminiResponder) buildContents(req *Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+2)
	contents = append(contents, genai.NewContentFromText(req.DataPayload(), genai.RoleUser))
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == memory.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.UserTurn, genai.RoleUser))
	return contents
}

// extractGeminiText concatenates the text parts of the first candidate.
func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Provider returns the provider type for this responder.
func (g *geminiResponder) Provider() Provider {
	return ProviderGemini
}

// Close releases resources. Safe to call on nil receiver.
func (g *geminiResponder) Close() error {
	// genai.Client does not require explicit cleanup in the current SDK.
	return nil
}
