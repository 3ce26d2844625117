// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the WhatsApp transport, the catalog source, the generative
// backends, and the matcher tuning knobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/puntodigital/cursosbot/internal/errors"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// WhatsApp transport
	SessionDBPath string // SQLite database holding the whatsmeow session
	DeviceName    string // Device name shown in the user's linked devices list

	// Catalog source
	CatalogPath    string        // Local file path or http(s) URL; .zst files are decompressed
	CatalogTimeout time.Duration // Timeout for remote catalog fetches
	CatalogRefresh time.Duration // Background reload period, <=0 disables
	R2             R2Config      // Optional R2 object source, takes precedence when enabled

	// LLM
	InstructionsPath string        // Optional file overriding the built-in assistant instructions
	LLMProviders     []string      // Ordered provider fallback chain: "gemini", "groq"
	GeminiAPIKey     string
	GroqAPIKey       string
	GeminiModels     []string      // Ordered model chain for Gemini
	GroqModels       []string      // Ordered model chain for Groq
	ReplyTimeout     time.Duration

	// Metrics authentication
	MetricsUsername string
	MetricsPassword string // Empty disables auth

	// Control plane authentication (Bearer token). Empty disables auth.
	APIToken string

	// Sentry
	SentryDSN         string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack log shipping
	BetterStackToken    string
	BetterStackEndpoint string

	// Bot configuration (embedded)
	Bot BotConfig
}

// R2Config holds the optional Cloudflare R2 catalog source configuration.
type R2Config struct {
	Enabled         bool
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	CatalogKey      string
}

// Endpoint returns the R2 S3-compatible endpoint for the account.
func (r R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

// BotConfig holds the conversation pipeline limits and matcher tuning.
type BotConfig struct {
	// Conversation memory
	HistoryLimit  int // Max history entries kept per conversation (3 exchanges)
	MessageMaxLen int // Per-entry length clamp, ellipsis on truncation

	// Grounding context
	ContextCharBudget   int // Serialized catalog budget before truncation
	MaxCoursesInContext int // Record cap applied when the budget is exceeded
	TopCandidates       int // Candidate matches included as hints

	// Title mention thresholds. Empirically tuned; exposed as configuration
	// so deployments can adjust without a rebuild.
	TitleJaccardThreshold float64
	TitleOverlapThreshold float64
	TitleOverlapMinWords  int

	// Per-chat rate limit (token bucket)
	ChatRateBurst        float64
	ChatRateRefillPerSec float64
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),

		SessionDBPath: getEnv(EnvSessionDBPath, "data/session.db"),
		DeviceName:    getEnv(EnvDeviceName, "Cursosbot"),

		CatalogPath:    getEnv(EnvCatalogPath, "data/cursos.json"),
		CatalogTimeout: getDurationEnv(EnvCatalogTimeout, 30*time.Second),
		CatalogRefresh: getDurationEnv(EnvCatalogRefresh, 30*time.Minute),
		R2: R2Config{
			Enabled:         getBoolEnv(EnvR2Enabled, false),
			AccountID:       getEnv(EnvR2AccountID, ""),
			AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
			BucketName:      getEnv(EnvR2BucketName, ""),
			CatalogKey:      getEnv(EnvR2CatalogKey, "cursos.json"),
		},

		InstructionsPath: getEnv(EnvInstructionsPath, ""),
		LLMProviders:     getListEnv(EnvLLMProviders, []string{"gemini", "groq"}),
		GeminiAPIKey: getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:   getEnv(EnvGroqAPIKey, ""),
		GeminiModels: getListEnv(EnvGeminiModels, nil),
		GroqModels:   getListEnv(EnvGroqModels, nil),
		ReplyTimeout: getDurationEnv(EnvReplyTimeout, 45*time.Second),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
		APIToken:        getEnv(EnvAPIToken, ""),

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		Bot: BotConfig{
			HistoryLimit:          6,
			MessageMaxLen:         1200,
			ContextCharBudget:     18000,
			MaxCoursesInContext:   40,
			TopCandidates:         3,
			TitleJaccardThreshold: getFloatEnv(EnvTitleJaccardThreshold, 0.72),
			TitleOverlapThreshold: getFloatEnv(EnvTitleOverlapThreshold, 0.55),
			TitleOverlapMinWords:  getIntEnv(EnvTitleOverlapMinWords, 2),
			ChatRateBurst:         getFloatEnv(EnvChatRateBurst, 10.0),
			ChatRateRefillPerSec:  getFloatEnv(EnvChatRateRefill, 0.2), // 1 per 5s
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, apperrors.NewValidationError(EnvPort, "is required"))
	}
	if c.SessionDBPath == "" {
		errs = append(errs, apperrors.NewValidationError(EnvSessionDBPath, "is required"))
	}
	if c.R2.Enabled {
		if c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.BucketName == "" {
			errs = append(errs, apperrors.NewValidationError("R2", "catalog source requires account, credentials and bucket"))
		}
	}
	for _, p := range c.LLMProviders {
		if p != "gemini" && p != "groq" {
			errs = append(errs, apperrors.NewValidationError(EnvLLMProviders, fmt.Sprintf("unknown provider %q", p)))
		}
	}
	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// HasBackend returns true if at least one generative backend is configured.
func (c *Config) HasBackend() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != ""
}

// Validate checks the bot pipeline limits for sanity.
func (b *BotConfig) Validate() error {
	var errs []error

	if b.HistoryLimit <= 0 {
		errs = append(errs, errors.New("history limit must be positive"))
	}
	if b.MessageMaxLen <= 0 {
		errs = append(errs, errors.New("message max length must be positive"))
	}
	if b.TitleJaccardThreshold <= 0 || b.TitleJaccardThreshold > 1 {
		errs = append(errs, errors.New("title jaccard threshold must be in (0,1]"))
	}
	if b.TitleOverlapThreshold <= 0 || b.TitleOverlapThreshold > 1 {
		errs = append(errs, errors.New("title overlap threshold must be in (0,1]"))
	}
	if b.TitleOverlapMinWords < 1 {
		errs = append(errs, errors.New("title overlap min words must be at least 1"))
	}
	if b.TopCandidates < 1 {
		errs = append(errs, errors.New("top candidates must be at least 1"))
	}

	return errors.Join(errs...)
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDurationEnv reads a duration environment variable with a fallback default
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getIntEnv reads an integer environment variable with a fallback default
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getFloatEnv reads a float environment variable with a fallback default
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getBoolEnv reads a boolean environment variable with a fallback default
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getListEnv reads a comma-separated environment variable with a fallback default
func getListEnv(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
