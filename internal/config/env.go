// Package config defines environment variable keys for configuration.
package config

//nolint:gosec // Environment variable keys are not credentials.
const (
	// Server
	EnvPort            = "CURSOSBOT_PORT"
	EnvLogLevel        = "CURSOSBOT_LOG_LEVEL"
	EnvShutdownTimeout = "CURSOSBOT_SHUTDOWN_TIMEOUT"

	// WhatsApp transport
	EnvSessionDBPath = "CURSOSBOT_SESSION_DB_PATH"
	EnvDeviceName    = "CURSOSBOT_DEVICE_NAME"

	// Catalog source (file path, http(s) URL, or R2 object)
	EnvCatalogPath    = "CURSOSBOT_CATALOG_PATH"
	EnvCatalogTimeout = "CURSOSBOT_CATALOG_TIMEOUT"
	EnvCatalogRefresh = "CURSOSBOT_CATALOG_REFRESH"

	// R2 catalog source (optional)
	EnvR2Enabled         = "CURSOSBOT_R2_ENABLED"
	EnvR2AccountID       = "CURSOSBOT_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "CURSOSBOT_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "CURSOSBOT_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "CURSOSBOT_R2_BUCKET_NAME"
	EnvR2CatalogKey      = "CURSOSBOT_R2_CATALOG_KEY"

	// LLM
	EnvInstructionsPath = "CURSOSBOT_INSTRUCTIONS_PATH"
	EnvLLMProviders     = "CURSOSBOT_LLM_PROVIDERS"
	EnvGeminiAPIKey     = "CURSOSBOT_GEMINI_API_KEY"
	EnvGroqAPIKey       = "CURSOSBOT_GROQ_API_KEY"
	EnvGeminiModels     = "CURSOSBOT_GEMINI_MODELS"
	EnvGroqModels       = "CURSOSBOT_GROQ_MODELS"
	EnvReplyTimeout     = "CURSOSBOT_REPLY_TIMEOUT"

	// Matcher tuning
	EnvTitleJaccardThreshold = "CURSOSBOT_TITLE_JACCARD_THRESHOLD"
	EnvTitleOverlapThreshold = "CURSOSBOT_TITLE_OVERLAP_THRESHOLD"
	EnvTitleOverlapMinWords  = "CURSOSBOT_TITLE_OVERLAP_MIN_WORDS"

	// Rate limits
	EnvChatRateBurst  = "CURSOSBOT_CHAT_RATE_BURST"
	EnvChatRateRefill = "CURSOSBOT_CHAT_RATE_REFILL_PER_SEC"

	// Metrics authentication
	EnvMetricsUsername = "CURSOSBOT_METRICS_USERNAME"
	EnvMetricsPassword = "CURSOSBOT_METRICS_PASSWORD"
	EnvAPIToken        = "CURSOSBOT_API_TOKEN"

	// Sentry
	EnvSentryDSN         = "CURSOSBOT_SENTRY_DSN"
	EnvSentryEnvironment = "CURSOSBOT_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CURSOSBOT_SENTRY_SAMPLE_RATE"

	// Better Stack log shipping
	EnvBetterStackToken    = "CURSOSBOT_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CURSOSBOT_BETTERSTACK_ENDPOINT"
)
