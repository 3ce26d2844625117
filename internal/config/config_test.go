package config

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/puntodigital/cursosbot/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.Bot.HistoryLimit != 6 {
		t.Errorf("HistoryLimit = %d, want 6", cfg.Bot.HistoryLimit)
	}
	if cfg.Bot.MessageMaxLen != 1200 {
		t.Errorf("MessageMaxLen = %d, want 1200", cfg.Bot.MessageMaxLen)
	}
	if cfg.Bot.ContextCharBudget != 18000 {
		t.Errorf("ContextCharBudget = %d, want 18000", cfg.Bot.ContextCharBudget)
	}
	if cfg.Bot.MaxCoursesInContext != 40 {
		t.Errorf("MaxCoursesInContext = %d, want 40", cfg.Bot.MaxCoursesInContext)
	}
	if cfg.Bot.TopCandidates != 3 {
		t.Errorf("TopCandidates = %d, want 3", cfg.Bot.TopCandidates)
	}
	if cfg.Bot.TitleJaccardThreshold != 0.72 {
		t.Errorf("TitleJaccardThreshold = %v, want 0.72", cfg.Bot.TitleJaccardThreshold)
	}
	if cfg.Bot.TitleOverlapThreshold != 0.55 {
		t.Errorf("TitleOverlapThreshold = %v, want 0.55", cfg.Bot.TitleOverlapThreshold)
	}
	if cfg.Bot.TitleOverlapMinWords != 2 {
		t.Errorf("TitleOverlapMinWords = %d, want 2", cfg.Bot.TitleOverlapMinWords)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvLLMProviders, "groq, gemini")
	t.Setenv(EnvTitleJaccardThreshold, "0.8")
	t.Setenv(EnvChatRateBurst, "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.LLMProviders) != 2 || cfg.LLMProviders[0] != "groq" || cfg.LLMProviders[1] != "gemini" {
		t.Errorf("LLMProviders = %v", cfg.LLMProviders)
	}
	if cfg.Bot.TitleJaccardThreshold != 0.8 {
		t.Errorf("TitleJaccardThreshold = %v", cfg.Bot.TitleJaccardThreshold)
	}
	if cfg.Bot.ChatRateBurst != 5 {
		t.Errorf("ChatRateBurst = %v", cfg.Bot.ChatRateBurst)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	t.Setenv(EnvLLMProviders, "openrouter")
	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for unknown provider")
	}

	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want a ValidationError in the chain", err)
	}
	if verr.Field != EnvLLMProviders {
		t.Errorf("Field = %q, want %q", verr.Field, EnvLLMProviders)
	}
}

func TestValidateRejectsIncompleteR2(t *testing.T) {
	t.Setenv(EnvR2Enabled, "true")
	t.Setenv(EnvR2AccountID, "acct")
	// Credentials and bucket missing on purpose.
	if _, err := Load(); err == nil {
		t.Error("expected validation error for incomplete R2 config")
	}
}

func TestBotConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BotConfig)
		wantErr bool
	}{
		{"Defaults valid", func(*BotConfig) {}, false},
		{"Zero history", func(b *BotConfig) { b.HistoryLimit = 0 }, true},
		{"Jaccard above one", func(b *BotConfig) { b.TitleJaccardThreshold = 1.5 }, true},
		{"Zero overlap words", func(b *BotConfig) { b.TitleOverlapMinWords = 0 }, true},
		{"Zero candidates", func(b *BotConfig) { b.TopCandidates = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BotConfig{
				HistoryLimit:          6,
				MessageMaxLen:         1200,
				ContextCharBudget:     18000,
				MaxCoursesInContext:   40,
				TopCandidates:         3,
				TitleJaccardThreshold: 0.72,
				TitleOverlapThreshold: 0.55,
				TitleOverlapMinWords:  2,
			}
			tt.mutate(&b)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestR2Endpoint(t *testing.T) {
	r2 := R2Config{AccountID: "abc123"}
	want := "https://abc123.r2.cloudflarestorage.com"
	if got := r2.Endpoint(); got != want {
		t.Errorf("Endpoint() = %q, want %q", got, want)
	}
}
