// Package sentry provides error tracking integration.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry initialization options.
type Config struct {
	DSN         string // Empty disables Sentry
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// Initialize sets up the Sentry SDK. If DSN is empty, Sentry is disabled
// and all capture functions become no-ops.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	return nil
}

// Flush waits for buffered events to be sent. Returns false on timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether Sentry was initialized with a valid DSN.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports an error to Sentry. No-op when disabled.
func CaptureException(err error) {
	if !IsEnabled() || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext reports an error using the hub bound to ctx,
// falling back to the current hub. No-op when disabled.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	if !IsEnabled() || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// CaptureMessage reports a message event. No-op when disabled.
func CaptureMessage(msg string) {
	if !IsEnabled() || msg == "" {
		return
	}
	sentry.CaptureMessage(msg)
}
