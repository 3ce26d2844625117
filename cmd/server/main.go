// Package main provides the WhatsApp course assistant server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/container"
	"github.com/puntodigital/cursosbot/internal/sentry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize Sentry: %v\n", err)
		os.Exit(1)
	}

	app, err := container.New(cfg).Initialize(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}
