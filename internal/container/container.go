// Package container manages application dependencies and their lifecycle.
// Dependencies are assembled in a fixed order and injected into the
// Application; nothing reaches back into the container at runtime.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/puntodigital/cursosbot/internal/bot"
	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/grounding"
	"github.com/puntodigital/cursosbot/internal/httpapi"
	"github.com/puntodigital/cursosbot/internal/llm"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
	"github.com/puntodigital/cursosbot/internal/postprocess"
	"github.com/puntodigital/cursosbot/internal/ratelimit"
	"github.com/puntodigital/cursosbot/internal/rules"
	"github.com/puntodigital/cursosbot/internal/textmatch"
	"github.com/puntodigital/cursosbot/internal/whatsapp"
)

// Container assembles application dependencies.
//
// Initialization order:
//  1. Core services (metrics registry, catalog, conversation memory)
//  2. Conversation pipeline (matcher, rules, grounding, post-processing)
//  3. Generative backends (optional, requires at least one API key)
//  4. Transport and control plane (WhatsApp client, HTTP server)
type Container struct {
	cfg    *config.Config
	logger *logger.Logger

	metrics  *metrics.Metrics
	registry *prometheus.Registry

	catalogLoader *catalog.Loader
	catalogHolder *catalog.Holder
	memory        *memory.Store

	resolver *rules.Resolver
	builder  *grounding.Builder
	post     *postprocess.Processor

	llmChain *llm.Chain
	limiter  *ratelimit.PerChatLimiter

	whatsappClient *whatsapp.Client
	processor      *bot.Processor
	httpServer     *httpapi.Server
}

// New creates a dependency container. Only configuration is required;
// everything else is built by Initialize.
func New(cfg *config.Config) *Container {
	log := logger.NewWithOptions(cfg.LogLevel, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", "cursosbot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	slog.SetDefault(log.Logger)

	return &Container{
		cfg:    cfg,
		logger: log,
	}
}

// Initialize builds all dependencies and returns a runnable Application.
// Backend initialization failure is non-fatal: the bot degrades to hard
// rules and apologies until a backend becomes available on restart.
func (c *Container) Initialize(ctx context.Context) (*Application, error) {
	c.logger.Info("Initializing application container...")

	c.initCoreServices(ctx)
	c.initPipeline()

	if err := c.initBackends(ctx); err != nil {
		c.logger.WithError(err).Warn("Generative backend initialization failed, running degraded")
	}

	if err := c.initTransport(ctx); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	c.logger.Info("Container initialized successfully")

	return newApplication(c), nil
}

// initCoreServices sets up metrics, the catalog snapshot and conversation memory.
func (c *Container) initCoreServices(ctx context.Context) {
	c.registry = prometheus.NewRegistry()
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	c.metrics = metrics.New(c.registry)

	c.catalogLoader = catalog.NewLoader(c.cfg, c.logger, c.metrics)
	store := c.catalogLoader.Load(ctx)
	c.catalogHolder = catalog.NewHolder(store)
	c.logger.WithField("courses", len(store.All())).
		WithField("eligible", len(store.Eligible())).
		Info("Catalog loaded")

	c.memory = memory.NewStore(c.cfg.Bot.HistoryLimit, c.metrics)

	c.logger.Info("Core services initialized")
}

// initPipeline wires the deterministic conversation pipeline stages.
func (c *Container) initPipeline() {
	matcher := textmatch.NewMatcher(
		c.cfg.Bot.TitleJaccardThreshold,
		c.cfg.Bot.TitleOverlapThreshold,
		c.cfg.Bot.TitleOverlapMinWords,
	)
	c.resolver = rules.NewResolver(matcher, c.memory, c.metrics)
	c.builder = grounding.NewBuilder(c.cfg.Bot, c.loadInstructions())
	c.post = postprocess.NewProcessor(c.memory, c.metrics, c.cfg.Bot.MessageMaxLen)
	c.limiter = ratelimit.NewPerChatLimiter(
		c.cfg.Bot.ChatRateBurst,
		c.cfg.Bot.ChatRateRefillPerSec,
		c.metrics,
	)

	c.logger.Info("Conversation pipeline initialized")
}

// loadInstructions reads the instructions override file if configured.
// Falls back to the built-in assistant instructions on any failure.
func (c *Container) loadInstructions() string {
	if c.cfg.InstructionsPath == "" {
		return ""
	}
	data, err := os.ReadFile(c.cfg.InstructionsPath)
	if err != nil {
		c.logger.WithError(err).WithField("path", c.cfg.InstructionsPath).
			Warn("Instructions file unreadable, using built-in instructions")
		return ""
	}
	c.logger.WithField("path", c.cfg.InstructionsPath).Info("Custom instructions loaded")
	return string(data)
}

// initBackends builds the generative provider fallback chain.
func (c *Container) initBackends(ctx context.Context) error {
	if !c.cfg.HasBackend() {
		c.logger.Warn("No generative backend configured, only hard rules will reply")
	}

	chain, err := llm.NewChain(ctx, c.cfg, c.logger, c.metrics)
	if err != nil {
		return fmt.Errorf("provider chain: %w", err)
	}
	c.llmChain = chain

	if chain.Enabled() {
		c.logger.WithField("providers", c.cfg.LLMProviders).Info("Generative backends enabled")
	}
	return nil
}

// initTransport creates the WhatsApp client, the message processor and the
// HTTP control plane, then wires inbound messages into the processor.
func (c *Container) initTransport(ctx context.Context) error {
	client, err := whatsapp.New(ctx, c.cfg, c.logger, c.metrics)
	if err != nil {
		return fmt.Errorf("whatsapp client: %w", err)
	}
	c.whatsappClient = client

	c.processor = bot.NewProcessor(
		c.cfg.Bot,
		c.logger,
		c.metrics,
		c.catalogHolder,
		c.memory,
		c.resolver,
		c.builder,
		c.post,
		c.llmChain,
		c.limiter,
		c.cfg.ReplyTimeout,
	)

	client.OnMessage(func(ctx context.Context, msg bot.InboundMessage) {
		c.processor.Handle(ctx, msg, client)
	})

	c.httpServer = httpapi.New(
		c.cfg,
		c.logger,
		c.metrics,
		c.registry,
		client,
		c.catalogHolder,
		c.memory,
	)

	c.logger.Info("Transport initialized")
	return nil
}

// Close shuts down long-lived components in reverse initialization order.
func (c *Container) Close() error {
	c.logger.Info("Closing container...")
	var errs []error

	if c.whatsappClient != nil {
		c.whatsappClient.Disconnect()
	}
	if c.limiter != nil {
		c.limiter.Stop()
	}
	if c.llmChain != nil {
		if err := c.llmChain.Close(); err != nil {
			c.logger.WithError(err).Error("Failed to close provider chain")
			errs = append(errs, fmt.Errorf("provider chain: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("Container closed successfully")
	return nil
}
