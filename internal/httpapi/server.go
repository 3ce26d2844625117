// Package httpapi exposes the HTTP control plane: health probes, Prometheus
// metrics and a small authenticated API for sending messages and managing
// conversation state.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/config"
	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

const (
	httpReadTimeout  = 10 * time.Second
	httpWriteTimeout = 30 * time.Second
	httpIdleTimeout  = 120 * time.Second
)

// Transport abstracts the messaging transport for the control plane routes.
type Transport interface {
	SendText(ctx context.Context, chatID, text string) error
	SendImage(ctx context.Context, chatID, imageURL, caption string) error
	IsConnected() bool
}

// Server hosts the HTTP control plane.
type Server struct {
	cfg       *config.Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
	transport Transport
	catalog   *catalog.Holder
	memory    *memory.Store
	server    *http.Server
}

// New builds the control plane server. The catalog holder is shared with
// the refresh job so the readiness probe observes reloads.
func New(
	cfg *config.Config,
	log *logger.Logger,
	m *metrics.Metrics,
	registry *prometheus.Registry,
	transport Transport,
	catalogStore *catalog.Holder,
	mem *memory.Store,
) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    log.WithModule("httpapi"),
		metrics:   m,
		transport: transport,
		catalog:   catalogStore,
		memory:    mem,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(s.logger))

	router.GET("/healthz", s.livenessCheck)
	router.HEAD("/healthz", s.livenessCheck)
	router.GET("/readyz", s.readinessCheck)
	router.HEAD("/readyz", s.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api", tokenAuthMiddleware(cfg.APIToken))
	api.POST("/send-message", s.sendMessage)
	api.POST("/send-media", s.sendMedia)
	api.POST("/send-group-message", s.sendGroupMessage)
	api.POST("/clear-history", s.clearHistory)

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: httpReadTimeout,
		ReadTimeout:       httpReadTimeout,
		WriteTimeout:      httpWriteTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	return s
}

// Handler returns the HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe starts the server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.WithField("port", s.cfg.Port).Info("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessCheck(c *gin.Context) {
	if !s.transport.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "whatsapp disconnected",
		})
		return
	}

	store := s.catalog.Get()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"whatsapp": "connected",
		"catalog": gin.H{
			"courses":  len(store.All()),
			"eligible": len(store.Eligible()),
		},
		"conversations": s.memory.Len(),
	})
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !s.bindJSON(c, &req) {
		return
	}
	s.deliverText(c, req.ChatID, req.Text)
}

type sendGroupMessageRequest struct {
	GroupID string `json:"group_id" binding:"required"`
	Text    string `json:"text" binding:"required"`
}

func (s *Server) sendGroupMessage(c *gin.Context) {
	var req sendGroupMessageRequest
	if !s.bindJSON(c, &req) {
		return
	}
	s.deliverText(c, req.GroupID, req.Text)
}

type sendMediaRequest struct {
	ChatID   string `json:"chat_id" binding:"required"`
	ImageURL string `json:"image_url" binding:"required,url"`
	Caption  string `json:"caption"`
}

func (s *Server) sendMedia(c *gin.Context) {
	var req sendMediaRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if !s.transport.IsConnected() {
		s.metrics.RecordHTTPError("transport_unavailable", c.FullPath())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp disconnected"})
		return
	}

	if err := s.transport.SendImage(c.Request.Context(), req.ChatID, req.ImageURL, req.Caption); err != nil {
		s.handleSendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type clearHistoryRequest struct {
	ChatID string `json:"chat_id" binding:"required"`
}

func (s *Server) clearHistory(c *gin.Context) {
	var req clearHistoryRequest
	if !s.bindJSON(c, &req) {
		return
	}

	cleared := s.memory.Clear(req.ChatID)
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (s *Server) deliverText(c *gin.Context, chatID, text string) {
	if !s.transport.IsConnected() {
		s.metrics.RecordHTTPError("transport_unavailable", c.FullPath())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp disconnected"})
		return
	}

	if err := s.transport.SendText(c.Request.Context(), chatID, text); err != nil {
		s.handleSendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) handleSendError(c *gin.Context, err error) {
	var wrapped *apperrors.WrappedError
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		s.metrics.RecordHTTPError("bad_request", c.FullPath())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotConnected):
		s.metrics.RecordHTTPError("transport_unavailable", c.FullPath())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "whatsapp disconnected"})
	case errors.As(err, &wrapped):
		s.logger.WithError(err).Error("Message delivery failed")
		s.metrics.RecordHTTPError("send_failed", c.FullPath())
		c.JSON(http.StatusBadGateway, gin.H{"error": apperrors.GetUserMessage(err)})
	default:
		s.logger.WithError(err).Error("Message delivery failed")
		s.metrics.RecordHTTPError("send_failed", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery failed"})
	}
}
