package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Message pipeline metrics
	MessagesTotal          *prometheus.CounterVec
	MessageDurationSeconds *prometheus.HistogramVec
	HardRuleHitsTotal      *prometheus.CounterVec
	CandidateMatchesScored prometheus.Histogram
	RepliesTotal           *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMRetriesTotal    *prometheus.CounterVec

	// Catalog metrics
	CatalogCourses    *prometheus.GaugeVec
	CatalogLoadsTotal *prometheus.CounterVec

	// Memory metrics
	ActiveConversations prometheus.Gauge

	// Post-processing metrics
	LinkExtractionsTotal prometheus.Counter

	// Transport metrics
	SendFailuresTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// HTTP control-plane metrics
	HTTPErrorsTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_messages_total",
				Help: "Total inbound messages by resolution path and status",
			},
			[]string{"path", "status"}, // path: hard_rule, llm, ignored; status: success, error
		),

		MessageDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cursosbot_message_duration_seconds",
				Help:    "End-to-end message handling duration by resolution path",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"path"},
		),

		HardRuleHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_hard_rule_hits_total",
				Help: "Hard-rule short circuits by rule",
			},
			[]string{"rule"}, // rule: closed_state, link_followup
		),

		CandidateMatchesScored: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cursosbot_candidate_top_score",
				Help:    "Best candidate similarity score per LLM-bound message",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),

		RepliesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_replies_total",
				Help: "Replies delivered by kind",
			},
			[]string{"kind"}, // kind: template, generated, apology, rate_limited
		),

		LLMRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_llm_requests_total",
				Help: "LLM requests by provider, model and status",
			},
			[]string{"provider", "model", "status"}, // status: success, error, timeout
		),

		LLMDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cursosbot_llm_duration_seconds",
				Help:    "LLM request duration by provider",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45},
			},
			[]string{"provider"},
		),

		LLMRetriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_llm_retries_total",
				Help: "LLM retry attempts by provider",
			},
			[]string{"provider"},
		),

		CatalogCourses: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cursosbot_catalog_courses",
				Help: "Loaded catalog size by eligibility",
			},
			[]string{"subset"}, // subset: all, eligible
		),

		CatalogLoadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_catalog_loads_total",
				Help: "Catalog load attempts by source and status",
			},
			[]string{"source", "status"}, // source: file, http, r2; status: success, error
		),

		ActiveConversations: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "cursosbot_active_conversations",
				Help: "Conversations held in memory",
			},
		),

		LinkExtractionsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "cursosbot_link_extractions_total",
				Help: "Registration links extracted from generated replies",
			},
		),

		SendFailuresTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_send_failures_total",
				Help: "Transport send failures by kind",
			},
			[]string{"kind"}, // kind: text, media
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_rate_limiter_dropped_total",
				Help: "Messages dropped by the per-chat rate limiter",
			},
			[]string{"limiter"},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cursosbot_http_errors_total",
				Help: "Control-plane HTTP errors by type and endpoint",
			},
			[]string{"error_type", "endpoint"},
		),
	}

	return m
}

// RecordMessage records an inbound message resolution.
func (m *Metrics) RecordMessage(path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(path, status).Inc()
	if seconds > 0 {
		m.MessageDurationSeconds.WithLabelValues(path).Observe(seconds)
	}
}

// RecordHardRule records a hard-rule short circuit.
func (m *Metrics) RecordHardRule(rule string) {
	if m == nil {
		return
	}
	m.HardRuleHitsTotal.WithLabelValues(rule).Inc()
}

// RecordReply records a delivered reply by kind.
func (m *Metrics) RecordReply(kind string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(kind).Inc()
}

// RecordLLMRequest records an LLM call outcome.
func (m *Metrics) RecordLLMRequest(provider, model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, model, status).Inc()
	if seconds > 0 {
		m.LLMDurationSeconds.WithLabelValues(provider).Observe(seconds)
	}
}

// RecordLLMRetry records a retry attempt against a provider.
func (m *Metrics) RecordLLMRetry(provider string) {
	if m == nil {
		return
	}
	m.LLMRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordCatalogLoad records a catalog load attempt.
func (m *Metrics) RecordCatalogLoad(source, status string) {
	if m == nil {
		return
	}
	m.CatalogLoadsTotal.WithLabelValues(source, status).Inc()
}

// SetCatalogSize publishes the loaded catalog sizes.
func (m *Metrics) SetCatalogSize(all, eligible int) {
	if m == nil {
		return
	}
	m.CatalogCourses.WithLabelValues("all").Set(float64(all))
	m.CatalogCourses.WithLabelValues("eligible").Set(float64(eligible))
}

// SetActiveConversations publishes the in-memory conversation count.
func (m *Metrics) SetActiveConversations(n int) {
	if m == nil {
		return
	}
	m.ActiveConversations.Set(float64(n))
}

// RecordTopScore records the best candidate score of an LLM-bound message.
func (m *Metrics) RecordTopScore(score float64) {
	if m == nil {
		return
	}
	m.CandidateMatchesScored.Observe(score)
}

// RecordLinkExtraction records a registration link pulled from a reply.
func (m *Metrics) RecordLinkExtraction() {
	if m == nil {
		return
	}
	m.LinkExtractionsTotal.Inc()
}

// RecordSendFailure records a transport send failure.
func (m *Metrics) RecordSendFailure(kind string) {
	if m == nil {
		return
	}
	m.SendFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordRateLimiterDrop records a message dropped by a rate limiter.
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// RecordHTTPError records a control-plane HTTP error.
func (m *Metrics) RecordHTTPError(errorType, endpoint string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
