// Package bot contains the delivery adapter: it receives inbound
// transport events and walks them through the reply pipeline in order.
// Hard rules run first and may short-circuit; otherwise candidates are
// matched, the grounded context is built, the generative backend is
// called and its output post-processed before delivery.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/ctxutil"
	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/grounding"
	"github.com/puntodigital/cursosbot/internal/llm"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/metrics"
	"github.com/puntodigital/cursosbot/internal/postprocess"
	"github.com/puntodigital/cursosbot/internal/ratelimit"
	"github.com/puntodigital/cursosbot/internal/rules"
	"github.com/puntodigital/cursosbot/internal/sentry"
	"github.com/puntodigital/cursosbot/internal/textmatch"
)

// sendTimeout bounds reply delivery independently of the inbound
// context, so a reply computed within budget is not lost to the
// transport handler's context closing mid-send.
const sendTimeout = 15 * time.Second

// Fixed user-facing texts for degraded paths.
const (
	ApologyReply   = "Disculpá, en este momento no puedo responderte. Probá de nuevo en unos minutos 🙏"
	RateLimitReply = "Estás enviando mensajes muy seguido, esperá unos segundos y volvé a intentar 🙏"
)

// InboundMessage is a transport event. Events from the bot itself or
// with an empty body are ignored.
type InboundMessage struct {
	ChatID       string
	SenderIsSelf bool
	Body         string
}

// Sender delivers a reply to a conversation.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// Responder is the generative backend surface the processor needs.
type Responder interface {
	Generate(ctx context.Context, req *llm.Request) (string, error)
}

// Processor orchestrates one inbound message end to end.
type Processor struct {
	cfg          config.BotConfig
	logger       *logger.Logger
	metrics      *metrics.Metrics
	store        *catalog.Holder
	memory       *memory.Store
	resolver     *rules.Resolver
	builder      *grounding.Builder
	post         *postprocess.Processor
	responder    Responder
	limiter      *ratelimit.PerChatLimiter
	replyTimeout time.Duration
}

// NewProcessor wires the pipeline from its already-built parts.
func NewProcessor(
	cfg config.BotConfig,
	log *logger.Logger,
	m *metrics.Metrics,
	store *catalog.Holder,
	mem *memory.Store,
	resolver *rules.Resolver,
	builder *grounding.Builder,
	post *postprocess.Processor,
	responder Responder,
	limiter *ratelimit.PerChatLimiter,
	replyTimeout time.Duration,
) *Processor {
	return &Processor{
		cfg:          cfg,
		logger:       log.WithModule("bot"),
		metrics:      m,
		store:        store,
		memory:       mem,
		resolver:     resolver,
		builder:      builder,
		post:         post,
		responder:    responder,
		limiter:      limiter,
		replyTimeout: replyTimeout,
	}
}

// Handle processes one inbound message and delivers at most one reply.
// It never returns an error to the transport loop: every failure mode
// degrades to a fixed text or a logged drop.
func (p *Processor) Handle(ctx context.Context, msg InboundMessage, sender Sender) {
	body := strings.TrimSpace(msg.Body)
	if msg.SenderIsSelf || body == "" {
		p.metrics.RecordMessage("ignored", "success", 0)
		return
	}

	start := time.Now()
	ctx = ctxutil.WithChatID(ctx, msg.ChatID)
	ctx = ctxutil.WithRequestID(ctx, uuid.NewString())
	log := p.logger.WithChatID(msg.ChatID).WithRequestID(ctxutil.GetRequestID(ctx))

	// Hard rules run before rate limiting: they are cheap, deterministic
	// and must never be starved by the limiter.
	if result, ok := p.resolver.Resolve(msg.ChatID, body, p.store.Get().All()); ok {
		p.memory.AppendTurn(msg.ChatID, memory.RoleUser, memory.ClampText(body, p.cfg.MessageMaxLen))
		p.memory.AppendTurn(msg.ChatID, memory.RoleAssistant, result.Reply)

		p.send(ctx, sender, msg.ChatID, result.Reply, log)
		p.metrics.RecordReply("template")
		p.metrics.RecordMessage("hard_rule", "success", time.Since(start).Seconds())
		log.WithField("rule", result.Rule).Info("Hard rule replied")
		return
	}

	if !p.limiter.Allow(msg.ChatID) {
		p.send(ctx, sender, msg.ChatID, RateLimitReply, log)
		p.metrics.RecordReply("rate_limited")
		p.metrics.RecordMessage("rate_limited", "success", time.Since(start).Seconds())
		log.WithError(apperrors.ErrRateLimitExceeded).Warn("Chat rate limited")
		return
	}

	p.generativeReply(ctx, msg.ChatID, body, sender, start, log)
}

// generativeReply runs the grounded generation path.
func (p *Processor) generativeReply(ctx context.Context, chatID, body string, sender Sender, start time.Time, log *logger.Logger) {
	eligible := p.store.Get().Eligible()
	candidates := textmatch.TopMatches(courseItems(eligible), body, p.cfg.TopCandidates)
	if len(candidates) > 0 {
		p.metrics.RecordTopScore(candidates[0].Score)
	}

	// History is read before this message's turns are appended, so the
	// model sees the conversation exactly as it stood.
	req := p.builder.Build(eligible, candidates, p.memory.History(chatID), body)

	genCtx := ctx
	if p.replyTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.replyTimeout)
		defer cancel()
	}

	raw, err := p.responder.Generate(genCtx, req)
	if err != nil {
		// The user's turn and the apology both land in history, so the
		// transcript matches what the user actually saw.
		p.memory.AppendTurn(chatID, memory.RoleUser, memory.ClampText(body, p.cfg.MessageMaxLen))
		p.memory.AppendTurn(chatID, memory.RoleAssistant, ApologyReply)

		p.send(ctx, sender, chatID, ApologyReply, log)
		p.metrics.RecordReply("apology")
		p.metrics.RecordMessage("llm", "error", time.Since(start).Seconds())
		log.WithError(err).Error("Generation failed, sent apology")
		sentry.CaptureExceptionWithContext(ctx, err)
		return
	}

	final := p.post.Process(chatID, body, raw)
	p.send(ctx, sender, chatID, final, log)
	p.metrics.RecordReply("generated")
	p.metrics.RecordMessage("llm", "success", time.Since(start).Seconds())
	log.WithField("candidates", len(candidates)).Info("Generated reply delivered")
}

func (p *Processor) send(ctx context.Context, sender Sender, chatID, text string, log *logger.Logger) {
	// Delivery detaches from the inbound context, keeping only the
	// tracing values, under its own deadline.
	sendCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), sendTimeout)
	defer cancel()

	if err := sender.SendText(sendCtx, chatID, text); err != nil {
		p.metrics.RecordSendFailure("text")
		log.WithError(err).Error("Send failed")
	}
}

func courseItems(courses []catalog.Course) []textmatch.Item {
	items := make([]textmatch.Item, len(courses))
	for i, c := range courses {
		items[i] = textmatch.Item{ID: c.ID, Title: c.Titulo}
	}
	return items
}
