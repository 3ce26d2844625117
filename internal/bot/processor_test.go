package bot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/puntodigital/cursosbot/internal/catalog"
	"github.com/puntodigital/cursosbot/internal/config"
	"github.com/puntodigital/cursosbot/internal/ctxutil"
	"github.com/puntodigital/cursosbot/internal/grounding"
	"github.com/puntodigital/cursosbot/internal/llm"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/memory"
	"github.com/puntodigital/cursosbot/internal/postprocess"
	"github.com/puntodigital/cursosbot/internal/ratelimit"
	"github.com/puntodigital/cursosbot/internal/rules"
	"github.com/puntodigital/cursosbot/internal/textmatch"
)

type fakeSender struct {
	sent    []string
	ctxErrs []error
	reqIDs  []string
	err     error
}

func (f *fakeSender) SendText(ctx context.Context, _ string, text string) error {
	f.sent = append(f.sent, text)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.reqIDs = append(f.reqIDs, ctxutil.GetRequestID(ctx))
	return f.err
}

type fakeBackend struct {
	reply    string
	err      error
	requests []*llm.Request
}

func (f *fakeBackend) Generate(_ context.Context, req *llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type pipeline struct {
	processor *Processor
	memory    *memory.Store
	backend   *fakeBackend
	limiter   *ratelimit.PerChatLimiter
}

func newPipeline(t *testing.T, courses []catalog.Course, backend *fakeBackend) *pipeline {
	t.Helper()

	cfg := config.BotConfig{
		HistoryLimit:          6,
		MessageMaxLen:         1200,
		ContextCharBudget:     18000,
		MaxCoursesInContext:   40,
		TopCandidates:         3,
		TitleJaccardThreshold: 0.72,
		TitleOverlapThreshold: 0.55,
		TitleOverlapMinWords:  2,
	}
	log := logger.NewWithWriter("error", &bytes.Buffer{})
	mem := memory.NewStore(cfg.HistoryLimit, nil)
	matcher := textmatch.NewMatcher(cfg.TitleJaccardThreshold, cfg.TitleOverlapThreshold, cfg.TitleOverlapMinWords)
	limiter := ratelimit.NewPerChatLimiter(100, 100, nil)
	t.Cleanup(limiter.Stop)

	processor := NewProcessor(
		cfg,
		log,
		nil,
		catalog.NewHolder(catalog.NewStore(courses)),
		mem,
		rules.NewResolver(matcher, mem, nil),
		grounding.NewBuilder(cfg, ""),
		postprocess.NewProcessor(mem, nil, cfg.MessageMaxLen),
		backend,
		limiter,
		5*time.Second,
	)
	return &pipeline{processor: processor, memory: mem, backend: backend, limiter: limiter}
}

func TestHandleIgnoresSelfAndEmpty(t *testing.T) {
	p := newPipeline(t, nil, &fakeBackend{reply: "hola"})
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "c", SenderIsSelf: true, Body: "hola"}, sender)
	p.processor.Handle(context.Background(), InboundMessage{ChatID: "c", Body: "   "}, sender)

	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, self and empty messages must be ignored", sender.sent)
	}
	if len(p.backend.requests) != 0 {
		t.Error("backend must not be called for ignored messages")
	}
}

func TestHandleClosedCourseSkipsBackend(t *testing.T) {
	courses := []catalog.Course{
		{ID: "c1", Titulo: "Electricidad Domiciliaria", Estado: catalog.EstadoFinalizado},
	}
	p := newPipeline(t, courses, &fakeBackend{reply: "nunca"})
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{
		ChatID: "chat",
		Body:   "quiero el curso de electricidad domiciliaria",
	}, sender)

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(sender.sent))
	}
	want := "El curso *Electricidad Domiciliaria* ya finalizó, no podés inscribirte."
	if sender.sent[0] != want {
		t.Errorf("reply = %q\nwant    %q", sender.sent[0], want)
	}
	if len(p.backend.requests) != 0 {
		t.Error("generative backend must not be called on a hard rule")
	}

	history := p.memory.History("chat")
	if len(history) != 2 || history[1].Text != want {
		t.Errorf("history = %+v, want user turn plus template", history)
	}
}

func TestHandleLinkFollowupFromMemory(t *testing.T) {
	p := newPipeline(t, nil, &fakeBackend{reply: "nunca"})
	p.memory.SetLastSuggested("chat", memory.SuggestedCourse{
		Titulo:     "Panadería",
		Formulario: "https://forms.gle/xyz",
	})
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "mandame el link"}, sender)

	if len(sender.sent) != 1 || sender.sent[0] != "Formulario de inscripción: https://forms.gle/xyz" {
		t.Errorf("sent = %v", sender.sent)
	}
	if len(p.backend.requests) != 0 {
		t.Error("link follow-up must bypass the backend")
	}
}

func TestHandleGenerativePath(t *testing.T) {
	courses := []catalog.Course{
		{ID: "c1", Titulo: "Panadería", Estado: catalog.EstadoInscripcionAbierta, Formulario: "https://forms.gle/p"},
		{ID: "c2", Titulo: "Herrería", Estado: catalog.EstadoFinalizado},
	}
	backend := &fakeBackend{reply: "Te recomiendo **Panadería**. [Inscribite](https://forms.gle/p)"}
	p := newPipeline(t, courses, backend)
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hay cursos de cocina?"}, sender)

	if len(backend.requests) != 1 {
		t.Fatalf("backend called %d times, want 1", len(backend.requests))
	}
	req := backend.requests[0]
	if req.UserTurn != "hay cursos de cocina?" {
		t.Errorf("UserTurn = %q", req.UserTurn)
	}
	// Closed courses never reach the grounded catalog.
	if bytes.Contains([]byte(req.Catalog), []byte("Herrería")) {
		t.Error("closed course leaked into the grounding context")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(sender.sent))
	}
	if sender.sent[0] != "Te recomiendo *Panadería*. Inscribite: https://forms.gle/p" {
		t.Errorf("reply = %q", sender.sent[0])
	}

	suggested, ok := p.memory.LastSuggested("chat")
	if !ok || suggested.Formulario != "https://forms.gle/p" {
		t.Errorf("suggested = %+v, %v", suggested, ok)
	}
}

func TestHandleEmptyCatalogStillCallsBackend(t *testing.T) {
	backend := &fakeBackend{reply: "Por ahora no tengo la cartelera disponible."}
	p := newPipeline(t, nil, backend)
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hay cursos en Humahuaca?"}, sender)

	if len(backend.requests) != 1 {
		t.Fatalf("backend called %d times, want 1", len(backend.requests))
	}
	if backend.requests[0].Candidates != "" {
		t.Error("empty catalog should produce no candidate hints")
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestHandleBackendFailureSendsApology(t *testing.T) {
	backend := &fakeBackend{err: errors.New("503 unavailable")}
	p := newPipeline(t, nil, backend)
	sender := &fakeSender{}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hola"}, sender)

	if len(sender.sent) != 1 || sender.sent[0] != ApologyReply {
		t.Errorf("sent = %v, want the fixed apology", sender.sent)
	}

	history := p.memory.History("chat")
	if len(history) != 2 {
		t.Fatalf("history = %+v, want user turn plus apology", history)
	}
	if history[0].Text != "hola" || history[1].Text != ApologyReply {
		t.Errorf("history = %+v", history)
	}
}

func TestHandleRateLimited(t *testing.T) {
	backend := &fakeBackend{reply: "ok"}
	p := newPipeline(t, nil, backend)
	sender := &fakeSender{}

	// Replace the generous pipeline limiter with a single-token bucket.
	limiter := ratelimit.NewPerChatLimiter(1, 0, nil)
	t.Cleanup(limiter.Stop)
	p.processor.limiter = limiter

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hola"}, sender)
	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hola de nuevo"}, sender)

	if len(sender.sent) != 2 {
		t.Fatalf("sent = %v", sender.sent)
	}
	if sender.sent[1] != RateLimitReply {
		t.Errorf("second reply = %q, want the rate-limit notice", sender.sent[1])
	}
	if len(backend.requests) != 1 {
		t.Errorf("backend called %d times, want 1", len(backend.requests))
	}
}

func TestHandleDeliveryOutlivesInboundContext(t *testing.T) {
	courses := []catalog.Course{
		{ID: "c1", Titulo: "Electricidad Domiciliaria", Estado: catalog.EstadoFinalizado},
	}
	p := newPipeline(t, courses, &fakeBackend{reply: "nunca"})
	sender := &fakeSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.processor.Handle(ctx, InboundMessage{
		ChatID: "chat",
		Body:   "quiero el curso de electricidad domiciliaria",
	}, sender)

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d replies, want 1 despite the cancelled inbound context", len(sender.sent))
	}
	if sender.ctxErrs[0] != nil {
		t.Errorf("send context error = %v, delivery must not inherit cancellation", sender.ctxErrs[0])
	}
	if sender.reqIDs[0] == "" {
		t.Error("send context lost the request id")
	}
}

func TestHandleSendFailureDoesNotPanic(t *testing.T) {
	backend := &fakeBackend{reply: "hola"}
	p := newPipeline(t, nil, backend)
	sender := &fakeSender{err: errors.New("socket closed")}

	p.processor.Handle(context.Background(), InboundMessage{ChatID: "chat", Body: "hola"}, sender)
}
