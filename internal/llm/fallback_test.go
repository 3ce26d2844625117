package llm

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/logger"
)

// fakeResponder returns scripted results in order, repeating the last.
type fakeResponder struct {
	name    Provider
	results []fakeResult
	calls   int
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeResponder) Generate(_ context.Context, _ *Request) (string, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	r := f.results[idx]
	return r.text, r.err
}

func (f *fakeResponder) Provider() Provider { return f.name }
func (f *fakeResponder) Close() error       { return nil }

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func chainOf(responders ...Responder) *Chain {
	log := logger.NewWithWriter("error", &bytes.Buffer{})
	return newChainWith(fastRetry(), log, nil, responders...)
}

func TestChainFirstProviderSucceeds(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{{text: "hola"}}}
	secondary := &fakeResponder{name: ProviderGroq, results: []fakeResult{{text: "nope"}}}

	text, err := chainOf(primary, secondary).Generate(context.Background(), &Request{UserTurn: "hola"})
	if err != nil || text != "hola" {
		t.Fatalf("Generate() = %q, %v", text, err)
	}
	if secondary.calls != 0 {
		t.Error("secondary provider should not be called when primary succeeds")
	}
}

func TestChainRetriesTransientThenSucceeds(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{
		{err: errors.New("503 service unavailable")},
		{text: "ok"},
	}}

	text, err := chainOf(primary).Generate(context.Background(), &Request{})
	if err != nil || text != "ok" {
		t.Fatalf("Generate() = %q, %v", text, err)
	}
	if primary.calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", primary.calls)
	}
}

func TestChainFallsBackToNextProvider(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{
		{err: errors.New("quota exceeded")},
	}}
	secondary := &fakeResponder{name: ProviderGroq, results: []fakeResult{{text: "desde groq"}}}

	text, err := chainOf(primary, secondary).Generate(context.Background(), &Request{})
	if err != nil || text != "desde groq" {
		t.Fatalf("Generate() = %q, %v", text, err)
	}
}

func TestChainPermanentErrorAborts(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{
		{err: errors.New("invalid api key")},
	}}
	secondary := &fakeResponder{name: ProviderGroq, results: []fakeResult{{text: "nunca"}}}

	_, err := chainOf(primary, secondary).Generate(context.Background(), &Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if secondary.calls != 0 {
		t.Error("permanent errors must not fall through to the next provider")
	}
	if primary.calls != 1 {
		t.Errorf("calls = %d, permanent errors must not be retried", primary.calls)
	}
}

func TestChainAllProvidersFail(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{
		{err: errors.New("503 unavailable")},
	}}
	secondary := &fakeResponder{name: ProviderGroq, results: []fakeResult{
		{err: errors.New("502 bad gateway")},
	}}

	_, err := chainOf(primary, secondary).Generate(context.Background(), &Request{})
	if !errors.Is(err, apperrors.ErrBackendUnavailable) {
		t.Errorf("Generate() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestChainEmpty(t *testing.T) {
	chain := chainOf()
	if chain.Enabled() {
		t.Error("empty chain should not report enabled")
	}
	if _, err := chain.Generate(context.Background(), &Request{}); !errors.Is(err, apperrors.ErrBackendUnavailable) {
		t.Errorf("Generate() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestChainContextCancelled(t *testing.T) {
	primary := &fakeResponder{name: ProviderGemini, results: []fakeResult{{text: "nunca"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := chainOf(primary).Generate(ctx, &Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestRequestDataPayloadOrder(t *testing.T) {
	req := &Request{
		DataMarker: "MARKER",
		Catalog:    "CATALOGO",
		Candidates: "CANDIDATOS",
	}
	want := "MARKER\n\nCATALOGO\n\nCANDIDATOS"
	if got := req.DataPayload(); got != want {
		t.Errorf("DataPayload() = %q, want %q", got, want)
	}

	bare := &Request{DataMarker: "MARKER"}
	if got := bare.DataPayload(); got != "MARKER" {
		t.Errorf("DataPayload() = %q, want marker only", got)
	}
}
