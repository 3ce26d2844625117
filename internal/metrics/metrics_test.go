package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordMessage("hard_rule", "success", 0.002)
	m.RecordHardRule("closed_state")
	m.RecordReply("template")
	m.RecordLLMRequest("gemini", "gemini-2.5-flash", "success", 1.2)
	m.RecordLLMRetry("groq")
	m.RecordCatalogLoad("file", "success")
	m.SetCatalogSize(12, 7)
	m.ActiveConversations.Set(3)
	m.LinkExtractionsTotal.Inc()

	if got := testutil.ToFloat64(m.MessagesTotal.WithLabelValues("hard_rule", "success")); got != 1 {
		t.Errorf("MessagesTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HardRuleHitsTotal.WithLabelValues("closed_state")); got != 1 {
		t.Errorf("HardRuleHitsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CatalogCourses.WithLabelValues("eligible")); got != 7 {
		t.Errorf("CatalogCourses eligible = %v, want 7", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics

	// None of these should panic on a nil receiver.
	m.RecordMessage("llm", "error", 1)
	m.RecordHardRule("link_followup")
	m.RecordReply("generated")
	m.RecordLLMRequest("groq", "llama", "error", 0)
	m.RecordLLMRetry("gemini")
	m.RecordCatalogLoad("r2", "error")
	m.SetCatalogSize(0, 0)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	New(registry)
}
