package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RegisterAndRecord(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.ObserveRecommendation("social_only", 15*time.Millisecond)
	m.ObserveRecommendation("social_only", 5*time.Millisecond)
	m.IncEmbeddingFallback()
	m.AddIndexed("embedded", 3)
	m.AddIndexed("failed", 0)

	if got := testutil.ToFloat64(m.recommendRequests.WithLabelValues("social_only")); got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.embeddingFallbacks); got != 1 {
		t.Fatalf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.indexedProducts.WithLabelValues("embedded")); got != 3 {
		t.Fatalf("indexed = %v, want 3", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{MetricRecommendRequests, MetricRecommendLatency, MetricEmbeddingFallbacks, MetricIndexedProducts} {
		if !found[name] {
			t.Errorf("metric %s not found in registry", name)
		}
	}
}

func TestMetrics_DoubleRegisterFails(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRecommendation("x", time.Second)
	m.IncEmbeddingFallback()
	m.AddIndexed("embedded", 1)
}
