// Package metrics holds the Prometheus collectors for recommendation serving
// and product indexing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRecommendRequests  = "recokit_recommend_requests_total"
	MetricRecommendLatency   = "recokit_recommend_latency_seconds"
	MetricEmbeddingFallbacks = "recokit_embedding_fallbacks_total"
	MetricIndexedProducts    = "recokit_indexed_products_total"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	recommendRequests  *prometheus.CounterVec
	recommendLatency   *prometheus.HistogramVec
	embeddingFallbacks prometheus.Counter
	indexedProducts    *prometheus.CounterVec
}

// New creates the collectors without registering them; call Register.
func New() *Metrics {
	return &Metrics{
		recommendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRecommendRequests,
				Help: "Recommendation requests served, by ranking mode",
			},
			[]string{"mode"},
		),
		recommendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRecommendLatency,
				Help:    "Recommendation latency in seconds, by ranking mode",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		embeddingFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricEmbeddingFallbacks,
				Help: "Query embeddings served by the deterministic fallback after a service failure",
			},
		),
		indexedProducts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricIndexedProducts,
				Help: "Products processed by the indexer, by result",
			},
			[]string{"result"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recommendRequests,
		m.recommendLatency,
		m.embeddingFallbacks,
		m.indexedProducts,
	}
}

func (m *Metrics) ObserveRecommendation(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.recommendRequests.WithLabelValues(mode).Inc()
	m.recommendLatency.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) IncEmbeddingFallback() {
	if m == nil {
		return
	}
	m.embeddingFallbacks.Inc()
}

// AddIndexed counts indexer outcomes; result is "embedded" or "failed".
func (m *Metrics) AddIndexed(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexedProducts.WithLabelValues(result).Add(float64(n))
}
