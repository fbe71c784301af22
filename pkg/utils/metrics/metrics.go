package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appu_memory"

// Metrics groups the Prometheus instruments of the memory pipeline.
// Each instance owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	MemoriesFormed     *prometheus.CounterVec
	FormationFailures  *prometheus.CounterVec
	EmbeddingFailures  *prometheus.CounterVec
	Retrievals         *prometheus.CounterVec
	ConsolidationRuns  *prometheus.CounterVec
	MergedMemories     prometheus.Counter
	ArchivedMemories   prometheus.Counter
	ConsolidationTime  prometheus.Histogram
	ContextCacheLookup *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MemoriesFormed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "formed_total",
			Help:      "Memories created by formation, by memory type.",
		}, []string{"type"}),
		FormationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "formation_failures_total",
			Help:      "Memories that could not be stored, by memory type.",
		}, []string{"type"}),
		EmbeddingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Embedding provider failures, by operation.",
		}, []string{"operation"}),
		Retrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Retrieval calls, by strategy.",
		}, []string{"strategy"}),
		ConsolidationRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consolidation_runs_total",
			Help:      "Per-child consolidation passes, by result.",
		}, []string{"result"}),
		MergedMemories: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_total",
			Help:      "Memories removed by merging into a survivor.",
		}),
		ArchivedMemories: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_total",
			Help:      "Memories archived by consolidation.",
		}),
		ConsolidationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consolidation_duration_ms",
			Help:      "Per-child consolidation duration in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		ContextCacheLookup: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_cache_lookups_total",
			Help:      "Child context cache lookups, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveConsolidation(d time.Duration) {
	m.ConsolidationTime.Observe(float64(d.Milliseconds()))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
