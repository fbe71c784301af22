package usecase

import (
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/utils/metrics"
)

type UseCases struct {
	repo     interfaces.Repository
	embedder interfaces.Embedder
	reports  interfaces.ReportWriter
	metrics  *metrics.Metrics
	config   Config
	now      func() time.Time

	Formation     *FormationUseCase
	Retrieval     *RetrievalUseCase
	ChildContext  *ChildContextUseCase
	Consolidation *ConsolidationUseCase
	Personalizer  *PersonalizerUseCase
}

type Option func(*UseCases)

// WithEmbedder enables semantic retrieval and embedding at formation.
// Without it every path uses keyword matching.
func WithEmbedder(embedder interfaces.Embedder) Option {
	return func(uc *UseCases) {
		uc.embedder = embedder
	}
}

func WithReportWriter(w interfaces.ReportWriter) Option {
	return func(uc *UseCases) {
		uc.reports = w
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

func WithConfig(cfg Config) Option {
	return func(uc *UseCases) {
		uc.config = cfg
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		config: DefaultConfig(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.metrics == nil {
		uc.metrics = metrics.New()
	}

	uc.ChildContext = NewChildContextUseCase(repo, uc.metrics, uc.config, uc.now)
	uc.Formation = NewFormationUseCase(repo, uc.embedder, uc.metrics, uc.config, uc.now, uc.ChildContext)
	uc.Retrieval = NewRetrievalUseCase(repo, uc.embedder, uc.metrics, uc.config, uc.now)
	uc.Consolidation = NewConsolidationUseCase(repo, uc.reports, uc.metrics, uc.config, uc.now, uc.ChildContext)
	uc.Personalizer = NewPersonalizerUseCase(uc.ChildContext, uc.Retrieval, uc.now)

	return uc
}

// Metrics returns the instruments the use cases record into
func (uc *UseCases) Metrics() *metrics.Metrics {
	return uc.metrics
}

// Close releases the child context cache
func (uc *UseCases) Close() {
	uc.ChildContext.Close()
}
