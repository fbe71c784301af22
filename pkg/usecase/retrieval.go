package usecase

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/appu-labs/appu/pkg/utils/metrics"
	"github.com/m-mizutani/goerr/v2"
)

// RetrievalStrategy names the path that produced a retrieval result
type RetrievalStrategy string

const (
	RetrievalRecent   RetrievalStrategy = "recent"
	RetrievalSemantic RetrievalStrategy = "semantic"
	RetrievalKeyword  RetrievalStrategy = "keyword"
)

// RetrievalQuery selects memories for one child. Zero values mean defaults:
// Limit 0 uses the configured default, nil Threshold uses the configured
// threshold, empty Type and Timeframe do not filter.
type RetrievalQuery struct {
	ChildID   types.ChildID
	Query     string
	Limit     int
	Threshold *float64
	Type      types.MemoryType
	Timeframe types.Timeframe
}

func (q *RetrievalQuery) Validate() error {
	if err := q.ChildID.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidQuery, "invalid child ID", goerr.V(ChildIDKey, q.ChildID))
	}
	if q.Limit < 0 {
		return goerr.Wrap(ErrInvalidQuery, "limit must not be negative", goerr.V("limit", q.Limit))
	}
	if q.Threshold != nil {
		if th := *q.Threshold; math.IsNaN(th) || th < 0 || th > 1 {
			return goerr.Wrap(ErrInvalidQuery, "threshold must be in [0,1]", goerr.V("threshold", th))
		}
	}
	if q.Type != "" && !q.Type.IsValid() {
		return goerr.Wrap(ErrInvalidQuery, "invalid memory type", goerr.V("type", q.Type))
	}
	if !q.Timeframe.IsValid() {
		return goerr.Wrap(ErrInvalidQuery, "invalid timeframe", goerr.V("timeframe", q.Timeframe))
	}
	return nil
}

// RetrievalResult holds memories ordered most relevant first. Similarity is
// only set on the semantic path.
type RetrievalResult struct {
	Strategy RetrievalStrategy
	Memories []*model.ScoredMemory
}

// Plain returns the memories without scores
func (r *RetrievalResult) Plain() []*model.Memory {
	memories := make([]*model.Memory, len(r.Memories))
	for i, m := range r.Memories {
		memories[i] = m.Memory
	}
	return memories
}

type RetrievalUseCase struct {
	repo     interfaces.Repository
	embedder interfaces.Embedder
	metrics  *metrics.Metrics
	config   Config
	now      func() time.Time
}

func NewRetrievalUseCase(repo interfaces.Repository, embedder interfaces.Embedder, m *metrics.Metrics, cfg Config, now func() time.Time) *RetrievalUseCase {
	return &RetrievalUseCase{
		repo:     repo,
		embedder: embedder,
		metrics:  m,
		config:   cfg,
		now:      now,
	}
}

// Retrieve returns the child's memories most relevant to q.Query. An empty
// query returns the most recent memories. Embedding provider failures fall
// back to keyword matching and are never returned; only invalid queries and
// store failures on the keyword or recent path are.
func (uc *RetrievalUseCase) Retrieve(ctx context.Context, q RetrievalQuery) (*RetrievalResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit == 0 {
		limit = uc.config.DefaultLimit
	}
	threshold := uc.config.DefaultThreshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	since := q.Timeframe.Since(uc.now())
	query := strings.TrimSpace(q.Query)

	if query == "" {
		return uc.recent(ctx, q, since, limit)
	}

	if uc.embedder != nil {
		result, err := uc.semantic(ctx, q, query, since, limit, threshold)
		if err == nil && len(result.Memories) > 0 {
			return result, nil
		}
		if err != nil {
			logging.From(ctx).Warn("fall back to keyword retrieval",
				"child_id", q.ChildID,
				"error", err.Error(),
			)
		}
	}

	return uc.keyword(ctx, q, query, since, limit)
}

func (uc *RetrievalUseCase) recent(ctx context.Context, q RetrievalQuery, since time.Time, limit int) (*RetrievalResult, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	defer cancel()

	memories, err := uc.repo.Memory().List(storeCtx, q.ChildID,
		interfaces.WithMemoryType(q.Type),
		interfaces.WithCreatedSince(since),
		interfaces.WithLimit(limit),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent memories", goerr.V(ChildIDKey, q.ChildID))
	}

	uc.metrics.Retrievals.WithLabelValues(string(RetrievalRecent)).Inc()
	return &RetrievalResult{Strategy: RetrievalRecent, Memories: unscored(memories)}, nil
}

func (uc *RetrievalUseCase) semantic(ctx context.Context, q RetrievalQuery, query string, since time.Time, limit int, threshold float64) (*RetrievalResult, error) {
	embedding, err := embedWithTimeout(ctx, uc.embedder, query, uc.config.EmbeddingTimeout)
	if err != nil {
		uc.metrics.EmbeddingFailures.WithLabelValues("retrieval").Inc()
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	defer cancel()

	results, err := uc.repo.Memory().FindByEmbedding(storeCtx, q.ChildID, embedding,
		interfaces.WithFindMemoryType(q.Type),
		interfaces.WithFindCreatedSince(since),
		interfaces.WithThreshold(threshold),
		interfaces.WithFindLimit(limit),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories by embedding", goerr.V(ChildIDKey, q.ChildID))
	}

	uc.metrics.Retrievals.WithLabelValues(string(RetrievalSemantic)).Inc()
	return &RetrievalResult{Strategy: RetrievalSemantic, Memories: results}, nil
}

func (uc *RetrievalUseCase) keyword(ctx context.Context, q RetrievalQuery, query string, since time.Time, limit int) (*RetrievalResult, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.config.StoreTimeout)
	defer cancel()

	memories, err := uc.repo.Memory().List(storeCtx, q.ChildID,
		interfaces.WithMemoryType(q.Type),
		interfaces.WithCreatedSince(since),
		interfaces.WithContentContaining(query),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search memories by keyword", goerr.V(ChildIDKey, q.ChildID))
	}

	sortByImportance(memories)
	if len(memories) > limit {
		memories = memories[:limit]
	}

	uc.metrics.Retrievals.WithLabelValues(string(RetrievalKeyword)).Inc()
	return &RetrievalResult{Strategy: RetrievalKeyword, Memories: unscored(memories)}, nil
}

// sortByImportance orders by importance, then newest first
func sortByImportance(memories []*model.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		a, b := memories[i], memories[j]
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func unscored(memories []*model.Memory) []*model.ScoredMemory {
	results := make([]*model.ScoredMemory, len(memories))
	for i, m := range memories {
		results[i] = &model.ScoredMemory{Memory: m}
	}
	return results
}
