package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[types.ChildID]map[model.MemoryID]*model.Memory
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		entries: make(map[types.ChildID]map[model.MemoryID]*model.Memory),
	}
}

func notFound(childID types.ChildID, id model.MemoryID) error {
	return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("child_id", childID), goerr.V("memory_id", id))
}

func (r *memoryRepository) Create(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	created := mem.Clone()
	created.ChildID = childID
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}
	if err := created.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.entries[childID]
	if !ok {
		bucket = make(map[model.MemoryID]*model.Memory)
		r.entries[childID] = bucket
	}
	if _, exists := bucket[created.ID]; exists {
		return nil, goerr.Wrap(ErrAlreadyExists, "memory already exists", goerr.V("memory_id", created.ID))
	}

	bucket[created.ID] = created
	return created.Clone(), nil
}

func (r *memoryRepository) Get(ctx context.Context, childID types.ChildID, id model.MemoryID) (*model.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mem, ok := r.entries[childID][id]
	if !ok {
		return nil, notFound(childID, id)
	}
	return mem.Clone(), nil
}

func (r *memoryRepository) Update(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	updated := mem.Clone()
	updated.ChildID = childID
	if err := updated.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to update memory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.entries[childID][updated.ID]
	if !ok {
		return nil, notFound(childID, updated.ID)
	}
	updated.CreatedAt = existing.CreatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}

	r.entries[childID][updated.ID] = updated
	return updated.Clone(), nil
}

func (r *memoryRepository) Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.entries[childID]
	if _, ok := bucket[id]; !ok {
		return notFound(childID, id)
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(r.entries, childID)
	}
	return nil
}

func (r *memoryRepository) Archive(ctx context.Context, childID types.ChildID, id model.MemoryID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mem, ok := r.entries[childID][id]
	if !ok {
		return notFound(childID, id)
	}
	archivedAt := at.UTC()
	mem.ArchivedAt = &archivedAt
	return nil
}

func (r *memoryRepository) List(ctx context.Context, childID types.ChildID, opts ...interfaces.ListMemoryOption) ([]*model.Memory, error) {
	cfg := interfaces.BuildListMemoryConfig(opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Memory, 0)
	for _, m := range r.entries[childID] {
		if cfg.Match(m) {
			result = append(result, m.Clone())
		}
	}

	interfaces.SortByRecency(result)
	if limit := cfg.Limit(); limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, childID types.ChildID, embedding model.Embedding, opts ...interfaces.FindMemoryOption) ([]*model.ScoredMemory, error) {
	cfg := interfaces.BuildFindMemoryConfig(opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]*model.ScoredMemory, 0)
	for _, m := range r.entries[childID] {
		if !cfg.Match(m) {
			continue
		}
		s := embedding.Similarity(m.Embedding)
		if s < cfg.Threshold() {
			continue
		}
		candidates = append(candidates, &model.ScoredMemory{Memory: m.Clone(), Similarity: s})
	}

	return interfaces.RankScored(candidates, cfg.Limit()), nil
}

func (r *memoryRepository) ListChildIDs(ctx context.Context) ([]types.ChildID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]types.ChildID, 0, len(r.entries))
	for childID := range r.entries {
		ids = append(ids, childID)
	}
	slices.Sort(ids)
	return ids, nil
}
