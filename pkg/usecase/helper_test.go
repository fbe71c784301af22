package usecase_test

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/repository/memory"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

const embeddingDim = 256

// hashEmbedder maps each word to a fixed bucket so texts sharing words are
// similar and identical texts have similarity 1
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) (model.Embedding, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vec := make(model.Embedding, embeddingDim)
	for _, w := range usecase.Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%embeddingDim]++
	}
	return vec, nil
}

func (e *hashEmbedder) Dimension() int { return embeddingDim }

var errProviderDown = errors.New("embedding provider down")

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) (model.Embedding, error) {
	return nil, errProviderDown
}

func (failingEmbedder) Dimension() int { return embeddingDim }

// slowEmbedder blocks until the call's context is done
type slowEmbedder struct{}

func (slowEmbedder) Embed(ctx context.Context, text string) (model.Embedding, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowEmbedder) Dimension() int { return embeddingDim }

// faultyRepository wraps a repository and fails selected operations
type faultyRepository struct {
	interfaces.Repository
	mem *faultyMemoryRepository
}

type faultyMemoryRepository struct {
	interfaces.MemoryRepository
	failCreate func(mem *model.Memory) bool
	failList   func(childID types.ChildID) bool
	afterList  func(childID types.ChildID)
	failDelete bool
}

func newFaultyRepository(base interfaces.Repository) *faultyRepository {
	return &faultyRepository{
		Repository: base,
		mem:        &faultyMemoryRepository{MemoryRepository: base.Memory()},
	}
}

func (r *faultyRepository) Memory() interfaces.MemoryRepository {
	return r.mem
}

var errStoreDown = errors.New("store down")

func (r *faultyMemoryRepository) Create(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	if r.failCreate != nil && r.failCreate(mem) {
		return nil, errStoreDown
	}
	return r.MemoryRepository.Create(ctx, childID, mem)
}

func (r *faultyMemoryRepository) List(ctx context.Context, childID types.ChildID, opts ...interfaces.ListMemoryOption) ([]*model.Memory, error) {
	if r.failList != nil && r.failList(childID) {
		return nil, errStoreDown
	}
	memories, err := r.MemoryRepository.List(ctx, childID, opts...)
	if err == nil && r.afterList != nil {
		r.afterList(childID)
	}
	return memories, err
}

func (r *faultyMemoryRepository) Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error {
	if r.failDelete {
		return errStoreDown
	}
	return r.MemoryRepository.Delete(ctx, childID, id)
}

// fixedClock returns a clock frozen at a stable instant, and a setter to move it
func fixedClock() (func() time.Time, func(time.Time)) {
	var mu sync.Mutex
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(t time.Time) {
			mu.Lock()
			defer mu.Unlock()
			now = t
		}
}

// seedMemory stores a memory directly, bypassing formation
func seedMemory(t *testing.T, repo interfaces.Repository, childID types.ChildID, mem *model.Memory) *model.Memory {
	t.Helper()
	if mem.Metadata.Hash == "" {
		mem.Metadata.Hash = model.ContentHash(mem.Content)
	}
	created, err := repo.Memory().Create(context.Background(), childID, mem)
	gt.NoError(t, err).Required()
	return created
}

func listAll(t *testing.T, repo interfaces.Repository, childID types.ChildID) []*model.Memory {
	t.Helper()
	memories, err := repo.Memory().List(context.Background(), childID)
	gt.NoError(t, err).Required()
	return memories
}

func newRepo() *memory.Memory {
	return memory.New()
}

func float64Ptr(v float64) *float64 {
	return &v
}
