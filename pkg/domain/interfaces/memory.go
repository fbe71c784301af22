package interfaces

import (
	"context"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
)

// MemoryRepository stores memories scoped by child. Every operation takes the
// owning child ID and never touches another child's memories. Archived
// memories are excluded from List and FindByEmbedding but remain readable by Get.
type MemoryRepository interface {
	// Create validates and inserts mem. ID, CreatedAt and UpdatedAt are set
	// when zero. The stored memory is returned.
	Create(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error)
	Get(ctx context.Context, childID types.ChildID, id model.MemoryID) (*model.Memory, error)
	// Update replaces an existing memory. UpdatedAt is set by the caller.
	Update(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error)
	Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error
	// Archive soft-removes a memory from active queries
	Archive(ctx context.Context, childID types.ChildID, id model.MemoryID, at time.Time) error
	// List returns active memories ordered by CreatedAt descending
	List(ctx context.Context, childID types.ChildID, opts ...ListMemoryOption) ([]*model.Memory, error)
	// FindByEmbedding returns active memories with an embedding whose cosine
	// similarity to embedding is at least the threshold, ordered by similarity
	// descending with importance as tie-break.
	FindByEmbedding(ctx context.Context, childID types.ChildID, embedding model.Embedding, opts ...FindMemoryOption) ([]*model.ScoredMemory, error)
	// ListChildIDs returns every child that owns memories in the store. A
	// child whose memories are all archived may still be listed.
	ListChildIDs(ctx context.Context) ([]types.ChildID, error)
}
