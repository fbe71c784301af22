package firestore

import (
	"context"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	childrenCollection = "children"
	memoriesCollection = "memories"

	// FindNearest returns at most this many documents per query
	maxNearestLimit     = 1000
	defaultNearestLimit = 100
	nearestOverfetch    = 3
)

// memoryDoc is the Firestore document representation of model.Memory.
// Embedding is stored as firestore.Vector32 for FindNearest vector search.
type memoryDoc struct {
	ID              string             `firestore:"ID"`
	ChildID         string             `firestore:"ChildID"`
	Content         string             `firestore:"Content"`
	Type            string             `firestore:"Type"`
	Importance      float64            `firestore:"Importance"`
	Embedding       firestore.Vector32 `firestore:"Embedding,omitempty"`
	ConversationID  string             `firestore:"ConversationID,omitempty"`
	EmotionalTone   string             `firestore:"EmotionalTone,omitempty"`
	Concepts        []string           `firestore:"Concepts,omitempty"`
	ImportanceScore *float64           `firestore:"ImportanceScore,omitempty"`
	Hash            string             `firestore:"Hash,omitempty"`
	MergedFrom      []string           `firestore:"MergedFrom,omitempty"`
	Details         string             `firestore:"Details,omitempty"`
	Archived        bool               `firestore:"Archived"`
	ArchivedAt      time.Time          `firestore:"ArchivedAt,omitempty"`
	CreatedAt       time.Time          `firestore:"CreatedAt"`
	UpdatedAt       time.Time          `firestore:"UpdatedAt"`
}

func toMemoryDoc(m *model.Memory) (*memoryDoc, error) {
	details, err := model.EncodeDetails(m.Metadata.Details)
	if err != nil {
		return nil, err
	}

	doc := &memoryDoc{
		ID:              string(m.ID),
		ChildID:         string(m.ChildID),
		Content:         m.Content,
		Type:            string(m.Type),
		Importance:      m.Importance,
		ConversationID:  m.Metadata.ConversationID,
		EmotionalTone:   string(m.Metadata.EmotionalTone),
		Concepts:        m.Metadata.Concepts,
		ImportanceScore: m.Metadata.ImportanceScore,
		Hash:            m.Metadata.Hash,
		Details:         string(details),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if len(m.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(m.Embedding)
	}
	for _, id := range m.Metadata.MergedFrom {
		doc.MergedFrom = append(doc.MergedFrom, string(id))
	}
	if m.ArchivedAt != nil {
		doc.Archived = true
		doc.ArchivedAt = *m.ArchivedAt
	}
	return doc, nil
}

func fromMemoryDoc(d *memoryDoc) (*model.Memory, error) {
	memType := types.MemoryType(d.Type)
	details, err := model.DecodeDetails(memType, []byte(d.Details))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("memory_id", d.ID))
	}

	m := &model.Memory{
		ID:         model.MemoryID(d.ID),
		ChildID:    types.ChildID(d.ChildID),
		Content:    d.Content,
		Type:       memType,
		Importance: d.Importance,
		Metadata: model.Metadata{
			ConversationID:  d.ConversationID,
			EmotionalTone:   types.EmotionalTone(d.EmotionalTone),
			Concepts:        d.Concepts,
			ImportanceScore: d.ImportanceScore,
			Hash:            d.Hash,
			Details:         details,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if len(d.Embedding) > 0 {
		m.Embedding = model.Embedding(d.Embedding)
	}
	for _, id := range d.MergedFrom {
		m.Metadata.MergedFrom = append(m.Metadata.MergedFrom, model.MemoryID(id))
	}
	if d.Archived {
		at := d.ArchivedAt
		m.ArchivedAt = &at
	}
	return m, nil
}

type memoryRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMemoryRepository(client *firestore.Client) *memoryRepository {
	return &memoryRepository{client: client}
}

func (r *memoryRepository) childrenCollection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + childrenCollection)
}

// memories returns the subcollection path: children/{childID}/memories
func (r *memoryRepository) memories(childID types.ChildID) *firestore.CollectionRef {
	return r.childrenCollection().Doc(string(childID)).Collection(memoriesCollection)
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
	// The store keeps microsecond precision
	created.CreatedAt = created.CreatedAt.UTC().Truncate(time.Microsecond)
	created.UpdatedAt = created.UpdatedAt.UTC().Truncate(time.Microsecond)
	if err := created.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory")
	}

	doc, err := toMemoryDoc(created)
	if err != nil {
		return nil, err
	}

	if _, err := r.memories(childID).Doc(string(created.ID)).Create(ctx, doc); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(ErrAlreadyExists, "memory already exists", goerr.V("memory_id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to create memory", goerr.V("child_id", childID))
	}

	// Child registry used by ListChildIDs
	if _, err := r.childrenCollection().Doc(string(childID)).Set(ctx, map[string]any{
		"ChildID":   string(childID),
		"UpdatedAt": now,
	}, firestore.MergeAll); err != nil {
		return nil, goerr.Wrap(err, "failed to register child", goerr.V("child_id", childID))
	}

	return created, nil
}

func (r *memoryRepository) Get(ctx context.Context, childID types.ChildID, id model.MemoryID) (*model.Memory, error) {
	snap, err := r.memories(childID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(childID, id)
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memory_id", id))
	}

	return decodeSnapshot(snap)
}

func (r *memoryRepository) Update(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	existing, err := r.Get(ctx, childID, mem.ID)
	if err != nil {
		return nil, err
	}

	updated := mem.Clone()
	updated.ChildID = childID
	updated.CreatedAt = existing.CreatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}
	updated.UpdatedAt = updated.UpdatedAt.UTC().Truncate(time.Microsecond)
	if err := updated.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to update memory")
	}

	doc, err := toMemoryDoc(updated)
	if err != nil {
		return nil, err
	}
	if _, err := r.memories(childID).Doc(string(updated.ID)).Set(ctx, doc); err != nil {
		return nil, goerr.Wrap(err, "failed to update memory", goerr.V("memory_id", updated.ID))
	}

	return updated, nil
}

func (r *memoryRepository) Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error {
	docRef := r.memories(childID).Doc(string(id))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(childID, id)
		}
		return goerr.Wrap(err, "failed to get memory", goerr.V("memory_id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("memory_id", id))
	}
	return nil
}

func (r *memoryRepository) Archive(ctx context.Context, childID types.ChildID, id model.MemoryID, at time.Time) error {
	_, err := r.memories(childID).Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Archived", Value: true},
		{Path: "ArchivedAt", Value: at.UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(childID, id)
		}
		return goerr.Wrap(err, "failed to archive memory", goerr.V("memory_id", id))
	}
	return nil
}

func (r *memoryRepository) List(ctx context.Context, childID types.ChildID, opts ...interfaces.ListMemoryOption) ([]*model.Memory, error) {
	cfg := interfaces.BuildListMemoryConfig(opts...)

	q := r.memories(childID).Where("Archived", "==", false)
	if t := cfg.MemoryType(); t != "" {
		q = q.Where("Type", "==", string(t))
	}
	if since := cfg.Since(); !since.IsZero() {
		q = q.Where("CreatedAt", ">=", since)
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)
	// Substring matching happens client-side, so the limit can only be
	// pushed down without it.
	if cfg.Limit() > 0 && cfg.Contains() == "" {
		q = q.Limit(cfg.Limit())
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	memories := make([]*model.Memory, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memories", goerr.V("child_id", childID))
		}

		m, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if !cfg.Match(m) {
			continue
		}
		memories = append(memories, m)
		if cfg.Limit() > 0 && len(memories) >= cfg.Limit() {
			break
		}
	}

	return memories, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, childID types.ChildID, embedding model.Embedding, opts ...interfaces.FindMemoryOption) ([]*model.ScoredMemory, error) {
	cfg := interfaces.BuildFindMemoryConfig(opts...)

	limit := defaultNearestLimit
	if cfg.Limit() > 0 {
		limit = min(cfg.Limit()*nearestOverfetch, maxNearestLimit)
	}

	q := r.memories(childID).Where("Archived", "==", false)
	if t := cfg.MemoryType(); t != "" {
		q = q.Where("Type", "==", string(t))
	}
	// pre-filter so the nearest-neighbour budget is spent inside the window
	if since := cfg.Since(); !since.IsZero() {
		q = q.Where("CreatedAt", ">=", since)
	}
	vq := q.FindNearest("Embedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine, nil)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := make([]*model.ScoredMemory, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory vector search results", goerr.V("child_id", childID))
		}

		m, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if !cfg.Match(m) {
			continue
		}
		s := embedding.Similarity(m.Embedding)
		if s < cfg.Threshold() {
			continue
		}
		results = append(results, &model.ScoredMemory{Memory: m, Similarity: s})
	}

	return interfaces.RankScored(results, cfg.Limit()), nil
}

func (r *memoryRepository) ListChildIDs(ctx context.Context) ([]types.ChildID, error) {
	iter := r.childrenCollection().Documents(ctx)
	defer iter.Stop()

	ids := make([]types.ChildID, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate children")
		}
		ids = append(ids, types.ChildID(snap.Ref.ID))
	}

	slices.Sort(ids)
	return ids, nil
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (*model.Memory, error) {
	var d memoryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("doc_id", snap.Ref.ID))
	}
	return fromMemoryDoc(&d)
}
