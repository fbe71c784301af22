package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
)

const uniqueViolation = "23505"

const memoryColumns = `id, child_id, content, type, importance, embedding::text, conversation_id,
	emotional_tone, concepts, importance_score, hash, merged_from, details::text,
	archived_at, created_at, updated_at`

type memoryRepository struct {
	pool *pgxpool.Pool
}

func newMemoryRepository(pool *pgxpool.Pool) *memoryRepository {
	return &memoryRepository{pool: pool}
}

func notFound(childID types.ChildID, id model.MemoryID) error {
	return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("child_id", childID), goerr.V("memory_id", id))
}

// encodeVector renders e in pgvector's text format, e.g. "[0.1,0.2]"
func encodeVector(e model.Embedding) *string {
	if len(e) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range e {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	s := sb.String()
	return &s
}

func decodeVector(s *string) (model.Embedding, error) {
	if s == nil {
		return nil, nil
	}
	body := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(*s), "["), "]")
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	e := make(model.Embedding, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse vector element", goerr.V("index", i))
		}
		e[i] = float32(f)
	}
	return e, nil
}

type memoryRow struct {
	values []any
	id, childID, content, memType, conversationID, tone, hash string
	importance                                               float64
	embedding, details                                       *string
	concepts, mergedFrom                                     []string
	importanceScore                                          *float64
	archivedAt                                               *time.Time
	createdAt, updatedAt                                     time.Time
}

func newMemoryRow() *memoryRow {
	r := &memoryRow{}
	r.values = []any{
		&r.id, &r.childID, &r.content, &r.memType, &r.importance, &r.embedding,
		&r.conversationID, &r.tone, &r.concepts, &r.importanceScore, &r.hash,
		&r.mergedFrom, &r.details, &r.archivedAt, &r.createdAt, &r.updatedAt,
	}
	return r
}

func (r *memoryRow) toModel() (*model.Memory, error) {
	embedding, err := decodeVector(r.embedding)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("memory_id", r.id))
	}

	memType := types.MemoryType(r.memType)
	var details model.Details
	if r.details != nil {
		details, err = model.DecodeDetails(memType, []byte(*r.details))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("memory_id", r.id))
		}
	}

	m := &model.Memory{
		ID:         model.MemoryID(r.id),
		ChildID:    types.ChildID(r.childID),
		Content:    r.content,
		Type:       memType,
		Importance: r.importance,
		Embedding:  embedding,
		Metadata: model.Metadata{
			ConversationID:  r.conversationID,
			EmotionalTone:   types.EmotionalTone(r.tone),
			ImportanceScore: r.importanceScore,
			Hash:            r.hash,
			Details:         details,
		},
		CreatedAt: r.createdAt.UTC(),
		UpdatedAt: r.updatedAt.UTC(),
	}
	if len(r.concepts) > 0 {
		m.Metadata.Concepts = r.concepts
	}
	for _, id := range r.mergedFrom {
		m.Metadata.MergedFrom = append(m.Metadata.MergedFrom, model.MemoryID(id))
	}
	if r.archivedAt != nil {
		at := r.archivedAt.UTC()
		m.ArchivedAt = &at
	}
	return m, nil
}

func memoryArgs(m *model.Memory) ([]any, error) {
	details, err := model.EncodeDetails(m.Metadata.Details)
	if err != nil {
		return nil, err
	}
	var detailsArg *string
	if details != nil {
		s := string(details)
		detailsArg = &s
	}

	concepts := m.Metadata.Concepts
	if concepts == nil {
		concepts = []string{}
	}
	mergedFrom := make([]string, 0, len(m.Metadata.MergedFrom))
	for _, id := range m.Metadata.MergedFrom {
		mergedFrom = append(mergedFrom, string(id))
	}

	return []any{
		string(m.ID), string(m.ChildID), m.Content, string(m.Type), m.Importance,
		encodeVector(m.Embedding), m.Metadata.ConversationID, string(m.Metadata.EmotionalTone),
		concepts, m.Metadata.ImportanceScore, m.Metadata.Hash, mergedFrom, detailsArg,
		m.ArchivedAt, m.CreatedAt, m.UpdatedAt,
	}, nil
}

func (r *memoryRepository) Create(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	created := mem.Clone()
	created.ChildID = childID
	if created.ID == "" {
		created.ID = model.NewMemoryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
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

	args, err := memoryArgs(created)
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO memories (id, child_id, content, type, importance, embedding,
		conversation_id, emotional_tone, concepts, importance_score, hash, merged_from, details,
		archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::vector, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15, $16)`, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, goerr.Wrap(ErrAlreadyExists, "memory already exists", goerr.V("memory_id", created.ID))
		}
		return nil, goerr.Wrap(err, "failed to insert memory", goerr.V("child_id", childID))
	}

	return created, nil
}

func (r *memoryRepository) Get(ctx context.Context, childID types.ChildID, id model.MemoryID) (*model.Memory, error) {
	row := newMemoryRow()
	err := r.pool.QueryRow(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE child_id = $1 AND id = $2`,
		string(childID), string(id),
	).Scan(row.values...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(childID, id)
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memory_id", id))
	}
	return row.toModel()
}

func (r *memoryRepository) Update(ctx context.Context, childID types.ChildID, mem *model.Memory) (*model.Memory, error) {
	updated := mem.Clone()
	updated.ChildID = childID
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}
	updated.UpdatedAt = updated.UpdatedAt.UTC().Truncate(time.Microsecond)
	if err := updated.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to update memory")
	}

	args, err := memoryArgs(updated)
	if err != nil {
		return nil, err
	}
	// created_at ($15) is immutable; updated_at takes its place
	args = append(args[:14:14], args[15])

	var createdAt time.Time
	err = r.pool.QueryRow(ctx, `UPDATE memories SET content = $3, type = $4, importance = $5,
		embedding = $6::vector, conversation_id = $7, emotional_tone = $8, concepts = $9,
		importance_score = $10, hash = $11, merged_from = $12, details = $13::jsonb,
		archived_at = $14, updated_at = $15
		WHERE id = $1 AND child_id = $2
		RETURNING created_at`, args...).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(childID, updated.ID)
		}
		return nil, goerr.Wrap(err, "failed to update memory", goerr.V("memory_id", updated.ID))
	}

	updated.CreatedAt = createdAt.UTC()
	return updated, nil
}

func (r *memoryRepository) Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE child_id = $1 AND id = $2`, string(childID), string(id))
	if err != nil {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("memory_id", id))
	}
	if tag.RowsAffected() == 0 {
		return notFound(childID, id)
	}
	return nil
}

func (r *memoryRepository) Archive(ctx context.Context, childID types.ChildID, id model.MemoryID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE memories SET archived_at = $3 WHERE child_id = $1 AND id = $2`,
		string(childID), string(id), at.UTC())
	if err != nil {
		return goerr.Wrap(err, "failed to archive memory", goerr.V("memory_id", id))
	}
	if tag.RowsAffected() == 0 {
		return notFound(childID, id)
	}
	return nil
}

// whereBuilder accumulates SQL conditions with numbered placeholders
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w *whereBuilder) placeholder(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) String() string {
	return strings.Join(w.conds, " AND ")
}

func (r *memoryRepository) List(ctx context.Context, childID types.ChildID, opts ...interfaces.ListMemoryOption) ([]*model.Memory, error) {
	cfg := interfaces.BuildListMemoryConfig(opts...)

	w := &whereBuilder{}
	w.add("child_id = $%d", string(childID))
	w.addRaw("archived_at IS NULL")
	if t := cfg.MemoryType(); t != "" {
		w.add("type = $%d", string(t))
	}
	if since := cfg.Since(); !since.IsZero() {
		w.add("created_at >= $%d", since)
	}
	if s := cfg.Contains(); s != "" {
		w.add("strpos(lower(content), lower($%d)) > 0", s)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + w.String() + ` ORDER BY created_at DESC, id DESC`
	if cfg.Limit() > 0 {
		query += " LIMIT " + w.placeholder(cfg.Limit())
	}

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories", goerr.V("child_id", childID))
	}
	defer rows.Close()

	memories := make([]*model.Memory, 0)
	for rows.Next() {
		row := newMemoryRow()
		if err := rows.Scan(row.values...); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}
		m, err := row.toModel()
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memories")
	}

	return memories, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, childID types.ChildID, embedding model.Embedding, opts ...interfaces.FindMemoryOption) ([]*model.ScoredMemory, error) {
	cfg := interfaces.BuildFindMemoryConfig(opts...)
	if len(embedding) == 0 {
		return []*model.ScoredMemory{}, nil
	}

	// <=> raises on mismatched dimensions and the planner may evaluate
	// predicates in any order, so candidates are narrowed in a materialized
	// CTE before any distance is computed.
	w := &whereBuilder{}
	w.add("child_id = $%d", string(childID))
	w.addRaw("archived_at IS NULL")
	w.addRaw("embedding IS NOT NULL")
	w.add("vector_dims(embedding) = $%d", len(embedding))
	if t := cfg.MemoryType(); t != "" {
		w.add("type = $%d", string(t))
	}
	if since := cfg.Since(); !since.IsZero() {
		w.add("created_at >= $%d", since)
	}

	vec := w.placeholder(*encodeVector(embedding))
	similarity := "1 - (embedding <=> " + vec + "::vector)"
	threshold := w.placeholder(cfg.Threshold())

	query := `WITH candidates AS MATERIALIZED (SELECT * FROM memories WHERE ` + w.String() + `)` +
		` SELECT ` + memoryColumns + `, ` + similarity + ` AS similarity FROM candidates` +
		` WHERE ` + similarity + ` >= ` + threshold +
		` ORDER BY similarity DESC, importance DESC, created_at DESC`
	if cfg.Limit() > 0 {
		query += " LIMIT " + w.placeholder(cfg.Limit())
	}

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run similarity search", goerr.V("child_id", childID))
	}
	defer rows.Close()

	results := make([]*model.ScoredMemory, 0)
	for rows.Next() {
		row := newMemoryRow()
		var score float64
		if err := rows.Scan(append(row.values, &score)...); err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}
		m, err := row.toModel()
		if err != nil {
			return nil, err
		}
		results = append(results, &model.ScoredMemory{Memory: m, Similarity: score})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate similarity results")
	}

	return interfaces.RankScored(results, cfg.Limit()), nil
}

func (r *memoryRepository) ListChildIDs(ctx context.Context) ([]types.ChildID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT child_id FROM memories ORDER BY child_id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list children")
	}
	defer rows.Close()

	ids := make([]types.ChildID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, goerr.Wrap(err, "failed to scan child ID")
		}
		ids = append(ids, types.ChildID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate children")
	}
	return ids, nil
}
