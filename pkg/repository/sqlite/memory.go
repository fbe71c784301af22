package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const memoryColumns = `id, child_id, content, type, importance, embedding, conversation_id,
	emotional_tone, concepts, importance_score, hash, merged_from, details,
	archived_at, created_at, updated_at`

type memoryRepository struct {
	db *sql.DB
}

func newMemoryRepository(db *sql.DB) *memoryRepository {
	return &memoryRepository{db: db}
}

func notFound(childID types.ChildID, id model.MemoryID) error {
	return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("child_id", childID), goerr.V("memory_id", id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*model.Memory, error) {
	var (
		id, childID, content, memType, conversationID, tone, concepts, hash, mergedFrom string
		importance                                                                        float64
		embedding                                                                         []byte
		importanceScore                                                                   sql.NullFloat64
		details                                                                           sql.NullString
		archivedAt                                                                        sql.NullInt64
		createdAt, updatedAt                                                              int64
	)
	if err := row.Scan(&id, &childID, &content, &memType, &importance, &embedding, &conversationID,
		&tone, &concepts, &importanceScore, &hash, &mergedFrom, &details,
		&archivedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	m := &model.Memory{
		ID:         model.MemoryID(id),
		ChildID:    types.ChildID(childID),
		Content:    content,
		Type:       types.MemoryType(memType),
		Importance: importance,
		Metadata: model.Metadata{
			ConversationID: conversationID,
			EmotionalTone:  types.EmotionalTone(tone),
			Hash:           hash,
		},
		CreatedAt: decodeTime(createdAt),
		UpdatedAt: decodeTime(updatedAt),
	}

	var err error
	if m.Embedding, err = decodeEmbedding(embedding); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("memory_id", id))
	}
	if m.Metadata.Concepts, err = decodeStrings[string](concepts); err != nil {
		return nil, goerr.Wrap(err, "failed to decode concepts", goerr.V("memory_id", id))
	}
	if m.Metadata.MergedFrom, err = decodeStrings[model.MemoryID](mergedFrom); err != nil {
		return nil, goerr.Wrap(err, "failed to decode merged_from", goerr.V("memory_id", id))
	}
	if details.Valid {
		if m.Metadata.Details, err = model.DecodeDetails(m.Type, []byte(details.String)); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory", goerr.V("memory_id", id))
		}
	}
	if importanceScore.Valid {
		v := importanceScore.Float64
		m.Metadata.ImportanceScore = &v
	}
	if archivedAt.Valid {
		at := decodeTime(archivedAt.Int64)
		m.ArchivedAt = &at
	}
	return m, nil
}

// memoryArgs returns column values in memoryColumns order
func memoryArgs(m *model.Memory) ([]any, error) {
	concepts, err := encodeStrings(m.Metadata.Concepts)
	if err != nil {
		return nil, err
	}
	mergedFrom, err := encodeStrings(m.Metadata.MergedFrom)
	if err != nil {
		return nil, err
	}
	detailsData, err := model.EncodeDetails(m.Metadata.Details)
	if err != nil {
		return nil, err
	}

	var details, importanceScore, archivedAt any
	if detailsData != nil {
		details = string(detailsData)
	}
	if m.Metadata.ImportanceScore != nil {
		importanceScore = *m.Metadata.ImportanceScore
	}
	if m.ArchivedAt != nil {
		archivedAt = encodeTime(*m.ArchivedAt)
	}

	return []any{
		string(m.ID), string(m.ChildID), m.Content, string(m.Type), m.Importance,
		encodeEmbedding(m.Embedding), m.Metadata.ConversationID, string(m.Metadata.EmotionalTone),
		concepts, importanceScore, m.Metadata.Hash, mergedFrom, details,
		archivedAt, encodeTime(m.CreatedAt), encodeTime(m.UpdatedAt),
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
	if err := created.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory")
	}

	args, err := memoryArgs(created)
	if err != nil {
		return nil, err
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE id = ?`, string(created.ID)).Scan(&exists)
	if err == nil {
		return nil, goerr.Wrap(ErrAlreadyExists, "memory already exists", goerr.V("memory_id", created.ID))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(err, "failed to check memory", goerr.V("memory_id", created.ID))
	}

	if _, err := r.db.ExecContext(ctx, `INSERT INTO memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory", goerr.V("child_id", childID))
	}

	return created, nil
}

func (r *memoryRepository) Get(ctx context.Context, childID types.ChildID, id model.MemoryID) (*model.Memory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE child_id = ? AND id = ?`,
		string(childID), string(id))

	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(childID, id)
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("memory_id", id))
	}
	return m, nil
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
	if err := updated.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to update memory")
	}

	args, err := memoryArgs(updated)
	if err != nil {
		return nil, err
	}

	// args[0:2] are id and child_id and stay fixed
	_, err = r.db.ExecContext(ctx, `UPDATE memories SET content = ?, type = ?, importance = ?,
		embedding = ?, conversation_id = ?, emotional_tone = ?, concepts = ?, importance_score = ?,
		hash = ?, merged_from = ?, details = ?, archived_at = ?, created_at = ?, updated_at = ?
		WHERE id = ? AND child_id = ?`, append(args[2:], args[0], args[1])...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update memory", goerr.V("memory_id", updated.ID))
	}

	return updated, nil
}

func (r *memoryRepository) exec(ctx context.Context, childID types.ChildID, id model.MemoryID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(childID, id)
	}
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, childID types.ChildID, id model.MemoryID) error {
	err := r.exec(ctx, childID, id, `DELETE FROM memories WHERE child_id = ? AND id = ?`, string(childID), string(id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("memory_id", id))
	}
	return err
}

func (r *memoryRepository) Archive(ctx context.Context, childID types.ChildID, id model.MemoryID, at time.Time) error {
	err := r.exec(ctx, childID, id, `UPDATE memories SET archived_at = ? WHERE child_id = ? AND id = ?`,
		encodeTime(at), string(childID), string(id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return goerr.Wrap(err, "failed to archive memory", goerr.V("memory_id", id))
	}
	return err
}

func (r *memoryRepository) query(ctx context.Context, query string, args ...any) ([]*model.Memory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memories")
	}
	defer rows.Close()

	memories := make([]*model.Memory, 0)
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory")
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memories")
	}
	return memories, nil
}

func (r *memoryRepository) List(ctx context.Context, childID types.ChildID, opts ...interfaces.ListMemoryOption) ([]*model.Memory, error) {
	cfg := interfaces.BuildListMemoryConfig(opts...)

	conds := []string{"child_id = ?", "archived_at IS NULL"}
	args := []any{string(childID)}
	if t := cfg.MemoryType(); t != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(t))
	}
	if since := cfg.Since(); !since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, encodeTime(since))
	}

	query := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	// SQLite's lower() folds ASCII only, so substring matching runs in
	// process and the limit can only be pushed down without it.
	if cfg.Limit() > 0 && cfg.Contains() == "" {
		query += ` LIMIT ?`
		args = append(args, cfg.Limit())
	}

	memories, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories", goerr.V("child_id", childID))
	}

	filtered := memories[:0]
	for _, m := range memories {
		if cfg.Match(m) {
			filtered = append(filtered, m)
		}
	}
	if cfg.Limit() > 0 && len(filtered) > cfg.Limit() {
		filtered = filtered[:cfg.Limit()]
	}
	return filtered, nil
}

func (r *memoryRepository) FindByEmbedding(ctx context.Context, childID types.ChildID, embedding model.Embedding, opts ...interfaces.FindMemoryOption) ([]*model.ScoredMemory, error) {
	cfg := interfaces.BuildFindMemoryConfig(opts...)

	conds := []string{"child_id = ?", "archived_at IS NULL", "embedding IS NOT NULL", "length(embedding) = ?"}
	args := []any{string(childID), 4 * len(embedding)}
	if t := cfg.MemoryType(); t != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(t))
	}
	if since := cfg.Since(); !since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, encodeTime(since))
	}

	candidates, err := r.query(ctx, `SELECT `+memoryColumns+` FROM memories WHERE `+strings.Join(conds, " AND "), args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load similarity candidates", goerr.V("child_id", childID))
	}

	results := make([]*model.ScoredMemory, 0, len(candidates))
	for _, m := range candidates {
		s := embedding.Similarity(m.Embedding)
		if s < cfg.Threshold() {
			continue
		}
		results = append(results, &model.ScoredMemory{Memory: m, Similarity: s})
	}

	return interfaces.RankScored(results, cfg.Limit()), nil
}

func (r *memoryRepository) ListChildIDs(ctx context.Context) ([]types.ChildID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT child_id FROM memories ORDER BY child_id`)
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
