package postgres

import (
	"context"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
)

// Postgres stores memories in a pgvector-enabled PostgreSQL database and
// runs similarity search with the native cosine distance operator.
type Postgres struct {
	pool   *pgxpool.Pool
	memory *memoryRepository
}

var _ interfaces.Repository = &Postgres{}

// New connects to databaseURL and creates the schema when missing
func New(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect postgres")
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{
		pool:   pool,
		memory: newMemoryRepository(pool),
	}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS memories (
			id               TEXT PRIMARY KEY,
			child_id         TEXT NOT NULL,
			content          TEXT NOT NULL,
			type             TEXT NOT NULL,
			importance       DOUBLE PRECISION NOT NULL CHECK (importance >= 0 AND importance <= 1),
			embedding        vector,
			conversation_id  TEXT NOT NULL DEFAULT '',
			emotional_tone   TEXT NOT NULL DEFAULT '',
			concepts         TEXT[] NOT NULL DEFAULT '{}',
			importance_score DOUBLE PRECISION,
			hash             TEXT NOT NULL DEFAULT '',
			merged_from      TEXT[] NOT NULL DEFAULT '{}',
			details          JSONB,
			archived_at      TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_child_created ON memories (child_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_child_hash ON memories (child_id, hash)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to init schema", goerr.V("stmt", stmt))
		}
	}
	return nil
}

func (p *Postgres) Memory() interfaces.MemoryRepository {
	return p.memory
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
