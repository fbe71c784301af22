package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

// SQLite stores memories in a single SQLite file. It has no vector
// operator, so similarity search loads candidates and scores them in process.
type SQLite struct {
	db     *sql.DB
	memory *memoryRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens or creates the database at dbPath
func New(ctx context.Context, dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create database directory", goerr.V("path", dbPath))
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", dbPath))
	}
	// One writer at a time; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{
		db:     db,
		memory: newMemoryRepository(db),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		child_id         TEXT NOT NULL,
		content          TEXT NOT NULL,
		type             TEXT NOT NULL,
		importance       REAL NOT NULL CHECK (importance >= 0 AND importance <= 1),
		embedding        BLOB,
		conversation_id  TEXT NOT NULL DEFAULT '',
		emotional_tone   TEXT NOT NULL DEFAULT '',
		concepts         TEXT NOT NULL DEFAULT '[]',
		importance_score REAL,
		hash             TEXT NOT NULL DEFAULT '',
		merged_from      TEXT NOT NULL DEFAULT '[]',
		details          TEXT,
		archived_at      INTEGER,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_child_created ON memories(child_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_child_archived ON memories(child_id, archived_at);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}

func (s *SQLite) Memory() interfaces.MemoryRepository {
	return s.memory
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
