package model

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidMemory is returned by Memory.Validate
var ErrInvalidMemory = goerr.New("invalid memory")

// MemoryID is a UUID-based identifier for Memory
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

func (id MemoryID) String() string {
	return string(id)
}

// Memory is one observation about a child derived from a conversation turn.
// A memory belongs to exactly one child.
type Memory struct {
	ID         MemoryID
	ChildID    types.ChildID
	Content    string
	Type       types.MemoryType
	Importance float64   // salience in [0,1]
	Embedding  Embedding // nil when the provider was unavailable
	Metadata   Metadata
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ArchivedAt *time.Time // set when consolidation soft-removes the memory
}

// Validate checks the invariants every stored memory must hold
func (m *Memory) Validate() error {
	if err := m.ChildID.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidMemory, "invalid child ID", goerr.V("child_id", m.ChildID))
	}
	if strings.TrimSpace(m.Content) == "" {
		return goerr.Wrap(ErrInvalidMemory, "content is empty", goerr.V("memory_id", m.ID))
	}
	if !m.Type.IsValid() {
		return goerr.Wrap(ErrInvalidMemory, "invalid memory type", goerr.V("type", m.Type))
	}
	if math.IsNaN(m.Importance) || m.Importance < 0 || m.Importance > 1 {
		return goerr.Wrap(ErrInvalidMemory, "importance out of range", goerr.V("importance", m.Importance))
	}
	if !m.Metadata.EmotionalTone.IsValid() {
		return goerr.Wrap(ErrInvalidMemory, "invalid emotional tone", goerr.V("tone", m.Metadata.EmotionalTone))
	}
	if d := m.Metadata.Details; d != nil && d.MemoryType() != m.Type {
		return goerr.Wrap(ErrInvalidMemory, "details do not match memory type",
			goerr.V("type", m.Type), goerr.V("details_type", d.MemoryType()))
	}
	return nil
}

// IsArchived reports whether consolidation has soft-removed the memory
func (m *Memory) IsArchived() bool {
	return m.ArchivedAt != nil
}

// Hash returns the stored content fingerprint, computing it when absent
func (m *Memory) Hash() string {
	if m.Metadata.Hash != "" {
		return m.Metadata.Hash
	}
	return ContentHash(m.Content)
}

// DecayedImportance halves importance every halfLife since the memory was
// last updated. A non-positive halfLife disables decay.
func (m *Memory) DecayedImportance(now time.Time, halfLife time.Duration) float64 {
	if halfLife <= 0 {
		return m.Importance
	}
	age := now.Sub(m.lastTouched())
	if age <= 0 {
		return m.Importance
	}
	return m.Importance * math.Pow(0.5, float64(age)/float64(halfLife))
}

// Age returns the time since the memory was last created or updated
func (m *Memory) Age(now time.Time) time.Duration {
	return now.Sub(m.lastTouched())
}

func (m *Memory) lastTouched() time.Time {
	if m.UpdatedAt.After(m.CreatedAt) {
		return m.UpdatedAt
	}
	return m.CreatedAt
}

// Clone returns a deep copy
func (m *Memory) Clone() *Memory {
	if m == nil {
		return nil
	}
	copied := *m
	copied.Embedding = m.Embedding.Clone()
	copied.Metadata = m.Metadata.Clone()
	if m.ArchivedAt != nil {
		at := *m.ArchivedAt
		copied.ArchivedAt = &at
	}
	return &copied
}

// ScoredMemory pairs a memory with its similarity to a query embedding
type ScoredMemory struct {
	Memory     *Memory
	Similarity float64
}

// ClampImportance forces v into [0,1]. NaN becomes 0.
func ClampImportance(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// ContentHash fingerprints content for exact-duplicate detection. Case and
// whitespace differences do not change the hash.
func ContentHash(content string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
