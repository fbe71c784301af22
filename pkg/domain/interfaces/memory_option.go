package interfaces

import (
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
)

// ListMemoryOption is a functional option for filtering memories in List
type ListMemoryOption func(*listMemoryConfig)

type listMemoryConfig struct {
	memoryType types.MemoryType
	since      time.Time
	contains   string
	limit      int
}

// WithMemoryType restricts List to one memory type
func WithMemoryType(t types.MemoryType) ListMemoryOption {
	return func(c *listMemoryConfig) {
		c.memoryType = t
	}
}

// WithCreatedSince restricts List to memories created at or after since
func WithCreatedSince(since time.Time) ListMemoryOption {
	return func(c *listMemoryConfig) {
		c.since = since
	}
}

// WithContentContaining restricts List to memories whose content contains
// s, compared case-insensitively
func WithContentContaining(s string) ListMemoryOption {
	return func(c *listMemoryConfig) {
		c.contains = s
	}
}

// WithLimit caps the number of results. Zero or negative means no cap.
func WithLimit(n int) ListMemoryOption {
	return func(c *listMemoryConfig) {
		c.limit = n
	}
}

// BuildListMemoryConfig builds a listMemoryConfig from options
func BuildListMemoryConfig(opts ...ListMemoryOption) *listMemoryConfig {
	cfg := &listMemoryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *listMemoryConfig) MemoryType() types.MemoryType { return c.memoryType }
func (c *listMemoryConfig) Since() time.Time              { return c.since }
func (c *listMemoryConfig) Contains() string              { return c.contains }
func (c *listMemoryConfig) Limit() int                    { return c.limit }

// Match applies the type, time and content filters to m. Backends without
// native filtering use it to filter client-side.
func (c *listMemoryConfig) Match(m *model.Memory) bool {
	if m.IsArchived() {
		return false
	}
	if c.memoryType != "" && m.Type != c.memoryType {
		return false
	}
	if !c.since.IsZero() && m.CreatedAt.Before(c.since) {
		return false
	}
	if c.contains != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(c.contains)) {
		return false
	}
	return true
}

// FindMemoryOption is a functional option for FindByEmbedding
type FindMemoryOption func(*findMemoryConfig)

type findMemoryConfig struct {
	memoryType types.MemoryType
	since      time.Time
	threshold  float64
	limit      int
}

// WithFindMemoryType restricts similarity search to one memory type
func WithFindMemoryType(t types.MemoryType) FindMemoryOption {
	return func(c *findMemoryConfig) {
		c.memoryType = t
	}
}

// WithFindCreatedSince restricts similarity search to memories created at or after since
func WithFindCreatedSince(since time.Time) FindMemoryOption {
	return func(c *findMemoryConfig) {
		c.since = since
	}
}

// WithThreshold sets the minimum cosine similarity
func WithThreshold(threshold float64) FindMemoryOption {
	return func(c *findMemoryConfig) {
		c.threshold = threshold
	}
}

// WithFindLimit caps the number of results. Zero or negative means no cap.
func WithFindLimit(n int) FindMemoryOption {
	return func(c *findMemoryConfig) {
		c.limit = n
	}
}

// BuildFindMemoryConfig builds a findMemoryConfig from options
func BuildFindMemoryConfig(opts ...FindMemoryOption) *findMemoryConfig {
	cfg := &findMemoryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *findMemoryConfig) MemoryType() types.MemoryType { return c.memoryType }
func (c *findMemoryConfig) Since() time.Time              { return c.since }
func (c *findMemoryConfig) Threshold() float64            { return c.threshold }
func (c *findMemoryConfig) Limit() int                    { return c.limit }

// Match applies the type and time filters to m
func (c *findMemoryConfig) Match(m *model.Memory) bool {
	if m.IsArchived() || len(m.Embedding) == 0 {
		return false
	}
	if c.memoryType != "" && m.Type != c.memoryType {
		return false
	}
	if !c.since.IsZero() && m.CreatedAt.Before(c.since) {
		return false
	}
	return true
}

// RankScored sorts by similarity descending, importance descending, then
// newest first, and applies the limit. Shared so every backend orders
// results the same way.
func RankScored(results []*model.ScoredMemory, limit int) []*model.ScoredMemory {
	sortScored(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
