package usecase

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Config holds the pipeline tunables. DefaultConfig returns the values used
// when nothing is configured.
type Config struct {
	// Retrieval
	DefaultLimit     int
	DefaultThreshold float64

	// Consolidation
	MergeSimilarity   float64
	ArchiveThreshold  float64
	DecayHalfLife     time.Duration
	ArchiveGrace      time.Duration
	InsightMinSupport int

	// Context aggregation
	ContextWindow      time.Duration
	ContextMaxMemories int
	ContextCacheTTL    time.Duration

	// External call bounds
	EmbeddingTimeout time.Duration
	StoreTimeout     time.Duration

	// Concepts maps a topic tag to the words that signal it
	Concepts map[string][]string
}

const (
	maxRecentMemories = 10
	maxInterests      = 5
	quoteLength       = 100
)

func DefaultConfig() Config {
	return Config{
		DefaultLimit:       10,
		DefaultThreshold:   0.5,
		MergeSimilarity:    0.92,
		ArchiveThreshold:   0.1,
		DecayHalfLife:      30 * 24 * time.Hour,
		ArchiveGrace:       14 * 24 * time.Hour,
		InsightMinSupport:  3,
		ContextWindow:      7 * 24 * time.Hour,
		ContextMaxMemories: 200,
		ContextCacheTTL:    time.Minute,
		EmbeddingTimeout:   3 * time.Second,
		StoreTimeout:       5 * time.Second,
		Concepts:           DefaultConcepts(),
	}
}

// DefaultConcepts is the built-in concept lexicon
func DefaultConcepts() map[string][]string {
	return map[string][]string{
		"animals":   {"elephant", "dinosaur", "dog", "cat", "lion", "tiger", "bird", "fish", "horse", "monkey", "rabbit", "bear", "cow", "giraffe"},
		"numbers":   {"count", "number", "math", "add", "plus", "minus"},
		"colors":    {"color", "colour", "red", "blue", "green", "yellow", "purple", "pink", "orange"},
		"space":     {"space", "star", "moon", "planet", "rocket", "sun", "astronaut"},
		"music":     {"music", "song", "sing", "dance", "drum", "piano", "guitar"},
		"stories":   {"story", "book", "read", "fairy", "princess", "dragon"},
		"vehicles":  {"car", "truck", "train", "bus", "plane", "boat", "bike"},
		"food":      {"food", "cake", "ice cream", "fruit", "apple", "banana", "mango", "cookie", "pizza"},
		"nature":    {"tree", "flower", "rain", "garden", "ocean", "sea", "mountain", "river"},
		"family":    {"mom", "mum", "dad", "sister", "brother", "grandma", "grandpa", "family"},
		"festivals": {"diwali", "holi", "christmas", "eid", "birthday", "festival"},
		"art":       {"draw", "paint", "drawing", "painting", "crayon", "craft"},
		"sports":    {"ball", "football", "soccer", "cricket", "run", "swim", "play"},
	}
}

// Validate reports the first out-of-range tunable
func (c Config) Validate() error {
	switch {
	case c.DefaultLimit <= 0:
		return goerr.New("default limit must be positive", goerr.V("default_limit", c.DefaultLimit))
	case c.DefaultThreshold < 0 || c.DefaultThreshold > 1:
		return goerr.New("default threshold must be in [0,1]", goerr.V("default_threshold", c.DefaultThreshold))
	case c.MergeSimilarity <= 0 || c.MergeSimilarity > 1:
		return goerr.New("merge similarity must be in (0,1]", goerr.V("merge_similarity", c.MergeSimilarity))
	case c.ArchiveThreshold < 0 || c.ArchiveThreshold > 1:
		return goerr.New("archive threshold must be in [0,1]", goerr.V("archive_threshold", c.ArchiveThreshold))
	case c.DecayHalfLife < 0:
		return goerr.New("decay half-life must not be negative", goerr.V("decay_half_life", c.DecayHalfLife))
	case c.ArchiveGrace < 0:
		return goerr.New("archive grace must not be negative", goerr.V("archive_grace", c.ArchiveGrace))
	case c.InsightMinSupport < 1:
		return goerr.New("insight minimum support must be at least 1", goerr.V("insight_min_support", c.InsightMinSupport))
	case c.ContextWindow <= 0:
		return goerr.New("context window must be positive", goerr.V("context_window", c.ContextWindow))
	case c.ContextMaxMemories <= 0:
		return goerr.New("context max memories must be positive", goerr.V("context_max_memories", c.ContextMaxMemories))
	case c.ContextCacheTTL < 0:
		return goerr.New("context cache TTL must not be negative", goerr.V("context_cache_ttl", c.ContextCacheTTL))
	case c.EmbeddingTimeout <= 0:
		return goerr.New("embedding timeout must be positive", goerr.V("embedding_timeout", c.EmbeddingTimeout))
	case c.StoreTimeout <= 0:
		return goerr.New("store timeout must be positive", goerr.V("store_timeout", c.StoreTimeout))
	}
	return nil
}
