package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/domain/interfaces"
	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

var (
	// ErrEmptyEmbedding is returned when the provider answers without a vector
	ErrEmptyEmbedding = goerr.New("embedding generation returned empty result")

	// ErrEmptyText is returned for blank input
	ErrEmptyText = goerr.New("text to embed is empty")
)

const defaultTimeout = 10 * time.Second

// Client turns text into fixed-dimension vectors through a gollem LLM client
type Client struct {
	llm       gollem.LLMClient
	dimension int
	timeout   time.Duration
}

var _ interfaces.Embedder = (*Client)(nil)

// Option configures Client
type Option func(*Client)

// WithDimension overrides the vector dimension requested from the provider
func WithDimension(dim int) Option {
	return func(c *Client) {
		if dim > 0 {
			c.dimension = dim
		}
	}
}

// WithTimeout bounds a single embedding call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates an embedding client backed by llm
func New(llm gollem.LLMClient, opts ...Option) *Client {
	c := &Client{
		llm:       llm,
		dimension: model.DefaultEmbeddingDimension,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dimension returns the vector dimension this client produces
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates the embedding for a single text
func (c *Client) Embed(ctx context.Context, text string) (model.Embedding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, goerr.Wrap(ErrEmptyText, "failed to embed text")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embeddings, err := c.llm.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding",
			goerr.V("dimension", c.dimension),
			goerr.V("text_length", len(text)))
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.Wrap(ErrEmptyEmbedding, "failed to generate embedding",
			goerr.V("dimension", c.dimension))
	}

	return model.NewEmbedding(embeddings[0]), nil
}
