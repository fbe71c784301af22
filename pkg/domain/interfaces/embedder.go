package interfaces

import (
	"context"

	"github.com/appu-labs/appu/pkg/domain/model"
)

// Embedder is the Embedding Provider. Embed must return a vector of
// Dimension() elements or an error.
type Embedder interface {
	Embed(ctx context.Context, text string) (model.Embedding, error)
	Dimension() int
}
