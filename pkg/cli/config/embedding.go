package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/service/embedding"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

// Embedding holds configuration for the Embedding Provider
type Embedding struct {
	provider       string
	geminiProject  string
	geminiLocation string
	openaiAPIKey   string
	dimension      int
	timeout        time.Duration
}

// Flags returns CLI flags for embedding configuration
func (e *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-provider",
			Usage:       "Embedding provider (gemini, openai or none)",
			Value:       "gemini",
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_EMBEDDING_PROVIDER"),
			Destination: &e.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_GEMINI_PROJECT"),
			Destination: &e.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_GEMINI_LOCATION"),
			Destination: &e.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_OPENAI_API_KEY"),
			Destination: &e.openaiAPIKey,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector size requested from the provider",
			Value:       model.DefaultEmbeddingDimension,
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_EMBEDDING_DIMENSION"),
			Destination: &e.dimension,
		},
		&cli.DurationFlag{
			Name:        "embedding-timeout",
			Usage:       "Timeout of a single embedding call",
			Value:       10 * time.Second,
			Category:    "Embedding",
			Sources:     cli.EnvVars("APPU_EMBEDDING_TIMEOUT"),
			Destination: &e.timeout,
		},
	}
}

// LogValue renders the embedding settings. The API key is never printed.
func (e Embedding) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", e.provider),
		slog.String("gemini_project", e.geminiProject),
		slog.String("gemini_location", e.geminiLocation),
		slog.Bool("openai_api_key_set", e.openaiAPIKey != ""),
		slog.Int("dimension", e.dimension),
		slog.Duration("timeout", e.timeout),
	)
}

// Configure creates the embedding client. It returns nil when the provider
// is "none", in which case retrieval falls back to keyword search.
func (e *Embedding) Configure(ctx context.Context) (*embedding.Client, error) {
	if e.dimension <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "embedding dimension must be positive", goerr.V("dimension", e.dimension))
	}

	var (
		llm gollem.LLMClient
		err error
	)
	switch e.provider {
	case "none", "":
		return nil, nil

	case "gemini":
		if e.geminiProject == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "gemini-project is required when using gemini provider")
		}
		llm, err = gemini.New(ctx, e.geminiProject, e.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}

	case "openai":
		if e.openaiAPIKey == "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "openai-api-key is required when using openai provider")
		}
		llm, err = openai.New(ctx, e.openaiAPIKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI client")
		}

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid embedding provider", goerr.V(ProviderKey, e.provider))
	}

	opts := []embedding.Option{embedding.WithDimension(e.dimension)}
	if e.timeout > 0 {
		opts = append(opts, embedding.WithTimeout(e.timeout))
	}
	return embedding.New(llm, opts...), nil
}

// DefaultEmbeddingDimension is the vector size used when no flag is given
const DefaultEmbeddingDimension = model.DefaultEmbeddingDimension
