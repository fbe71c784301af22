package cli

import (
	"context"

	"github.com/appu-labs/appu/pkg/cli/config"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// pipelineConfig gathers the flag groups every pipeline command needs
type pipelineConfig struct {
	repo      config.Repository
	embedding config.Embedding
	pipeline  config.Pipeline
	report    config.Report
}

func (p *pipelineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.repo.Flags()...)
	flags = append(flags, p.embedding.Flags()...)
	flags = append(flags, p.pipeline.Flags()...)
	flags = append(flags, p.report.Flags()...)
	return flags
}

// build wires the use cases. The returned function releases every
// resource that was opened and must be called even when build fails
// halfway.
func (p *pipelineConfig) build(ctx context.Context) (*usecase.UseCases, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	cfg, err := p.pipeline.Configure()
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to load pipeline config")
	}

	repo, err := p.repo.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize repository")
	}
	cleanups = append(cleanups, func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	})

	opts := []usecase.Option{usecase.WithConfig(cfg)}

	embedder, err := p.embedding.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize embedding provider")
	}
	if embedder != nil {
		opts = append(opts, usecase.WithEmbedder(embedder))
		logging.Default().Info("Embedding provider enabled", "embedding", p.embedding)
	} else {
		logging.Default().Warn("Embedding provider disabled, retrieval uses keyword matching only")
	}

	writer, err := p.report.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize report writer")
	}
	if writer != nil {
		opts = append(opts, usecase.WithReportWriter(writer))
		cleanups = append(cleanups, func() {
			if err := writer.Close(); err != nil {
				logging.Default().Error("failed to close report writer", "error", err.Error())
			}
		})
	}

	uc := usecase.New(repo, opts...)
	cleanups = append(cleanups, uc.Close)

	return uc, cleanup, nil
}
