package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Pipeline holds the path of the TOML file that overrides pipeline tunables
type Pipeline struct {
	path string
}

// PipelineFile is the TOML layout. Every field is optional; unset fields
// keep the built-in default.
type PipelineFile struct {
	Retrieval     RetrievalSection     `toml:"retrieval"`
	Consolidation ConsolidationSection `toml:"consolidation"`
	Context       ContextSection       `toml:"context"`
	Timeouts      TimeoutSection       `toml:"timeouts"`
	// Concepts replaces the word list of each named tag. An empty list
	// removes the tag.
	Concepts map[string][]string `toml:"concepts"`
}

type RetrievalSection struct {
	DefaultLimit     *int     `toml:"default_limit"`
	DefaultThreshold *float64 `toml:"default_threshold"`
}

type ConsolidationSection struct {
	MergeSimilarity   *float64 `toml:"merge_similarity"`
	ArchiveThreshold  *float64 `toml:"archive_threshold"`
	DecayHalfLife     string   `toml:"decay_half_life"`
	ArchiveGrace      string   `toml:"archive_grace"`
	InsightMinSupport *int     `toml:"insight_min_support"`
}

type ContextSection struct {
	Window      string `toml:"window"`
	MaxMemories *int   `toml:"max_memories"`
	CacheTTL    string `toml:"cache_ttl"`
}

type TimeoutSection struct {
	Embedding string `toml:"embedding"`
	Store     string `toml:"store"`
}

// Flags returns CLI flags for pipeline configuration
func (p *Pipeline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "pipeline-config",
			Usage:       "Path to a TOML file overriding memory pipeline tunables",
			Category:    "Pipeline",
			Sources:     cli.EnvVars("APPU_PIPELINE_CONFIG"),
			Destination: &p.path,
		},
	}
}

// Path returns the configured file path
func (p *Pipeline) Path() string {
	return p.path
}

// Configure returns the defaults overridden by the TOML file, if one is set
func (p *Pipeline) Configure() (usecase.Config, error) {
	if p.path == "" {
		return usecase.DefaultConfig(), nil
	}
	return LoadPipelineConfig(p.path)
}

// LoadPipelineConfig reads the TOML file at path, applies it over the
// defaults and validates the result
func LoadPipelineConfig(path string) (usecase.Config, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return usecase.Config{}, goerr.Wrap(ErrConfigNotFound, "pipeline config not found", goerr.V(ConfigPathKey, path))
		}
		return usecase.Config{}, goerr.Wrap(err, "failed to read pipeline config", goerr.V(ConfigPathKey, path))
	}

	var file PipelineFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return usecase.Config{}, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML pipeline config",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}

	cfg := usecase.DefaultConfig()
	if err := file.apply(&cfg); err != nil {
		return usecase.Config{}, goerr.Wrap(err, "pipeline config rejected", goerr.V(ConfigPathKey, path))
	}
	if err := cfg.Validate(); err != nil {
		return usecase.Config{}, goerr.Wrap(ErrInvalidConfig, "pipeline config validation failed",
			goerr.V(ConfigPathKey, path), goerr.V("cause", err.Error()))
	}
	return cfg, nil
}

func (f *PipelineFile) apply(cfg *usecase.Config) error {
	setInt(&cfg.DefaultLimit, f.Retrieval.DefaultLimit)
	setFloat(&cfg.DefaultThreshold, f.Retrieval.DefaultThreshold)

	setFloat(&cfg.MergeSimilarity, f.Consolidation.MergeSimilarity)
	setFloat(&cfg.ArchiveThreshold, f.Consolidation.ArchiveThreshold)
	setInt(&cfg.InsightMinSupport, f.Consolidation.InsightMinSupport)
	setInt(&cfg.ContextMaxMemories, f.Context.MaxMemories)

	durations := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"consolidation.decay_half_life", f.Consolidation.DecayHalfLife, &cfg.DecayHalfLife},
		{"consolidation.archive_grace", f.Consolidation.ArchiveGrace, &cfg.ArchiveGrace},
		{"context.window", f.Context.Window, &cfg.ContextWindow},
		{"context.cache_ttl", f.Context.CacheTTL, &cfg.ContextCacheTTL},
		{"timeouts.embedding", f.Timeouts.Embedding, &cfg.EmbeddingTimeout},
		{"timeouts.store", f.Timeouts.Store, &cfg.StoreTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V(FieldKey, d.field), goerr.V("value", d.value))
		}
		*d.dst = v
	}

	for tag, words := range f.Concepts {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			return goerr.Wrap(ErrInvalidConfig, "concept tag is empty", goerr.V(FieldKey, "concepts"))
		}
		if len(words) == 0 {
			delete(cfg.Concepts, tag)
			continue
		}
		cfg.Concepts[tag] = words
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
