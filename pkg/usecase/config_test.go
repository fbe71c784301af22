package usecase_test

import (
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestConfigValidate(t *testing.T) {
	gt.NoError(t, usecase.DefaultConfig().Validate())

	testCases := []struct {
		name   string
		modify func(c *usecase.Config)
	}{
		{"zero default limit", func(c *usecase.Config) { c.DefaultLimit = 0 }},
		{"threshold above one", func(c *usecase.Config) { c.DefaultThreshold = 1.1 }},
		{"zero merge similarity", func(c *usecase.Config) { c.MergeSimilarity = 0 }},
		{"negative archive threshold", func(c *usecase.Config) { c.ArchiveThreshold = -0.1 }},
		{"negative half-life", func(c *usecase.Config) { c.DecayHalfLife = -time.Hour }},
		{"negative grace", func(c *usecase.Config) { c.ArchiveGrace = -time.Hour }},
		{"zero insight support", func(c *usecase.Config) { c.InsightMinSupport = 0 }},
		{"zero context window", func(c *usecase.Config) { c.ContextWindow = 0 }},
		{"zero context max", func(c *usecase.Config) { c.ContextMaxMemories = 0 }},
		{"negative cache TTL", func(c *usecase.Config) { c.ContextCacheTTL = -time.Second }},
		{"zero embedding timeout", func(c *usecase.Config) { c.EmbeddingTimeout = 0 }},
		{"zero store timeout", func(c *usecase.Config) { c.StoreTimeout = 0 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := usecase.DefaultConfig()
			tc.modify(&cfg)
			gt.Error(t, cfg.Validate())
		})
	}
}
