package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/cardseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "cards.db", cfg.Store.Dir)
	assert.Equal(t, "record", cfg.Build.Granularity)
	assert.Equal(t, 64, cfg.Build.BatchSize)
	assert.Equal(t, core.DefaultK, cfg.Search.K)
	assert.Equal(t, core.DefaultFetchK, cfg.Search.FetchK)
	assert.Equal(t, core.DefaultAlpha, cfg.Search.Alpha)
	assert.Equal(t, ":8080", cfg.Web.Listen)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("partial file keeps other defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cardseek.toml")
		content := `
[store]
dir = "/var/lib/cardseek"

[build]
granularity = "paragraph"
retry_delay = "250ms"

[search]
ranking = "hybrid"
alpha = 0.5
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())

		assert.Equal(t, "/var/lib/cardseek", cfg.Store.Dir)
		assert.Equal(t, core.GranularityParagraph, cfg.Granularity())
		assert.Equal(t, 250*time.Millisecond, cfg.RetryDelayDuration())
		assert.Equal(t, 64, cfg.Build.BatchSize)
		assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)

		q := cfg.Query("flying")
		assert.Equal(t, core.RankingHybrid, q.Ranking)
		assert.Equal(t, float32(0.5), q.Alpha)
		assert.Equal(t, core.DefaultK, q.K)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[store\ndir ="), 0o644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cardseek.toml")
	cfg := DefaultConfig()
	cfg.Build.Normalize = true
	cfg.Web.Artwork = false

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty store dir", func(c *Config) { c.Store.Dir = "" }},
		{"unknown granularity", func(c *Config) { c.Build.Granularity = "sentence" }},
		{"zero batch size", func(c *Config) { c.Build.BatchSize = 0 }},
		{"negative pool size", func(c *Config) { c.Build.PoolSize = -1 }},
		{"zero retries", func(c *Config) { c.Build.MaxRetries = 0 }},
		{"bad retry delay", func(c *Config) { c.Build.RetryDelay = "soon" }},
		{"negative report interval", func(c *Config) { c.Build.ReportInterval = -5 }},
		{"unknown ranking", func(c *Config) { c.Search.Ranking = "bm25" }},
		{"negative k", func(c *Config) { c.Search.K = -1 }},
		{"alpha out of range", func(c *Config) { c.Search.Alpha = 2 }},
		{"missing embedding model", func(c *Config) { c.AI.EmbeddingModel = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAIConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AI.EmbeddingHost = "http://embed:8080"

	aiCfg := cfg.AIConfig("secret")
	assert.Equal(t, "secret", aiCfg.Token)
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embed:8080/v1", aiCfg.EmbeddingHost)

	assert.Equal(t, "none", cfg.AIConfig("").Token, "empty token keeps the default")
}

func TestQuery_ZeroAlphaIsKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Ranking = "hybrid"
	cfg.Search.Alpha = 0
	require.NoError(t, cfg.Validate())

	q := cfg.Query("flying").WithDefaults()
	assert.True(t, q.AlphaSet)
	assert.Equal(t, float32(0), q.Alpha)
}
