// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config reads the cardseek TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/cardseek/ai"
	"github.com/poiesic/cardseek/core"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "cardseek.toml"

// Config represents the application configuration.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	AI     AIConfig     `toml:"ai"`
	Build  BuildConfig  `toml:"build"`
	Search SearchConfig `toml:"search"`
	Web    WebConfig    `toml:"web"`
}

// StoreConfig locates the persisted corpus.
type StoreConfig struct {
	Dir string `toml:"dir"` // BadgerDB directory
}

// AIConfig contains the model endpoints. The API token is read from the
// environment, never from the file.
type AIConfig struct {
	EmbeddingHost      string `toml:"embedding_host"`
	RerankerHost       string `toml:"reranker_host"`
	EmbeddingModel     string `toml:"embedding_model"`
	RerankerModel      string `toml:"reranker_model"`
	EmbeddingBatchSize int    `toml:"embedding_batch_size"`
}

// BuildConfig contains corpus build settings.
type BuildConfig struct {
	Source         string `toml:"source"`          // Path to AllPrintings.json
	Granularity    string `toml:"granularity"`     // "record" or "paragraph"
	BatchSize      int    `toml:"batch_size"`      // Units per embedding request
	PoolSize       int    `toml:"pool_size"`       // Concurrent batches, 0 = NumCPU/2
	MaxRetries     int    `toml:"max_retries"`     // Attempts per batch
	RetryDelay     string `toml:"retry_delay"`     // Base backoff (e.g., "1s")
	Normalize      bool   `toml:"normalize"`       // L2-normalize vectors
	ReportInterval int    `toml:"report_interval"` // Units between progress lines, 0 = quiet
}

// SearchConfig contains query defaults.
type SearchConfig struct {
	K       int     `toml:"k"`
	FetchK  int     `toml:"fetch_k"`
	Ranking string  `toml:"ranking"` // "rerank" or "hybrid"
	Alpha   float32 `toml:"alpha"`
}

// WebConfig contains the search form server settings.
type WebConfig struct {
	Listen      string `toml:"listen"`
	Artwork     bool   `toml:"artwork"` // Show Scryfall images
	ScryfallURL string `toml:"scryfall_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Dir: "cards.db",
		},
		AI: AIConfig{
			EmbeddingHost:      aiDefaults.EmbeddingHost,
			RerankerHost:       aiDefaults.RerankerHost,
			EmbeddingModel:     aiDefaults.EmbeddingModel,
			RerankerModel:      aiDefaults.RerankerModel,
			EmbeddingBatchSize: aiDefaults.EmbeddingBatchSize,
		},
		Build: BuildConfig{
			Source:         "AllPrintings.json",
			Granularity:    core.GranularityRecord.String(),
			BatchSize:      64,
			PoolSize:       0,
			MaxRetries:     3,
			RetryDelay:     "1s",
			Normalize:      false,
			ReportInterval: 1000,
		},
		Search: SearchConfig{
			K:       core.DefaultK,
			FetchK:  core.DefaultFetchK,
			Ranking: core.RankingRerank.String(),
			Alpha:   core.DefaultAlpha,
		},
		Web: WebConfig{
			Listen:      ":8080",
			Artwork:     true,
			ScryfallURL: "https://api.scryfall.com",
		},
	}
}

// Load reads the configuration at path over the defaults, so a file only
// needs the keys it changes. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks every value that cannot be caught by the TOML decoder.
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return errors.New("config: store.dir is required")
	}
	if _, err := core.ParseGranularity(c.Build.Granularity); err != nil {
		return fmt.Errorf("config: build.granularity: %w", err)
	}
	if c.Build.BatchSize < 1 {
		return errors.New("config: build.batch_size must be at least 1")
	}
	if c.Build.PoolSize < 0 {
		return errors.New("config: build.pool_size cannot be negative")
	}
	if c.Build.MaxRetries < 1 {
		return errors.New("config: build.max_retries must be at least 1")
	}
	if _, err := time.ParseDuration(c.Build.RetryDelay); err != nil {
		return fmt.Errorf("config: build.retry_delay: %w", err)
	}
	if c.Build.ReportInterval < 0 {
		return errors.New("config: build.report_interval cannot be negative")
	}
	if _, err := core.ParseRanking(c.Search.Ranking); err != nil {
		return fmt.Errorf("config: search.ranking: %w", err)
	}
	q := c.Query("validate")
	if err := core.ValidateQuery(&q); err != nil {
		return fmt.Errorf("config: search: %w", err)
	}
	return c.AIConfig("").Validate()
}

// RetryDelayDuration returns build.retry_delay, or one second if it does
// not parse.
func (c *Config) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.Build.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// Granularity returns build.granularity, defaulting to one unit per card.
func (c *Config) Granularity() core.Granularity {
	g, err := core.ParseGranularity(c.Build.Granularity)
	if err != nil {
		return core.GranularityRecord
	}
	return g
}

// Query returns a by-description query for text using the search defaults.
func (c *Config) Query(text string) core.Query {
	ranking, err := core.ParseRanking(c.Search.Ranking)
	if err != nil {
		ranking = core.RankingRerank
	}
	return core.Query{
		Text:     text,
		Ranking:  ranking,
		K:        c.Search.K,
		FetchK:   c.Search.FetchK,
		Alpha:    c.Search.Alpha,
		AlphaSet: true,
	}
}

// AIConfig converts the [ai] section into a provider configuration.
func (c *Config) AIConfig(token string) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithRerankerHost(c.AI.RerankerHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithRerankerModel(c.AI.RerankerModel),
		ai.WithEmbeddingBatchSize(c.AI.EmbeddingBatchSize),
		ai.WithToken(token),
	)
}
