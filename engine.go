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


package cardseek

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/cardseek/ai"
	"github.com/poiesic/cardseek/ai/openai"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/index"
	"github.com/poiesic/cardseek/ingestion"
	"github.com/poiesic/cardseek/search"
	"github.com/poiesic/cardseek/storage"
	"github.com/poiesic/cardseek/storage/badger"
)

// ErrNoStore indicates neither a directory nor a repository was given.
var ErrNoStore = errors.New("cardseek: store directory or repository required")

// Engine is a loaded, read-only card corpus ready to be searched.
type Engine struct {
	manifest     core.Manifest
	catalog      *search.Catalog
	provider     ai.AIProvider
	ownsProvider bool
	logger       *slog.Logger
}

// EngineOption configures Open and Build.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	repo     storage.SnapshotRepository
	logger   *slog.Logger
}

// WithAIConfig sets the model endpoints used when no provider is injected.
func WithAIConfig(config *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects the AI provider. The caller keeps ownership and
// Engine.Close leaves it open.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithRepository reads and writes snapshots through repo instead of the
// BadgerDB store at the given directory.
func WithRepository(repo storage.SnapshotRepository) EngineOption {
	return func(o *engineOptions) {
		o.repo = repo
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newEngineOptions(opts []EngineOption) *engineOptions {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// repository returns the configured repository and whether the caller of
// this function must close it.
func (o *engineOptions) repository(dir string) (storage.SnapshotRepository, bool, error) {
	if o.repo != nil {
		return o.repo, false, nil
	}
	if dir == "" {
		return nil, false, ErrNoStore
	}
	repo, err := badger.NewRepository(dir, badger.WithLogger(o.logger))
	if err != nil {
		return nil, false, err
	}
	return repo, true, nil
}

func (o *engineOptions) providerOrNew() (ai.AIProvider, bool, error) {
	if o.provider != nil {
		return o.provider, false, nil
	}
	provider, err := openai.NewProvider(o.aiConfig)
	if err != nil {
		return nil, false, err
	}
	return provider, true, nil
}

// Open loads the corpus stored in dir and rebuilds its vector index.
func Open(ctx context.Context, dir string, opts ...EngineOption) (*Engine, error) {
	options := newEngineOptions(opts)
	logger := options.logger.With("component", "engine")

	repo, ownsRepo, err := options.repository(dir)
	if err != nil {
		return nil, err
	}
	snap, err := repo.Load(ctx)
	if ownsRepo {
		if cerr := repo.Close(); cerr != nil {
			logger.Error("error closing snapshot repository", "err", cerr)
		}
	}
	if err != nil {
		return nil, err
	}

	flat, err := index.NewFlat(snap.Manifest.Dimension)
	if err != nil {
		return nil, err
	}
	if err := flat.Add(snap.Vectors...); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	provider, ownsProvider, err := options.providerOrNew()
	if err != nil {
		return nil, err
	}
	if ownsProvider && snap.Manifest.Model != "" && snap.Manifest.Model != options.aiConfig.EmbeddingModel {
		logger.Warn("embedding model differs from the one the corpus was built with",
			"built_with", snap.Manifest.Model, "configured", options.aiConfig.EmbeddingModel)
	}

	logger.Info("corpus loaded",
		"cards", snap.Manifest.CardCount,
		"units", snap.Manifest.UnitCount,
		"granularity", snap.Manifest.Granularity.String(),
		"dimension", snap.Manifest.Dimension)

	return &Engine{
		manifest: snap.Manifest,
		catalog: &search.Catalog{
			Cards:      snap.Cards,
			Units:      snap.Units,
			Index:      flat,
			Normalized: snap.Manifest.Normalized,
		},
		provider:     provider,
		ownsProvider: ownsProvider,
		logger:       options.logger,
	}, nil
}

// Build reads the card source at sourcePath, embeds it and stores the
// result in dir, replacing any previous corpus only on success.
func Build(ctx context.Context, dir, sourcePath string, buildOpts []ingestion.Option, opts ...EngineOption) (*storage.Snapshot, error) {
	options := newEngineOptions(opts)

	repo, ownsRepo, err := options.repository(dir)
	if err != nil {
		return nil, err
	}
	if ownsRepo {
		defer repo.Close()
	}

	provider, ownsProvider, err := options.providerOrNew()
	if err != nil {
		return nil, err
	}
	if ownsProvider {
		defer provider.Close()
	}

	pipelineOpts := append([]ingestion.Option{
		ingestion.WithLogger(options.logger),
		ingestion.WithModelName(options.aiConfig.EmbeddingModel),
	}, buildOpts...)
	pipeline, err := ingestion.NewPipeline(provider, pipelineOpts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	return pipeline.Run(ctx, sourcePath, repo)
}

// NewSearcher creates a searcher over the loaded corpus.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.catalog, e.provider, append([]search.Option{search.WithLogger(e.logger)}, opts...)...)
}

// Cards returns the card table in row order. It must not be modified.
func (e *Engine) Cards() []core.Card {
	return e.catalog.Cards
}

// Manifest describes the loaded corpus.
func (e *Engine) Manifest() core.Manifest {
	return e.manifest
}

// Close releases the AI provider if the engine created it.
func (e *Engine) Close() error {
	if !e.ownsProvider {
		return nil
	}
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "component", "engine", "err", err)
		return err
	}
	return nil
}
