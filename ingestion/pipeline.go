package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/cardseek/ai"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/corpus"
	"github.com/poiesic/cardseek/storage"
)

const (
	// DefaultBatchSize is the number of unit texts sent per embedding request.
	DefaultBatchSize = 64
	// DefaultMaxRetries is the number of attempts per batch.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the delay before the first retry; it doubles per attempt.
	DefaultRetryDelay = time.Second
	// DefaultReportInterval is how many units pass between progress lines.
	DefaultReportInterval = 1000
)

// Pipeline orchestrates building a snapshot from a card table.
// It embeds unit batches concurrently on a worker pool.
type Pipeline struct {
	embedder       ai.Embedder
	pool           *ants.Pool
	granularity    core.Granularity
	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	normalize      bool
	modelName      string
	progress       io.Writer
	reportInterval int
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithGranularity sets what one index row represents.
// Default is core.GranularityRecord.
func WithGranularity(g core.Granularity) Option {
	return func(p *Pipeline) error {
		if g != core.GranularityRecord && g != core.GranularityParagraph {
			return fmt.Errorf("%w: %d", core.ErrInvalidGranularity, int(g))
		}
		p.granularity = g
		return nil
	}
}

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets the attempts per batch and the initial backoff delay.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxRetries < 1 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = maxRetries
		p.retryDelay = delay
		return nil
	}
}

// WithNormalize scales every stored vector to unit length. Queries against a
// normalized snapshot are normalized too.
func WithNormalize(normalize bool) Option {
	return func(p *Pipeline) error {
		p.normalize = normalize
		return nil
	}
}

// WithModelName records the embedding model in the manifest.
func WithModelName(name string) Option {
	return func(p *Pipeline) error {
		p.modelName = name
		return nil
	}
}

// WithProgress writes a progress line every interval units to w.
// Default is no progress output.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progress = w
		if interval > 0 {
			p.reportInterval = interval
		}
		return nil
	}
}

// NewPipeline creates a new build pipeline.
func NewPipeline(provider ai.AIProvider, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder:       provider.Embedder(),
		pool:           pool,
		granularity:    core.GranularityRecord,
		batchSize:      DefaultBatchSize,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		progress:       io.Discard,
		reportInterval: DefaultReportInterval,
		now:            time.Now,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Build embeds every unit of cards and returns the verified snapshot.
// cards must already be deduplicated and in their final row order.
func (p *Pipeline) Build(ctx context.Context, cards []core.Card) (*storage.Snapshot, error) {
	if len(cards) == 0 {
		return nil, ErrNoCards
	}
	for i := range cards {
		if err := core.ValidateCard(&cards[i]); err != nil {
			return nil, fmt.Errorf("card row %d: %w", i, err)
		}
	}

	units := corpus.Units(cards, p.granularity)
	if len(units) == 0 {
		return nil, ErrNoUnits
	}

	fmt.Fprintf(p.progress, "Embedding %d %s units of %d cards (batch size: %d)\n",
		len(units), p.granularity, len(cards), p.batchSize)

	vectors, err := p.embedUnits(ctx, units)
	if err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vectors", ErrEmbeddingMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: unit %d has dimension %d, expected %d", ErrEmbeddingMismatch, i, len(v), dim)
		}
	}

	snap := &storage.Snapshot{
		Manifest: core.Manifest{
			Granularity: p.granularity,
			Dimension:   dim,
			Model:       p.modelName,
			Normalized:  p.normalize,
			CardCount:   len(cards),
			UnitCount:   len(units),
			Checksum:    core.Checksum(cards),
			BuiltAt:     p.now().UTC(),
		},
		Cards:   cards,
		Units:   units,
		Vectors: vectors,
	}
	if err := snap.Verify(); err != nil {
		return nil, err
	}

	p.logger.Info("snapshot built",
		"cards", len(cards),
		"units", len(units),
		"dimension", dim,
		"granularity", p.granularity.String())
	return snap, nil
}

// embedUnits embeds all units in batches on the pool. Vectors keep unit order.
func (p *Pipeline) embedUnits(ctx context.Context, units []core.Unit) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	be := &batchEmbedder{
		embedder:   p.embedder,
		maxRetries: p.maxRetries,
		retryDelay: p.retryDelay,
		normalize:  p.normalize,
		logger:     p.logger,
	}
	tracker := newProgressTracker(p.progress, len(units), p.reportInterval)
	vectors := make([][]float32, len(units))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(units); start += p.batchSize {
		end := min(start+p.batchSize, len(units))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = units[start+i].Text
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			embeddings, err := be.embed(ctx, texts)
			if err != nil {
				p.logger.Error("error embedding batch", "start", start, "size", len(texts), "err", err)
				fail(err)
				return
			}
			copy(vectors[start:end], embeddings)
			tracker.increment(len(embeddings))
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracker.finish()
	elapsed := tracker.elapsed()
	fmt.Fprintf(p.progress, "Embedding complete. Processed %d units in %v\n",
		len(units), elapsed.Round(time.Millisecond))

	return vectors, nil
}

// Run loads the card source at sourcePath, builds the snapshot and saves it
// to repo. Nothing is saved unless every step succeeds.
func (p *Pipeline) Run(ctx context.Context, sourcePath string, repo storage.SnapshotRepository) (*storage.Snapshot, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	cards, err := corpus.Load(ctx, sourcePath, corpus.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}

	snap, err := p.Build(ctx, cards)
	if err != nil {
		return nil, err
	}

	if err := repo.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
