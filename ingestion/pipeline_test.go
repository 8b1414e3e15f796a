package ingestion

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/cardseek/ai/mock"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/storage"
	"github.com/poiesic/cardseek/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard(name, text, typeLine, manaCost string) core.Card {
	return core.Card{
		Id:       core.CardID(name),
		Name:     name,
		Text:     text,
		Type:     typeLine,
		ManaCost: manaCost,
		FullText: core.ComposeFullText(text, typeLine, manaCost),
	}
}

func testCards() []core.Card {
	return []core.Card{
		testCard("Lightning Bolt", "Lightning Bolt deals 3 damage to any target.", "Instant", "{R}"),
		testCard("Shock", "Shock deals 2 damage to any target.", "Instant", "{R}"),
		testCard("Divination", "Draw two cards.", "Sorcery", "{2}{U}"),
		testCard("Island", "", "Basic Land — Island", ""),
		testCard("Fire // Ice", "Fire deals 2 damage divided as you choose.\nIce: Tap target permanent.\nDraw a card.", "Instant", "{1}{R}"),
	}
}

func newTestPipeline(t *testing.T, provider *mock.MockProvider, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetry(3, time.Millisecond)}, opts...)
	p, err := NewPipeline(provider, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	t.Run("requires provider", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("defaults", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		assert.Equal(t, DefaultBatchSize, p.batchSize)
		assert.Equal(t, core.GranularityRecord, p.granularity)
		assert.False(t, p.normalize)
		assert.GreaterOrEqual(t, p.pool.Cap(), 1)
	})

	t.Run("invalid options", func(t *testing.T) {
		provider := mock.NewMockProvider()
		_, err := NewPipeline(provider, WithBatchSize(0))
		assert.Error(t, err)
		_, err = NewPipeline(provider, WithGranularity(core.Granularity(9)))
		assert.ErrorIs(t, err, core.ErrInvalidGranularity)
		_, err = NewPipeline(provider, WithRetry(0, time.Second))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("pool size", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider), WithPoolSize(3))
		assert.Equal(t, 3, p.pool.Cap())
	})
}

func TestPipeline_BuildRecord(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	built := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestPipeline(t, provider, WithBatchSize(2), WithPoolSize(2), WithModelName("test-embed"))
	p.now = func() time.Time { return built }

	cards := testCards()
	snap, err := p.Build(context.Background(), cards)
	require.NoError(t, err)
	require.NoError(t, snap.Verify())

	assert.Len(t, snap.Units, len(cards))
	require.Len(t, snap.Vectors, len(cards))
	for i, u := range snap.Units {
		want := mock.WordVector(cards[u.CardRow].FullText, mock.DefaultDimension)
		assert.Equal(t, want, snap.Vectors[i], "vector %d stays aligned with its unit", i)
	}

	m := snap.Manifest
	assert.Equal(t, core.GranularityRecord, m.Granularity)
	assert.Equal(t, mock.DefaultDimension, m.Dimension)
	assert.Equal(t, "test-embed", m.Model)
	assert.Equal(t, len(cards), m.CardCount)
	assert.Equal(t, core.Checksum(cards), m.Checksum)
	assert.Equal(t, built, m.BuiltAt)

	assert.Equal(t, 3, provider.GetMockEmbedder().CallCount(), "five units in batches of two")
}

func TestPipeline_BuildParagraph(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	p := newTestPipeline(t, provider, WithGranularity(core.GranularityParagraph))

	snap, err := p.Build(context.Background(), testCards())
	require.NoError(t, err)

	// 1 + 1 + 1 + 0 + 3 non-empty paragraphs
	assert.Len(t, snap.Units, 6)
	assert.Equal(t, core.GranularityParagraph, snap.Manifest.Granularity)
	assert.Equal(t, 4, snap.Units[3].CardRow)
	assert.Equal(t, 4, snap.Units[5].CardRow)
}

func TestPipeline_BuildNormalize(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}
	p := newTestPipeline(t, provider, WithNormalize(true))

	snap, err := p.Build(context.Background(), testCards())
	require.NoError(t, err)
	assert.True(t, snap.Manifest.Normalized)
	for _, v := range snap.Vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x * x)
		}
		assert.InDelta(t, 1, math.Sqrt(sum), 1e-6)
	}
}

func TestPipeline_BuildRetriesBatches(t *testing.T) {
	provider := mock.NewMockProvider().(*mock.MockProvider)
	var calls atomic.Int32
	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("temporary outage")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.WordVector(text, 8)
		}
		return out, nil
	}
	p := newTestPipeline(t, provider, WithPoolSize(1))

	snap, err := p.Build(context.Background(), testCards())
	require.NoError(t, err)
	assert.Equal(t, 8, snap.Manifest.Dimension)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPipeline_BuildErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no cards", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		_, err := p.Build(ctx, nil)
		assert.ErrorIs(t, err, ErrNoCards)
	})

	t.Run("no units", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider), WithGranularity(core.GranularityParagraph))
		_, err := p.Build(ctx, []core.Card{testCard("Island", "", "Basic Land — Island", "")})
		assert.ErrorIs(t, err, ErrNoUnits)
	})

	t.Run("invalid card", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		cards := testCards()
		cards[1].FullText = "stale"
		_, err := p.Build(ctx, cards)
		assert.ErrorIs(t, err, core.ErrFullTextMismatch)
	})

	t.Run("persistent embedder failure", func(t *testing.T) {
		provider := mock.NewMockProvider().(*mock.MockProvider)
		boom := errors.New("embedder down")
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, boom
		}
		p := newTestPipeline(t, provider)
		_, err := p.Build(ctx, testCards())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("wrong vector count", func(t *testing.T) {
		provider := mock.NewMockProvider().(*mock.MockProvider)
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		p := newTestPipeline(t, provider)
		_, err := p.Build(ctx, testCards())
		assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	})

	t.Run("mixed dimensions", func(t *testing.T) {
		provider := mock.NewMockProvider().(*mock.MockProvider)
		var mu sync.Mutex
		dim := 2
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			mu.Lock()
			defer mu.Unlock()
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = make([]float32, dim)
				dim++
			}
			return out, nil
		}
		p := newTestPipeline(t, provider)
		_, err := p.Build(ctx, testCards())
		assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.Build(cctx, testCards())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_Progress(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider), WithProgress(&buf, 1), WithBatchSize(1))

	_, err := p.Build(context.Background(), testCards())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Embedding 5 record units of 5 cards")
	assert.Contains(t, buf.String(), "5/5 (100.0%)")
	assert.Contains(t, buf.String(), "Embedding complete")
}

const runSource = `{"data": {"M10": {"cards": [
  {"name": "Lightning Bolt", "text": "Lightning Bolt deals 3 damage to any target.", "type": "Instant", "manaCost": "{R}"},
  {"name": "Shock", "text": "Shock deals 2 damage to any target.", "type": "Instant", "manaCost": "{R}"},
  {"name": "Lightning Bolt", "text": "duplicate", "type": "Instant", "manaCost": "{R}"}
]}}}`

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := filepath.Join(dir, "AllPrintings.json")
	require.NoError(t, os.WriteFile(source, []byte(runSource), 0o644))

	t.Run("persists the snapshot", func(t *testing.T) {
		repo, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer repo.Close()

		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		snap, err := p.Run(ctx, source, repo)
		require.NoError(t, err)
		assert.Len(t, snap.Cards, 2)

		loaded, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap.Cards, loaded.Cards)
		assert.Equal(t, snap.Vectors, loaded.Vectors)
	})

	t.Run("failed build persists nothing", func(t *testing.T) {
		repo, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer repo.Close()

		provider := mock.NewMockProvider().(*mock.MockProvider)
		provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedder down")
		}
		p := newTestPipeline(t, provider)

		_, err = p.Run(ctx, source, repo)
		require.Error(t, err)

		_, err = repo.Load(ctx)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("requires repository", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		_, err := p.Run(ctx, source, nil)
		assert.ErrorIs(t, err, ErrRepositoryRequired)
	})

	t.Run("missing source", func(t *testing.T) {
		repo, err := badger.NewMemoryRepository()
		require.NoError(t, err)
		defer repo.Close()

		p := newTestPipeline(t, mock.NewMockProvider().(*mock.MockProvider))
		_, err = p.Run(ctx, filepath.Join(dir, "missing.json"), repo)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
