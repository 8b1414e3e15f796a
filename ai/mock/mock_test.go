package mock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/cardseek/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distance(a, b []float32) float32 {
	var d float32
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func TestMockEmbedder_Defaults(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	a, err := m.EmbedText(ctx, "Deal 3 damage to any target.")
	require.NoError(t, err)
	assert.Len(t, a, DefaultDimension)

	again, _ := m.EmbedText(ctx, "deal 3 damage to any target")
	assert.Equal(t, a, again, "case and punctuation are ignored")

	near, _ := m.EmbedText(ctx, "Deal 2 damage to any target.")
	far, _ := m.EmbedText(ctx, "Counter target spell.")
	assert.Less(t, distance(a, near), distance(a, far))

	batch, err := m.EmbedTexts(ctx, []string{"a b", "c"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
	assert.Equal(t, 5, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockEmbedder_ConcurrentCalls(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedTexts(context.Background(), []string{"x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, m.CallCount())
}

func TestMockReranker(t *testing.T) {
	ctx := context.Background()

	t.Run("word overlap", func(t *testing.T) {
		r := NewMockReranker()
		scores, err := r.Score(ctx, []ai.Pair{
			{Query: "deal damage damage", Candidate: "Deal 3 damage to any target."},
			{Query: "deal damage", Candidate: "Draw a card."},
		})
		require.NoError(t, err)
		assert.Equal(t, []float32{2, 0}, scores)
		assert.Equal(t, 1, r.CallCount())
	})

	t.Run("custom function", func(t *testing.T) {
		r := NewMockReranker()
		boom := errors.New("boom")
		r.ScoreFunc = func(ctx context.Context, pair ai.Pair) (float32, error) {
			return 0, boom
		}
		_, err := r.Score(ctx, []ai.Pair{{Query: "q", Candidate: "c"}})
		assert.ErrorIs(t, err, boom)
	})
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockReranker(), p.Reranker())
	assert.NoError(t, p.Close())
}

func TestMockProviderWithServices(t *testing.T) {
	embedder := &MockEmbedder{Dimension: 8}
	reranker := &MockReranker{
		ScoreFunc: func(ctx context.Context, pair ai.Pair) (float32, error) {
			return 0.5, nil
		},
	}
	provider := NewMockProviderWithServices(embedder, reranker).(*MockProvider)

	assert.Same(t, embedder, provider.GetMockEmbedder())
	assert.Same(t, reranker, provider.GetMockReranker())

	vector, err := provider.Embedder().EmbedText(context.Background(), "flying")
	require.NoError(t, err)
	assert.Len(t, vector, 8)

	scores, err := provider.Reranker().Score(context.Background(), []ai.Pair{{Query: "a", Candidate: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, scores)
	assert.NoError(t, provider.Close())
}
