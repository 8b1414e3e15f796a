package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/cardseek/ai"
)

// MockReranker is a test double for ai.Reranker.
type MockReranker struct {
	// ScoreFunc scores a single pair if set.
	// If nil, the score is the number of distinct query words found in the candidate.
	ScoreFunc func(ctx context.Context, pair ai.Pair) (float32, error)

	callCount atomic.Int64
}

// NewMockReranker creates a mock reranker with default word overlap scoring.
// Note: Returns concrete type to allow test assertions via GetMockReranker().
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Score scores every pair in order.
func (m *MockReranker) Score(ctx context.Context, pairs []ai.Pair) ([]float32, error) {
	m.callCount.Add(1)

	scores := make([]float32, len(pairs))
	for i, pair := range pairs {
		if m.ScoreFunc != nil {
			score, err := m.ScoreFunc(ctx, pair)
			if err != nil {
				return nil, err
			}
			scores[i] = score
			continue
		}
		scores[i] = overlap(pair.Query, pair.Candidate)
	}
	return scores, nil
}

// CallCount returns the number of times Score was called.
func (m *MockReranker) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockReranker) Reset() {
	m.callCount.Store(0)
	m.ScoreFunc = nil
}

func overlap(query, candidate string) float32 {
	have := make(map[string]struct{})
	for _, w := range Words(candidate) {
		have[w] = struct{}{}
	}

	seen := make(map[string]struct{})
	var score float32
	for _, w := range Words(query) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := have[w]; ok {
			score++
		}
	}
	return score
}
