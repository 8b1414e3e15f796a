// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Reranker,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embedding, err := mockProvider.Embedder().EmbedText(ctx, "deal 3 damage")
//
//	// Custom behavior injection
//	mockReranker := mock.NewMockReranker()
//	mockReranker.ScoreFunc = func(ctx context.Context, pair ai.Pair) (float32, error) {
//	    return float32(len(pair.Candidate)), nil
//	}
//
//	// Check call counts
//	count := mockReranker.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns hashed bag-of-words vectors, so texts sharing
//     words land close to each other
//   - MockReranker: Scores a pair by the number of query words found in the candidate
//   - MockProvider: Aggregates mock embedder and reranker
package mock
