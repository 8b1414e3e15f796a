package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores (query, candidate) pairs jointly. Unlike an Embedder it sees
// both texts at once, which makes it more accurate and far more expensive, so it
// only runs over a small pre-filtered candidate set.
// Implementations must be thread-safe for concurrent use.
type Reranker interface {
	// Score returns one relevance score per pair, in input order.
	// Higher scores mean more relevant.
	Score(ctx context.Context, pairs []Pair) ([]float32, error)
}

// Pair is a single input to a Reranker.
type Pair struct {
	Query     string
	Candidate string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Reranker returns the pairwise relevance service.
	// The returned Reranker is safe for concurrent use.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
