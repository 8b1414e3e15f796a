package ingestion

import "errors"

var (
	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrRepositoryRequired is returned when Run is called without a repository.
	ErrRepositoryRequired = errors.New("snapshot repository required")

	// ErrNoCards is returned when there is nothing to build.
	ErrNoCards = errors.New("no cards to index")

	// ErrNoUnits is returned when the cards produce no index units, e.g.
	// paragraph granularity over cards without rules text.
	ErrNoUnits = errors.New("cards produced no index units")

	// ErrEmbeddingMismatch is returned when the embedder returns the wrong
	// number of vectors or vectors of differing length.
	ErrEmbeddingMismatch = errors.New("embedding result mismatch")

	// ErrInvalidMaxAttempts is returned when retry attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")
)
