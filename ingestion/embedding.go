package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/cardseek/ai"
	"github.com/poiesic/cardseek/index"
)

// batchEmbedder generates embeddings for one batch of unit texts.
type batchEmbedder struct {
	embedder   ai.Embedder
	maxRetries int
	retryDelay time.Duration
	normalize  bool
	logger     *slog.Logger
}

// embed returns one vector per text, retrying the whole batch on failure.
func (be *batchEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32
	err := retryWithBackoff(ctx, be.logger, func() error {
		var err error
		embeddings, err = be.embedder.EmbedTexts(ctx, texts)
		return err
	}, be.maxRetries, be.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", be.maxRetries, err)
	}

	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", ErrEmbeddingMismatch, len(texts), len(embeddings))
	}

	if be.normalize {
		for _, v := range embeddings {
			index.Normalize(v)
		}
	}
	return embeddings, nil
}
