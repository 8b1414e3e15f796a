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


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/cardseek/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxRerankAttempts = 3

// errIncompleteScores is returned when the model keeps omitting candidates.
var errIncompleteScores = errors.New("reranker response did not score every candidate")

// Reranker implements ai.Reranker by prompting a chat model to grade cards.
type Reranker struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.Reranker = (*Reranker)(nil)

type gradedCandidate struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type grading struct {
	Scores []gradedCandidate `json:"scores"`
}

func newReranker(config *ai.Config) (*Reranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.RerankerHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.RerankerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Reranker{
		client: client,
		logger: slog.Default().With("component", "openai-reranker"),
	}, nil
}

// NewReranker creates a reranker for the configured reranker host and model.
func NewReranker(config *ai.Config) (ai.Reranker, error) {
	return newReranker(config)
}

// Score grades every pair. Consecutive pairs sharing a query are sent in a
// single request, which in practice means one request per search.
func (r *Reranker) Score(ctx context.Context, pairs []ai.Pair) ([]float32, error) {
	scores := make([]float32, len(pairs))

	for start := 0; start < len(pairs); {
		end := start + 1
		for end < len(pairs) && pairs[end].Query == pairs[start].Query {
			end++
		}

		candidates := make([]string, 0, end-start)
		for _, p := range pairs[start:end] {
			candidates = append(candidates, p.Candidate)
		}

		group, err := r.scoreGroup(ctx, pairs[start].Query, candidates)
		if err != nil {
			return nil, err
		}
		copy(scores[start:end], group)
		start = end
	}

	return scores, nil
}

func (r *Reranker) scoreGroup(ctx context.Context, query string, candidates []string) ([]float32, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildUserPrompt(query, candidates))},
		},
	}

	var lastErr error
	for attempt := 0; attempt < maxRerankAttempts; attempt++ {
		response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			lastErr = errors.New("no choices returned from model")
			r.logger.Warn("no choices returned from model", "attempt", attempt+1)
			continue
		}

		scores, err := parseGrading(response.Choices[0].Content, len(candidates))
		if err != nil {
			lastErr = err
			r.logger.Warn("error parsing reranker response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		r.logger.Debug("scored candidates", "count", len(scores))
		return scores, nil
	}

	r.logger.Error("failed to parse reranker response after retries", "err", lastErr)
	return nil, lastErr
}

// parseGrading decodes a model response into exactly n scores.
func parseGrading(raw string, n int) ([]float32, error) {
	var result grading
	if err := json.Unmarshal([]byte(repairJSON(stripCodeFence(raw))), &result); err != nil {
		return nil, err
	}

	scores := make([]float32, n)
	seen := make([]bool, n)
	found := 0
	for _, g := range result.Scores {
		if g.Index < 0 || g.Index >= n || seen[g.Index] {
			continue
		}
		seen[g.Index] = true
		scores[g.Index] = clampScore(g.Score)
		found++
	}

	if found != n {
		return nil, fmt.Errorf("%w: got %d of %d", errIncompleteScores, found, n)
	}
	return scores, nil
}
