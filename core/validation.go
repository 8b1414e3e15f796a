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


package core

import (
	"fmt"
	"strings"
)

// ValidateCard validates a Card according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - FullText must equal ComposeFullText(Text, Type, ManaCost)
func ValidateCard(card *Card) error {
	if card == nil {
		return fmt.Errorf("%w: card is nil", ErrInvalidCard)
	}

	if card.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCard, ErrEmptyCardName)
	}

	if card.FullText != ComposeFullText(card.Text, card.Type, card.ManaCost) {
		return fmt.Errorf("%w: %q: %w", ErrInvalidCard, card.Name, ErrFullTextMismatch)
	}

	return nil
}

// ValidateQuery validates a Query before it is handed to a searcher.
// Callers are expected to run it on user input so that an empty query is
// reported as a message instead of reaching the pipeline.
//
// Validation rules:
//   - Text must contain a non-space character
//   - K must be positive
//   - FetchK must not be negative
//   - Alpha must be within [0, 1]
//   - Mode and Ranking must be known values
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}

	if q.K <= 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidQuery, ErrInvalidK, q.K)
	}

	if q.FetchK < 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidQuery, ErrInvalidFetchK, q.FetchK)
	}

	if q.Alpha < 0 || q.Alpha > 1 {
		return fmt.Errorf("%w: %w (got %v)", ErrInvalidQuery, ErrInvalidAlpha, q.Alpha)
	}

	if q.Mode != ModeByName && q.Mode != ModeByDescription {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidMode, q.Mode)
	}

	if q.Ranking != RankingRerank && q.Ranking != RankingHybrid {
		return fmt.Errorf("%w: %w: %d", ErrInvalidQuery, ErrInvalidRanking, q.Ranking)
	}

	return nil
}
