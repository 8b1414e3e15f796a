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

import "errors"

// Domain validation errors
var (
	// ErrInvalidCard indicates a Card failed validation.
	ErrInvalidCard = errors.New("invalid card")

	// ErrEmptyCardName indicates the card Name field is empty.
	ErrEmptyCardName = errors.New("card name cannot be empty")

	// ErrFullTextMismatch indicates FullText is not derived from Text, Type and ManaCost.
	ErrFullTextMismatch = errors.New("full text does not match card fields")

	// ErrInvalidQuery indicates a Query failed validation.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmptyQuery indicates the query text is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidK indicates a non-positive result count.
	ErrInvalidK = errors.New("k must be greater than 0")

	// ErrInvalidFetchK indicates a negative candidate window.
	ErrInvalidFetchK = errors.New("fetch k cannot be negative")

	// ErrInvalidAlpha indicates a hybrid weight outside [0, 1].
	ErrInvalidAlpha = errors.New("alpha must be between 0 and 1")

	// ErrInvalidMode indicates an unknown query Mode.
	ErrInvalidMode = errors.New("invalid search mode")

	// ErrInvalidRanking indicates an unknown Ranking strategy.
	ErrInvalidRanking = errors.New("invalid ranking strategy")

	// ErrInvalidGranularity indicates an unknown index Granularity.
	ErrInvalidGranularity = errors.New("invalid granularity")
)
