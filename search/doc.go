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


// Package search provides the two-stage card retrieval pipeline.
//
// Every search first embeds the query and fetches the nearest index units.
// Candidates are then ranked by one of two separate strategies:
//   - Rerank: a pairwise relevance model grades (query, card text) pairs
//   - Hybrid: vector similarity is blended with an exact substring match over
//     the whole corpus, without calling the relevance model
//
// A query may name a card instead of describing one. The named card's own
// text then becomes the query and the card is excluded from its results. A
// name that matches nothing falls back to a description search and the
// result carries a notice saying so.
package search
