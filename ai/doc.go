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


// Package ai provides abstractions for the model services used by cardseek.
//
// Two models take part in a search. The embedding model (a bi-encoder) maps
// each text independently to a fixed-dimension vector; the relevance model
// (a cross-encoder) scores a query and a candidate together. Both are black
// boxes: only their input/output contracts matter here.
//
// # Interfaces
//
//   - Embedder: ordered texts in, ordered vectors out, 1:1
//   - Reranker: ordered (query, candidate) pairs in, ordered scores out, 1:1
//   - AIProvider: aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Deal 3 damage to any target.")
//	scores, err := provider.Reranker().Score(ctx, []ai.Pair{{Query: "burn spell", Candidate: "Deal 3 damage."}})
package ai
