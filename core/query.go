package core

import (
	"fmt"
	"strings"
)

const (
	// DefaultK is the default number of results returned.
	DefaultK = 10
	// DefaultFetchK is the default candidate window before re-ranking.
	DefaultFetchK = 30
	// DefaultAlpha weights the semantic score in hybrid search.
	DefaultAlpha float32 = 0.7
)

// Mode selects how the query text is interpreted.
type Mode int

const (
	// ModeByDescription embeds the query text as-is.
	ModeByDescription Mode = iota
	// ModeByName looks the query up as a card name first.
	ModeByName
)

func (m Mode) String() string {
	switch m {
	case ModeByDescription:
		return "by_description"
	case ModeByName:
		return "by_name"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a user supplied mode into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "n", "card", "c", "by_name":
		return ModeByName, nil
	case "text", "t", "description", "d", "by_description", "":
		return ModeByDescription, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Ranking selects the second-stage scoring strategy.
type Ranking int

const (
	// RankingRerank re-scores candidates with the pairwise relevance model.
	RankingRerank Ranking = iota
	// RankingHybrid combines semantic distance with exact substring matches.
	RankingHybrid
)

func (r Ranking) String() string {
	switch r {
	case RankingRerank:
		return "rerank"
	case RankingHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("ranking(%d)", int(r))
	}
}

// ParseRanking converts a ranking name into a Ranking.
func ParseRanking(s string) (Ranking, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rerank", "":
		return RankingRerank, nil
	case "hybrid":
		return RankingHybrid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRanking, s)
	}
}

// Query is a single search request.
type Query struct {
	Text    string
	Mode    Mode
	Ranking Ranking
	K       int     // Final number of results
	FetchK  int     // Candidates fetched from the index before scoring
	Alpha   float32 // Hybrid semantic weight, zero means DefaultAlpha unless AlphaSet

	// AlphaSet makes Alpha apply as given, so 0 selects a purely lexical hybrid.
	AlphaSet bool
}

// WithDefaults fills zero values with defaults and makes sure FetchK >= K.
// Negative values are left for ValidateQuery to reject.
func (q Query) WithDefaults() Query {
	if q.K == 0 {
		q.K = DefaultK
	}
	if q.FetchK == 0 {
		q.FetchK = DefaultFetchK
	}
	if q.FetchK >= 0 && q.FetchK < q.K {
		q.FetchK = q.K
	}
	if q.Alpha == 0 && !q.AlphaSet {
		q.Alpha = DefaultAlpha
	}
	return q
}

// Hit is one ranked card.
type Hit struct {
	Card     *Card
	Row      int     // Card row in the corpus table
	Score    float32 // Final score, results are ordered by it descending
	Semantic float32 // Hybrid only: 1/(1+distance)
	Textual  float32 // Hybrid only: 1 when the query occurs in the card text
}

// Result is the ordered outcome of a search.
type Result struct {
	Hits []Hit
	// Matched is the card a by-name query resolved to, nil otherwise.
	Matched *Card
	// Notice is set when the search semantics were changed, e.g. a by-name
	// query that matched no card and was run as a description instead.
	Notice string
}
