package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/cardseek/ai"
	"github.com/poiesic/cardseek/core"
	"github.com/poiesic/cardseek/index"
)

// hybridFetchFactor is how many nearest units the hybrid strategy fetches per
// requested result.
const hybridFetchFactor = 3

// Catalog is the read-only data a Searcher queries.
type Catalog struct {
	Cards      []core.Card
	Units      []core.Unit // Units[i] is row i of Index
	Index      *index.Flat
	Normalized bool // Index vectors are unit length, so queries are normalized too
}

// Searcher runs card searches against a Catalog. It holds no mutable state
// and is safe for concurrent use when the AI provider is.
type Searcher struct {
	catalog  *Catalog
	embedder ai.Embedder
	reranker ai.Reranker
	byName   map[string]int
	text     *textIndex
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(catalog *Catalog, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if catalog == nil || catalog.Index == nil {
		return nil, ErrCatalogRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if catalog.Index.Len() != len(catalog.Units) {
		return nil, fmt.Errorf("%w: %d index rows for %d units", ErrCatalogMismatch, catalog.Index.Len(), len(catalog.Units))
	}
	for i, u := range catalog.Units {
		if u.CardRow < 0 || u.CardRow >= len(catalog.Cards) {
			return nil, fmt.Errorf("%w: unit %d points at card %d", ErrCatalogMismatch, i, u.CardRow)
		}
	}

	s := &Searcher{
		catalog:  catalog,
		embedder: provider.Embedder(),
		reranker: provider.Reranker(),
		byName:   make(map[string]int, len(catalog.Cards)),
		logger:   slog.Default(),
	}

	texts := make([]string, len(catalog.Cards))
	for row := range catalog.Cards {
		texts[row] = catalog.Cards[row].Text
		key := nameKey(catalog.Cards[row].Name)
		if _, dup := s.byName[key]; !dup {
			s.byName[key] = row
		}
	}
	s.text = newTextIndex(texts)

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Lookup finds a card by name, ignoring case and surrounding space.
func (s *Searcher) Lookup(name string) (*core.Card, bool) {
	row, ok := s.byName[nameKey(name)]
	if !ok {
		return nil, false
	}
	return &s.catalog.Cards[row], true
}

// Search runs q with the ranking strategy it selects.
func (s *Searcher) Search(ctx context.Context, q core.Query) (*core.Result, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs q with the ranking strategy it selects.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q core.Query, monitor SearchMonitor) (*core.Result, error) {
	switch q.Ranking {
	case core.RankingHybrid:
		return s.hybrid(ctx, q, monitor)
	default:
		return s.rerank(ctx, q, monitor)
	}
}

// Rerank runs q with the relevance model strategy regardless of q.Ranking.
func (s *Searcher) Rerank(ctx context.Context, q core.Query) (*core.Result, error) {
	return s.rerank(ctx, q, nil)
}

// Hybrid runs q with the lexical and semantic blend regardless of q.Ranking.
func (s *Searcher) Hybrid(ctx context.Context, q core.Query) (*core.Result, error) {
	return s.hybrid(ctx, q, nil)
}

// resolution is the outcome of interpreting the query text.
type resolution struct {
	vector      []float32
	rerankQuery string
	matchedRow  int // -1 when no card was matched
	matchedName string
	result      *core.Result
}

// candidate is a card reached through its closest index unit.
type candidate struct {
	row      int
	distance float32
}

func (s *Searcher) prepare(q core.Query, monitor SearchMonitor) (core.Query, SearchMonitor, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	q = q.WithDefaults()
	if err := core.ValidateQuery(&q); err != nil {
		return q, monitor, err
	}
	monitor.Start(q)
	return q, monitor, nil
}

// resolve decides what gets embedded and what the relevance model compares
// candidates against.
func (s *Searcher) resolve(ctx context.Context, q core.Query, monitor SearchMonitor) (*resolution, error) {
	res := &resolution{
		rerankQuery: q.Text,
		matchedRow:  -1,
		result:      &core.Result{},
	}

	if q.Mode == core.ModeByName {
		if row, ok := s.byName[nameKey(q.Text)]; ok {
			card := &s.catalog.Cards[row]
			res.rerankQuery = card.FullText
			res.matchedRow = row
			res.matchedName = card.Name
			res.result.Matched = card
		} else {
			res.result.Notice = fmt.Sprintf(`card "%s" not found; searching by description instead`, q.Text)
			s.logger.Info("card name not found, falling back to description search", "query", q.Text)
		}
	}
	monitor.QueryResolved(res.result.Matched, res.result.Notice)

	vector, err := s.embedder.EmbedText(ctx, res.rerankQuery)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", q.Text, "err", err)
		return nil, err
	}
	if s.catalog.Normalized {
		vector = append([]float32(nil), vector...)
		index.Normalize(vector)
	}
	res.vector = vector
	return res, nil
}

// fetch returns the cards behind the n nearest units, closest first. A card
// reached through several units keeps its closest one.
func (s *Searcher) fetch(vector []float32, n int) ([]candidate, error) {
	neighbors, err := s.catalog.Index.Search(vector, n)
	if err != nil {
		s.logger.Error("error searching index", "err", err)
		return nil, err
	}

	seen := make(map[int]struct{}, len(neighbors))
	cands := make([]candidate, 0, len(neighbors))
	for _, nb := range neighbors {
		row := s.catalog.Units[nb.Row].CardRow
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		cands = append(cands, candidate{row: row, distance: nb.Distance})
	}
	return cands, nil
}

// excluded reports whether the card at row is the query card itself. Names
// are compared too so the match is dropped wherever it appears.
func (s *Searcher) excluded(res *resolution, row int) bool {
	if res.matchedRow < 0 {
		return false
	}
	return row == res.matchedRow || strings.EqualFold(s.catalog.Cards[row].Name, res.matchedName)
}

func (s *Searcher) rerank(ctx context.Context, q core.Query, monitor SearchMonitor) (*core.Result, error) {
	q, monitor, err := s.prepare(q, monitor)
	if err != nil {
		return nil, err
	}

	res, err := s.resolve(ctx, q, monitor)
	if err != nil {
		return nil, err
	}

	cands, err := s.fetch(res.vector, q.FetchK)
	if err != nil {
		return nil, err
	}
	monitor.AfterCandidateFetch(candidateRows(cands))

	kept := cands[:0]
	for _, c := range cands {
		if !s.excluded(res, c.row) {
			kept = append(kept, c)
		}
	}
	monitor.AfterExclusion(candidateRows(kept))

	result := res.result
	result.Hits = []core.Hit{}
	if len(kept) == 0 {
		monitor.AfterScoring(result.Hits)
		monitor.Finish(result)
		return result, nil
	}

	pairs := make([]ai.Pair, len(kept))
	for i, c := range kept {
		pairs[i] = ai.Pair{Query: res.rerankQuery, Candidate: s.catalog.Cards[c.row].FullText}
	}

	scores, err := s.reranker.Score(ctx, pairs)
	if err != nil {
		s.logger.Error("error scoring candidates", "candidates", len(pairs), "err", err)
		return nil, err
	}
	if len(scores) != len(pairs) {
		return nil, fmt.Errorf("%w: %d scores for %d pairs", ErrScoreCountMismatch, len(scores), len(pairs))
	}

	hits := make([]core.Hit, len(kept))
	for i, c := range kept {
		hits[i] = core.Hit{
			Card:  &s.catalog.Cards[c.row],
			Row:   c.row,
			Score: scores[i],
		}
	}
	monitor.AfterScoring(hits)

	result.Hits = topK(hits, q.K)
	monitor.Finish(result)

	s.logger.Debug("rerank search complete", "query", q.Text, "mode", q.Mode.String(), "candidates", len(kept), "hits", len(result.Hits))
	return result, nil
}

func (s *Searcher) hybrid(ctx context.Context, q core.Query, monitor SearchMonitor) (*core.Result, error) {
	q, monitor, err := s.prepare(q, monitor)
	if err != nil {
		return nil, err
	}

	res, err := s.resolve(ctx, q, monitor)
	if err != nil {
		return nil, err
	}

	cands, err := s.fetch(res.vector, hybridFetchFactor*q.K)
	if err != nil {
		return nil, err
	}

	// Semantic candidates come first in distance order, then cards that only
	// match textually, in corpus order.
	textRows := s.text.matches(strings.TrimSpace(q.Text))
	textual := make(map[int]bool, len(textRows))
	for _, row := range textRows {
		textual[row] = true
	}

	semantic := make(map[int]float32, len(cands))
	order := make([]int, 0, len(cands)+len(textual))
	for _, c := range cands {
		semantic[c.row] = index.Similarity(c.distance)
		order = append(order, c.row)
	}
	for _, row := range textRows {
		if _, ok := semantic[row]; !ok {
			order = append(order, row)
		}
	}
	monitor.AfterCandidateFetch(order)

	kept := make([]int, 0, len(order))
	for _, row := range order {
		if !s.excluded(res, row) {
			kept = append(kept, row)
		}
	}
	monitor.AfterExclusion(kept)

	hits := make([]core.Hit, len(kept))
	for i, row := range kept {
		var textScore float32
		if textual[row] {
			textScore = 1
		}
		semScore := semantic[row]
		hits[i] = core.Hit{
			Card:     &s.catalog.Cards[row],
			Row:      row,
			Score:    q.Alpha*semScore + (1-q.Alpha)*textScore,
			Semantic: semScore,
			Textual:  textScore,
		}
	}
	monitor.AfterScoring(hits)

	result := res.result
	result.Hits = topK(hits, q.K)
	monitor.Finish(result)

	s.logger.Debug("hybrid search complete", "query", q.Text, "mode", q.Mode.String(), "candidates", len(kept), "hits", len(result.Hits))
	return result, nil
}

// topK orders hits by score descending, keeping candidate order for ties, and
// truncates to k.
func topK(hits []core.Hit, k int) []core.Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func candidateRows(cands []candidate) []int {
	rows := make([]int, len(cands))
	for i, c := range cands {
		rows[i] = c.row
	}
	return rows
}
