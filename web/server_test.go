package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/poiesic/cardseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	queries []core.Query
	result  *core.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, q core.Query) (*core.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeImages map[string]string

func (f fakeImages) ImageURL(ctx context.Context, name string) (string, error) {
	if u, ok := f[name]; ok {
		return u, nil
	}
	return "", errors.New("no image")
}

var (
	bolt  = core.Card{Name: "Bolt", Text: "Deal 3 damage.", Type: "Instant", ManaCost: "{R}"}
	shock = core.Card{Name: "Shock", Text: "Deal 2 damage.\nScry 1.", Type: "Instant", ManaCost: "{R}"}
)

func get(t *testing.T, s *Server, path string, params url.Values) (*http.Response, string) {
	t.Helper()
	target := path
	if params != nil {
		target += "?" + params.Encode()
	}
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndex_Form(t *testing.T) {
	searcher := &fakeSearcher{}
	s := NewServer(searcher)

	resp, body := get(t, s, "/", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/html")
	assert.Contains(t, body, `name="mode" value="name"`)
	assert.Contains(t, body, `name="q"`)
	assert.Empty(t, searcher.queries)
}

func TestIndex_ByName(t *testing.T) {
	searcher := &fakeSearcher{result: &core.Result{
		Matched: &bolt,
		Hits:    []core.Hit{{Card: &shock, Row: 1, Score: 0.8751}},
	}}
	s := NewServer(searcher,
		WithImages(fakeImages{"Shock": "https://img/shock.jpg"}),
		WithDefaults(core.Query{K: 5, Ranking: core.RankingHybrid}))

	resp, body := get(t, s, "/", url.Values{"q": {"Bolt"}, "mode": {"name"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, searcher.queries, 1)
	q := searcher.queries[0]
	assert.Equal(t, "Bolt", q.Text)
	assert.Equal(t, core.ModeByName, q.Mode)
	assert.Equal(t, core.RankingHybrid, q.Ranking)
	assert.Equal(t, 5, q.K)

	assert.Contains(t, body, "Cards like <strong>Bolt</strong>")
	assert.Contains(t, body, "Shock")
	assert.Contains(t, body, "0.88")
	assert.Contains(t, body, "{R} Instant")
	assert.Contains(t, body, "<p>Scry 1.</p>")
	assert.Contains(t, body, `src="https://img/shock.jpg"`)
	assert.Contains(t, body, `value="name" checked`)
}

func TestIndex_MissingImageDegrades(t *testing.T) {
	searcher := &fakeSearcher{result: &core.Result{Hits: []core.Hit{{Card: &bolt, Score: 1}}}}
	s := NewServer(searcher, WithImages(fakeImages{}))

	resp, body := get(t, s, "/", url.Values{"q": {"burn"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Bolt")
	assert.NotContains(t, body, "<img")
}

func TestIndex_Notice(t *testing.T) {
	searcher := &fakeSearcher{result: &core.Result{
		Notice: `card "Blot" not found; searching by description instead`,
		Hits:   []core.Hit{{Card: &bolt, Score: 1}},
	}}
	s := NewServer(searcher)

	_, body := get(t, s, "/", url.Values{"q": {"Blot"}, "mode": {"name"}})
	assert.Contains(t, body, "not found; searching by description instead")
}

func TestIndex_EmptyQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	s := NewServer(searcher)

	resp, body := get(t, s, "/", url.Values{"q": {"   "}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "Please enter a card name or a description.")
	assert.Empty(t, searcher.queries, "empty queries never reach the searcher")
}

func TestIndex_SearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("embedding service unavailable")}
	s := NewServer(searcher)

	resp, body := get(t, s, "/", url.Values{"q": {"burn"}})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "The search failed")
	assert.NotContains(t, body, "embedding service unavailable")
}

func TestAPISearch(t *testing.T) {
	searcher := &fakeSearcher{result: &core.Result{
		Matched: &bolt,
		Hits:    []core.Hit{{Card: &shock, Row: 1, Score: 0.5}},
	}}
	s := NewServer(searcher)

	resp, body := get(t, s, "/api/search", url.Values{"q": {"bolt"}, "mode": {"n"}, "ranking": {"hybrid"}, "k": {"3"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got searchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "by_name", got.Mode)
	assert.Equal(t, "Bolt", got.Matched)
	require.Len(t, got.Hits, 1)
	assert.Equal(t, "Shock", got.Hits[0].Name)
	assert.Equal(t, float32(0.5), got.Hits[0].Score)

	q := searcher.queries[0]
	assert.Equal(t, core.RankingHybrid, q.Ranking)
	assert.Equal(t, 3, q.K)
}

func TestAPISearch_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"empty query", url.Values{"q": {""}}},
		{"unknown mode", url.Values{"q": {"x"}, "mode": {"fuzzy"}}},
		{"unknown ranking", url.Values{"q": {"x"}, "ranking": {"bm25"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{}
			s := NewServer(searcher)

			resp, body := get(t, s, "/api/search", tt.params)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body, `"error"`)
			assert.Empty(t, searcher.queries)
		})
	}
}

func TestAPISearch_InvalidK(t *testing.T) {
	searcher := &fakeSearcher{err: core.ErrInvalidQuery}
	s := NewServer(searcher)

	resp, _ := get(t, s, "/api/search", url.Values{"q": {"x"}, "k": {"-2"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	s := NewServer(&fakeSearcher{})
	resp, body := get(t, s, "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}
