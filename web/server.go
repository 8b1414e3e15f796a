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


package web

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/poiesic/cardseek/core"
)

// CardSearcher runs a card search.
type CardSearcher interface {
	Search(ctx context.Context, q core.Query) (*core.Result, error)
}

// ImageFinder resolves a card name to an image URL.
type ImageFinder interface {
	ImageURL(ctx context.Context, name string) (string, error)
}

// Hit is one result as shown to the user.
type Hit struct {
	Name     string   `json:"name"`
	Score    float32  `json:"score"`
	ManaCost string   `json:"mana_cost"`
	Type     string   `json:"type"`
	Text     string   `json:"text"`
	Lines    []string `json:"-"`
	Image    string   `json:"image,omitempty"`
}

type page struct {
	Query   string
	ByName  bool
	Message string
	Notice  string
	Matched string
	Hits    []Hit
}

type searchResponse struct {
	Query   string `json:"query"`
	Mode    string `json:"mode"`
	Matched string `json:"matched,omitempty"`
	Notice  string `json:"notice,omitempty"`
	Hits    []Hit  `json:"hits"`
}

// Server is the search form HTTP server.
type Server struct {
	app      *fiber.App
	searcher CardSearcher
	images   ImageFinder
	defaults core.Query
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithImages shows card images found by finder.
func WithImages(finder ImageFinder) Option {
	return func(s *Server) {
		s.images = finder
	}
}

// WithDefaults sets the ranking, K, FetchK and Alpha applied to every query.
func WithDefaults(q core.Query) Option {
	return func(s *Server) {
		s.defaults = q
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the server and registers its routes.
func NewServer(searcher CardSearcher, opts ...Option) *Server {
	s := &Server{
		searcher: searcher,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "cardseek",
	})
	s.app.Use(recover.New())
	s.app.Get("/", s.handleIndex)
	s.app.Get("/api/search", s.handleAPISearch)
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	return s
}

// App exposes the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves requests on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("serving search form", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// query builds the search request from the URL parameters.
func (s *Server) query(c *fiber.Ctx) (core.Query, error) {
	q := s.defaults
	q.Text = c.Query("q")

	mode, err := core.ParseMode(c.Query("mode"))
	if err != nil {
		return q, err
	}
	q.Mode = mode

	if r := c.Query("ranking"); r != "" {
		ranking, err := core.ParseRanking(r)
		if err != nil {
			return q, err
		}
		q.Ranking = ranking
	}
	q.K = c.QueryInt("k", q.K)
	return q, nil
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	data := page{Query: c.Query("q")}
	status := fiber.StatusOK

	// No q parameter at all means the form was not submitted yet.
	if c.Context().QueryArgs().Has("q") {
		q, err := s.query(c)
		data.ByName = q.Mode == core.ModeByName
		if err == nil {
			err = s.run(c, q, &data)
		}
		if err != nil {
			data.Message, status = userMessage(err)
			if status == fiber.StatusInternalServerError {
				s.logger.Error("search failed", "query", q.Text, "err", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

func (s *Server) handleAPISearch(c *fiber.Ctx) error {
	q, err := s.query(c)
	var data page
	if err == nil {
		err = s.run(c, q, &data)
	}
	if err != nil {
		msg, status := userMessage(err)
		if status == fiber.StatusInternalServerError {
			s.logger.Error("search failed", "query", q.Text, "err", err)
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}

	hits := data.Hits
	if hits == nil {
		hits = []Hit{}
	}
	return c.JSON(searchResponse{
		Query:   q.Text,
		Mode:    q.Mode.String(),
		Matched: data.Matched,
		Notice:  data.Notice,
		Hits:    hits,
	})
}

func (s *Server) run(c *fiber.Ctx, q core.Query, data *page) error {
	if strings.TrimSpace(q.Text) == "" {
		return core.ErrEmptyQuery
	}

	ctx := c.UserContext()
	result, err := s.searcher.Search(ctx, q)
	if err != nil {
		return err
	}

	data.Notice = result.Notice
	if result.Matched != nil {
		data.Matched = result.Matched.Name
	}
	data.Hits = make([]Hit, len(result.Hits))
	for i, h := range result.Hits {
		data.Hits[i] = Hit{
			Name:     h.Card.Name,
			Score:    h.Score,
			ManaCost: h.Card.ManaCost,
			Type:     h.Card.Type,
			Text:     h.Card.Text,
			Lines:    strings.Split(h.Card.Text, "\n"),
			Image:    s.image(ctx, h.Card.Name),
		}
	}
	return nil
}

// image returns "" whenever the card image cannot be found.
func (s *Server) image(ctx context.Context, name string) string {
	if s.images == nil {
		return ""
	}
	url, err := s.images.ImageURL(ctx, name)
	if err != nil {
		s.logger.Debug("no image for card", "card", name, "err", err)
		return ""
	}
	return url
}

// userMessage maps a search error to what the user sees.
func userMessage(err error) (string, int) {
	switch {
	case errors.Is(err, core.ErrEmptyQuery):
		return "Please enter a card name or a description.", fiber.StatusBadRequest
	case errors.Is(err, core.ErrInvalidQuery), errors.Is(err, core.ErrInvalidMode), errors.Is(err, core.ErrInvalidRanking):
		return err.Error(), fiber.StatusBadRequest
	default:
		return "The search failed, please try again later.", fiber.StatusInternalServerError
	}
}
