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


package artwork

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	rateLimitDelay  = 100 * time.Millisecond // 10 req/sec
	requestTimeout  = 10 * time.Second
	breakerTimeout  = 30 * time.Second
	breakerFailures = 5
	userAgent       = "cardseek/1.0"
)

// Client resolves card names to image URLs.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	mu    sync.RWMutex
	cache map[string]string // name -> url, "" for cards without artwork
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another Scryfall compatible host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithRateLimit sets the request rate. rate.Inf disables limiting.
func WithRateLimit(limit rate.Limit) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Scryfall artwork client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		logger:     slog.Default(),
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "artwork")
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scryfall",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// Unknown names are an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoImage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// ImageURL returns the normal size image of the named card. Double-faced
// cards return the image of their first face.
func (c *Client) ImageURL(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	cached, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		if cached == "" {
			return "", ErrNoImage
		}
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, name)
	})
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	case errors.Is(err, ErrNoImage):
		c.remember(name, "")
		return "", err
	default:
		return "", err
	}

	imageURL := result.(string)
	c.remember(name, imageURL)
	return imageURL, nil
}

func (c *Client) remember(name, imageURL string) {
	c.mu.Lock()
	c.cache[name] = imageURL
	c.mu.Unlock()
}

func (c *Client) fetch(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/cards/named?exact=%s", c.baseURL, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	default:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return imageFromCard(body, name)
}

// imageFromCard picks the image out of a Scryfall card object.
func imageFromCard(body []byte, name string) (string, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if img := v.GetStringBytes("image_uris", "normal"); len(img) > 0 {
		return string(img), nil
	}
	if faces := v.GetArray("card_faces"); len(faces) > 0 {
		if img := faces[0].GetStringBytes("image_uris", "normal"); len(img) > 0 {
			return string(img), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoImage, name)
}
