// IGDB API implementation of [Catalog]
//
// Request bodies are APICalypse; see https://api-docs.igdb.com/
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
	"golang.org/x/time/rate"
)

const (
	igdbBaseURL = "https://api.igdb.com/v4"

	// DefaultRequestsPerSecond is IGDB's documented per-client limit.
	DefaultRequestsPerSecond = 4

	maxResponseBytes = 8 << 20
)

// IGDBClientOpts configures an [IGDBClient].
type IGDBClientOpts struct {
	ClientID          string
	BaseURL           string // defaults to https://api.igdb.com/v4
	Tokens            TokenSource
	HTTPClient        *http.Client
	RequestsPerSecond float64 // 0 uses DefaultRequestsPerSecond; negative disables limiting
	Logger            *log.Logger
}

// IGDBClient implements [Catalog] against the IGDB games endpoint.
type IGDBClient struct {
	clientID   string
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewIGDBClient creates a new IGDB client. Tokens is required and normally a shared [TokenManager].
func NewIGDBClient(opts IGDBClientOpts) (*IGDBClient, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: token source is required", shared.ErrMissingArgument)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = igdbBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	return &IGDBClient{
		clientID:   opts.ClientID,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		limiter:    newLimiter(opts.RequestsPerSecond),
		logger:     shared.WithLogger(opts.Logger, "component", "igdb"),
	}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	switch {
	case rps < 0:
		return rate.NewLimiter(rate.Inf, 1)
	case rps == 0:
		rps = DefaultRequestsPerSecond
	}
	return rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// SearchByName searches games by name. limit is clamped to [1,50].
func (c *IGDBClient) SearchByName(ctx context.Context, text string, limit int) ([]models.CatalogItem, error) {
	return c.Query(ctx, models.SearchQuery(text, limit))
}

// GetByID fetches one game with the detail projection. Returns nil, nil when IGDB has no such game.
func (c *IGDBClient) GetByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	items, err := c.Query(ctx, models.DetailQuery(id))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.logger.Debug("no game for id", "id", id)
		return nil, nil
	}
	return &items[0], nil
}

// Query runs any [models.CatalogQuery] against /games.
func (c *IGDBClient) Query(ctx context.Context, q models.CatalogQuery) ([]models.CatalogItem, error) {
	body, err := Build(q)
	if err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, "/games", body)
	if err != nil {
		return nil, err
	}

	items, err := NormalizeAll(raw)
	if err != nil {
		c.logger.Error("malformed games response", "query", q.Kind, "error", err)
		return nil, err
	}
	return items, nil
}

// post sends an authenticated APICalypse request. A 401 invalidates the token and retries exactly once.
func (c *IGDBClient) post(ctx context.Context, endpoint, body string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", shared.ErrUpstreamUnavailable, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Client-ID", c.clientID)
		req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "text/plain")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: request failed: %w", shared.ErrUpstreamUnavailable, err)
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized && attempt == 0:
			c.logger.Warn("token rejected, retrying with a fresh one", "endpoint", endpoint)
			c.tokens.Invalidate(tok)
			continue
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: igdb rejected a fresh token", shared.ErrUpstreamAuth)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, statusError(resp.StatusCode, data)
		}

		if readErr != nil {
			return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrUpstreamUnavailable, readErr)
		}
		return data, nil
	}
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	err := fmt.Errorf("%w: igdb API error: status %d", shared.ErrUpstreamUnavailable, status)
	if msg != "" {
		err = fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// IsRetryable reports whether err is a transient upstream failure.
func IsRetryable(err error) bool {
	return errors.Is(err, shared.ErrUpstreamUnavailable) && !errors.Is(err, context.Canceled)
}
