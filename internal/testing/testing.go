// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
	"golang.org/x/oauth2"
)

// MockCatalog is a test double for [services.Catalog] backed by a map of items.
//
// Calls are counted so tests can assert cache hits never reach upstream.
type MockCatalog struct {
	mu    sync.Mutex
	items map[int64]models.CatalogItem

	// Err, when set, is returned by every call.
	Err error
	// Delay holds GetByID open, widening the window for concurrent callers.
	Delay time.Duration

	searchCalls atomic.Int32
	getCalls    atomic.Int32
}

func NewMockCatalog(items ...models.CatalogItem) *MockCatalog {
	m := &MockCatalog{items: make(map[int64]models.CatalogItem, len(items))}
	for _, item := range items {
		m.items[item.ID] = item
	}
	return m
}

// Put adds or replaces an item.
func (m *MockCatalog) Put(item models.CatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *MockCatalog) SearchByName(ctx context.Context, text string, limit int) ([]models.CatalogItem, error) {
	m.searchCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items := []models.CatalogItem{}
	for _, item := range m.items {
		if len(items) >= limit {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MockCatalog) GetByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	m.getCalls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamUnavailable, ctx.Err())
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MockCatalog) SearchCalls() int { return int(m.searchCalls.Load()) }
func (m *MockCatalog) GetCalls() int    { return int(m.getCalls.Load()) }

// StaticTokens is a [services.TokenSource] handing out numbered tokens; Invalidate moves to the next one.
type StaticTokens struct {
	mu          sync.Mutex
	n           int
	Err         error
	invalidated int
}

func (s *StaticTokens) Token(ctx context.Context) (*oauth2.Token, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &oauth2.Token{AccessToken: fmt.Sprintf("token-%d", s.n), TokenType: "Bearer"}, nil
}

func (s *StaticTokens) Invalidate(stale *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	s.invalidated++
}

func (s *StaticTokens) Invalidated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// Game builds a minimal valid [models.CatalogItem].
func Game(id int64, name string) models.CatalogItem {
	return models.CatalogItem{
		ID:            id,
		SchemaVersion: "v4",
		Name:          name,
		Platforms:     []models.Platform{{ID: 6, Name: "PC (Microsoft Windows)"}},
		Genres:        []string{},
		Companies:     []models.Company{},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
