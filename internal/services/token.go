package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	twitchTokenURL = "https://id.twitch.tv/oauth2/token"

	// DefaultExpiryMargin is subtracted from the reported lifetime so a token never expires mid-request.
	DefaultExpiryMargin = 60 * time.Second
	defaultTokenTTL     = time.Hour
)

// TokenManagerOpts configures a [TokenManager].
type TokenManagerOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string        // defaults to the Twitch identity endpoint
	HTTPClient   *http.Client  // defaults to [http.DefaultClient]
	ExpiryMargin time.Duration // defaults to [DefaultExpiryMargin]
	Logger       *log.Logger
	Now          func() time.Time
}

// TokenManager holds the process-wide client-credentials token.
//
// State is guarded by mu; sem admits one exchange at a time so callers that find a stale token wait for the
// in-flight exchange and reuse its result.
type TokenManager struct {
	config     *clientcredentials.Config
	httpClient *http.Client
	margin     time.Duration
	logger     *log.Logger
	now        func() time.Time

	sem       chan struct{}
	mu        sync.Mutex
	token     *oauth2.Token
	expiresAt time.Time
	exchanges int
}

// NewTokenManager creates a [TokenManager]. No exchange happens until the first [TokenManager.Token] call.
func NewTokenManager(opts TokenManagerOpts) (*TokenManager, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = twitchTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.ExpiryMargin <= 0 {
		opts.ExpiryMargin = DefaultExpiryMargin
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &TokenManager{
		config: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: opts.HTTPClient,
		margin:     opts.ExpiryMargin,
		logger:     shared.WithLogger(opts.Logger, "component", "token"),
		now:        opts.Now,
		sem:        make(chan struct{}, 1),
	}, nil
}

// Token returns a valid bearer token, exchanging credentials when none is held or the held one is stale.
//
// Returns an error wrapping [shared.ErrUpstreamAuth] when the exchange is rejected or unreachable.
func (m *TokenManager) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := m.current(); tok != nil {
		return tok, nil
	}

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.sem }()

	// Another caller may have finished an exchange while this one waited.
	if tok := m.current(); tok != nil {
		return tok, nil
	}

	return m.exchange(ctx)
}

// Invalidate drops stale if it is still the held token, so the next [TokenManager.Token] call exchanges again.
// A token that was already replaced is left alone.
func (m *TokenManager) Invalidate(stale *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil || (stale != nil && stale.AccessToken != m.token.AccessToken) {
		return
	}
	m.logger.Debug("invalidating token")
	m.token = nil
	m.expiresAt = time.Time{}
}

// ExpiresAt reports when the held token will be treated as stale. Zero when no token is held.
func (m *TokenManager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt
}

// Exchanges counts completed credential exchanges.
func (m *TokenManager) Exchanges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchanges
}

func (m *TokenManager) current() *oauth2.Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil || !m.now().Before(m.expiresAt) {
		return nil
	}
	return m.token
}

func (m *TokenManager) exchange(ctx context.Context) (*oauth2.Token, error) {
	issuedAt := m.now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.config.Token(ctx)
	if err != nil {
		m.logger.Error("client credentials exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrUpstreamAuth, err)
	}

	ttl := defaultTokenTTL
	if !tok.Expiry.IsZero() {
		ttl = tok.Expiry.Sub(time.Now())
	}

	lifetime := ttl - m.margin
	if lifetime <= 0 {
		lifetime = ttl / 2
	}

	m.mu.Lock()
	m.token = tok
	m.expiresAt = issuedAt.Add(lifetime)
	m.exchanges++
	expiresAt := m.expiresAt
	m.mu.Unlock()

	m.logger.Debug("obtained access token", "expires_at", expiresAt)
	return tok, nil
}
