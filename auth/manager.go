// Package auth manages the access-token lifecycle: exchanging the
// long-lived refresh token for short-lived access tokens, caching them,
// and de-duplicating concurrent exchange calls.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/applifting/offers-sdk-go/apierror"
	"github.com/applifting/offers-sdk-go/tokencache"
)

const (
	// DefaultTokenTTL is the assumed access-token lifetime. The exchange
	// endpoint does not report one, so the client has to pick.
	DefaultTokenTTL = 5 * time.Minute
	// DefaultExpiryMargin is how long before expiry a token is already
	// treated as expired, to avoid racing the server clock.
	DefaultExpiryMargin = 5 * time.Second
	// DefaultAuthHeader carries both the refresh token (on exchange) and
	// the access token (on API calls). The offers API uses a literal
	// "Bearer" header rather than the Authorization scheme.
	DefaultAuthHeader = "Bearer"
	// DefaultExchangeTimeout bounds the token exchange request when no
	// timeout is configured.
	DefaultExchangeTimeout = 30 * time.Second
)

// HTTPClient is the subset of *http.Client the manager needs. Injected in
// tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// tokenResponse is the exchange endpoint's response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Config configures a Manager. RefreshToken and Endpoint are required.
type Config struct {
	RefreshToken string
	// Endpoint is the absolute URL of the token exchange endpoint.
	Endpoint string
	// Header is the request header carrying the refresh token.
	// Defaults to DefaultAuthHeader.
	Header string
	// TTL and Margin control when a token counts as expired.
	TTL    time.Duration
	Margin time.Duration
	// Cache persists tokens across runs. Optional.
	Cache tokencache.Cache
	// Timeout bounds the exchange request when HTTPClient is not set.
	// Defaults to DefaultExchangeTimeout.
	Timeout time.Duration
	// HTTPClient issues the exchange request. Overrides Timeout when set.
	HTTPClient HTTPClient
	Logger     zerolog.Logger
}

// Manager produces a currently-valid access token on demand. The current
// token is shared mutable state across all callers of one client instance;
// only the manager mutates it, and concurrent exchange attempts collapse
// into a single network call.
type Manager struct {
	refreshToken string
	endpoint     string
	header       string
	ttl          time.Duration
	margin       time.Duration
	cache        tokencache.Cache
	httpClient   HTTPClient
	logger       zerolog.Logger

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	flight singleflight.Group
	// exchangeMu serializes wire exchanges across the on-demand and
	// forced paths: at most one exchange request is in flight per
	// manager, ever.
	exchangeMu sync.Mutex
}

const (
	flightKeyGet   = "get"
	flightKeyForce = "force"
)

// NewManager validates the config and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.RefreshToken == "" {
		return nil, errors.New("auth: refresh token is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("auth: token endpoint is required")
	}
	if cfg.Header == "" {
		cfg.Header = DefaultAuthHeader
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.Margin <= 0 {
		cfg.Margin = DefaultExpiryMargin
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExchangeTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Manager{
		refreshToken: cfg.RefreshToken,
		endpoint:     cfg.Endpoint,
		header:       cfg.Header,
		ttl:          cfg.TTL,
		margin:       cfg.Margin,
		cache:        cfg.Cache,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
	}, nil
}

// AccessToken returns a currently-valid access token, exchanging the
// refresh token if neither memory nor cache holds one. Concurrent callers
// share a single exchange call and all receive its result.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if tok, ok := m.current(); ok {
		return tok, nil
	}

	v, err, _ := m.flight.Do(flightKeyGet, func() (any, error) {
		// Re-check under the flight: another caller may have just won.
		if tok, ok := m.current(); ok {
			return tok, nil
		}

		if m.cache != nil {
			if rec, ok := m.cache.Load(); ok && m.usable(rec.ExpiresAt) {
				m.adopt(rec.AccessToken, rec.ExpiresAt)
				m.logger.Debug().Time("expires_at", rec.ExpiresAt).Msg("adopted cached access token")
				return rec.AccessToken, nil
			}
		}

		return m.exchange(ctx, false)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Refresh discards the current token and forces a fresh exchange, skipping
// the cache. Used by the transport after a 401. Concurrent forced
// refreshes collapse into one exchange.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.flight.Do(flightKeyForce, func() (any, error) {
		m.Invalidate()
		return m.exchange(ctx, true)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the in-memory token and clears the cache.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiresAt = time.Time{}
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("failed to clear token cache")
		}
	}
}

func (m *Manager) current() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token != "" && m.usable(m.expiresAt) {
		return m.token, true
	}
	return "", false
}

func (m *Manager) usable(expiresAt time.Time) bool {
	return time.Now().Before(expiresAt.Add(-m.margin))
}

func (m *Manager) adopt(token string, expiresAt time.Time) {
	m.mu.Lock()
	m.token = token
	m.expiresAt = expiresAt
	m.mu.Unlock()
}

// exchange performs one refresh-token exchange and writes the result
// through to memory and cache. Exchanges never overlap on the wire: a
// caller blocked behind a forced refresh adopts its result instead of
// issuing another request, while a forced refresh always exchanges.
func (m *Manager) exchange(ctx context.Context, force bool) (string, error) {
	m.exchangeMu.Lock()
	defer m.exchangeMu.Unlock()

	if !force {
		if tok, ok := m.current(); ok {
			return tok, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, nil)
	if err != nil {
		return "", apierror.Network("failed to build token exchange request", err)
	}
	req.Header.Set(m.header, m.refreshToken)
	req.Header.Set("Accept", "application/json")

	m.logger.Debug().Str("endpoint", m.endpoint).Msg("exchanging refresh token")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", apierror.Network("token exchange request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierror.Network("failed to read token exchange response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.logger.Error().Int("status", resp.StatusCode).Msg("token exchange rejected")
		return "", apierror.FromResponse(resp.StatusCode, resp.Header, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", apierror.New(apierror.ErrAPI, resp.StatusCode, "token exchange returned no access token")
	}

	expiresAt := time.Now().Add(m.ttl)
	m.adopt(tr.AccessToken, expiresAt)

	if m.cache != nil {
		rec := tokencache.Record{AccessToken: tr.AccessToken, ExpiresAt: expiresAt}
		if err := m.cache.Store(rec); err != nil {
			m.logger.Warn().Err(err).Msg("failed to persist access token")
		}
	}

	m.logger.Info().Time("expires_at", expiresAt).Msg("access token refreshed")
	return tr.AccessToken, nil
}
