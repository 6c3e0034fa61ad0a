// Package offers is a client for the Applifting offers API. It exchanges a
// long-lived refresh token for short-lived access tokens behind the scenes
// and exposes typed product registration and offer retrieval.
//
// Usage:
//
//	client, err := offers.New(refreshToken)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	resp, err := client.Products.Register(ctx, offers.RegisterProductRequest{...})
package offers

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/applifting/offers-sdk-go/auth"
	"github.com/applifting/offers-sdk-go/internal/transport"
	"github.com/applifting/offers-sdk-go/tokencache"
)

// HTTPBackend selects the transport variant. Fixed for the client's
// lifetime.
type HTTPBackend int

const (
	// BackendPooled shares one keep-alive connection pool across all
	// calls. The default.
	BackendPooled HTTPBackend = iota
	// BackendBasic disables keep-alives and opens a fresh connection per
	// request.
	BackendBasic
)

const (
	// DefaultBaseURL is the hosted offers API.
	DefaultBaseURL = "https://python.exercise.applifting.cz"
	// DefaultTimeout bounds every network call.
	DefaultTimeout = 30 * time.Second

	defaultAuthPath     = "/api/v1/auth"
	defaultProductsPath = "/api/v1/products"
)

type config struct {
	baseURL      string
	backend      HTTPBackend
	timeout      time.Duration
	tokenTTL     time.Duration
	expiryMargin time.Duration
	cache        tokencache.Cache
	cacheSet     bool
	httpClient   auth.HTTPClient
	logger       zerolog.Logger
	authPath     string
	productsPath string
	authHeader   string
}

// Option customizes client construction.
type Option func(*config)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPBackend selects the transport variant.
func WithHTTPBackend(b HTTPBackend) Option {
	return func(c *config) { c.backend = b }
}

// WithTimeout overrides the timeout applied to every network call,
// token exchange included.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithTokenCache replaces the default file-backed token cache. Pass nil to
// disable persistence entirely.
func WithTokenCache(cache tokencache.Cache) Option {
	return func(c *config) { c.cache, c.cacheSet = cache, true }
}

// WithTokenTTL overrides the assumed access-token lifetime.
func WithTokenTTL(d time.Duration) Option {
	return func(c *config) { c.tokenTTL = d }
}

// WithExpiryMargin overrides the safety margin before expiry.
func WithExpiryMargin(d time.Duration) Option {
	return func(c *config) { c.expiryMargin = d }
}

// WithLogger attaches a logger. Logging is off by default.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHTTPClient overrides the HTTP client used for token exchange.
// Intended for tests.
func WithHTTPClient(hc auth.HTTPClient) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithAuthPath overrides the token exchange path.
func WithAuthPath(p string) Option {
	return func(c *config) { c.authPath = p }
}

// WithProductsPath overrides the products resource path.
func WithProductsPath(p string) Option {
	return func(c *config) { c.productsPath = p }
}

// WithAuthHeader overrides the header name carrying tokens.
func WithAuthHeader(h string) Option {
	return func(c *config) { c.authHeader = h }
}

// Client composes the token manager, the authenticated transport and the
// resource services. Create with New, release with Close.
type Client struct {
	Products *ProductsService
	Offers   *OffersService

	cfg       config
	tokens    *auth.Manager
	transport transport.Transport
	closeOnce sync.Once
}

// New builds a client around the given refresh token. The refresh token is
// required; everything else has working defaults.
func New(refreshToken string, opts ...Option) (*Client, error) {
	cfg := config{
		baseURL:      DefaultBaseURL,
		backend:      BackendPooled,
		timeout:      DefaultTimeout,
		logger:       zerolog.Nop(),
		authPath:     defaultAuthPath,
		productsPath: defaultProductsPath,
		authHeader:   auth.DefaultAuthHeader,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.cacheSet {
		if path := tokencache.DefaultPath(); path != "" {
			cfg.cache = tokencache.NewFileCache(path)
		}
	}

	tokens, err := auth.NewManager(auth.Config{
		RefreshToken: refreshToken,
		Endpoint:     cfg.baseURL + cfg.authPath,
		Header:       cfg.authHeader,
		TTL:          cfg.tokenTTL,
		Margin:       cfg.expiryMargin,
		Cache:        cfg.cache,
		Timeout:      cfg.timeout,
		HTTPClient:   cfg.httpClient,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, err
	}

	var base transport.Transport
	switch cfg.backend {
	case BackendBasic:
		base = transport.NewBasic(cfg.baseURL, cfg.timeout)
	default:
		base = transport.NewPooled(cfg.baseURL, cfg.timeout)
	}

	c := &Client{
		cfg:       cfg,
		tokens:    tokens,
		transport: transport.NewAuthed(base, tokens, cfg.authHeader, cfg.logger),
	}
	c.Products = &ProductsService{client: c}
	c.Offers = &OffersService{client: c}
	return c, nil
}

// Close releases transport resources. Safe to call more than once; callers
// should defer it right after New so connections are released on every
// exit path.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.transport.Close()
	})
	return nil
}

// TokenManager exposes the underlying auth manager, e.g. to pre-warm or
// invalidate the token.
func (c *Client) TokenManager() *auth.Manager {
	return c.tokens
}
