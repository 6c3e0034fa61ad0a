// Package transport implements the HTTP layer under the resource clients:
// two interchangeable backends plus an authenticating wrapper that injects
// the current access token and retries once after a 401.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/applifting/offers-sdk-go/apierror"
)

// Request is one API call before authentication headers are applied.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	// Body is pre-serialized JSON so the request can be replayed on retry.
	Body []byte
}

// Response is the raw result of an API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends API requests. Implementations are chosen once at client
// construction and must be safe for concurrent use.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
	// Close releases underlying connections. Safe to call more than once.
	Close()
}

// conn is the machinery shared by both backend variants.
type conn struct {
	baseURL string
	client  *http.Client
}

func (c *conn) Do(ctx context.Context, req Request) (*Response, error) {
	u := strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, apierror.Network("failed to build request", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apierror.Network("request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.Network("failed to read response body", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

func (c *conn) Close() {
	c.client.CloseIdleConnections()
}

// Pooled is the default backend: one shared connection pool with
// keep-alives, suited to many concurrent in-flight calls.
type Pooled struct {
	conn
}

// NewPooled creates the pooled backend against the given base URL.
func NewPooled(baseURL string, timeout time.Duration) *Pooled {
	return &Pooled{conn{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}}
}

// Basic is the sequential backend: keep-alives disabled, a fresh
// connection per request. Matches deployments that want strictly one
// connection at a time.
type Basic struct {
	conn
}

// NewBasic creates the basic backend against the given base URL.
func NewBasic(baseURL string, timeout time.Duration) *Basic {
	return &Basic{conn{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{DisableKeepAlives: true},
		},
	}}
}
