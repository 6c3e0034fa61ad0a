package transport

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/applifting/offers-sdk-go/apierror"
)

// TokenSource supplies access tokens for outgoing requests. Satisfied by
// *auth.Manager.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Authed decorates a Transport with token injection and the
// retry-once-on-401 policy: a first-attempt 401 discards the current token,
// forces one fresh exchange and replays the request; a second 401 gives up.
type Authed struct {
	base   Transport
	tokens TokenSource
	// header is the request header carrying the access token.
	header string
	logger zerolog.Logger
}

// NewAuthed wraps base with authentication against tokens.
func NewAuthed(base Transport, tokens TokenSource, header string, logger zerolog.Logger) *Authed {
	return &Authed{base: base, tokens: tokens, header: header, logger: logger}
}

func (a *Authed) Do(ctx context.Context, req Request) (*Response, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return a.checked(resp)
	}

	a.logger.Warn().
		Str("method", req.Method).
		Str("path", req.Path).
		Msg("received 401, refreshing access token and retrying once")

	token, err = a.tokens.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	resp, err = a.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		a.logger.Error().Str("path", req.Path).Msg("still 401 after token refresh, giving up")
		return nil, apierror.FromResponse(resp.StatusCode, resp.Header, resp.Body)
	}
	return a.checked(resp)
}

func (a *Authed) Close() {
	a.base.Close()
}

func (a *Authed) send(ctx context.Context, req Request, token string) (*Response, error) {
	header := make(http.Header, len(req.Header)+1)
	for k, vs := range req.Header {
		header[k] = vs
	}
	header.Set(a.header, token)

	authed := req
	authed.Header = header
	return a.base.Do(ctx, authed)
}

// checked maps non-2xx responses to the error taxonomy.
func (a *Authed) checked(resp *Response) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierror.FromResponse(resp.StatusCode, resp.Header, resp.Body)
	}
	return resp, nil
}
