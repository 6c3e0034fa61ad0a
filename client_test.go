package offers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applifting/offers-sdk-go/apierror"
	"github.com/applifting/offers-sdk-go/internal/transport"
)

// fakeAPI is an in-memory offers API good enough for the client tests.
type fakeAPI struct {
	t             *testing.T
	authCalls     atomic.Int64
	registerCalls atomic.Int64
	products      map[string]bool
	offersByID    map[string][]Offer
	registerCode  int // 0 means behave normally
	offersCode    int
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	f := &fakeAPI{
		t:          t,
		products:   map[string]bool{},
		offersByID: map[string][]Offer{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/auth" && r.Method == http.MethodPost:
		f.authCalls.Add(1)
		if r.Header.Get("Bearer") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"access_token":"test-access-token"}`))

	case r.URL.Path == "/api/v1/products/register" && r.Method == http.MethodPost:
		f.registerCalls.Add(1)
		if r.Header.Get("Bearer") != "test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.registerCode != 0 {
			f.writeError(w, f.registerCode)
			return
		}
		var req RegisterProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.products[req.ID.String()] = true
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RegisterProductResponse{ID: req.ID})

	case strings.HasPrefix(r.URL.Path, "/api/v1/products/") && strings.HasSuffix(r.URL.Path, "/offers") && r.Method == http.MethodGet:
		if r.Header.Get("Bearer") != "test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.offersCode != 0 {
			f.writeError(w, f.offersCode)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/products/"), "/offers")
		if !f.products[id] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(f.offersByID[id])

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) writeError(w http.ResponseWriter, code int) {
	if code == http.StatusUnprocessableEntity {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(`{"detail":[{"loc":["body","name"],"msg":"field required","type":"value_error.missing"}]}`))
		return
	}
	w.WriteHeader(code)
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(baseURL),
		WithTokenCache(nil), // keep tests off the real filesystem
	}, opts...)
	c, err := New("test-refresh-token", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func validRequest() RegisterProductRequest {
	return RegisterProductRequest{
		ID:          uuid.New(),
		Name:        "Thinkpad X260",
		Description: "A trusty used laptop",
	}
}

func TestNew_RequiresRefreshToken(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestRegisterProduct_Roundtrip(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	req := validRequest()
	resp, err := c.Products.Register(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, int64(1), api.authCalls.Load(), "one token exchange for the first call")
}

func TestRegisterProduct_LocalValidationSkipsNetwork(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Products.Register(context.Background(), RegisterProductRequest{ID: uuid.New()})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apierror.ErrValidation), "got %v", err)
	assert.Equal(t, int64(0), api.registerCalls.Load(), "invalid request must not reach the wire")
	assert.Equal(t, int64(0), api.authCalls.Load())

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	require.NotNil(t, apiErr.Detail)
	fields := make([]string, 0, len(apiErr.Detail.Detail))
	for _, fe := range apiErr.Detail.Detail {
		fields = append(fields, fe.String())
	}
	assert.Contains(t, strings.Join(fields, "; "), "name")
}

func TestRegisterProduct_Server422IsErrValidation(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.registerCode = http.StatusUnprocessableEntity
	c := newTestClient(t, srv.URL)

	_, err := c.Products.Register(context.Background(), validRequest())

	assert.True(t, errors.Is(err, apierror.ErrValidation), "got %v", err)
	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	require.NotNil(t, apiErr.Detail)
	assert.Equal(t, "field required", apiErr.Detail.Detail[0].Msg)
}

func TestRegisterProduct_Server400IsErrBadRequest(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.registerCode = http.StatusBadRequest
	c := newTestClient(t, srv.URL)

	_, err := c.Products.Register(context.Background(), validRequest())
	assert.True(t, errors.Is(err, apierror.ErrBadRequest), "got %v", err)
}

func TestRegisterProduct_429IsErrRateLimit(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.registerCode = http.StatusTooManyRequests
	c := newTestClient(t, srv.URL)

	_, err := c.Products.Register(context.Background(), validRequest())
	assert.True(t, errors.Is(err, apierror.ErrRateLimit), "got %v", err)
}

func TestGetOffers_UnknownProductIsErrNotFound(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Offers.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apierror.ErrNotFound), "got %v", err)
}

func TestGetOffers_ZeroOffersIsEmptySliceNotError(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	req := validRequest()
	_, err := c.Products.Register(context.Background(), req)
	require.NoError(t, err)
	api.offersByID[req.ID.String()] = nil

	got, err := c.Offers.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetOffers_ReturnsServerOrder(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	req := validRequest()
	_, err := c.Products.Register(context.Background(), req)
	require.NoError(t, err)

	want := []Offer{
		{ID: uuid.New(), Price: 12900, ItemsInStock: 3},
		{ID: uuid.New(), Price: 9900, ItemsInStock: 0},
		{ID: uuid.New(), Price: 15000, ItemsInStock: 12},
	}
	api.offersByID[req.ID.String()] = want

	got, err := c.Offers.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetOffers_NilProductIDFailsLocally(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	_, err := c.Offers.Get(context.Background(), uuid.Nil)
	assert.True(t, errors.Is(err, apierror.ErrValidation), "got %v", err)
	assert.Equal(t, int64(0), api.authCalls.Load())
}

func TestClient_BasicBackend(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL, WithHTTPBackend(BackendBasic))

	_, err := c.Products.Register(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestClient_TokenReusedAcrossCalls(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	req := validRequest()
	_, err := c.Products.Register(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Offers.Get(context.Background(), req.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), api.authCalls.Load(), "access token must be reused")
}

func TestWithTimeout_BoundsTokenExchange(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth" {
			<-release // outlive any sane timeout
			return
		}
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := newTestClient(t, srv.URL, WithTimeout(100*time.Millisecond))

	start := time.Now()
	_, err := c.Products.Register(context.Background(), validRequest())

	assert.True(t, errors.Is(err, apierror.ErrNetwork), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second, "configured timeout must bound the exchange")
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

// closingSpy wraps a Transport and records how often Close is called.
type closingSpy struct {
	transport.Transport
	closes atomic.Int64
}

func (s *closingSpy) Close() {
	s.closes.Add(1)
	s.Transport.Close()
}

func TestClient_CloseReleasesTransportOnErrorPath(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.registerCode = http.StatusInternalServerError

	spy := &closingSpy{}
	err := func() error {
		c := newTestClient(t, srv.URL)
		spy.Transport = c.transport
		c.transport = spy
		defer c.Close()
		_, err := c.Products.Register(context.Background(), validRequest())
		return err
	}()

	assert.True(t, errors.Is(err, apierror.ErrServer), "got %v", err)
	assert.Equal(t, int64(1), spy.closes.Load(), "deferred Close must release the transport")
}
