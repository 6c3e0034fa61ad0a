package offers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/applifting/offers-sdk-go/apierror"
	"github.com/applifting/offers-sdk-go/internal/transport"
)

// ProductsService wraps the /products endpoints.
type ProductsService struct {
	client *Client
}

// Register registers a new product. The request is validated locally
// before anything goes on the wire; server-side rejections surface as
// ErrValidation (422) or ErrBadRequest (400).
func (s *ProductsService) Register(ctx context.Context, req RegisterProductRequest) (*RegisterProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, apierror.Validation("failed to encode register product request", nil)
	}

	resp, err := s.client.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   s.client.cfg.productsPath + "/register",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var out RegisterProductResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, apierror.New(apierror.ErrAPI, resp.StatusCode, "malformed register product response")
	}

	s.client.cfg.logger.Info().
		Stringer("product_id", out.ID).
		Str("name", req.Name).
		Msg("product registered")
	return &out, nil
}
