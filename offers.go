package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/applifting/offers-sdk-go/apierror"
	"github.com/applifting/offers-sdk-go/internal/transport"
)

// OffersService wraps the /products/{id}/offers endpoint.
type OffersService struct {
	client *Client
}

// Get fetches the current offers for a registered product, in server
// order. A product with no offers yields an empty slice; an unknown
// product id yields ErrNotFound. Offers are never cached client-side.
func (s *OffersService) Get(ctx context.Context, productID uuid.UUID) ([]Offer, error) {
	if productID == uuid.Nil {
		return nil, apierror.Validation("product id is required", nil)
	}

	resp, err := s.client.transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("%s/%s/offers", s.client.cfg.productsPath, productID),
	})
	if err != nil {
		return nil, err
	}

	var out []Offer
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, apierror.New(apierror.ErrAPI, resp.StatusCode, "malformed offers response")
	}
	if out == nil {
		out = []Offer{}
	}

	s.client.cfg.logger.Debug().
		Stringer("product_id", productID).
		Int("offers", len(out)).
		Msg("fetched offers")
	return out, nil
}
