package offers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/applifting/offers-sdk-go/apierror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterProductRequest is the payload for registering a product. The ID
// is caller-supplied and must be unique; all fields are required.
type RegisterProductRequest struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description" validate:"required"`
}

// Validate checks the request shape locally, before anything is sent.
func (r RegisterProductRequest) Validate() error {
	return checkStruct(r, "invalid register product request")
}

// RegisterProductResponse echoes the server-side registration result.
type RegisterProductResponse struct {
	ID uuid.UUID `json:"id"`
}

// Offer is a single marketplace offer for a registered product. Read-only;
// Price is in cents.
type Offer struct {
	ID           uuid.UUID `json:"id"`
	Price        int       `json:"price"`
	ItemsInStock int       `json:"items_in_stock"`
}

// checkStruct runs struct validation and converts failures into the same
// shape the API uses for 422 responses.
func checkStruct(v any, message string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.Validation(message, nil)
	}

	detail := &apierror.ValidationDetail{}
	for _, fe := range verrs {
		detail.Detail = append(detail.Detail, apierror.FieldError{
			Loc:  []any{"body", fe.Field()},
			Msg:  "failed validation: " + fe.Tag(),
			Type: fe.Tag(),
		})
	}
	return apierror.Validation(message, detail)
}
