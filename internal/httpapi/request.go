package httpapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/docugen/internal/models"
)

var validate = validator.New()

// createJobRequest is the body of POST /v1/jobs (spec.md §4.3 submit()).
type createJobRequest struct {
	Locator    string         `json:"locator" validate:"required"`
	Caller     string         `json:"caller,omitempty"`
	Credential string         `json:"credential,omitempty"`
	Variant    models.Variant `json:"variant,omitempty" validate:"omitempty,oneof=docs-only docs-plus-comments"`
}

func (req *createJobRequest) normalize() {
	if req.Variant == "" {
		req.Variant = models.VariantDocsOnly
	}
}

func (req *createJobRequest) validateRequest() error {
	return validate.Struct(req)
}
