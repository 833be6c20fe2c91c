package handler

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
)

// ReplaceDocumentRequest carries the full replacement document for an
// identity. The submitted document may omit its id; the stored identity keeps
// the DID it was created with no matter what the caller sends.
type ReplaceDocumentRequest struct {
	Document *models.Document `json:"document"`
}

func (r *ReplaceDocumentRequest) Validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	return validation.ValidateStruct(r,
		// Skip stops the cascade into the document's own Validate, which
		// demands an id the service overwrites with the stored DID anyway.
		validation.Field(&r.Document, validation.Required.Error("document is required"), validation.Skip),
	)
}

// AddVerificationMethodRequest carries one verification method to append to
// the identity's current document.
type AddVerificationMethodRequest struct {
	Method *models.VerificationMethod `json:"verificationMethod"`
}

func (r *AddVerificationMethodRequest) Validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Method, validation.Required.Error("verification method is required")),
	)
}

// AddServiceRequest carries one service endpoint to append to the identity's
// current document.
type AddServiceRequest struct {
	Service *models.Service `json:"service"`
}

func (r *AddServiceRequest) Validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Service, validation.Required.Error("service is required")),
	)
}
