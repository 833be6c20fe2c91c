package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
)

// W3CDIDContext is the default JSON-LD context for newly minted documents.
const W3CDIDContext = "https://www.w3.org/ns/did/v1"

const (
	maxFragmentLength = 256
	maxEndpointLength = 2048
	maxKeyLength      = 1024
	maxMetadataPairs  = 64
)

// Document is the structured payload stored at each version of an identity.
// The store treats it as opaque; only the mutators and the transport layer
// depend on its shape.
type Document struct {
	Context            []string             `json:"@context,omitempty"`
	ID                 id.DID               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
	Metadata           map[string]string    `json:"metadata,omitempty"`
}

// VerificationMethod names key material a controller can authenticate with.
// Key material is carried verbatim; nothing in this system interprets it.
type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         string `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// Service is one service endpoint advertised by the document.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// NewDocument returns a minimal document for the given identity with the
// default W3C context and no verification methods or services.
func NewDocument(did id.DID) Document {
	return Document{
		Context: []string{W3CDIDContext},
		ID:      did,
	}
}

func (d Document) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.ID, validation.Required, validation.By(validDID)),
		validation.Field(&d.Context, validation.Each(validation.Required, validation.Length(1, maxEndpointLength))),
		validation.Field(&d.VerificationMethod),
		validation.Field(&d.Service),
		validation.Field(&d.Metadata, validation.Length(0, maxMetadataPairs)),
	)
}

func (m VerificationMethod) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required, validation.Length(1, maxFragmentLength)),
		validation.Field(&m.Type, validation.Required, validation.Length(1, maxFragmentLength)),
		validation.Field(&m.Controller, validation.Required, validation.Length(1, maxFragmentLength)),
		validation.Field(&m.PublicKeyMultibase, validation.Required, validation.Length(1, maxKeyLength)),
	)
}

func (s Service) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required, validation.Length(1, maxFragmentLength)),
		validation.Field(&s.Type, validation.Required, validation.Length(1, maxFragmentLength)),
		validation.Field(&s.ServiceEndpoint, validation.Required, validation.Length(1, maxEndpointLength)),
	)
}

func validDID(value interface{}) error {
	did, ok := value.(id.DID)
	if !ok {
		return validation.NewError("validation_did", "must be a DID")
	}
	_, err := id.ParseDID(did.String())
	return err
}

// Clone returns a deep copy sharing no slices or maps with the receiver.
// Mutators operate on clones so stored documents are never aliased.
func (d Document) Clone() Document {
	out := d
	if d.Context != nil {
		out.Context = append([]string{}, d.Context...)
	}
	if d.VerificationMethod != nil {
		out.VerificationMethod = append([]VerificationMethod{}, d.VerificationMethod...)
	}
	if d.Service != nil {
		out.Service = append([]Service{}, d.Service...)
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// FindService returns the service with the given id and whether it exists.
func (d Document) FindService(serviceID string) (Service, bool) {
	for _, svc := range d.Service {
		if svc.ID == serviceID {
			return svc, true
		}
	}
	return Service{}, false
}
