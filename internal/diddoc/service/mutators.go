package service

import (
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// Mutator is one member of the closed set of document transformations. All
// mutators run under the same chain algorithm: fetch the active version,
// gate on ownership, apply, commit as the successor version.
//
// Apply is pure: no I/O, and the returned document never aliases the
// current one's slices or maps. When changed is false the chain manager
// skips the commit and the stored version stays as is.
type Mutator interface {
	// Name labels the mutation in spans and metrics.
	Name() string
	Apply(current models.Document) (models.Document, bool, error)
}

// ReplaceDocument substitutes the entire document payload. The identifier
// names the chain, so the stored identity's ID always survives replacement.
// A replacement identical to the current payload still commits a new version.
func ReplaceDocument(doc models.Document) Mutator {
	return replaceDocument{doc: doc}
}

type replaceDocument struct {
	doc models.Document
}

func (m replaceDocument) Name() string { return "replace_document" }

func (m replaceDocument) Apply(current models.Document) (models.Document, bool, error) {
	next := m.doc.Clone()
	next.ID = current.ID
	if err := next.Validate(); err != nil {
		return models.Document{}, false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid document")
	}
	return next, true, nil
}

// AddVerificationMethod appends a verification method. No deduplication:
// appending a method that is already present yields a longer list.
func AddVerificationMethod(method models.VerificationMethod) Mutator {
	return addVerificationMethod{method: method}
}

type addVerificationMethod struct {
	method models.VerificationMethod
}

func (m addVerificationMethod) Name() string { return "add_verification_method" }

func (m addVerificationMethod) Apply(current models.Document) (models.Document, bool, error) {
	if err := m.method.Validate(); err != nil {
		return models.Document{}, false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid verification method")
	}
	next := current.Clone()
	next.VerificationMethod = append(next.VerificationMethod, m.method)
	return next, true, nil
}

// AddService appends a service endpoint.
func AddService(svc models.Service) Mutator {
	return addService{svc: svc}
}

type addService struct {
	svc models.Service
}

func (m addService) Name() string { return "add_service" }

func (m addService) Apply(current models.Document) (models.Document, bool, error) {
	if err := m.svc.Validate(); err != nil {
		return models.Document{}, false, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid service")
	}
	next := current.Clone()
	next.Service = append(next.Service, m.svc)
	return next, true, nil
}

// RemoveService removes the service entry with the matching id. When no
// entry matches it reports no change, so removal is idempotent and never
// burns a sequence number.
func RemoveService(serviceID string) Mutator {
	return removeService{serviceID: serviceID}
}

type removeService struct {
	serviceID string
}

func (m removeService) Name() string { return "remove_service" }

func (m removeService) Apply(current models.Document) (models.Document, bool, error) {
	next := current.Clone()
	kept := next.Service[:0]
	for _, svc := range next.Service {
		if svc.ID != m.serviceID {
			kept = append(kept, svc)
		}
	}
	if len(kept) == len(next.Service) {
		return current, false, nil
	}
	next.Service = kept
	return next, true, nil
}
