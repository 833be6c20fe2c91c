// Package agent talks to the identity agent, the external collaborator that
// mints new identities and resolves identities this node does not manage.
//
// Two implementations exist: Client speaks HTTP to a configured agent and
// DevAgent mints identities in process for local runs and tests. Both return
// pkg/platform/sentinel errors; callers translate them into domain errors.
package agent

import (
	"context"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
)

// Minted is a freshly created identity: the identifier and its first
// document payload, ready for the initial version insert.
type Minted struct {
	DID      id.DID
	Document models.Document
}

// Agent is the full identity agent contract. Consumers that need only one
// side declare their own narrower interface.
type Agent interface {
	// MintIdentity creates a brand new identity.
	// Errors: sentinel.ErrUnavailable when the agent cannot be reached.
	MintIdentity(ctx context.Context) (Minted, error)

	// ResolveExternally fetches the document for an identity not managed
	// locally.
	// Errors: sentinel.ErrNotFound when the agent does not know the
	// identity, sentinel.ErrUnavailable on transport failure or open
	// circuit.
	ResolveExternally(ctx context.Context, did id.DID) (*models.Document, error)
}
