// Package store persists identity document chains. Both backends expose the
// same contract: append-only version rows per DID, at most one active row per
// DID, and compare-and-swap commits keyed on the expected active version id.
package store

import (
	"context"
	"sync"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

// InMemory keeps document chains in process memory. Used by unit tests and
// the dev profile. All returned versions are clones; callers can never reach
// stored state.
type InMemory struct {
	mu sync.RWMutex
	// chains holds each identity's versions in ascending sequence order.
	chains map[id.DID][]*models.DocumentVersion
}

func NewInMemory() *InMemory {
	return &InMemory{chains: make(map[id.DID][]*models.DocumentVersion)}
}

// InsertInitial creates version 1 for an identity with no prior versions.
// Any existing version, active or not, fails with ErrAlreadyUsed.
func (s *InMemory) InsertInitial(ctx context.Context, did id.DID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error) {
	version, err := models.NewInitialVersion(did, doc, owner, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chains[did]) > 0 {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.chains[did] = append(s.chains[did], version)
	return version.Clone(), nil
}

// GetActive returns the single active version, or ErrNotFound when the
// identity is unknown or deactivated. The two cases are indistinguishable.
func (s *InMemory) GetActive(ctx context.Context, did id.DID) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[did]
	// The active version, if any, is always the newest row.
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Active {
			return chain[i].Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// GetHistory returns every version ascending by sequence. An unknown identity
// yields an empty slice, not an error.
func (s *InMemory) GetHistory(ctx context.Context, did id.DID) ([]*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[did]
	history := make([]*models.DocumentVersion, 0, len(chain))
	for _, v := range chain {
		history = append(history, v.Clone())
	}
	return history, nil
}

// CommitNextVersion atomically deactivates the version with the expected id,
// if and only if it is still active, and appends the successor. A stale
// expected id writes nothing and returns ErrConflict. The owner argument must
// match the chain owner; a mismatch is a caller bug and fails ErrInvalidState
// before any write.
func (s *InMemory) CommitNextVersion(ctx context.Context, did id.DID, expectedActiveID id.VersionID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.findActive(did, expectedActiveID)
	if current == nil {
		return nil, sentinel.ErrConflict
	}
	if current.Owner != owner {
		return nil, sentinel.ErrInvalidState
	}

	next, err := current.NextVersion(doc, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	current.Active = false
	s.chains[did] = append(s.chains[did], next)
	return next.Clone(), nil
}

// DeactivateAll flips the expected active version to inactive without
// inserting a replacement. Same CAS discipline as CommitNextVersion: a stale
// expected id returns ErrConflict and writes nothing. Terminal for the
// identity; history remains readable.
func (s *InMemory) DeactivateAll(ctx context.Context, did id.DID, expectedActiveID id.VersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.findActive(did, expectedActiveID)
	if current == nil {
		return sentinel.ErrConflict
	}
	current.Active = false
	return nil
}

// findActive returns the stored version matching the id only when it is still
// the active one. Callers must hold the lock.
func (s *InMemory) findActive(did id.DID, versionID id.VersionID) *models.DocumentVersion {
	for _, v := range s.chains[did] {
		if v.ID == versionID && v.Active {
			return v
		}
	}
	return nil
}
