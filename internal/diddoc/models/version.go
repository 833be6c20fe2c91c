package models

import (
	"time"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// DocumentVersion is one immutable link in an identity's document chain.
//
// Invariants:
//   - Sequence starts at 1 and is contiguous within an identity
//   - At most one version per identity has Active=true at any instant
//   - Owner is identical across all versions of the same identity
//   - Every field except Active is immutable once written
//
// # CAS Discipline
//
// ID doubles as the compare-and-swap token. Every commit names the version id
// it expects to still be active; the store flips exactly that row to inactive
// and inserts the successor in one transaction. A commit whose expected id is
// no longer active writes nothing and reports a conflict. This single
// primitive enforces both the one-active invariant and sequence contiguity
// under concurrent writers without any external locking.
//
// Security Implications:
//   - Mutation rights are checked against the version fetched immediately
//     before the CAS attempt, never against a cached decision
//   - There is no ownership-transfer operation; Owner is fixed at version 1
//   - Deactivation is terminal: once no version is active, no version of that
//     identity ever becomes active again
type DocumentVersion struct {
	ID        id.VersionID   `json:"id"`
	DID       id.DID         `json:"did"`
	Sequence  int64          `json:"sequence"`
	Document  Document       `json:"document"`
	Active    bool           `json:"active"`
	Owner     id.PrincipalID `json:"owner_id"`
	CreatedAt time.Time      `json:"created_at"`
}

func (v *DocumentVersion) IsActive() bool {
	return v.Active
}

// IsOwnedBy reports whether the given principal holds mutation rights over
// this version's identity.
func (v *DocumentVersion) IsOwnedBy(principal id.PrincipalID) bool {
	return !v.Owner.IsZero() && v.Owner == principal
}

// CanSupersede checks whether a successor version may be built from this one.
// Only the current active version can be superseded.
func (v *DocumentVersion) CanSupersede() error {
	if !v.Active {
		return dErrors.New(dErrors.CodeInvariantViolation, "only the active version can be superseded")
	}
	return nil
}

// NextVersion builds the successor carrying the given document. The successor
// keeps the identity and owner, increments the sequence and gets a fresh row
// id. Call through the store's CommitNextVersion so the active flip and the
// insert land in one atomic step.
func (v *DocumentVersion) NextVersion(doc Document, now time.Time) (*DocumentVersion, error) {
	if err := v.CanSupersede(); err != nil {
		return nil, err
	}
	return &DocumentVersion{
		ID:        id.NewVersionID(),
		DID:       v.DID,
		Sequence:  v.Sequence + 1,
		Document:  doc.Clone(),
		Active:    true,
		Owner:     v.Owner,
		CreatedAt: now,
	}, nil
}

// Clone returns a deep copy; the memory store hands out clones so callers can
// never mutate stored state.
func (v *DocumentVersion) Clone() *DocumentVersion {
	if v == nil {
		return nil
	}
	out := *v
	out.Document = v.Document.Clone()
	return &out
}

// NewInitialVersion constructs version 1 of a fresh identity chain.
func NewInitialVersion(did id.DID, doc Document, owner id.PrincipalID, now time.Time) (*DocumentVersion, error) {
	if did.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity cannot be empty")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner cannot be empty")
	}
	return &DocumentVersion{
		ID:        id.NewVersionID(),
		DID:       did,
		Sequence:  1,
		Document:  doc.Clone(),
		Active:    true,
		Owner:     owner,
		CreatedAt: now,
	}, nil
}
