// Package domain provides the typed identifiers shared across the service.
//
// IDs are uuid-backed named types so the compiler rejects cross-type mixups;
// construct them from external input only through the Parse functions, which
// enforce the "valid, non-empty, non-nil UUID" invariant at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// PrincipalID identifies the authenticated principal that owns an identity.
// Ownership is fixed when the first version is written and never transfers.
type PrincipalID uuid.UUID

// VersionID identifies a single stored document version. It is the token that
// compare-and-swap operations use to name the version they expect to be active.
type VersionID uuid.UUID

// NewPrincipalID generates a random principal ID.
func NewPrincipalID() PrincipalID {
	return PrincipalID(uuid.New())
}

// NewVersionID generates a random version ID.
func NewVersionID() VersionID {
	return VersionID(uuid.New())
}

// ParsePrincipalID constructs a PrincipalID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s, "principal id")
	if err != nil {
		return PrincipalID{}, err
	}
	return PrincipalID(u), nil
}

// ParseVersionID constructs a VersionID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseVersionID(s string) (VersionID, error) {
	u, err := parseUUID(s, "version id")
	if err != nil {
		return VersionID{}, err
	}
	return VersionID(u), nil
}

func (id PrincipalID) String() string { return uuid.UUID(id).String() }
func (id VersionID) String() string   { return uuid.UUID(id).String() }

// IsZero reports whether the ID is unset (the nil UUID).
func (id PrincipalID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// IsZero reports whether the ID is unset (the nil UUID).
func (id VersionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form. Named types do not
// inherit uuid.UUID's marshalers, so JSON would otherwise emit a byte array.
func (id PrincipalID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText parses the ID with the same validation as ParsePrincipalID.
func (id *PrincipalID) UnmarshalText(b []byte) error {
	parsed, err := ParsePrincipalID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText renders the ID in canonical UUID form.
func (id VersionID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

// UnmarshalText parses the ID with the same validation as ParseVersionID.
func (id *VersionID) UnmarshalText(b []byte) error {
	parsed, err := ParseVersionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}
