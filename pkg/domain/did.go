package domain

import (
	"strings"

	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// DID is a decentralized identifier in the form did:<method>:<method-specific-id>.
// Invariant: the value parses; direct casting bypasses validation.
//
// Usage: construct via ParseDID at trust boundaries (handlers, store scans,
// agent responses). The store keys version chains by this value.
type DID string

// maxDIDLength caps identifier size at the trust boundary. The DID syntax has
// no upper bound; anything past this is rejected before it reaches storage.
const maxDIDLength = 512

// ParseDID constructs a DID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, oversized, lacks
// the did: prefix, has an empty or non-lowercase-alphanumeric method, or has
// a method-specific id with characters outside [A-Za-z0-9._:%-].
func ParseDID(s string) (DID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did cannot be empty")
	}
	if len(s) > maxDIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did exceeds maximum length")
	}
	rest, ok := strings.CutPrefix(s, "did:")
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did must start with \"did:\"")
	}
	method, specificID, ok := strings.Cut(rest, ":")
	if !ok || method == "" || specificID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "did must have a method and a method-specific id")
	}
	for _, r := range method {
		if !isMethodChar(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "did method must be lowercase alphanumeric")
		}
	}
	for _, r := range specificID {
		if !isSpecificIDChar(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "did method-specific id contains invalid characters")
		}
	}
	return DID(s), nil
}

// String returns the full identifier.
func (d DID) String() string { return string(d) }

// Method returns the DID method, or "" for the zero value.
func (d DID) Method() string {
	rest, ok := strings.CutPrefix(string(d), "did:")
	if !ok {
		return ""
	}
	method, _, _ := strings.Cut(rest, ":")
	return method
}

// IsNil reports whether the DID is unset.
func (d DID) IsNil() bool { return d == "" }

func isMethodChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

func isSpecificIDChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_', r == ':', r == '%':
		return true
	}
	return false
}
