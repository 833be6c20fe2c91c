package agent

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
)

// didMethod is the method of every identity minted in process.
const didMethod = "sapphire"

// digestSize is the blake2b output length for method-specific ids. 160 bits
// keeps identifiers short while staying collision-resistant for key material.
const digestSize = 20

// DevAgent mints identities in process. Local runs and tests use it instead
// of a deployed identity agent. It never knows foreign identities, so
// ResolveExternally always reports a miss.
type DevAgent struct{}

// NewDevAgent creates an in-process identity agent.
func NewDevAgent() *DevAgent {
	return &DevAgent{}
}

// MintIdentity generates an ed25519 keypair and derives the identifier from
// a blake2b digest of the public key. The returned document carries the
// public key as its single verification method, self-controlled.
func (a *DevAgent) MintIdentity(_ context.Context) (Minted, error) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Minted{}, fmt.Errorf("generate keypair: %w", err)
	}

	digest, err := keyDigest(pub)
	if err != nil {
		return Minted{}, fmt.Errorf("derive identifier: %w", err)
	}

	did, err := id.ParseDID("did:" + didMethod + ":" + encodeBase32(digest))
	if err != nil {
		return Minted{}, fmt.Errorf("derive identifier: %w", err)
	}

	doc := models.NewDocument(did)
	doc.VerificationMethod = []models.VerificationMethod{
		{
			ID:         did.String() + "#key-1",
			Type:       "Ed25519VerificationKey2020",
			Controller: did.String(),
			// multibase prefix "b": base32 lowercase, no padding
			PublicKeyMultibase: "b" + encodeBase32(pub),
		},
	}

	return Minted{DID: did, Document: doc}, nil
}

// ResolveExternally reports every identity as unknown.
func (a *DevAgent) ResolveExternally(_ context.Context, _ id.DID) (*models.Document, error) {
	return nil, sentinel.ErrNotFound
}

func keyDigest(pub ed25519.PublicKey) ([]byte, error) {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		return nil, err
	}
	h.Write(pub)
	return h.Sum(nil), nil
}

func encodeBase32(b []byte) string {
	return strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b))
}
