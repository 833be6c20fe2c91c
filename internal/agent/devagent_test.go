package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
)

func TestDevAgent_MintIdentity(t *testing.T) {
	agent := NewDevAgent()

	minted, err := agent.MintIdentity(context.Background())
	require.NoError(t, err)

	// The identifier is derived, well formed and under the expected method.
	assert.Equal(t, "sapphire", minted.DID.Method())
	_, err = id.ParseDID(minted.DID.String())
	require.NoError(t, err)

	doc := minted.Document
	assert.Equal(t, minted.DID, doc.ID)
	require.NoError(t, doc.Validate())

	require.Len(t, doc.VerificationMethod, 1)
	method := doc.VerificationMethod[0]
	assert.Equal(t, minted.DID.String()+"#key-1", method.ID)
	assert.Equal(t, "Ed25519VerificationKey2020", method.Type)
	assert.Equal(t, minted.DID.String(), method.Controller)
	assert.True(t, strings.HasPrefix(method.PublicKeyMultibase, "b"))
	assert.Greater(t, len(method.PublicKeyMultibase), 1)
}

func TestDevAgent_MintIdentityIsUnique(t *testing.T) {
	agent := NewDevAgent()
	ctx := context.Background()

	first, err := agent.MintIdentity(ctx)
	require.NoError(t, err)
	second, err := agent.MintIdentity(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.DID, second.DID)
}

func TestDevAgent_ResolveExternallyAlwaysMisses(t *testing.T) {
	agent := NewDevAgent()

	_, err := agent.ResolveExternally(context.Background(), id.DID("did:web:example.com"))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
