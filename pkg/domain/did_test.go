package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// TestParseDID validates the identifier syntax enforced at trust boundaries:
// did:<method>:<method-specific-id> with a lowercase alphanumeric method.
func TestParseDID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "did:example:123456", false},
		{"sapphire method", "did:sapphire:b2m5vqgtkkqovbqoyhsqnjfcqvjqhwlv", false},
		{"web method with colons", "did:web:example.com:user:alice", false},
		{"key method mixed case id", "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", false},
		{"percent encoded id", "did:example:user%20one", false},

		{"empty", "", true},
		{"missing prefix", "example:123456", true},
		{"prefix only", "did:", true},
		{"missing method-specific id", "did:example:", true},
		{"missing method", "did::123456", true},
		{"uppercase method", "did:Example:123456", true},
		{"whitespace in id", "did:example:123 456", true},
		{"newline in id", "did:example:123\n456", true},
		{"oversized", "did:example:" + strings.Repeat("a", 600), true},
		{"sql injection", "did:example:'; DROP TABLE did_document_versions;--", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestDID_Method(t *testing.T) {
	d, err := ParseDID("did:web:example.com:user:alice")
	require.NoError(t, err)
	assert.Equal(t, "web", d.Method())

	assert.Equal(t, "", DID("").Method())
	assert.True(t, DID("").IsNil())
	assert.False(t, d.IsNil())
}
