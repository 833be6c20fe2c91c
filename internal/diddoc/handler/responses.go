package handler

import (
	"time"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/resolver"
)

// versionResponse is the wire shape of one stored document version.
type versionResponse struct {
	DID       string          `json:"did"`
	Sequence  int64           `json:"sequence"`
	Active    bool            `json:"active"`
	Document  models.Document `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

func newVersionResponse(v *models.DocumentVersion) versionResponse {
	return versionResponse{
		DID:       v.DID.String(),
		Sequence:  v.Sequence,
		Active:    v.Active,
		Document:  v.Document,
		CreatedAt: v.CreatedAt,
	}
}

func newHistoryResponse(versions []*models.DocumentVersion) []versionResponse {
	out := make([]versionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, newVersionResponse(v))
	}
	return out
}

// resolveResponse is the answer to a resolve. Sequence is zero and local is
// false when the document came from the external agent.
type resolveResponse struct {
	DID      string          `json:"did"`
	Sequence int64           `json:"sequence"`
	Local    bool            `json:"local"`
	Document models.Document `json:"document"`
}

func newResolveResponse(did string, res *resolver.Resolution) resolveResponse {
	return resolveResponse{
		DID:      did,
		Sequence: res.Sequence,
		Local:    res.Local,
		Document: res.Document,
	}
}
