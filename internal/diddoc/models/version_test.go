package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

type VersionSuite struct {
	suite.Suite
	validDID   id.DID
	validOwner id.PrincipalID
	validDoc   models.Document
	now        time.Time
}

func TestVersionSuite(t *testing.T) {
	suite.Run(t, new(VersionSuite))
}

func (s *VersionSuite) SetupTest() {
	s.validDID = id.DID("did:sapphire:abc123")
	s.validOwner = id.NewPrincipalID()
	s.validDoc = models.NewDocument(s.validDID)
	s.now = time.Now().UTC()
}

func (s *VersionSuite) TestConstructionInvariants() {
	s.Run("rejects empty identity", func() {
		_, err := models.NewInitialVersion("", s.validDoc, s.validOwner, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects empty owner", func() {
		_, err := models.NewInitialVersion(s.validDID, s.validDoc, id.PrincipalID{}, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("starts the chain at sequence one, active", func() {
		v, err := models.NewInitialVersion(s.validDID, s.validDoc, s.validOwner, s.now)
		s.Require().NoError(err)
		s.Equal(int64(1), v.Sequence)
		s.True(v.Active)
		s.Equal(s.validOwner, v.Owner)
		s.False(v.ID.IsZero())
	})
}

func (s *VersionSuite) TestSuccession() {
	s.Run("successor keeps identity and owner, bumps sequence", func() {
		v1, err := models.NewInitialVersion(s.validDID, s.validDoc, s.validOwner, s.now)
		s.Require().NoError(err)

		v2, err := v1.NextVersion(s.validDoc, s.now.Add(time.Second))
		s.Require().NoError(err)
		s.Equal(v1.DID, v2.DID)
		s.Equal(v1.Owner, v2.Owner)
		s.Equal(v1.Sequence+1, v2.Sequence)
		s.NotEqual(v1.ID, v2.ID)
		s.True(v2.Active)
	})

	s.Run("inactive version cannot be superseded", func() {
		v1, err := models.NewInitialVersion(s.validDID, s.validDoc, s.validOwner, s.now)
		s.Require().NoError(err)
		v1.Active = false

		_, err = v1.NextVersion(s.validDoc, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *VersionSuite) TestOwnership() {
	v, err := models.NewInitialVersion(s.validDID, s.validDoc, s.validOwner, s.now)
	s.Require().NoError(err)

	s.Run("owner holds mutation rights", func() {
		s.True(v.IsOwnedBy(s.validOwner))
	})

	s.Run("other principals do not", func() {
		s.False(v.IsOwnedBy(id.NewPrincipalID()))
	})

	s.Run("zero principal never matches", func() {
		s.False(v.IsOwnedBy(id.PrincipalID{}))
	})
}

func (s *VersionSuite) TestCloneIsolation() {
	doc := models.NewDocument(s.validDID)
	doc.Service = []models.Service{{ID: "svc-1", Type: "X", ServiceEndpoint: "https://e"}}
	doc.Metadata = map[string]string{"k": "v"}

	v, err := models.NewInitialVersion(s.validDID, doc, s.validOwner, s.now)
	s.Require().NoError(err)

	clone := v.Clone()
	clone.Document.Service[0].ID = "svc-mutated"
	clone.Document.Metadata["k"] = "mutated"
	clone.Document.Context[0] = "mutated"

	s.Equal("svc-1", v.Document.Service[0].ID)
	s.Equal("v", v.Document.Metadata["k"])
	s.Equal(models.W3CDIDContext, v.Document.Context[0])
}
