package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xshikhar/sapphire-did-sub000/internal/agent"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/store"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

// LifecycleSuite drives the service against the real in-memory store and the
// in-process agent, walking one identity from mint to terminal deactivation.
// The mock suite pins call sequences; this suite pins the resulting chains.
type LifecycleSuite struct {
	suite.Suite
	store   *store.InMemory
	service *Service
	ctx     context.Context
	owner   id.PrincipalID

	did id.DID
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = New(s.store, agent.NewDevAgent())
	s.ctx = context.Background()
	s.owner = id.NewPrincipalID()
}

func (s *LifecycleSuite) history() []*models.DocumentVersion {
	versions, err := s.store.GetHistory(s.ctx, s.did)
	s.Require().NoError(err)
	return versions
}

func (s *LifecycleSuite) TestIdentityLifecycle() {
	var serviceID string

	s.Run("creation mints an owned chain at sequence one", func() {
		created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		version, err := s.service.CreateIdentity(requestcontext.WithTime(s.ctx, created), s.owner)
		s.Require().NoError(err)

		s.Equal(int64(1), version.Sequence)
		s.True(version.Active)
		s.True(version.IsOwnedBy(s.owner))
		s.Equal("sapphire", version.DID.Method())
		s.Len(version.Document.VerificationMethod, 1)
		s.True(version.CreatedAt.Equal(created))

		s.did = version.DID
		serviceID = s.did.String() + "#hub"
	})

	s.Run("adding a service commits sequence two", func() {
		version, err := s.service.AddService(s.ctx, s.did, s.owner, models.Service{
			ID:              serviceID,
			Type:            "MessagingHub",
			ServiceEndpoint: "https://hub.example.com",
		})
		s.Require().NoError(err)

		s.Equal(int64(2), version.Sequence)
		_, found := version.Document.FindService(serviceID)
		s.True(found)

		versions := s.history()
		s.Require().Len(versions, 2)
		s.False(versions[0].Active)
		s.True(versions[1].Active)
	})

	s.Run("adding a verification method commits sequence three", func() {
		version, err := s.service.AddVerificationMethod(s.ctx, s.did, s.owner, models.VerificationMethod{
			ID:                 s.did.String() + "#key-2",
			Type:               "Ed25519VerificationKey2020",
			Controller:         s.did.String(),
			PublicKeyMultibase: "bmfzgc3tdmvzxi33om5zgc3tdmvzxi33o",
		})
		s.Require().NoError(err)

		s.Equal(int64(3), version.Sequence)
		s.Len(version.Document.VerificationMethod, 2)
	})

	s.Run("removing an absent service burns no sequence", func() {
		version, err := s.service.RemoveService(s.ctx, s.did, s.owner, s.did.String()+"#never-added")
		s.Require().NoError(err)

		s.Equal(int64(3), version.Sequence)
		s.Len(s.history(), 3)
	})

	s.Run("removing the service commits sequence four", func() {
		version, err := s.service.RemoveService(s.ctx, s.did, s.owner, serviceID)
		s.Require().NoError(err)

		s.Equal(int64(4), version.Sequence)
		_, found := version.Document.FindService(serviceID)
		s.False(found)
	})

	s.Run("replacement keeps the chain identifier", func() {
		replacement := models.NewDocument(id.DID("did:sapphire:impostor0000000000000000000001"))
		replacement.Metadata = map[string]string{"profile": "v2"}

		version, err := s.service.ReplaceDocument(s.ctx, s.did, s.owner, replacement)
		s.Require().NoError(err)

		s.Equal(int64(5), version.Sequence)
		s.Equal(s.did, version.Document.ID)
		s.Equal("v2", version.Document.Metadata["profile"])
	})

	s.Run("history is the full contiguous chain", func() {
		versions := s.history()
		s.Require().Len(versions, 5)
		for i, version := range versions {
			s.Equal(int64(i+1), version.Sequence)
			s.Equal(s.owner, version.Owner)
			s.Equal(version.Sequence == 5, version.Active)
		}
	})

	s.Run("a stranger cannot extend the chain", func() {
		_, err := s.service.AddService(s.ctx, s.did, id.NewPrincipalID(), models.Service{
			ID:              s.did.String() + "#rogue",
			Type:            "MessagingHub",
			ServiceEndpoint: "https://rogue.example.com",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Len(s.history(), 5)
	})

	s.Run("deactivation ends the chain and keeps history", func() {
		err := s.service.DeactivateIdentity(s.ctx, s.did, s.owner)
		s.Require().NoError(err)

		versions := s.history()
		s.Require().Len(versions, 5)
		for _, version := range versions {
			s.False(version.Active)
		}
	})

	s.Run("deactivation is terminal", func() {
		err := s.service.DeactivateIdentity(s.ctx, s.did, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.service.RemoveService(s.ctx, s.did, s.owner, serviceID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.service.ReplaceDocument(s.ctx, s.did, s.owner, models.NewDocument(s.did))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestEachCreationMintsADistinctIdentity() {
	first, err := s.service.CreateIdentity(s.ctx, s.owner)
	s.Require().NoError(err)
	second, err := s.service.CreateIdentity(s.ctx, s.owner)
	s.Require().NoError(err)

	s.NotEqual(first.DID, second.DID)
}

func (s *LifecycleSuite) TestOwnerIsImmutableAcrossTheChain() {
	version, err := s.service.CreateIdentity(s.ctx, s.owner)
	s.Require().NoError(err)
	s.did = version.DID

	for i := 0; i < 3; i++ {
		_, err := s.service.AddService(s.ctx, s.did, s.owner, models.Service{
			ID:              s.did.String() + "#svc",
			Type:            "MessagingHub",
			ServiceEndpoint: "https://hub.example.com",
		})
		s.Require().NoError(err)
	}

	for _, v := range s.history() {
		s.Equal(s.owner, v.Owner)
	}
}

// Racing replacements may each win a distinct sequence (the loser retries on
// top of the winner) or report a conflict after the single retry; what they
// can never do is land two versions at the same sequence.
func (s *LifecycleSuite) TestConcurrentReplacementsNeverShareASequence() {
	version, err := s.service.CreateIdentity(s.ctx, s.owner)
	s.Require().NoError(err)
	s.did = version.DID

	const writers = 4
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			replacement := models.NewDocument(s.did)
			replacement.Metadata = map[string]string{"writer": strconv.Itoa(n)}
			_, err := s.service.ReplaceDocument(s.ctx, s.did, s.owner, replacement)
			results <- err
		}(i)
	}

	succeeded := 0
	for i := 0; i < writers; i++ {
		if err := <-results; err != nil {
			s.True(dErrors.HasCode(err, dErrors.CodeConflict))
			continue
		}
		succeeded++
	}
	s.Require().NotZero(succeeded)

	versions := s.history()
	s.Require().Len(versions, succeeded+1)
	for i, v := range versions {
		s.Equal(int64(i+1), v.Sequence)
		s.Equal(v.Sequence == int64(len(versions)), v.Active)
	}
}
