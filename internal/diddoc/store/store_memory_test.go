package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	owner id.PrincipalID
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.owner = id.NewPrincipalID()
}

func (s *MemoryStoreSuite) newDoc(did id.DID) models.Document {
	return models.NewDocument(did)
}

func (s *MemoryStoreSuite) TestInsertInitial() {
	did := id.DID("did:sapphire:alpha")

	s.Run("creates version one, active", func() {
		v, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
		s.Require().NoError(err)
		s.Equal(int64(1), v.Sequence)
		s.True(v.Active)
		s.Equal(s.owner, v.Owner)
	})

	s.Run("rejects a second chain for the same identity", func() {
		_, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rejects even when the chain is deactivated", func() {
		active, err := s.store.GetActive(s.ctx, did)
		s.Require().NoError(err)
		s.Require().NoError(s.store.DeactivateAll(s.ctx, did, active.ID))

		_, err = s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("stamps creation time from the request context", func() {
		fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), fixed)

		v, err := s.store.InsertInitial(ctx, id.DID("did:sapphire:clock"), s.newDoc("did:sapphire:clock"), s.owner)
		s.Require().NoError(err)
		s.Equal(fixed, v.CreatedAt)
	})
}

func (s *MemoryStoreSuite) TestReads() {
	did := id.DID("did:sapphire:reads")

	s.Run("GetActive misses for an unknown identity", func() {
		_, err := s.store.GetActive(s.ctx, did)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("GetHistory is empty for an unknown identity", func() {
		history, err := s.store.GetHistory(s.ctx, did)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("GetActive returns the committed head", func() {
		v1, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
		s.Require().NoError(err)

		v2, err := s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), s.owner)
		s.Require().NoError(err)

		active, err := s.store.GetActive(s.ctx, did)
		s.Require().NoError(err)
		s.Equal(v2.ID, active.ID)
		s.Equal(int64(2), active.Sequence)
	})

	s.Run("returned versions are isolated from stored state", func() {
		active, err := s.store.GetActive(s.ctx, did)
		s.Require().NoError(err)
		active.Document.Service = append(active.Document.Service, models.Service{ID: "smuggled"})
		active.Active = false

		again, err := s.store.GetActive(s.ctx, did)
		s.Require().NoError(err)
		s.Empty(again.Document.Service)
		s.True(again.Active)
	})
}

func (s *MemoryStoreSuite) TestCommitNextVersion() {
	did := id.DID("did:sapphire:commit")
	v1, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
	s.Require().NoError(err)

	s.Run("stale expected id conflicts and writes nothing", func() {
		_, err := s.store.CommitNextVersion(s.ctx, did, id.NewVersionID(), s.newDoc(did), s.owner)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		history, err := s.store.GetHistory(s.ctx, did)
		s.Require().NoError(err)
		s.Len(history, 1)
	})

	s.Run("owner deviation fails before any write", func() {
		_, err := s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), id.NewPrincipalID())
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		active, err := s.store.GetActive(s.ctx, did)
		s.Require().NoError(err)
		s.Equal(v1.ID, active.ID)
	})

	s.Run("commit flips the predecessor and appends the successor", func() {
		v2, err := s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), s.owner)
		s.Require().NoError(err)
		s.Equal(int64(2), v2.Sequence)

		history, err := s.store.GetHistory(s.ctx, did)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.False(history[0].Active)
		s.True(history[1].Active)
	})

	s.Run("the replaced id cannot be committed against again", func() {
		_, err := s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), s.owner)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *MemoryStoreSuite) TestDeactivateAll() {
	did := id.DID("did:sapphire:deactivate")
	v1, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
	s.Require().NoError(err)

	s.Run("stale expected id conflicts", func() {
		err := s.store.DeactivateAll(s.ctx, did, id.NewVersionID())
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("flips the active version and inserts nothing", func() {
		s.Require().NoError(s.store.DeactivateAll(s.ctx, did, v1.ID))

		_, err := s.store.GetActive(s.ctx, did)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		history, err := s.store.GetHistory(s.ctx, did)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.False(history[0].Active)
	})

	s.Run("deactivation is terminal", func() {
		err := s.store.DeactivateAll(s.ctx, did, v1.ID)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		_, err = s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), s.owner)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestConcurrentCommitSingleWinner verifies the CAS admits exactly one
// successor per observed active version, no matter how many writers race.
func (s *MemoryStoreSuite) TestConcurrentCommitSingleWinner() {
	did := id.DID("did:sapphire:race")
	v1, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
	s.Require().NoError(err)

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.CommitNextVersion(s.ctx, did, v1.ID, s.newDoc(did), s.owner)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one commit should win")
	s.Equal(int32(goroutines-1), conflicts.Load(), "all others should conflict")

	history, err := s.store.GetHistory(s.ctx, did)
	s.Require().NoError(err)
	s.Len(history, 2)
	s.assertChainInvariants(history)
}

// TestConcurrentChainedCommits drives many writers that re-fetch the head
// between attempts and verifies the chain stays contiguous with one active
// version at every step.
func (s *MemoryStoreSuite) TestConcurrentChainedCommits() {
	did := id.DID("did:sapphire:chained")
	_, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), s.owner)
	s.Require().NoError(err)

	const goroutines = 20
	var wg sync.WaitGroup
	var committed atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				head, err := s.store.GetActive(s.ctx, did)
				if err != nil {
					return
				}
				_, err = s.store.CommitNextVersion(s.ctx, did, head.ID, s.newDoc(did), s.owner)
				if err == nil {
					committed.Add(1)
					return
				}
				if !errors.Is(err, sentinel.ErrConflict) {
					return
				}
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(goroutines), committed.Load())

	history, err := s.store.GetHistory(s.ctx, did)
	s.Require().NoError(err)
	s.Len(history, goroutines+1)
	s.assertChainInvariants(history)
}

// TestConcurrentCreateSingleWinner verifies duplicate identity creation under
// concurrency admits exactly one chain.
func (s *MemoryStoreSuite) TestConcurrentCreateSingleWinner() {
	did := id.DID("did:sapphire:create-race")

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, duplicates atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.InsertInitial(s.ctx, did, s.newDoc(did), id.NewPrincipalID())
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), duplicates.Load())

	history, err := s.store.GetHistory(s.ctx, did)
	s.Require().NoError(err)
	s.Len(history, 1)
}

// assertChainInvariants checks contiguous sequences from one and at most one
// active version, which must be the newest.
func (s *MemoryStoreSuite) assertChainInvariants(history []*models.DocumentVersion) {
	activeCount := 0
	for i, v := range history {
		s.Equal(int64(i+1), v.Sequence, "sequences must be contiguous from 1")
		if v.Active {
			activeCount++
			s.Equal(history[len(history)-1].ID, v.ID, "only the newest version may be active")
		}
	}
	s.LessOrEqual(activeCount, 1, "at most one active version")
}
