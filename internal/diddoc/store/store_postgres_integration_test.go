//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/store"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "did_document_versions")
	s.Require().NoError(err)
}

func newTestDID() id.DID {
	return id.DID("did:sapphire:" + uuid.NewString())
}

func (s *PostgresStoreSuite) TestChainLifecycle() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)
	s.Equal(int64(1), v1.Sequence)
	s.True(v1.Active)

	active, err := s.store.GetActive(ctx, did)
	s.Require().NoError(err)
	s.Equal(v1.ID, active.ID)
	s.Equal(owner, active.Owner)

	doc := active.Document
	doc.Service = append(doc.Service, models.Service{ID: "svc-1", Type: "X", ServiceEndpoint: "https://e"})
	v2, err := s.store.CommitNextVersion(ctx, did, v1.ID, doc, owner)
	s.Require().NoError(err)
	s.Equal(int64(2), v2.Sequence)

	history, err := s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(int64(1), history[0].Sequence)
	s.False(history[0].Active)
	s.Equal(int64(2), history[1].Sequence)
	s.True(history[1].Active)
	s.Len(history[1].Document.Service, 1)

	s.Require().NoError(s.store.DeactivateAll(ctx, did, v2.ID))

	_, err = s.store.GetActive(ctx, did)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	history, err = s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *PostgresStoreSuite) TestInsertInitialRejectsExistingChain() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)

	_, err = s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// Deactivation is terminal; the identity cannot be re-created.
	s.Require().NoError(s.store.DeactivateAll(ctx, did, v1.ID))
	_, err = s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestStaleCommitWritesNothing() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)

	_, err = s.store.CommitNextVersion(ctx, did, id.NewVersionID(), models.NewDocument(did), owner)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	v2, err := s.store.CommitNextVersion(ctx, did, v1.ID, models.NewDocument(did), owner)
	s.Require().NoError(err)

	// The replaced id is spent; committing against it again conflicts.
	_, err = s.store.CommitNextVersion(ctx, did, v1.ID, models.NewDocument(did), owner)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	history, err := s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	s.Len(history, 2)

	active, err := s.store.GetActive(ctx, did)
	s.Require().NoError(err)
	s.Equal(v2.ID, active.ID)
}

func (s *PostgresStoreSuite) TestOwnerDeviationFails() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)

	_, err = s.store.CommitNextVersion(ctx, did, v1.ID, models.NewDocument(did), id.NewPrincipalID())
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	// The rolled-back flip leaves the original version active.
	active, err := s.store.GetActive(ctx, did)
	s.Require().NoError(err)
	s.Equal(v1.ID, active.ID)
	s.Equal(int64(1), active.Sequence)
}

// TestConcurrentCommitSingleWinner verifies that racing commits against the
// same observed active version admit exactly one successor.
func (s *PostgresStoreSuite) TestConcurrentCommitSingleWinner() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.CommitNextVersion(ctx, did, v1.ID, models.NewDocument(did), owner)
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one commit should win")
	s.Equal(int32(goroutines-1), conflicts.Load(), "all others should conflict")

	history, err := s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(int64(2), history[1].Sequence)
	s.True(history[1].Active)
}

// TestConcurrentCreateSingleWinner verifies that concurrent creation attempts
// for the same identity result in exactly one chain.
func (s *PostgresStoreSuite) TestConcurrentCreateSingleWinner() {
	ctx := context.Background()
	did := newTestDID()

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, duplicates atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), id.NewPrincipalID())
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), duplicates.Load(), "all others should see the existing chain")

	history, err := s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	s.Len(history, 1)
}

// TestConcurrentMutateAndDeactivate verifies mutation and deactivation are
// mutually exclusive through the same CAS: whichever flips the active row
// first decides the chain's fate.
func (s *PostgresStoreSuite) TestConcurrentMutateAndDeactivate() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	v1, err := s.store.InsertInitial(ctx, did, models.NewDocument(did), owner)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	var commitOK, deactivateOK atomic.Bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := s.store.CommitNextVersion(ctx, did, v1.ID, models.NewDocument(did), owner); err == nil {
			commitOK.Store(true)
		}
	}()
	go func() {
		defer wg.Done()
		if err := s.store.DeactivateAll(ctx, did, v1.ID); err == nil {
			deactivateOK.Store(true)
		}
	}()
	wg.Wait()

	s.NotEqual(commitOK.Load(), deactivateOK.Load(), "exactly one of commit and deactivate must win")

	history, err := s.store.GetHistory(ctx, did)
	s.Require().NoError(err)
	if commitOK.Load() {
		s.Len(history, 2)
		active, err := s.store.GetActive(ctx, did)
		s.Require().NoError(err)
		s.Equal(int64(2), active.Sequence)
	} else {
		s.Len(history, 1)
		_, err := s.store.GetActive(ctx, did)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	}
}

// TestDocumentRoundTrip verifies the JSONB payload survives storage intact.
func (s *PostgresStoreSuite) TestDocumentRoundTrip() {
	ctx := context.Background()
	did := newTestDID()
	owner := id.NewPrincipalID()

	doc := models.NewDocument(did)
	doc.VerificationMethod = []models.VerificationMethod{{
		ID:                 did.String() + "#key-1",
		Type:               "Ed25519VerificationKey2020",
		Controller:         did.String(),
		PublicKeyMultibase: "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK",
	}}
	doc.Metadata = map[string]string{"label": "primary"}

	_, err := s.store.InsertInitial(ctx, did, doc, owner)
	s.Require().NoError(err)

	active, err := s.store.GetActive(ctx, did)
	s.Require().NoError(err)
	s.Equal(doc.VerificationMethod, active.Document.VerificationMethod)
	s.Equal(doc.Metadata, active.Document.Metadata)
	s.Equal([]string{models.W3CDIDContext}, active.Document.Context)
}
