package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,IdentityMinter

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/0xshikhar/sapphire-did-sub000/internal/agent"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

var tracer = otel.Tracer("github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/service")

// casAttempts is one fresh attempt plus exactly one silent retry after a
// lost compare-and-set race. A second lost race surfaces CodeConflict.
const casAttempts = 2

type Store interface {
	InsertInitial(ctx context.Context, did id.DID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error)
	GetActive(ctx context.Context, did id.DID) (*models.DocumentVersion, error)
	CommitNextVersion(ctx context.Context, did id.DID, expectedActiveID id.VersionID, doc models.Document, owner id.PrincipalID) (*models.DocumentVersion, error)
	DeactivateAll(ctx context.Context, did id.DID, expectedActiveID id.VersionID) error
}

type IdentityMinter interface {
	MintIdentity(ctx context.Context) (agent.Minted, error)
}

// Service owns every write to an identity's version chain: creation,
// document mutation and deactivation. Reads go through the resolver.
//
// Every mutation runs the same loop: fetch the active version, gate on
// ownership, apply the mutator, commit the successor under compare-and-set.
// The ownership gate always runs against the version fetched for the
// current attempt, never a cached decision.
type Service struct {
	store   Store
	minter  IdentityMinter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, minter IdentityMinter, opts ...Option) *Service {
	s := &Service{store: store, minter: minter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIdentity mints a new identity through the agent and stores its
// first document version, owned by the calling principal.
func (s *Service) CreateIdentity(ctx context.Context, principal id.PrincipalID) (*models.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "diddoc.create_identity")
	defer span.End()

	if principal.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}

	minted, err := s.minter.MintIdentity(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			return nil, dErrors.New(dErrors.CodeUnavailable, "identity agent unavailable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint identity")
	}
	span.SetAttributes(attribute.String("did", minted.DID.String()))

	version, err := s.store.InsertInitial(ctx, minted.DID, minted.Document, principal)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeAlreadyExists, "identity already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store initial version")
	}

	s.logInfo(ctx, "identity created", "did", version.DID.String(), "owner", principal.String())
	s.metrics.IncrementIdentityCreates()
	return version, nil
}

// ReplaceDocument substitutes the entire document payload as a new version.
func (s *Service) ReplaceDocument(ctx context.Context, did id.DID, principal id.PrincipalID, doc models.Document) (*models.DocumentVersion, error) {
	return s.mutate(ctx, did, principal, ReplaceDocument(doc))
}

// AddVerificationMethod appends a verification method as a new version.
func (s *Service) AddVerificationMethod(ctx context.Context, did id.DID, principal id.PrincipalID, method models.VerificationMethod) (*models.DocumentVersion, error) {
	return s.mutate(ctx, did, principal, AddVerificationMethod(method))
}

// AddService appends a service endpoint as a new version.
func (s *Service) AddService(ctx context.Context, did id.DID, principal id.PrincipalID, svc models.Service) (*models.DocumentVersion, error) {
	return s.mutate(ctx, did, principal, AddService(svc))
}

// RemoveService removes the service entry with the given id. Removing an
// absent entry is not an error: the current version is returned unchanged
// and nothing is committed.
func (s *Service) RemoveService(ctx context.Context, did id.DID, principal id.PrincipalID, serviceID string) (*models.DocumentVersion, error) {
	return s.mutate(ctx, did, principal, RemoveService(serviceID))
}

// DeactivateIdentity retires the identity. The chain keeps its history but
// has no active version afterwards, and the identity can never be revived.
func (s *Service) DeactivateIdentity(ctx context.Context, did id.DID, principal id.PrincipalID) error {
	ctx, span := tracer.Start(ctx, "diddoc.deactivate_identity", trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	if err := requireDID(did); err != nil {
		return err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		if attempt > 0 {
			span.SetAttributes(attribute.Bool("retried", true))
			s.metrics.IncrementMutationRetries()
		}

		current, err := s.fetchOwned(ctx, did, principal)
		if err != nil {
			return err
		}

		err = s.store.DeactivateAll(ctx, did, current.ID)
		if err == nil {
			s.logInfo(ctx, "identity deactivated", "did", did.String(), "last_sequence", current.Sequence)
			s.metrics.IncrementDocumentMutations("deactivate_identity")
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate identity")
		}
		s.metrics.IncrementMutationConflicts()
		s.logWarn(ctx, "lost version race", "did", did.String(), "attempt", attempt+1)
	}
	return dErrors.New(dErrors.CodeConflict, "identity was modified concurrently")
}

// mutate runs the chain algorithm for one mutator.
func (s *Service) mutate(ctx context.Context, did id.DID, principal id.PrincipalID, m Mutator) (*models.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "diddoc."+m.Name(), trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	if err := requireDID(did); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		if attempt > 0 {
			span.SetAttributes(attribute.Bool("retried", true))
			s.metrics.IncrementMutationRetries()
		}

		current, err := s.fetchOwned(ctx, did, principal)
		if err != nil {
			return nil, err
		}

		next, changed, err := m.Apply(current.Document)
		if err != nil {
			return nil, err
		}
		if !changed {
			span.SetAttributes(attribute.Int64("sequence", current.Sequence))
			return current, nil
		}

		committed, err := s.store.CommitNextVersion(ctx, did, current.ID, next, current.Owner)
		if err == nil {
			span.SetAttributes(attribute.Int64("sequence", committed.Sequence))
			s.metrics.IncrementDocumentMutations(m.Name())
			return committed, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit next version")
		}
		s.metrics.IncrementMutationConflicts()
		s.logWarn(ctx, "lost version race", "did", did.String(), "attempt", attempt+1)
	}
	return nil, dErrors.New(dErrors.CodeConflict, "identity was modified concurrently")
}

// fetchOwned loads the active version and gates on ownership. The caller's
// principal must own the chain; the check runs before any mutator and
// before anything is written.
func (s *Service) fetchOwned(ctx context.Context, did id.DID, principal id.PrincipalID) (*models.DocumentVersion, error) {
	current, err := s.store.GetActive(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active version")
	}
	if !current.IsOwnedBy(principal) {
		return nil, dErrors.New(dErrors.CodeForbidden, "principal does not own this identity")
	}
	return current, nil
}

func requireDID(did id.DID) error {
	if did.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "did is required")
	}
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.WarnContext(ctx, msg, args...)
}
