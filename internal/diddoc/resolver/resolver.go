// Package resolver serves reads over identity documents: local chains first,
// then delegation to the external identity agent for identities this node
// does not manage.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/sentinel"
)

var tracer = otel.Tracer("github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/resolver")

// defaultExternalTimeout bounds one delegation to the identity agent.
const defaultExternalTimeout = 3 * time.Second

type Store interface {
	GetActive(ctx context.Context, did id.DID) (*models.DocumentVersion, error)
	GetHistory(ctx context.Context, did id.DID) ([]*models.DocumentVersion, error)
}

type ExternalResolver interface {
	ResolveExternally(ctx context.Context, did id.DID) (*models.Document, error)
}

// ReadCache holds recently resolved local documents. Get and Set are best
// effort: a cache failure is a miss, never an error.
type ReadCache interface {
	Get(ctx context.Context, did id.DID) (*Resolution, bool)
	Set(ctx context.Context, did id.DID, res *Resolution)
}

// Resolution is the answer to a resolve: the document plus where it came
// from. Sequence is zero for external answers; foreign identities expose no
// version chain here.
type Resolution struct {
	Document models.Document
	Sequence int64
	Local    bool
}

// Resolver answers document reads. Locally stored identities are served
// from their active version, optionally through a short-lived read cache.
// Unknown identities are delegated to the external agent under a timeout,
// with concurrent delegations for the same identity collapsed into one
// agent call. External answers are never cached or persisted.
type Resolver struct {
	store    Store
	external ExternalResolver
	cache    ReadCache
	timeout  time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(r *Resolver)

// WithTimeout bounds each external delegation.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithCache serves local resolves through a read cache. The mutation path
// never sees the cache; the handler invalidates it after each commit.
func WithCache(cache ReadCache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New constructs a Resolver. The external agent is a required collaborator;
// there is no lazy default.
func New(store Store, external ExternalResolver, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		external: external,
		timeout:  defaultExternalTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the current document for an identity.
func (r *Resolver) Resolve(ctx context.Context, did id.DID) (*Resolution, error) {
	ctx, span := tracer.Start(ctx, "diddoc.resolve", trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	if did.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "did is required")
	}

	if r.cache != nil {
		if res, ok := r.cache.Get(ctx, did); ok {
			r.metrics.IncrementResolveCacheEvents("hit")
			r.metrics.IncrementResolutions("local", "ok")
			span.SetAttributes(attribute.Bool("local", true), attribute.Bool("cached", true))
			return res, nil
		}
		r.metrics.IncrementResolveCacheEvents("miss")
	} else {
		r.metrics.IncrementResolveCacheEvents("bypass")
	}

	version, err := r.store.GetActive(ctx, did)
	if err == nil {
		res := &Resolution{Document: version.Document, Sequence: version.Sequence, Local: true}
		if r.cache != nil {
			r.cache.Set(ctx, did, res)
		}
		r.metrics.IncrementResolutions("local", "ok")
		span.SetAttributes(attribute.Bool("local", true), attribute.Int64("sequence", version.Sequence))
		return res, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve locally")
	}

	return r.resolveExternal(ctx, did, span)
}

// History returns the identity's full local chain, oldest first. An empty
// chain means the identity was never seen here: a locally created identity
// keeps at least one row forever, deactivated or not.
func (r *Resolver) History(ctx context.Context, did id.DID) ([]*models.DocumentVersion, error) {
	ctx, span := tracer.Start(ctx, "diddoc.history", trace.WithAttributes(
		attribute.String("did", did.String()),
	))
	defer span.End()

	if did.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "did is required")
	}

	versions, err := r.store.GetHistory(ctx, did)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	if len(versions) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
	}
	span.SetAttributes(attribute.Int("versions", len(versions)))
	return versions, nil
}

// resolveExternal delegates to the agent. Concurrent resolves for the same
// identity collapse into a single agent call; every external answer is
// served fresh.
func (r *Resolver) resolveExternal(ctx context.Context, did id.DID, span trace.Span) (*Resolution, error) {
	v, err, shared := r.group.Do(did.String(), func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		doc, err := r.external.ResolveExternally(callCtx, did)
		if err != nil {
			return nil, err
		}
		return &Resolution{Document: *doc, Local: false}, nil
	})
	span.SetAttributes(attribute.Bool("local", false), attribute.Bool("deduplicated", shared))

	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.metrics.IncrementResolutions("external", "not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		r.metrics.IncrementResolutions("external", "unavailable")
		if r.logger != nil {
			r.logger.WarnContext(ctx, "external resolution failed", "did", did.String(), "error", err)
		}
		return nil, dErrors.New(dErrors.CodeUnavailable, "external resolution unavailable")
	}

	r.metrics.IncrementResolutions("external", "ok")
	return v.(*Resolution), nil
}
