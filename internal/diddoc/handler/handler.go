// Package handler exposes the identity document API over HTTP: identity
// lifecycle and document mutations behind bearer auth, resolution and
// history as public reads.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/models"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/resolver"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/middleware"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/audit"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/platform/httputil"
	"github.com/0xshikhar/sapphire-did-sub000/pkg/requestcontext"
)

const defaultRequestTimeout = 15 * time.Second

// Service defines the mutation operations the HTTP layer drives.
type Service interface {
	CreateIdentity(ctx context.Context, principal id.PrincipalID) (*models.DocumentVersion, error)
	ReplaceDocument(ctx context.Context, did id.DID, principal id.PrincipalID, doc models.Document) (*models.DocumentVersion, error)
	AddVerificationMethod(ctx context.Context, did id.DID, principal id.PrincipalID, method models.VerificationMethod) (*models.DocumentVersion, error)
	AddService(ctx context.Context, did id.DID, principal id.PrincipalID, svc models.Service) (*models.DocumentVersion, error)
	RemoveService(ctx context.Context, did id.DID, principal id.PrincipalID, serviceID string) (*models.DocumentVersion, error)
	DeactivateIdentity(ctx context.Context, did id.DID, principal id.PrincipalID) error
}

// Resolver serves the read side: current documents and version history.
type Resolver interface {
	Resolve(ctx context.Context, did id.DID) (*resolver.Resolution, error)
	History(ctx context.Context, did id.DID) ([]*models.DocumentVersion, error)
}

// CacheInvalidator drops a cached resolution after a mutation commits.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, did id.DID) error
}

// AuditPublisher records one event per completed operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler handles identity document endpoints.
type Handler struct {
	logger         *slog.Logger
	service        Service
	resolver       Resolver
	tokens         middleware.TokenValidator
	metrics        *metrics.Metrics
	audit          AuditPublisher
	cache          CacheInvalidator
	requestTimeout time.Duration
}

type Option func(h *Handler)

// WithAuditPublisher records audit events for completed operations,
// including reads.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(h *Handler) {
		h.audit = p
	}
}

// WithCacheInvalidator drops cached resolutions after each mutation so the
// next read sees the committed version.
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New creates a new identity document Handler.
func New(
	service Service,
	res Resolver,
	tokens middleware.TokenValidator,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option) *Handler {
	h := &Handler{
		logger:         logger,
		service:        service,
		resolver:       res,
		tokens:         tokens,
		metrics:        m,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the identity document routes with the chi router. The
// handler owns its middleware chain; auth applies to mutations only, reads
// stay public.
func (h *Handler) Register(r chi.Router) {
	didRouter := chi.NewRouter()
	didRouter.Use(middleware.Recovery(h.logger))
	didRouter.Use(middleware.RequestID)
	didRouter.Use(middleware.RequestTime)
	didRouter.Use(middleware.Logger(h.logger))
	didRouter.Use(middleware.Timeout(h.requestTimeout))
	didRouter.Use(middleware.ContentTypeJSON)
	didRouter.Use(middleware.LatencyMiddleware(h.metrics))
	didRouter.Use(middleware.ClientMetadata)

	didRouter.Get("/v1/dids/{did}", h.handleResolve)
	didRouter.Get("/v1/dids/{did}/history", h.handleHistory)

	didRouter.Group(func(g chi.Router) {
		g.Use(middleware.RequireAuth(h.tokens, h.logger))
		g.Post("/v1/dids", h.handleCreateIdentity)
		g.Put("/v1/dids/{did}/document", h.handleReplaceDocument)
		g.Post("/v1/dids/{did}/verification-methods", h.handleAddVerificationMethod)
		g.Post("/v1/dids/{did}/services", h.handleAddService)
		g.Delete("/v1/dids/{did}/services/{serviceID}", h.handleRemoveService)
		g.Delete("/v1/dids/{did}", h.handleDeactivateIdentity)
	})

	r.Mount("/", didRouter)
}

// handleCreateIdentity mints a new identity owned by the authenticated
// principal and stores its first document version.
func (h *Handler) handleCreateIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	version, err := h.service.CreateIdentity(ctx, principal)
	if err != nil {
		h.respondError(ctx, w, "create identity", err)
		return
	}

	h.emit(ctx, audit.EventIdentityCreated, version.DID, version.Sequence)
	httputil.WriteJSON(w, http.StatusCreated, newVersionResponse(version))
}

// handleResolve returns the current document for an identity, delegating to
// the external agent for identities this node does not manage.
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}

	res, err := h.resolver.Resolve(ctx, did)
	if err != nil {
		h.respondError(ctx, w, "resolve document", err)
		return
	}

	h.emit(ctx, audit.EventDocumentResolved, did, res.Sequence)
	httputil.WriteJSON(w, http.StatusOK, newResolveResponse(did.String(), res))
}

// handleHistory returns the identity's full version chain, oldest first.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}

	versions, err := h.resolver.History(ctx, did)
	if err != nil {
		h.respondError(ctx, w, "load history", err)
		return
	}

	h.emit(ctx, audit.EventHistoryAccessed, did, 0)
	httputil.WriteJSON(w, http.StatusOK, newHistoryResponse(versions))
}

// handleReplaceDocument swaps in a caller-supplied document as the next
// version of the identity's chain.
func (h *Handler) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	var req ReplaceDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	version, err := h.service.ReplaceDocument(ctx, did, principal, *req.Document)
	if err != nil {
		h.respondError(ctx, w, "replace document", err)
		return
	}

	h.invalidateCache(ctx, did)
	h.emit(ctx, audit.EventDocumentReplaced, did, version.Sequence)
	httputil.WriteJSON(w, http.StatusOK, newVersionResponse(version))
}

// handleAddVerificationMethod appends one verification method to the
// identity's current document.
func (h *Handler) handleAddVerificationMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	var req AddVerificationMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	version, err := h.service.AddVerificationMethod(ctx, did, principal, *req.Method)
	if err != nil {
		h.respondError(ctx, w, "add verification method", err)
		return
	}

	h.invalidateCache(ctx, did)
	h.emit(ctx, audit.EventMethodAdded, did, version.Sequence)
	httputil.WriteJSON(w, http.StatusOK, newVersionResponse(version))
}

// handleAddService appends one service endpoint to the identity's current
// document.
func (h *Handler) handleAddService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	var req AddServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	version, err := h.service.AddService(ctx, did, principal, *req.Service)
	if err != nil {
		h.respondError(ctx, w, "add service", err)
		return
	}

	h.invalidateCache(ctx, did)
	h.emit(ctx, audit.EventServiceAdded, did, version.Sequence)
	httputil.WriteJSON(w, http.StatusOK, newVersionResponse(version))
}

// handleRemoveService removes one service endpoint, by id, from the
// identity's current document.
func (h *Handler) handleRemoveService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	// Service ids are fragments like "#hub"; the router sees them escaped.
	serviceID, err := url.PathUnescape(chi.URLParam(r, "serviceID"))
	if err != nil || serviceID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid service id"))
		return
	}

	version, err := h.service.RemoveService(ctx, did, principal, serviceID)
	if err != nil {
		h.respondError(ctx, w, "remove service", err)
		return
	}

	h.invalidateCache(ctx, did)
	h.emit(ctx, audit.EventServiceRemoved, did, version.Sequence)
	httputil.WriteJSON(w, http.StatusOK, newVersionResponse(version))
}

// handleDeactivateIdentity retires the identity. The chain stays readable
// through history; no version is ever active again.
func (h *Handler) handleDeactivateIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did, ok := h.didFromPath(w, r)
	if !ok {
		return
	}
	principal, ok := h.principalFrom(ctx, w)
	if !ok {
		return
	}

	if err := h.service.DeactivateIdentity(ctx, did, principal); err != nil {
		h.respondError(ctx, w, "deactivate identity", err)
		return
	}

	h.invalidateCache(ctx, did)
	h.emit(ctx, audit.EventIdentityDeactivated, did, 0)
	w.WriteHeader(http.StatusNoContent)
}

// didFromPath parses the did path parameter. Clients may send it escaped;
// chi hands the segment back still encoded.
func (h *Handler) didFromPath(w http.ResponseWriter, r *http.Request) (id.DID, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "did"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid did"))
		return "", false
	}
	did, err := id.ParseDID(raw)
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid did in path",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return "", false
	}
	return did, true
}

// principalFrom reads the authenticated principal set by RequireAuth.
func (h *Handler) principalFrom(ctx context.Context, w http.ResponseWriter) (id.PrincipalID, bool) {
	principal := requestcontext.Principal(ctx)
	if principal.IsZero() {
		// This should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.PrincipalID{}, false
	}
	return principal, true
}

// respondError logs and writes a failed operation. Client-caused failures
// log at warn and pass through unchanged; everything else logs at error and
// reaches the client as its bare code.
func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.HTTPStatus(err) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, op+" rejected",
			"error", err,
			"request_id", requestID,
		)
	} else {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", requestID,
		)
	}
	httputil.WriteError(w, err)
}

// emit records one audit event for a completed operation. Audit failures are
// logged and swallowed; the caller already holds a committed result.
func (h *Handler) emit(ctx context.Context, action audit.AuditEvent, subject id.DID, sequence int64) {
	if h.audit == nil {
		return
	}
	event := audit.Event{
		Principal: requestcontext.Principal(ctx),
		Subject:   subject.String(),
		Action:    string(action),
		Sequence:  sequence,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.DeviceLabel(ctx),
	}
	if err := h.audit.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "audit emit failed",
			"action", string(action),
			"error", err,
		)
	}
}

// invalidateCache drops the cached resolution so the next read sees the
// committed version. A failed invalidation is logged; the cache TTL bounds
// the staleness window.
func (h *Handler) invalidateCache(ctx context.Context, did id.DID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, did); err != nil {
		h.logger.WarnContext(ctx, "cache invalidation failed",
			"did", did.String(),
			"error", err,
		)
	}
}
