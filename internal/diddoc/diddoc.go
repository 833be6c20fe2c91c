package diddoc

import (
	"log/slog"

	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/handler"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/resolver"
	"github.com/0xshikhar/sapphire-did-sub000/internal/diddoc/service"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/metrics"
	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/middleware"
)

// Service owns every write to an identity's version chain.
type Service = service.Service

// Resolver answers document reads, local chains first.
type Resolver = resolver.Resolver

// Handler wires HTTP endpoints to the document service and resolver.
type Handler = handler.Handler

// NewService constructs the document service with required dependencies.
func NewService(store service.Store, minter service.IdentityMinter, opts ...service.Option) *Service {
	return service.New(store, minter, opts...)
}

// NewResolver constructs the read-side resolver.
func NewResolver(store resolver.Store, external resolver.ExternalResolver, opts ...resolver.Option) *Resolver {
	return resolver.New(store, external, opts...)
}

// NewHandler constructs the HTTP handler for the identity document routes.
func NewHandler(
	svc handler.Service,
	res handler.Resolver,
	tokens middleware.TokenValidator,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...handler.Option) *Handler {
	return handler.New(svc, res, tokens, logger, m, opts...)
}
