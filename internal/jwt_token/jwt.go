// Package jwttoken issues and validates the bearer tokens that gate
// identity mutations.
package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/0xshikhar/sapphire-did-sub000/internal/platform/config"
	id "github.com/0xshikhar/sapphire-did-sub000/pkg/domain"
	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// validationLeeway absorbs clock skew between the token issuer and this node.
const validationLeeway = 30 * time.Second

// JWTService issues and validates access tokens. With a signing key it runs
// self-contained HS256; with a JWKS URL verification uses the identity
// provider's published keys instead and token issuance stays disabled.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	jwks       keyfunc.Keyfunc
}

// NewJWTService builds the token service from configuration. JWKS keys are
// fetched eagerly and kept fresh by the keyfunc client.
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	s := &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.AccessTokenTTL,
	}

	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.NewDefaultCtx(context.Background(), []string{cfg.JWKSURL})
		if err != nil {
			return nil, fmt.Errorf("create JWKS client: %w", err)
		}
		s.jwks = jwks
	}

	return s, nil
}

// GenerateAccessToken signs an HS256 token for the given principal. Used by
// dev setups and tests; deployments behind an external provider do not issue
// tokens here.
func (s *JWTService) GenerateAccessToken(principal id.PrincipalID) (string, error) {
	if len(s.signingKey) == 0 {
		return "", errors.New("no signing key configured")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   principal.String(),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	})

	return token.SignedString(s.signingKey)
}

// ValidateToken checks signature, issuer, audience and expiry, and returns
// the principal named by the subject claim.
func (s *JWTService) ValidateToken(tokenString string) (id.PrincipalID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, s.keyFor,
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(validationLeeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.PrincipalID{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.PrincipalID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return id.PrincipalID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return id.PrincipalID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	principal, err := id.ParsePrincipalID(claims.Subject)
	if err != nil {
		return id.PrincipalID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	return principal, nil
}

// keyFor selects the verification key: the shared HS256 key by default,
// provider keys with asymmetric algorithms when a JWKS URL is configured.
// Restricting the algorithm per mode blocks algorithm confusion attacks.
func (s *JWTService) keyFor(token *jwt.Token) (any, error) {
	if s.jwks != nil {
		switch token.Method.Alg() {
		case "RS256", "RS384", "RS512", "ES256", "ES384", "ES512":
			return s.jwks.Keyfunc(token)
		default:
			return nil, jwt.ErrTokenUnverifiable
		}
	}

	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenUnverifiable
	}
	return s.signingKey, nil
}
