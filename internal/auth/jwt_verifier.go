package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
)

// allowedAlgs are the only signing algorithms accepted.
var allowedAlgs = []string{"RS256", "ES256"}

// KeyfuncVerifier implements JWTVerifier against a key lookup, normally a JWKS.
type KeyfuncVerifier struct {
	keyfunc jwt.Keyfunc
	logger  *slog.Logger
}

// NewJWTVerifier fetches signing keys from jwksURL. keyfunc caches and
// refreshes them in the background for the life of ctx.
func NewJWTVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*KeyfuncVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return NewKeyfuncVerifier(jwks.Keyfunc, logger), nil
}

// NewKeyfuncVerifier verifies tokens with an arbitrary key lookup.
func NewKeyfuncVerifier(kf jwt.Keyfunc, logger *slog.Logger) *KeyfuncVerifier {
	return &KeyfuncVerifier{keyfunc: kf, logger: logger}
}

// VerifyToken parses and validates a token. Every failure maps to
// domain.ErrUnauthorized; the cause is only logged.
func (v *KeyfuncVerifier) VerifyToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, v.keyfunc,
		jwt.WithValidMethods(allowedAlgs),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	switch claims.Role {
	case models.ClaimRoleService, models.ClaimRoleAdmin:
	default:
		v.logger.Warn("token has unexpected role", "role", claims.Role, "subject", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close is a no-op; keyfunc's refresh goroutine ends with its context.
func (v *KeyfuncVerifier) Close() error {
	v.logger.Info("JWT verifier closed")
	return nil
}
