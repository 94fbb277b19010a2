package auth

import "yuri/internal/domain/models"

// JWTVerifier validates bearer tokens for the command-layer API.
type JWTVerifier interface {
	// VerifyToken returns the token's claims, or domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.Claims, error)

	// Close releases resources held by the verifier.
	Close() error
}
