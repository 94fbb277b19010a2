package models

import "github.com/golang-jwt/jwt/v5"

// Role claim values accepted by the command-layer API.
const (
	ClaimRoleService = "service" // bots and other callers that request replies
	ClaimRoleAdmin   = "admin"   // operators; may also request replies
)

// Claims is the JWT payload issued to command-layer callers.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// GetUserID returns the caller identity from the subject claim.
func (c *Claims) GetUserID() string {
	return c.Subject
}

// IsAdmin reports whether the caller may use operator routes.
func (c *Claims) IsAdmin() bool {
	return c.Role == ClaimRoleAdmin
}
