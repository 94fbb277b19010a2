package services

import (
	"context"

	"yuri/internal/domain/models"
)

// AdminService is the operator surface shared by the HTTP API and the CLI.
type AdminService interface {
	AddGrudge(ctx context.Context, userID string) error
	RemoveGrudge(ctx context.Context, userID string) error
	Grudges(ctx context.Context) ([]string, error)

	// WipeUser deletes a user's history and flags, returning the turn count
	WipeUser(ctx context.Context, userID string) (int64, error)
	WipeAll(ctx context.Context) (int64, error)
	CountUsers(ctx context.Context) (int, error)
	Transcript(ctx context.Context, userID string, limit int) ([]models.Turn, error)

	ProviderStatus() models.ProviderStatus
	// ResetBackend closes one breaker, or every breaker for ""
	ResetBackend(name string) error
}
