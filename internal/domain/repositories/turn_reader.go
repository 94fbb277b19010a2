package repositories

import (
	"context"

	"yuri/internal/domain/models"
)

// TurnReader defines read operations over conversation history
type TurnReader interface {
	// RecentTurns returns the newest limit turns for a user, oldest first.
	// Returns an empty slice when the user has no history.
	RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error)

	// CountUsers returns how many distinct users have stored turns
	CountUsers(ctx context.Context) (int, error)
}
