package repositories

import (
	"context"
	"time"

	"yuri/internal/domain/models"
)

// TurnWriter defines write operations over conversation history
type TurnWriter interface {
	// AppendTurn stores a turn. ID is assigned when empty.
	// Turns with equal CreatedAt keep insertion order.
	AppendTurn(ctx context.Context, turn *models.Turn) error

	// DeleteUserTurns removes a user's whole history and returns the row count
	DeleteUserTurns(ctx context.Context, userID string) (int64, error)

	// DeleteAllTurns removes every user's history
	DeleteAllTurns(ctx context.Context) (int64, error)

	// PurgeTurnsBefore removes turns created before cutoff (retention window)
	PurgeTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TurnStore combines reader and writer for wiring convenience
type TurnStore interface {
	TurnReader
	TurnWriter
}
