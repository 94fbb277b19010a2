package repositories

import "context"

// FlagStore persists per-user disposition flags (e.g. models.FlagGrudge).
// Setting an already-set flag and clearing an unset flag are both no-ops.
type FlagStore interface {
	HasFlag(ctx context.Context, userID, flag string) (bool, error)
	SetFlag(ctx context.Context, userID, flag string) error
	ClearFlag(ctx context.Context, userID, flag string) error

	// ListFlagged returns user IDs carrying the flag, oldest first
	ListFlagged(ctx context.Context, flag string) ([]string, error)

	// ClearUserFlags removes every flag for a user
	ClearUserFlags(ctx context.Context, userID string) error
}
