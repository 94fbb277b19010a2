package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"yuri/internal/domain/repositories"
)

// PostgresFlagRepository implements repositories.FlagStore
type PostgresFlagRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewFlagRepository creates a new PostgresFlagRepository
func NewFlagRepository(config *RepositoryConfig) repositories.FlagStore {
	return &PostgresFlagRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *PostgresFlagRepository) HasFlag(ctx context.Context, userID, flag string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT created_at
		FROM %s
		WHERE user_id = $1 AND flag = $2
	`, r.tables.UserFlags)

	var setAt time.Time
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, userID, flag).Scan(&setAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("get user flag: %w", err)
	}
	return true, nil
}

// SetFlag upserts the flag; setting it twice keeps the original timestamp.
func (r *PostgresFlagRepository) SetFlag(ctx context.Context, userID, flag string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, flag, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, flag) DO NOTHING
	`, r.tables.UserFlags)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, userID, flag, time.Now().UTC()); err != nil {
		return fmt.Errorf("set user flag: %w", err)
	}
	return nil
}

func (r *PostgresFlagRepository) ClearFlag(ctx context.Context, userID, flag string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND flag = $2`, r.tables.UserFlags)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, userID, flag); err != nil {
		return fmt.Errorf("clear user flag: %w", err)
	}
	return nil
}

func (r *PostgresFlagRepository) ClearUserFlags(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.tables.UserFlags)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear user flags: %w", err)
	}
	return nil
}

func (r *PostgresFlagRepository) ListFlagged(ctx context.Context, flag string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT user_id
		FROM %s
		WHERE flag = $1
		ORDER BY created_at ASC, user_id ASC
	`, r.tables.UserFlags)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, flag)
	if err != nil {
		return nil, fmt.Errorf("list flagged users: %w", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan flagged user: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flagged users: %w", err)
	}
	return users, nil
}
