package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"yuri/internal/domain/models"
	"yuri/internal/domain/repositories"
)

// PostgresTurnRepository implements repositories.TurnStore using PostgreSQL
type PostgresTurnRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewTurnRepository creates a new PostgresTurnRepository
func NewTurnRepository(config *RepositoryConfig) repositories.TurnStore {
	return &PostgresTurnRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// AppendTurn inserts a turn. Parts are stored as a JSONB array.
func (r *PostgresTurnRepository) AppendTurn(ctx context.Context, turn *models.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	parts, err := json.Marshal(turn.Parts)
	if err != nil {
		return fmt.Errorf("encode turn parts: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, role, parts, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Turns)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query,
		turn.ID,
		turn.UserID,
		string(turn.Role),
		parts,
		turn.CreatedAt,
	); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	return nil
}

// RecentTurns selects the newest turns, then flips them to chronological order.
func (r *PostgresTurnRepository) RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id::text, user_id, role, parts, created_at
		FROM (
			SELECT id, seq, user_id, role, parts, created_at
			FROM %s
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, seq ASC
	`, r.tables.Turns)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, limit)
	if err != nil {
		if IsPgUndefinedTableError(err) {
			return nil, fmt.Errorf("query recent turns: table %s missing: %w", r.tables.Turns, err)
		}
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns := make([]models.Turn, 0, limit)
	for rows.Next() {
		turn, err := scanTurnRow(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, *turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent turns: %w", err)
	}

	return turns, nil
}

func (r *PostgresTurnRepository) CountUsers(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT user_id) FROM %s`, r.tables.Turns)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *PostgresTurnRepository) DeleteUserTurns(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.tables.Turns)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user turns: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTurnRepository) DeleteAllTurns(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s`, r.tables.Turns)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete all turns: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTurnRepository) PurgeTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE created_at < $1`, r.tables.Turns)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge turns: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanner is implemented by both pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTurnRow(row scanner) (*models.Turn, error) {
	var (
		turn  models.Turn
		role  string
		parts []byte
	)
	if err := row.Scan(&turn.ID, &turn.UserID, &role, &parts, &turn.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan turn: %w", err)
	}
	turn.Role = models.Role(role)

	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &turn.Parts); err != nil {
			return nil, fmt.Errorf("decode turn %s parts: %w", turn.ID, err)
		}
	}
	return &turn, nil
}
