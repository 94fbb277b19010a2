package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements returns the DDL for the prefixed tables.
// seq orders turns that share a created_at timestamp.
func schemaStatements(t *TableNames) []string {
	return []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id         UUID PRIMARY KEY,
				seq        BIGINT GENERATED ALWAYS AS IDENTITY,
				user_id    TEXT NOT NULL,
				role       TEXT NOT NULL CHECK (role IN ('user', 'model')),
				parts      JSONB NOT NULL DEFAULT '[]'::jsonb,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, t.Turns),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_recent_idx ON %s (user_id, created_at DESC, seq DESC)`, t.Turns, t.Turns),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_idx ON %s (created_at)`, t.Turns, t.Turns),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				user_id    TEXT NOT NULL,
				flag       TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (user_id, flag)
			)`, t.UserFlags),
	}
}

// EnsureSchema creates the tables for this prefix when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, stmt := range schemaStatements(tables) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes this prefix's tables. Other prefixes sharing the
// database are untouched.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s, %s CASCADE`, tables.UserFlags, tables.Turns)
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}
