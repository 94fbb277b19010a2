// Package repository opens the history and flag stores for an entry point.
package repository

import (
	"context"
	"errors"
	"log/slog"

	"yuri/internal/config"
	"yuri/internal/domain/repositories"
	"yuri/internal/repository/memory"
	"yuri/internal/repository/postgres"
)

// Stores bundles the repositories every entry point wires.
type Stores struct {
	Turns repositories.TurnStore
	Flags repositories.FlagStore
	Tx    repositories.TransactionManager

	// Persistent is false for the in-memory fallback.
	Persistent bool

	close func()
	drop  func(context.Context) error
}

// ErrNotPersistent is returned by DropTables on the in-memory store.
var ErrNotPersistent = errors.New("no database configured")

// Open connects to Postgres and ensures the schema when DATABASE_URL is set.
// Without it, history lives in process memory and is lost on exit.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set - using in-memory store, history is not persisted")
		store := memory.NewStore()
		return &Stores{Turns: store, Flags: store, Tx: store, close: func() {}}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connected", "table_prefix", cfg.TablePrefix)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &Stores{
		Turns:      postgres.NewTurnRepository(repoConfig),
		Flags:      postgres.NewFlagRepository(repoConfig),
		Tx:         postgres.NewTransactionManager(pool, logger),
		Persistent: true,
		close:      pool.Close,
		drop: func(ctx context.Context) error {
			return postgres.DropSchema(ctx, pool, tables)
		},
	}, nil
}

// Close releases the connection pool, if any.
func (s *Stores) Close() {
	s.close()
}

// DropTables removes the prefixed tables. The next Open recreates them empty.
func (s *Stores) DropTables(ctx context.Context) error {
	if s.drop == nil {
		return ErrNotPersistent
	}
	return s.drop(ctx)
}
