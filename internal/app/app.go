// Package app wires the services shared by every entry point.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"yuri/internal/catalog"
	"yuri/internal/config"
	"yuri/internal/repository"
	"yuri/internal/service/admin"
	"yuri/internal/service/reply"
)

// App is a fully wired process: config, logger, stores and services.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Stores  *repository.Stores
	Replies *reply.Service
	Admin   *admin.Service

	closeLog func()
}

// New loads configuration from the environment and wires everything.
// name labels the log file when LOG_DIR is set.
func New(ctx context.Context, name string) (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return NewWithConfig(ctx, cfg, name)
}

// NewWithConfig wires an App from an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, name string) (*App, error) {
	logger, closeLog, err := config.NewLogger(cfg, name)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	slog.SetDefault(logger)

	logger.Info("starting",
		"component", name,
		"environment", cfg.Environment,
		"table_prefix", cfg.TablePrefix,
	)

	backends, err := catalog.Load(cfg.BackendsFile)
	if err != nil {
		closeLog()
		return nil, err
	}
	persona, err := catalog.Persona(cfg.PersonaFile)
	if err != nil {
		closeLog()
		return nil, err
	}

	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open stores: %w", err)
	}

	replies := reply.Setup(cfg, backends, persona, stores.Turns, stores.Flags, logger)
	adminSvc := admin.NewService(stores.Turns, stores.Flags, stores.Tx, replies, cfg.HistoryRetention, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Stores:   stores,
		Replies:  replies,
		Admin:    adminSvc,
		closeLog: closeLog,
	}, nil
}

// StartRetention runs the history janitor until ctx is done.
func (a *App) StartRetention(ctx context.Context) {
	go a.Admin.RunRetention(ctx, config.DefaultJanitorInterval)
}

// Close releases the stores and the log file.
func (a *App) Close() {
	a.Stores.Close()
	a.closeLog()
}
