// Package admin implements operator actions on remembered users and providers.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"yuri/internal/config"
	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/repositories"
)

// ProviderControl exposes provider health to operators. *reply.Service implements it.
type ProviderControl interface {
	Status() models.ProviderStatus
	ResetBackend(name string) error
}

// Service runs admin operations against the history and flag stores.
type Service struct {
	turns     repositories.TurnStore
	flags     repositories.FlagStore
	tx        repositories.TransactionManager
	providers ProviderControl
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(
	turns repositories.TurnStore,
	flags repositories.FlagStore,
	tx repositories.TransactionManager,
	providers ProviderControl,
	retention time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		turns:     turns,
		flags:     flags,
		tx:        tx,
		providers: providers,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func validateUserID(userID string) error {
	if err := validation.Validate(userID, validation.Required, validation.Length(1, 64)); err != nil {
		return fmt.Errorf("%w: user_id: %v", domain.ErrValidation, err)
	}
	return nil
}

// AddGrudge makes the persona cold toward userID. Adding twice is a no-op.
func (s *Service) AddGrudge(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := s.flags.SetFlag(ctx, userID, models.FlagGrudge); err != nil {
		return fmt.Errorf("add grudge: %w", err)
	}
	s.logger.Info("grudge added", "user_id", userID)
	return nil
}

// RemoveGrudge forgives userID.
func (s *Service) RemoveGrudge(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := s.flags.ClearFlag(ctx, userID, models.FlagGrudge); err != nil {
		return fmt.Errorf("remove grudge: %w", err)
	}
	s.logger.Info("grudge removed", "user_id", userID)
	return nil
}

// Grudges lists users holding a grudge, oldest first.
func (s *Service) Grudges(ctx context.Context) ([]string, error) {
	users, err := s.flags.ListFlagged(ctx, models.FlagGrudge)
	if err != nil {
		return nil, fmt.Errorf("list grudges: %w", err)
	}
	return users, nil
}

// WipeUser forgets a user entirely: history and flags go together.
func (s *Service) WipeUser(ctx context.Context, userID string) (int64, error) {
	if err := validateUserID(userID); err != nil {
		return 0, err
	}

	var deleted int64
	err := s.tx.ExecTx(ctx, func(ctx context.Context) error {
		n, err := s.turns.DeleteUserTurns(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete turns: %w", err)
		}
		if err := s.flags.ClearUserFlags(ctx, userID); err != nil {
			return fmt.Errorf("clear flags: %w", err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("wipe user %s: %w", userID, err)
	}

	s.logger.Info("user wiped", "user_id", userID, "turns", deleted)
	return deleted, nil
}

// WipeAll deletes every stored turn. Flags are kept.
func (s *Service) WipeAll(ctx context.Context) (int64, error) {
	n, err := s.turns.DeleteAllTurns(ctx)
	if err != nil {
		return 0, fmt.Errorf("wipe all: %w", err)
	}
	s.logger.Warn("all history wiped", "turns", n)
	return n, nil
}

// CountUsers returns how many users have stored history.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.turns.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Transcript returns up to limit of a user's latest turns, oldest first.
// limit <= 0 uses the default and larger values are capped.
func (s *Service) Transcript(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	limit = min(limit, config.MaxHistoryLimit)

	turns, err := s.turns.RecentTurns(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	return turns, nil
}

// FormatTranscript renders turns as "[time] ROLE: text" lines.
func FormatTranscript(turns []models.Turn) string {
	var b strings.Builder
	for i := range turns {
		t := &turns[i]
		speaker := "USER"
		if t.Role == models.RoleModel {
			speaker = "YURI"
		}
		text := t.Text()
		if refs := t.MediaRefs(); len(refs) > 0 {
			text = strings.TrimSpace(text + " " + strings.Join(refs, " "))
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.CreatedAt.UTC().Format(time.RFC3339), speaker, text)
	}
	return b.String()
}

func (s *Service) ProviderStatus() models.ProviderStatus {
	return s.providers.Status()
}

// ResetBackend closes one backend's breaker, or all of them for "".
func (s *Service) ResetBackend(name string) error {
	if err := s.providers.ResetBackend(name); err != nil {
		return err
	}
	s.logger.Info("backend breaker reset", "backend", name)
	return nil
}
