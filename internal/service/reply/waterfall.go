package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

// Attempt records one backend call made while serving a turn.
type Attempt struct {
	Backend  string
	Duration time.Duration
	Err      error
	Cooldown time.Duration
}

// Waterfall tries the primary backends in priority order, skipping those
// whose breaker is open, and stops at the first success.
type Waterfall struct {
	backends []services.Backend
	states   []*BackendState
	policy   CooldownPolicy
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewWaterfall creates a waterfall over backends in the given order.
func NewWaterfall(backends []services.Backend, policy CooldownPolicy, timeout time.Duration, logger *slog.Logger) *Waterfall {
	states := make([]*BackendState, len(backends))
	for i := range states {
		states[i] = &BackendState{}
	}
	return &Waterfall{
		backends: backends,
		states:   states,
		policy:   policy,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the time source. Tests use it to step through cooldowns.
func (w *Waterfall) WithClock(now func() time.Time) *Waterfall {
	w.now = now
	return w
}

// Generate returns the first successful backend's text and name.
// When every backend fails or is cooling down it returns domain.ErrBackendsExhausted.
func (w *Waterfall) Generate(ctx context.Context, prompt *services.Prompt) (string, string, []Attempt, error) {
	var attempts []Attempt

	for i, backend := range w.backends {
		state := w.states[i]

		ticket, ok := state.acquire(w.now())
		if !ok {
			w.logger.Debug("backend cooling down, skipping", "backend", backend.Name)
			continue
		}

		start := w.now()
		text, err := w.call(ctx, backend, prompt)
		attempt := Attempt{Backend: backend.Name, Duration: w.now().Sub(start), Err: err}

		if err == nil {
			state.recordSuccess()
			attempts = append(attempts, attempt)
			return text, backend.Name, attempts, nil
		}

		class := domain.ClassifyFailure(err)
		attempt.Cooldown = state.recordFailure(ticket, class, err, w.now(), w.policy)
		attempts = append(attempts, attempt)

		w.logger.Warn("backend failed",
			"backend", backend.Name,
			"class", class.String(),
			"cooldown", attempt.Cooldown,
			"error", err,
		)
	}

	return "", "", attempts, domain.ErrBackendsExhausted
}

func (w *Waterfall) call(ctx context.Context, backend services.Backend, prompt *services.Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	text, err := backend.Generate(callCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: timed out after %s: %w", backend.Name, w.timeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", backend.Name, domain.ErrEmptyResponse)
	}
	return text, nil
}

// Status snapshots every backend's breaker in priority order.
func (w *Waterfall) Status() []models.BackendStatus {
	now := w.now()
	out := make([]models.BackendStatus, len(w.backends))
	for i, b := range w.backends {
		out[i] = w.states[i].snapshot(b.Name, now)
	}
	return out
}

// Reset closes the named backend's breaker, or every breaker when name is empty.
// Returns domain.ErrNotFound for an unknown name.
func (w *Waterfall) Reset(name string) error {
	found := false
	for i, b := range w.backends {
		if name == "" || b.Name == name {
			w.states[i].reset()
			found = true
		}
	}
	if !found && name != "" {
		return fmt.Errorf("backend %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// Len returns the number of primary backends.
func (w *Waterfall) Len() int { return len(w.backends) }
