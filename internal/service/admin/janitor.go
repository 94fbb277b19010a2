package admin

import (
	"context"
	"fmt"
	"time"
)

// PurgeExpired deletes turns older than the retention window.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.retention)
	n, err := s.turns.PurgeTurnsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge turns before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("expired turns purged", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// RunRetention purges once, then every interval until ctx is done.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 {
		s.logger.Info("history retention disabled")
		return
	}

	purge := func() {
		if _, err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("retention purge failed", "error", err)
		}
	}

	purge()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
