package reply

import (
	"sync"
	"time"

	"yuri/internal/domain"
	"yuri/internal/domain/models"
)

// CooldownPolicy holds the breaker windows.
type CooldownPolicy struct {
	// Short is the first quota cooldown since the last success
	Short time.Duration
	// Long applies from the second consecutive quota failure
	Long time.Duration
	// Transient applies to non-quota failures and does not escalate
	Transient time.Duration
}

// BackendState is the circuit breaker of one primary backend.
//
// A backend is eligible when no cooldown is set or the cooldown has passed.
// Passing the cooldown clears it lazily on the next acquire (half-open) but
// keeps the failure count, so a failure right after reopening escalates.
//
// Every recorded outcome bumps epoch. An attempt holds the epoch it started
// with; a failure carrying an older epoch while a cooldown is active is a
// duplicate report of the same outage and is ignored.
type BackendState struct {
	mu                  sync.Mutex
	cooldownUntil       time.Time
	consecutiveFailures int
	epoch               uint64
	lastError           string
}

// acquire reports whether the backend may be attempted at now and returns the ticket to report with.
func (s *BackendState) acquire(now time.Time) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cooldownUntil.IsZero() {
		if now.Before(s.cooldownUntil) {
			return 0, false
		}
		s.cooldownUntil = time.Time{}
	}
	return s.epoch, true
}

func (s *BackendState) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFailures = 0
	s.cooldownUntil = time.Time{}
	s.lastError = ""
	s.epoch++
}

// recordFailure applies the cooldown for a failed attempt and returns it.
// Zero means the report was stale and nothing changed.
func (s *BackendState) recordFailure(ticket uint64, class domain.FailureClass, cause error, now time.Time, policy CooldownPolicy) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ticket != s.epoch && now.Before(s.cooldownUntil) {
		return 0
	}

	var d time.Duration
	switch class {
	case domain.FailureQuota:
		s.consecutiveFailures++
		if s.consecutiveFailures >= 2 {
			d = policy.Long
		} else {
			d = policy.Short
		}
	default:
		d = policy.Transient
	}

	s.cooldownUntil = now.Add(d)
	if cause != nil {
		s.lastError = cause.Error()
	}
	s.epoch++
	return d
}

func (s *BackendState) snapshot(name string, now time.Time) models.BackendStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.BackendStatus{
		Name:                name,
		Eligible:            s.cooldownUntil.IsZero() || !now.Before(s.cooldownUntil),
		ConsecutiveFailures: s.consecutiveFailures,
		LastError:           s.lastError,
	}
	if !st.Eligible {
		until := s.cooldownUntil
		st.CooldownUntil = &until
	}
	return st
}

// reset clears the breaker, used by the admin surfaces.
func (s *BackendState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cooldownUntil = time.Time{}
	s.consecutiveFailures = 0
	s.lastError = ""
	s.epoch++
}
