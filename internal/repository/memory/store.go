// Package memory is an in-process history and flag store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"yuri/internal/domain/models"
	"yuri/internal/domain/repositories"
)

type storedTurn struct {
	turn models.Turn
	seq  uint64
}

type flagKey struct {
	userID string
	flag   string
}

// Store implements repositories.TurnStore, repositories.FlagStore and
// repositories.TransactionManager.
type Store struct {
	mu    sync.RWMutex
	turns map[string][]storedTurn
	flags map[flagKey]time.Time
	seq   uint64
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		turns: make(map[string][]storedTurn),
		flags: make(map[flagKey]time.Time),
		now:   time.Now,
	}
}

func (s *Store) AppendTurn(ctx context.Context, turn *models.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now().UTC()
	}

	stored := *turn
	stored.Parts = append([]models.Part(nil), turn.Parts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.turns[turn.UserID] = append(s.turns[turn.UserID], storedTurn{turn: stored, seq: s.seq})
	return nil
}

func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]models.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows := append([]storedTurn(nil), s.turns[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].turn.CreatedAt.Equal(rows[j].turn.CreatedAt) {
			return rows[i].turn.CreatedAt.Before(rows[j].turn.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	out := make([]models.Turn, len(rows))
	for i, r := range rows {
		out[i] = r.turn
		out[i].Parts = append([]models.Part(nil), r.turn.Parts...)
	}
	return out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rows := range s.turns {
		if len(rows) > 0 {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteUserTurns(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.turns[userID]))
	delete(s.turns, userID)
	return n, nil
}

func (s *Store) DeleteAllTurns(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rows := range s.turns {
		n += int64(len(rows))
	}
	s.turns = make(map[string][]storedTurn)
	return n, nil
}

func (s *Store) PurgeTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for userID, rows := range s.turns {
		kept := rows[:0]
		for _, r := range rows {
			if r.turn.CreatedAt.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(s.turns, userID)
		} else {
			s.turns[userID] = kept
		}
	}
	return n, nil
}

func (s *Store) HasFlag(ctx context.Context, userID, flag string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.flags[flagKey{userID, flag}]
	return ok, nil
}

func (s *Store) SetFlag(ctx context.Context, userID, flag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := flagKey{userID, flag}
	if _, ok := s.flags[key]; !ok {
		s.flags[key] = s.now().UTC()
	}
	return nil
}

func (s *Store) ClearFlag(ctx context.Context, userID, flag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flags, flagKey{userID, flag})
	return nil
}

func (s *Store) ClearUserFlags(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.flags {
		if key.userID == userID {
			delete(s.flags, key)
		}
	}
	return nil
}

func (s *Store) ListFlagged(ctx context.Context, flag string) ([]string, error) {
	s.mu.RLock()
	type entry struct {
		userID string
		at     time.Time
	}
	var entries []entry
	for key, at := range s.flags {
		if key.flag == flag {
			entries = append(entries, entry{key.userID, at})
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].userID < entries[j].userID
	})

	users := make([]string, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.userID)
	}
	return users, nil
}

// ExecTx runs fn directly. The store has no rollback, so a failing fn
// leaves whatever it already changed.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}
