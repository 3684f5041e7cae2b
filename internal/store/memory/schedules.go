package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

// claimed is an internal status: the entry is held by a dispatch worker and
// invisible to ClaimDue until released by MarkSent/MarkRetry/MarkFailed.
const claimed domain.ScheduleStatus = "claimed"

// ScheduleStore is the in-memory ScheduleStore. The mutex around the
// status flip in ClaimDue is the claim's sole point of mutual exclusion —
// the same role FOR UPDATE SKIP LOCKED plays in the Postgres store.
type ScheduleStore struct {
	mu      sync.Mutex
	entries map[string]*domain.ScheduleEntry
}

// NewScheduleStore creates an empty schedule store.
func NewScheduleStore() *ScheduleStore {
	return &ScheduleStore{entries: make(map[string]*domain.ScheduleEntry)}
}

func (s *ScheduleStore) Insert(ctx context.Context, entry *domain.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (s *ScheduleStore) Get(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyEntry(e)
	if out.Status == claimed {
		out.Status = domain.StatusPending
	}
	return out, nil
}

func (s *ScheduleStore) ClaimDue(ctx context.Context, now time.Time, backoff time.Duration, limit int) ([]*domain.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*domain.ScheduleEntry
	for _, e := range s.entries {
		if e.Status != domain.StatusPending {
			continue
		}
		if e.ScheduledFor.After(now) {
			continue
		}
		if e.LastAttemptAt != nil && now.Sub(*e.LastAttemptAt) < backoff {
			continue
		}
		due = append(due, e)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*domain.ScheduleEntry, 0, len(due))
	for _, e := range due {
		e.Status = claimed
		e.UpdatedAt = now
		c := copyEntry(e)
		c.Status = domain.StatusPending
		out = append(out, c)
	}
	return out, nil
}

func (s *ScheduleStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, func(e *domain.ScheduleEntry) error {
		if e.Status.Terminal() {
			return domain.ErrTerminalState
		}
		e.Status = domain.StatusSent
		e.Attempts++
		e.LastAttemptAt = copyTime(&at)
		e.UpdatedAt = at
		return nil
	})
}

func (s *ScheduleStore) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, func(e *domain.ScheduleEntry) error {
		if e.Status != domain.StatusSent {
			return domain.ErrTerminalState
		}
		e.Status = domain.StatusDelivered
		e.UpdatedAt = at
		return nil
	})
}

func (s *ScheduleStore) MarkRetry(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, func(e *domain.ScheduleEntry) error {
		if e.Status.Terminal() {
			return domain.ErrTerminalState
		}
		e.Status = domain.StatusPending
		e.Attempts++
		e.LastAttemptAt = copyTime(&at)
		e.UpdatedAt = at
		return nil
	})
}

func (s *ScheduleStore) MarkFailed(ctx context.Context, id string, at time.Time, reason string) error {
	return s.transition(id, func(e *domain.ScheduleEntry) error {
		if e.Status.Terminal() {
			return domain.ErrTerminalState
		}
		e.Status = domain.StatusFailed
		e.UpdatedAt = at
		return nil
	})
}

func (s *ScheduleStore) Cancel(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Status != domain.StatusPending {
		// Claimed or terminal: the caller must learn the cancel did not land.
		return domain.ErrNotCancellable
	}
	e.Status = domain.StatusCancelled
	e.UpdatedAt = at
	return nil
}

func (s *ScheduleStore) PurgeTerminal(ctx context.Context, failedCutoff, deliveredCutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, e := range s.entries {
		switch e.Status {
		case domain.StatusFailed:
			if e.UpdatedAt.Before(failedCutoff) {
				delete(s.entries, id)
				removed++
			}
		case domain.StatusSent, domain.StatusDelivered, domain.StatusCancelled:
			if e.UpdatedAt.Before(deliveredCutoff) {
				delete(s.entries, id)
				removed++
			}
		}
	}
	return removed, nil
}

func (s *ScheduleStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		e.UserID = ""
		e.AnonymizedAt = copyTime(&at)
		e.UpdatedAt = at
		n++
	}
	return n, nil
}

func (s *ScheduleStore) transition(id string, fn func(*domain.ScheduleEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	return fn(e)
}
