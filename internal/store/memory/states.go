package memory

import (
	"context"
	"sync"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

// StateStore is the in-memory EmotionalStateStore.
type StateStore struct {
	mu     sync.RWMutex
	states []*domain.EmotionalState // insertion order
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

func (s *StateStore) Insert(ctx context.Context, state *domain.EmotionalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, copyState(state))
	return nil
}

func (s *StateStore) LatestByUser(ctx context.Context, userID string, cutoff time.Time) (*domain.EmotionalState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.states) - 1; i >= 0; i-- {
		st := s.states[i]
		if st.UserID != userID {
			continue
		}
		if st.CreatedAt.Before(cutoff) {
			// Aged out: treated as absent, not an error on reads.
			return nil, domain.ErrNotFound
		}
		return copyState(st), nil
	}
	return nil, domain.ErrNotFound
}

func (s *StateStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.states[:0]
	var removed int64
	for _, st := range s.states {
		if st.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, st)
	}
	s.states = kept
	return removed, nil
}

func (s *StateStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.states[:0]
	var removed int64
	for _, st := range s.states {
		if st.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, st)
	}
	s.states = kept
	return removed, nil
}
