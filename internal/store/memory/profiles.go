package memory

import (
	"context"
	"sync"

	"github.com/risewell/notification-engine/internal/domain"
)

// ProfileStore is the in-memory ProfileStore. One row per user, guarded by
// an optimistic version check.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.UserEmotionalProfile
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*domain.UserEmotionalProfile)}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*domain.UserEmotionalProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyProfile(p), nil
}

func (s *ProfileStore) Upsert(ctx context.Context, profile *domain.UserEmotionalProfile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profile.UserID]
	if !ok {
		if expectedVersion != 0 {
			return domain.ErrProfileUpsertConflict
		}
		c := copyProfile(profile)
		c.Version = 1
		s.profiles[profile.UserID] = c
		profile.Version = 1
		return nil
	}
	if existing.Version != expectedVersion {
		return domain.ErrProfileUpsertConflict
	}
	c := copyProfile(profile)
	c.Version = expectedVersion + 1
	s.profiles[profile.UserID] = c
	profile.Version = c.Version
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}
