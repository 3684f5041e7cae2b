package memory

import (
	"context"
	"sync"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

// LogStore is the in-memory LogStore. Logs are append-only per user and
// kept in creation order.
type LogStore struct {
	mu   sync.Mutex
	logs []*domain.NotificationLog
	byID map[string]*domain.NotificationLog
}

// NewLogStore creates an empty log store.
func NewLogStore() *LogStore {
	return &LogStore{byID: make(map[string]*domain.NotificationLog)}
}

func (s *LogStore) Insert(ctx context.Context, log *domain.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyLog(log)
	s.logs = append(s.logs, c)
	s.byID[c.ID] = c
	return nil
}

func (s *LogStore) Get(ctx context.Context, id string) (*domain.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyLog(l), nil
}

func (s *LogStore) Update(ctx context.Context, id string, fn func(*domain.NotificationLog) error) (*domain.NotificationLog, *domain.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	previous := copyLog(old)
	work := copyLog(old)
	if err := fn(work); err != nil {
		return nil, nil, err
	}
	*old = *work
	return previous, copyLog(work), nil
}

func (s *LogStore) ListByUser(ctx context.Context, userID string) ([]*domain.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.NotificationLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, copyLog(l))
		}
	}
	return out, nil
}

func (s *LogStore) ListByExperiment(ctx context.Context, experimentID string) ([]*domain.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.NotificationLog
	for _, l := range s.logs {
		if l.ExperimentID == experimentID {
			out = append(out, copyLog(l))
		}
	}
	return out, nil
}

func (s *LogStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.logs {
		if l.UserID != userID {
			continue
		}
		l.UserID = ""
		l.UserFeedback = ""
		l.MessageSent = ""
		l.AnonymizedAt = copyTime(&at)
		n++
	}
	return n, nil
}
