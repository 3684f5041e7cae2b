package memory

import (
	"context"
	"sync"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

// AuditStore is the in-memory AuditStore, append-only.
type AuditStore struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, copyAudit(event))
	return nil
}

func (s *AuditStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.AuditEvent
	for _, e := range s.events {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, copyAudit(e))
		}
	}
	return out, nil
}

func (s *AuditStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.events {
		if e.UserID != userID {
			continue
		}
		e.UserID = ""
		e.AnonymizedAt = copyTime(&at)
		n++
	}
	return n, nil
}
