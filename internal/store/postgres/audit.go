package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

// AuditStore persists lifecycle events in audit_events.
type AuditStore struct {
	pool *pgxpool.Pool
}

func (s *AuditStore) Append(ctx context.Context, event *domain.AuditEvent) error {
	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return fmt.Errorf("marshal audit meta: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(id, user_id, entity_type, entity_id, action, meta, anonymized_at,
			 created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, nullableText(event.UserID), event.EntityType, event.EntityID,
		event.Action, metaJSON, event.AnonymizedAt, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *AuditStore) ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, entity_type, entity_id, action, meta, anonymized_at,
		       created_at
		FROM audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id`,
		entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var (
			event    domain.AuditEvent
			userID   *string
			metaJSON []byte
		)
		err := rows.Scan(&event.ID, &userID, &event.EntityType, &event.EntityID,
			&event.Action, &metaJSON, &event.AnonymizedAt, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.UserID = textValue(userID)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &event.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (s *AuditStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE audit_events
		SET user_id = NULL, anonymized_at = $2
		WHERE user_id = $1`,
		userID, at)
	if err != nil {
		return 0, fmt.Errorf("anonymize audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
