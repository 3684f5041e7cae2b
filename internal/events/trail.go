package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/store"
)

// Audit trail actions.
const (
	ActionStateCreated            = "state_created"
	ActionScheduleCreated         = "schedule_created"
	ActionSent                    = "sent"
	ActionDelivered               = "delivered"
	ActionFailed                  = "failed"
	ActionCancelled               = "cancelled"
	ActionOpened                  = "opened"
	ActionInteraction             = "interaction_recorded"
	ActionExperimentCreated       = "experiment_created"
	ActionExperimentAggregated    = "experiment_aggregated"
	ActionExperimentStatusChanged = "experiment_status_changed"
	ActionAnonymized              = "anonymized"
)

// Trail appends lifecycle events to the audit store. Append failures are
// logged, never propagated — the audit stream must not fail the operation
// it describes.
type Trail struct {
	audit  store.AuditStore
	logger *slog.Logger
}

// NewTrail creates a Trail over the audit store.
func NewTrail(audit store.AuditStore, logger *slog.Logger) *Trail {
	return &Trail{audit: audit, logger: logger}
}

// Record appends one lifecycle event.
func (t *Trail) Record(ctx context.Context, userID, entityType, entityID, action string, meta map[string]string) {
	event := &domain.AuditEvent{
		ID:         domain.NewID(),
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Meta:       meta,
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.audit.Append(ctx, event); err != nil {
		t.logger.Warn("audit append failed",
			"entity_type", entityType, "entity_id", entityID, "action", action, "error", err)
	}
}
