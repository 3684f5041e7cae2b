// Package retention enforces the data-retention and anonymization policy:
// aged emotional states are deleted, terminal schedule entries are purged,
// and on account deletion per-user rows are removed while analytics-bearing
// rows are anonymized in place.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/store"
)

// Config holds the retention windows.
type Config struct {
	StateRetention          time.Duration // emotional states (default 90d)
	FailedEntryRetention    time.Duration // failed schedule entries (default 30d)
	DeliveredEntryRetention time.Duration // sent/delivered entries (default 7d)
}

// Enforcer runs the periodic retention pass and account deletions.
type Enforcer struct {
	stores *store.Stores
	trail  *events.Trail
	cfg    Config
	logger *slog.Logger
}

// NewEnforcer creates an Enforcer.
func NewEnforcer(stores *store.Stores, trail *events.Trail, cfg Config, logger *slog.Logger) *Enforcer {
	return &Enforcer{stores: stores, trail: trail, cfg: cfg, logger: logger}
}

// Run executes one retention pass. Scheduled daily; the job runner
// guarantees runs never overlap.
func (e *Enforcer) Run(ctx context.Context) error {
	now := time.Now().UTC()

	removed, err := e.stores.States.DeleteOlderThan(ctx, now.Add(-e.cfg.StateRetention))
	if err != nil {
		return fmt.Errorf("delete aged emotional states: %w", err)
	}
	if removed > 0 {
		e.logger.Info("Retention: purged aged emotional states", "count", removed)
	}

	purged, err := e.stores.Schedules.PurgeTerminal(ctx,
		now.Add(-e.cfg.FailedEntryRetention),
		now.Add(-e.cfg.DeliveredEntryRetention))
	if err != nil {
		return fmt.Errorf("purge terminal schedule entries: %w", err)
	}
	if purged > 0 {
		e.logger.Info("Retention: purged terminal schedule entries", "count", purged)
	}
	return nil
}

// DeleteUser handles an account deletion. EmotionalState and profile rows
// are deleted outright; NotificationLog, ScheduleEntry, and audit rows are
// anonymized rather than deleted — removing them would corrupt the
// aggregate statistics built on historical counts.
func (e *Enforcer) DeleteUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()

	if _, err := e.stores.States.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete emotional states: %w", err)
	}
	if err := e.stores.Profiles.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}

	logs, err := e.stores.Logs.AnonymizeUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("anonymize notification logs: %w", err)
	}
	entries, err := e.stores.Schedules.AnonymizeUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("anonymize schedule entries: %w", err)
	}
	auditRows, err := e.stores.Audit.AnonymizeUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("anonymize audit events: %w", err)
	}

	// Recorded without a user reference — the subject no longer exists.
	e.trail.Record(ctx, "", "user", userID, events.ActionAnonymized, map[string]string{
		"logs":     fmt.Sprintf("%d", logs),
		"schedule": fmt.Sprintf("%d", entries),
		"audit":    fmt.Sprintf("%d", auditRows),
	})

	e.logger.Info("Account deletion processed",
		"logs_anonymized", logs,
		"entries_anonymized", entries,
		"audit_anonymized", auditRows)
	return nil
}
