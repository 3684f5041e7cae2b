// Package store defines the persistence interfaces for the engine's seven
// record stores. Implementations live in store/postgres (production) and
// store/memory (tests, local development).
package store

import (
	"context"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

// EmotionalStateStore persists classifier verdicts. Rows are immutable and
// age out after the retention window.
type EmotionalStateStore interface {
	Insert(ctx context.Context, state *domain.EmotionalState) error
	// LatestByUser returns the newest state no older than cutoff, or
	// domain.ErrNotFound. States past cutoff are treated as absent.
	LatestByUser(ctx context.Context, userID string, cutoff time.Time) (*domain.EmotionalState, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// ScheduleStore persists schedule entries and owns their state machine.
// Claiming is the sole point of mutual exclusion for dispatch.
type ScheduleStore interface {
	Insert(ctx context.Context, entry *domain.ScheduleEntry) error
	Get(ctx context.Context, id string) (*domain.ScheduleEntry, error)

	// ClaimDue atomically claims up to limit pending entries that are due
	// (scheduled_for <= now) and past their retry backoff. A claimed entry
	// is invisible to concurrent claimers.
	ClaimDue(ctx context.Context, now time.Time, backoff time.Duration, limit int) ([]*domain.ScheduleEntry, error)

	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	// MarkRetry releases a claimed entry back to pending with attempts+1.
	MarkRetry(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, at time.Time, reason string) error

	// Cancel transitions a pending entry to cancelled. Returns
	// domain.ErrNotCancellable when the entry already left pending, so a
	// cancellation losing the claim race fails loudly, not silently.
	Cancel(ctx context.Context, id string, at time.Time) error

	// PurgeTerminal removes failed entries updated before failedCutoff and
	// sent/delivered entries updated before deliveredCutoff.
	PurgeTerminal(ctx context.Context, failedCutoff, deliveredCutoff time.Time) (int64, error)

	AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// LogStore persists notification logs. Per user, logs are append-only and
// read back in creation order.
type LogStore interface {
	Insert(ctx context.Context, log *domain.NotificationLog) error
	Get(ctx context.Context, id string) (*domain.NotificationLog, error)
	// Update applies fn to the row under its row lock, so concurrent
	// interaction writes serialize instead of overwriting each other.
	// Returns the row's previous and updated values, which event handlers
	// use to gate on state transitions.
	Update(ctx context.Context, id string, fn func(*domain.NotificationLog) error) (previous, updated *domain.NotificationLog, err error)
	ListByUser(ctx context.Context, userID string) ([]*domain.NotificationLog, error)
	ListByExperiment(ctx context.Context, experimentID string) ([]*domain.NotificationLog, error)
	AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// ProfileStore persists the one-row-per-user emotional profile.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.UserEmotionalProfile, error)
	// Upsert writes the profile when the stored version still equals
	// expectedVersion (0 for a new row) and bumps Version. Returns
	// domain.ErrProfileUpsertConflict on a version mismatch.
	Upsert(ctx context.Context, profile *domain.UserEmotionalProfile, expectedVersion int64) error
	Delete(ctx context.Context, userID string) error
}

// ExperimentStore persists experiments, unique by name.
type ExperimentStore interface {
	Create(ctx context.Context, exp *domain.Experiment) error
	GetByName(ctx context.Context, name string) (*domain.Experiment, error)
	ListActive(ctx context.Context) ([]*domain.Experiment, error)
	UpdateResults(ctx context.Context, id string, results *domain.ExperimentResults) error
	UpdateStatus(ctx context.Context, id string, status domain.ExperimentStatus) error
}

// AuditStore is the companion lifecycle event store.
type AuditStore interface {
	Append(ctx context.Context, event *domain.AuditEvent) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEvent, error)
	AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// Stores bundles every store for wiring.
type Stores struct {
	States      EmotionalStateStore
	Schedules   ScheduleStore
	Logs        LogStore
	Profiles    ProfileStore
	Experiments ExperimentStore
	Audit       AuditStore
}
