package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/store"
	"github.com/risewell/notification-engine/internal/store/memory"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newEnforcer(t *testing.T) (*Enforcer, *store.Stores) {
	t.Helper()
	stores := memory.NewStores()
	trail := events.NewTrail(stores.Audit, testLogger)
	cfg := Config{
		StateRetention:          90 * 24 * time.Hour,
		FailedEntryRetention:    30 * 24 * time.Hour,
		DeliveredEntryRetention: 7 * 24 * time.Hour,
	}
	return NewEnforcer(stores, trail, cfg, testLogger), stores
}

func stateAt(userID string, createdAt time.Time) *domain.EmotionalState {
	return &domain.EmotionalState{
		ID:              domain.NewID(),
		UserID:          userID,
		Emotion:         domain.EmotionHappy,
		Intensity:       2,
		Confidence:      0.4,
		RecommendedTone: domain.ToneEncouraging,
		CreatedAt:       createdAt,
	}
}

func entryAt(userID string, status domain.ScheduleStatus, updatedAt time.Time) *domain.ScheduleEntry {
	return &domain.ScheduleEntry{
		ID:           domain.NewID(),
		UserID:       userID,
		ScheduledFor: updatedAt,
		Emotion:      domain.EmotionHappy,
		Tone:         domain.ToneEncouraging,
		TemplateID:   "tmpl-1",
		Status:       status,
		MaxAttempts:  3,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
}

func TestRunPurgesAgedRows(t *testing.T) {
	e, stores := newEnforcer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	aged := stateAt("u1", now.Add(-100*24*time.Hour))
	fresh := stateAt("u1", now.Add(-24*time.Hour))
	stores.States.Insert(ctx, aged)
	stores.States.Insert(ctx, fresh)

	oldFailed := entryAt("u1", domain.StatusFailed, now.Add(-40*24*time.Hour))
	recentFailed := entryAt("u1", domain.StatusFailed, now.Add(-10*24*time.Hour))
	oldDelivered := entryAt("u1", domain.StatusDelivered, now.Add(-10*24*time.Hour))
	recentDelivered := entryAt("u1", domain.StatusDelivered, now.Add(-24*time.Hour))
	pending := entryAt("u1", domain.StatusPending, now.Add(-100*24*time.Hour))
	for _, entry := range []*domain.ScheduleEntry{oldFailed, recentFailed, oldDelivered, recentDelivered, pending} {
		stores.Schedules.Insert(ctx, entry)
	}

	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only the fresh state survives.
	got, err := stores.States.LatestByUser(ctx, "u1", now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("LatestByUser: %v", err)
	}
	if got.ID != fresh.ID {
		t.Errorf("latest state = %q, want %q", got.ID, fresh.ID)
	}

	for _, tt := range []struct {
		entry *domain.ScheduleEntry
		gone  bool
	}{
		{oldFailed, true},
		{recentFailed, false},
		{oldDelivered, true},
		{recentDelivered, false},
		{pending, false}, // pending is never purged, however old
	} {
		_, err := stores.Schedules.Get(ctx, tt.entry.ID)
		if tt.gone && !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("entry %s (%s) survived the purge", tt.entry.ID, tt.entry.Status)
		}
		if !tt.gone && err != nil {
			t.Errorf("entry %s (%s) was purged: %v", tt.entry.ID, tt.entry.Status, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	e, stores := newEnforcer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stores.States.Insert(ctx, stateAt("u1", now.Add(-100*24*time.Hour)))

	if err := e.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	e, stores := newEnforcer(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stores.States.Insert(ctx, stateAt("u1", now))
	if err := stores.Profiles.Upsert(ctx, &domain.UserEmotionalProfile{UserID: "u1"}, 0); err != nil {
		t.Fatal(err)
	}
	entry := entryAt("u1", domain.StatusSent, now)
	stores.Schedules.Insert(ctx, entry)
	log := &domain.NotificationLog{
		ID:             domain.NewID(),
		UserID:         "u1",
		MessageID:      "tmpl-1",
		MessageSent:    "Hey Ana!",
		UserFeedback:   "loved it",
		DeliveryStatus: domain.StatusSent,
		ActionTaken:    domain.ActionNone,
		CreatedAt:      now,
	}
	stores.Logs.Insert(ctx, log)
	stores.Audit.Append(ctx, &domain.AuditEvent{
		ID:         domain.NewID(),
		UserID:     "u1",
		EntityType: "notification_log",
		EntityID:   log.ID,
		Action:     "sent",
		CreatedAt:  now,
	})

	// Untouched bystander.
	stores.States.Insert(ctx, stateAt("u2", now))

	if err := e.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if _, err := stores.States.LatestByUser(ctx, "u1", now.Add(-time.Hour)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("states survived deletion: %v", err)
	}
	if _, err := stores.Profiles.Get(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("profile survived deletion: %v", err)
	}

	// Analytics rows stay, stripped of identity and free text.
	gotLog, err := stores.Logs.Get(ctx, log.ID)
	if err != nil {
		t.Fatalf("log was deleted: %v", err)
	}
	if gotLog.UserID != "" || gotLog.UserFeedback != "" || gotLog.MessageSent != "" {
		t.Errorf("log not anonymized: %+v", gotLog)
	}
	if gotLog.AnonymizedAt == nil {
		t.Error("log missing anonymization timestamp")
	}

	gotEntry, err := stores.Schedules.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("schedule entry was deleted: %v", err)
	}
	if gotEntry.UserID != "" || gotEntry.AnonymizedAt == nil {
		t.Errorf("entry not anonymized: %+v", gotEntry)
	}

	auditRows, err := stores.Audit.ListByEntity(ctx, "notification_log", log.ID)
	if err != nil || len(auditRows) != 1 {
		t.Fatalf("audit rows = %d (%v), want 1", len(auditRows), err)
	}
	if auditRows[0].UserID != "" {
		t.Errorf("audit row not anonymized: %+v", auditRows[0])
	}

	// The deletion itself leaves an anonymized trace.
	trace, err := stores.Audit.ListByEntity(ctx, "user", "u1")
	if err != nil || len(trace) != 1 {
		t.Fatalf("deletion trace = %d (%v), want 1", len(trace), err)
	}
	if trace[0].UserID != "" {
		t.Errorf("deletion trace carries a user id: %+v", trace[0])
	}

	// The other user's data is untouched.
	if _, err := stores.States.LatestByUser(ctx, "u2", now.Add(-time.Hour)); err != nil {
		t.Errorf("bystander state lost: %v", err)
	}
}

func TestDeleteUserWithoutProfile(t *testing.T) {
	e, _ := newEnforcer(t)
	if err := e.DeleteUser(context.Background(), "ghost"); err != nil {
		t.Fatalf("DeleteUser on unknown user: %v", err)
	}
}
