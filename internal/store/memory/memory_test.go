package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func pendingEntry(id string) *domain.ScheduleEntry {
	return &domain.ScheduleEntry{
		ID:           id,
		UserID:       "u1",
		ScheduledFor: base,
		Emotion:      domain.EmotionWorried,
		Tone:         domain.ToneEncouraging,
		TemplateID:   "tmpl-1",
		Status:       domain.StatusPending,
		MaxAttempts:  3,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
}

func TestScheduleClaimHidesEntryFromCancel(t *testing.T) {
	s := NewScheduleStore()
	ctx := context.Background()
	s.Insert(ctx, pendingEntry("e1"))

	claimed, err := s.ClaimDue(ctx, base, time.Hour, 10)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("ClaimDue = %d (%v), want 1", len(claimed), err)
	}

	// A claimed entry reads as pending but cannot be cancelled.
	got, err := s.Get(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("claimed entry reads as %q, want pending", got.Status)
	}
	if err := s.Cancel(ctx, "e1", base); !errors.Is(err, domain.ErrNotCancellable) {
		t.Errorf("Cancel on claimed entry: err = %v, want ErrNotCancellable", err)
	}

	// And it is invisible to further claims.
	claimed, _ = s.ClaimDue(ctx, base, time.Hour, 10)
	if len(claimed) != 0 {
		t.Errorf("claimed entry re-claimed: %d", len(claimed))
	}
}

func TestScheduleClaimRespectsBackoff(t *testing.T) {
	s := NewScheduleStore()
	ctx := context.Background()
	s.Insert(ctx, pendingEntry("e1"))

	if _, err := s.ClaimDue(ctx, base, time.Hour, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkRetry(ctx, "e1", base); err != nil {
		t.Fatal(err)
	}

	claimed, _ := s.ClaimDue(ctx, base.Add(30*time.Minute), time.Hour, 10)
	if len(claimed) != 0 {
		t.Errorf("claimed before backoff elapsed")
	}
	claimed, _ = s.ClaimDue(ctx, base.Add(61*time.Minute), time.Hour, 10)
	if len(claimed) != 1 {
		t.Errorf("not claimable after backoff: %d", len(claimed))
	}
}

func TestScheduleTerminalGuards(t *testing.T) {
	s := NewScheduleStore()
	ctx := context.Background()

	entry := pendingEntry("e1")
	entry.Status = domain.StatusCancelled
	s.Insert(ctx, entry)

	if err := s.MarkSent(ctx, "e1", base); !errors.Is(err, domain.ErrTerminalState) {
		t.Errorf("MarkSent: err = %v, want ErrTerminalState", err)
	}
	if err := s.MarkRetry(ctx, "e1", base); !errors.Is(err, domain.ErrTerminalState) {
		t.Errorf("MarkRetry: err = %v, want ErrTerminalState", err)
	}
	if err := s.MarkFailed(ctx, "e1", base, "x"); !errors.Is(err, domain.ErrTerminalState) {
		t.Errorf("MarkFailed: err = %v, want ErrTerminalState", err)
	}
	if err := s.Cancel(ctx, "e1", base); !errors.Is(err, domain.ErrNotCancellable) {
		t.Errorf("Cancel: err = %v, want ErrNotCancellable", err)
	}
}

func TestScheduleDeliveredRequiresSent(t *testing.T) {
	s := NewScheduleStore()
	ctx := context.Background()
	s.Insert(ctx, pendingEntry("e1"))

	if err := s.MarkDelivered(ctx, "e1", base); !errors.Is(err, domain.ErrTerminalState) {
		t.Errorf("MarkDelivered on pending: err = %v, want ErrTerminalState", err)
	}

	s.ClaimDue(ctx, base, time.Hour, 10)
	if err := s.MarkSent(ctx, "e1", base); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDelivered(ctx, "e1", base); err != nil {
		t.Fatalf("MarkDelivered on sent: %v", err)
	}
	got, _ := s.Get(ctx, "e1")
	if got.Status != domain.StatusDelivered {
		t.Errorf("status = %q, want delivered", got.Status)
	}
}

func TestScheduleGetReturnsCopy(t *testing.T) {
	s := NewScheduleStore()
	ctx := context.Background()
	s.Insert(ctx, pendingEntry("e1"))

	got, _ := s.Get(ctx, "e1")
	got.Status = domain.StatusFailed
	got.Payload = "scribbled"

	again, _ := s.Get(ctx, "e1")
	if again.Status != domain.StatusPending || again.Payload != "" {
		t.Errorf("store row mutated through a returned copy: %+v", again)
	}
}

func TestLogUpdateMergesConcurrentWriters(t *testing.T) {
	s := NewLogStore()
	ctx := context.Background()

	s.Insert(ctx, &domain.NotificationLog{
		ID:             "n1",
		UserID:         "u1",
		MessageID:      "tmpl-1",
		DeliveryStatus: domain.StatusSent,
		ActionTaken:    domain.ActionNone,
		CreatedAt:      base,
	})

	// Two writers touch disjoint fields at once; the row lock serializes
	// them, so neither write is lost.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rating := 5
		s.Update(ctx, "n1", func(l *domain.NotificationLog) error {
			l.EffectivenessRating = &rating
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		s.Update(ctx, "n1", func(l *domain.NotificationLog) error {
			l.ActionTaken = domain.ActionCompletedTask
			return nil
		})
	}()
	wg.Wait()

	got, err := s.Get(ctx, "n1")
	if err != nil {
		t.Fatal(err)
	}
	if got.EffectivenessRating == nil || *got.EffectivenessRating != 5 {
		t.Errorf("rating lost: %v", got.EffectivenessRating)
	}
	if got.ActionTaken != domain.ActionCompletedTask {
		t.Errorf("action lost: %q", got.ActionTaken)
	}
}

func TestLogUpdateReturnsPreviousAndUpdated(t *testing.T) {
	s := NewLogStore()
	ctx := context.Background()

	s.Insert(ctx, &domain.NotificationLog{
		ID:             "n1",
		UserID:         "u1",
		MessageID:      "tmpl-1",
		DeliveryStatus: domain.StatusSent,
		ActionTaken:    domain.ActionNone,
		CreatedAt:      base,
	})

	prev, updated, err := s.Update(ctx, "n1", func(l *domain.NotificationLog) error {
		l.ActionTaken = domain.ActionDismissed
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if prev.ActionTaken != domain.ActionNone || updated.ActionTaken != domain.ActionDismissed {
		t.Errorf("transition = %q -> %q, want none -> dismissed", prev.ActionTaken, updated.ActionTaken)
	}

	if _, _, err := s.Update(ctx, "missing", func(l *domain.NotificationLog) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestProfileUpsertVersioning(t *testing.T) {
	s := NewProfileStore()
	ctx := context.Background()

	p := &domain.UserEmotionalProfile{UserID: "u1"}
	if err := s.Upsert(ctx, p, 0); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("version after insert = %d, want 1", p.Version)
	}

	// Re-inserting is a conflict, not an overwrite.
	if err := s.Upsert(ctx, &domain.UserEmotionalProfile{UserID: "u1"}, 0); !errors.Is(err, domain.ErrProfileUpsertConflict) {
		t.Errorf("duplicate insert: err = %v, want conflict", err)
	}

	// An update against a stale version is rejected.
	if err := s.Upsert(ctx, &domain.UserEmotionalProfile{UserID: "u1"}, 2); !errors.Is(err, domain.ErrProfileUpsertConflict) {
		t.Errorf("stale version: err = %v, want conflict", err)
	}

	p.DataPointsCollected = 5
	if err := s.Upsert(ctx, p, 1); err != nil {
		t.Fatalf("versioned update: %v", err)
	}
	got, _ := s.Get(ctx, "u1")
	if got.Version != 2 || got.DataPointsCollected != 5 {
		t.Errorf("after update: %+v, want version 2", got)
	}
}

func TestExperimentNamesAreUnique(t *testing.T) {
	s := NewExperimentStore()
	ctx := context.Background()

	exp := &domain.Experiment{
		ID:                domain.NewID(),
		Name:              "tone-test",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 0.5,
		Status:            domain.ExperimentActive,
	}
	if err := s.Create(ctx, exp); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := *exp
	dup.ID = domain.NewID()
	if err := s.Create(ctx, &dup); !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("duplicate name: err = %v, want ErrDuplicateName", err)
	}

	got, err := s.GetByName(ctx, "tone-test")
	if err != nil || got.ID != exp.ID {
		t.Errorf("GetByName = %v (%v), want the original", got, err)
	}
}
