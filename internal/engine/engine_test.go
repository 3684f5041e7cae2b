package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/experiment"
	"github.com/risewell/notification-engine/internal/learner"
	"github.com/risewell/notification-engine/internal/push"
	"github.com/risewell/notification-engine/internal/scheduler"
	"github.com/risewell/notification-engine/internal/selector"
	"github.com/risewell/notification-engine/internal/store"
	"github.com/risewell/notification-engine/internal/store/memory"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	noon       = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

type stubTransport struct{}

func (stubTransport) Dispatch(ctx context.Context, payload push.Payload) (string, error) {
	return "fcm-" + payload.UserID, nil
}

type harness struct {
	eng     *Engine
	stores  *store.Stores
	catalog *selector.MemoryCatalog
	worker  *scheduler.Worker
	clock   *time.Time
}

// newHarness wires the engine the way cmd/api does, on memory stores with
// the learner subscribed, plus an injectable clock.
func newHarness(t *testing.T, templates ...*domain.Template) *harness {
	t.Helper()
	if len(templates) == 0 {
		templates = []*domain.Template{{
			ID:       "tmpl-1",
			Emotion:  domain.EmotionWorried,
			Tone:     domain.ToneEncouraging,
			Body:     "Hey {name}, we miss you!",
			IsActive: true,
		}}
	}
	stores := memory.NewStores()
	catalog := selector.NewMemoryCatalog(templates...)
	bus := events.NewBus()
	trail := events.NewTrail(stores.Audit, testLogger)
	bus.Subscribe(learner.New(stores.Logs, stores.Profiles, catalog, testLogger))

	cfg := Config{
		MaxAttempts:     3,
		QuietStartHour:  22,
		QuietEndHour:    9,
		EscalationDays:  []int{1, 3, 7, 14, 30},
		StateRetention:  90 * 24 * time.Hour,
		ProudStreakDays: 7,
	}
	eng := New(stores, catalog, bus, trail, cfg, testLogger)
	clock := noon
	eng.SetClock(func() time.Time { return clock })

	worker := scheduler.NewWorker(stores.Schedules, stores.Logs, bus, trail, stubTransport{}, scheduler.Config{
		BatchSize:       10,
		Workers:         1,
		DeliveryTimeout: time.Second,
		RetryBackoff:    time.Hour,
	}, testLogger)

	return &harness{eng: eng, stores: stores, catalog: catalog, worker: worker, clock: &clock}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func actionPtr(a domain.ActionTaken) *domain.ActionTaken { return &a }

func worriedState(userID string) *domain.EmotionalState {
	return &domain.EmotionalState{
		ID:              domain.NewID(),
		UserID:          userID,
		Emotion:         domain.EmotionWorried,
		Intensity:       5,
		Confidence:      0.55,
		Context:         map[string]string{"days_since_use": "4", "name": "Ana"},
		RecommendedTone: domain.ToneEncouraging,
		CreatedAt:       noon,
	}
}

func TestAnalyzeScheduleDispatchInteract(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	state, err := h.eng.AnalyzeUser(ctx, "u1", domain.ActivitySnapshot{
		DisplayName:          "Ana",
		DaysSinceLastUse:     4,
		MissedAlarms:         2,
		DaysSinceStreakBreak: -1,
		RecentEngagement:     0.5,
		ObservedAt:           noon,
	})
	if err != nil {
		t.Fatalf("AnalyzeUser: %v", err)
	}
	if state.Emotion != domain.EmotionWorried {
		t.Fatalf("emotion = %q, want worried", state.Emotion)
	}
	if state.RecommendedTone != domain.ToneEncouraging {
		t.Fatalf("tone = %q, want encouraging", state.RecommendedTone)
	}

	latest, err := h.eng.LatestState(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestState: %v", err)
	}
	if latest.ID != state.ID {
		t.Errorf("latest state = %q, want %q", latest.ID, state.ID)
	}

	entry, err := h.eng.ScheduleNotification(ctx, "u1", state, PriorityHigh)
	if err != nil {
		t.Fatalf("ScheduleNotification: %v", err)
	}
	if !entry.ScheduledFor.Equal(noon) {
		t.Errorf("scheduled for %v, want %v", entry.ScheduledFor, noon)
	}
	if entry.EscalationLevel != domain.EscalationNudge {
		t.Errorf("escalation = %v, want nudge", entry.EscalationLevel)
	}
	if entry.Payload != "Hey Ana, we miss you!" {
		t.Errorf("payload = %q", entry.Payload)
	}
	if entry.Status != domain.StatusPending || entry.TemplateID != "tmpl-1" {
		t.Errorf("entry = %+v", entry)
	}

	res, err := h.worker.RunOnce(ctx, noon)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("result = %+v, want 1 sent", res)
	}
	tmpl, _ := h.catalog.Get("tmpl-1")
	if tmpl.UsageCount != 1 {
		t.Errorf("usage = %d, want 1", tmpl.UsageCount)
	}

	logs, err := h.stores.Logs.ListByUser(ctx, "u1")
	if err != nil || len(logs) != 1 {
		t.Fatalf("logs = %d (%v), want 1", len(logs), err)
	}

	*h.clock = noon.Add(5 * time.Minute)
	got, err := h.eng.RecordInteraction(ctx, logs[0].ID, Interaction{
		Opened:              boolPtr(true),
		ActionTaken:         actionPtr(domain.ActionCompletedTask),
		EffectivenessRating: intPtr(5),
		FeedbackText:        "perfect timing",
	})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}
	if !got.NotificationOpened || got.DeliveredAt == nil {
		t.Errorf("open did not confirm delivery: %+v", got)
	}
	if got.DeliveryStatus != domain.StatusDelivered {
		t.Errorf("delivery status = %q, want delivered", got.DeliveryStatus)
	}
	if got.ResponseTimeMs == nil || *got.ResponseTimeMs != 5*60*1000 {
		t.Errorf("response time = %v, want 300000", got.ResponseTimeMs)
	}

	tmpl, _ = h.catalog.Get("tmpl-1")
	if tmpl.SuccessCount != 1 {
		t.Errorf("success = %d, want 1", tmpl.SuccessCount)
	}
	if tmpl.EffectivenessScore != 100 {
		t.Errorf("score = %f, want 100", tmpl.EffectivenessScore)
	}

	profile, err := h.eng.GetUserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserProfile: %v", err)
	}
	if profile.DataPointsCollected != 1 {
		t.Errorf("data points = %d, want 1", profile.DataPointsCollected)
	}
	want := domain.ProfileTotals{Sent: 1, Opened: 1, Completed: 1}
	if profile.Totals != want {
		t.Errorf("totals = %+v, want %+v", profile.Totals, want)
	}
	if profile.AverageEffectivenessRating != 5 {
		t.Errorf("avg rating = %f, want 5", profile.AverageEffectivenessRating)
	}
	// One upsert at dispatch, one after the interaction.
	if profile.Version != 2 {
		t.Errorf("version = %d, want 2", profile.Version)
	}
}

func TestScheduleUsesOptimalSendHours(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	profile := &domain.UserEmotionalProfile{UserID: "u1", OptimalSendTimes: []int{15}}
	if err := h.stores.Profiles.Upsert(ctx, profile, 0); err != nil {
		t.Fatal(err)
	}

	entry, err := h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityNormal)
	if err != nil {
		t.Fatalf("ScheduleNotification: %v", err)
	}
	want := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	if !entry.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", entry.ScheduledFor, want)
	}

	// High priority ignores the learned hours.
	entry, err = h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.ScheduledFor.Equal(noon) {
		t.Errorf("high priority scheduled for %v, want %v", entry.ScheduledFor, noon)
	}
}

func TestScheduleDefersQuietHours(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Late evening wraps into the next morning.
	*h.clock = time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	entry, err := h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !entry.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", entry.ScheduledFor, want)
	}

	// Small hours defer to the same morning.
	*h.clock = time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	entry, err = h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	want = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !entry.ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %v, want %v", entry.ScheduledFor, want)
	}
}

func TestEscalationBoundaries(t *testing.T) {
	boundaries := []int{1, 3, 7, 14, 30}
	tests := []struct {
		days string
		want domain.EscalationLevel
	}{
		{"", domain.EscalationGentle},
		{"0", domain.EscalationGentle},
		{"2", domain.EscalationGentle},
		{"3", domain.EscalationNudge},
		{"10", domain.EscalationConcerned},
		{"20", domain.EscalationFirm},
		{"45", domain.EscalationMajorReset},
	}
	for _, tt := range tests {
		state := &domain.EmotionalState{Context: map[string]string{}}
		if tt.days != "" {
			state.Context["days_since_use"] = tt.days
		}
		if got := escalationFor(state, boundaries); got != tt.want {
			t.Errorf("days %q: level = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestCancelScheduled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry, err := h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}

	// Another user cannot even learn the entry exists.
	if err := h.eng.CancelScheduled(ctx, entry.ID, "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign cancel: err = %v, want ErrNotFound", err)
	}

	if err := h.eng.CancelScheduled(ctx, entry.ID, "u1"); err != nil {
		t.Fatalf("CancelScheduled: %v", err)
	}
	got, _ := h.stores.Schedules.Get(ctx, entry.ID)
	if got.Status != domain.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	// A claimed entry is past the point of no return.
	entry, err = h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.stores.Schedules.ClaimDue(ctx, noon, time.Hour, 10); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.CancelScheduled(ctx, entry.ID, "u1"); !errors.Is(err, domain.ErrNotCancellable) {
		t.Errorf("cancel after claim: err = %v, want ErrNotCancellable", err)
	}

	if err := h.eng.CancelScheduled(ctx, "missing", "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown entry: err = %v, want ErrNotFound", err)
	}
}

func TestConfirmDelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry, err := h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}

	// A receipt for an undispatched entry is rejected.
	if err := h.eng.ConfirmDelivery(ctx, entry.ID); !errors.Is(err, domain.ErrTerminalState) {
		t.Errorf("confirm before send: err = %v, want ErrTerminalState", err)
	}

	if _, err := h.worker.RunOnce(ctx, noon); err != nil {
		t.Fatal(err)
	}
	if err := h.eng.ConfirmDelivery(ctx, entry.ID); err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}
	got, _ := h.stores.Schedules.Get(ctx, entry.ID)
	if got.Status != domain.StatusDelivered {
		t.Errorf("status = %q, want delivered", got.Status)
	}
}

func TestSnoozeSchedulesEscalatedFollowUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.eng.ScheduleNotification(ctx, "u1", worriedState("u1"), PriorityHigh); err != nil {
		t.Fatal(err)
	}
	if _, err := h.worker.RunOnce(ctx, noon); err != nil {
		t.Fatal(err)
	}
	logs, _ := h.stores.Logs.ListByUser(ctx, "u1")
	if len(logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(logs))
	}

	*h.clock = noon.Add(time.Minute)
	if _, err := h.eng.RecordInteraction(ctx, logs[0].ID, Interaction{
		ActionTaken:   actionPtr(domain.ActionSnoozed),
		SnoozeMinutes: 30,
	}); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	// The follow-up becomes due after the snooze delay, one step escalated.
	claimed, err := h.stores.Schedules.ClaimDue(ctx, noon.Add(32*time.Minute), time.Hour, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 {
		t.Fatalf("claimed = %d, want 1 follow-up", len(claimed))
	}
	followUp := claimed[0]
	if followUp.EscalationLevel != domain.EscalationConcerned {
		t.Errorf("escalation = %v, want concerned", followUp.EscalationLevel)
	}
	if followUp.Payload != logs[0].MessageSent {
		t.Errorf("payload = %q, want %q", followUp.Payload, logs[0].MessageSent)
	}
	wantAt := noon.Add(31 * time.Minute)
	if !followUp.ScheduledFor.Equal(wantAt) {
		t.Errorf("scheduled for %v, want %v", followUp.ScheduledFor, wantAt)
	}

	// A repeated snooze on the same log is a no-op: action writes are
	// first-write-wins, so no second follow-up appears.
	if _, err := h.eng.RecordInteraction(ctx, logs[0].ID, Interaction{
		ActionTaken:   actionPtr(domain.ActionSnoozed),
		SnoozeMinutes: 30,
	}); err != nil {
		t.Fatal(err)
	}
	claimed, _ = h.stores.Schedules.ClaimDue(ctx, noon.Add(2*time.Hour), time.Hour, 10)
	if len(claimed) != 0 {
		t.Errorf("claimed = %d after repeated snooze, want 0", len(claimed))
	}
}

func TestRecordInteractionValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.eng.RecordInteraction(ctx, "log-1", Interaction{EffectivenessRating: intPtr(6)}); err == nil {
		t.Error("rating 6 accepted")
	}
	bad := domain.ActionTaken("shrugged")
	if _, err := h.eng.RecordInteraction(ctx, "log-1", Interaction{ActionTaken: &bad}); err == nil {
		t.Error("unknown action accepted")
	}
	if _, err := h.eng.RecordInteraction(ctx, "missing", Interaction{Opened: boolPtr(true)}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown log: err = %v, want ErrNotFound", err)
	}
}

func TestExperimentToneOverride(t *testing.T) {
	h := newHarness(t,
		&domain.Template{ID: "enc", Emotion: domain.EmotionWorried, Tone: domain.ToneEncouraging, Body: "soft", IsActive: true},
		&domain.Template{ID: "firm-tmpl", Emotion: domain.EmotionWorried, Tone: domain.ToneFirm, Body: "hard", IsActive: true},
	)
	ctx := context.Background()

	exp, err := h.eng.CreateExperiment(ctx, ExperimentConfig{
		Name:              "firm-tone-test",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 1.0,
		TargetEmotions:    []domain.Emotion{domain.EmotionWorried},
		Status:            domain.ExperimentActive,
	})
	if err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}

	// Allocation is a stable hash of (user, experiment); probe for one user
	// per arm.
	var treatmentUser, controlUser string
	for i := 0; i < 1000 && (treatmentUser == "" || controlUser == ""); i++ {
		id := fmt.Sprintf("user-%d", i)
		switch variant, _ := experiment.Allocate(exp, id); variant {
		case "firm":
			if treatmentUser == "" {
				treatmentUser = id
			}
		case "control":
			if controlUser == "" {
				controlUser = id
			}
		}
	}
	if treatmentUser == "" || controlUser == "" {
		t.Fatal("could not find a user for each arm")
	}

	entry, err := h.eng.ScheduleNotification(ctx, treatmentUser, worriedState(treatmentUser), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Tone != domain.ToneFirm || entry.TemplateID != "firm-tmpl" {
		t.Errorf("treatment entry = tone %q template %q, want firm override", entry.Tone, entry.TemplateID)
	}
	if entry.ExperimentID != exp.ID || entry.ExperimentVariant != "firm" {
		t.Errorf("assignment not recorded: %+v", entry)
	}

	entry, err = h.eng.ScheduleNotification(ctx, controlUser, worriedState(controlUser), PriorityHigh)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Tone != domain.ToneEncouraging || entry.TemplateID != "enc" {
		t.Errorf("control entry = tone %q template %q, want recommended tone", entry.Tone, entry.TemplateID)
	}
	if entry.ExperimentVariant != "control" {
		t.Errorf("control assignment = %q, want control", entry.ExperimentVariant)
	}
}

func TestCreateExperimentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	valid := ExperimentConfig{
		Name:              "x",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 0.1,
	}

	tests := []struct {
		name   string
		mutate func(*ExperimentConfig)
	}{
		{"empty name", func(c *ExperimentConfig) { c.Name = "" }},
		{"empty control", func(c *ExperimentConfig) { c.ControlVariant = "" }},
		{"no treatments", func(c *ExperimentConfig) { c.TreatmentVariants = nil }},
		{"zero allocation", func(c *ExperimentConfig) { c.TrafficAllocation = 0 }},
		{"allocation above one", func(c *ExperimentConfig) { c.TrafficAllocation = 1.5 }},
		{"unknown emotion", func(c *ExperimentConfig) { c.TargetEmotions = []domain.Emotion{"bored"} }},
		{"unknown tone", func(c *ExperimentConfig) { c.TargetTones = []domain.Tone{"shouty"} }},
		{"completed at creation", func(c *ExperimentConfig) { c.Status = domain.ExperimentCompleted }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := h.eng.CreateExperiment(ctx, cfg); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}

	if _, err := h.eng.CreateExperiment(ctx, valid); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if _, err := h.eng.CreateExperiment(ctx, valid); !errors.Is(err, domain.ErrDuplicateName) {
		t.Errorf("duplicate name: err = %v, want ErrDuplicateName", err)
	}
}

func TestExperimentLifecycleReachesSufficiency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	exp, err := h.eng.CreateExperiment(ctx, ExperimentConfig{
		Name:              "lifecycle",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 1.0,
		Status:            domain.ExperimentActive,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 120 distinct participants: past the sufficiency bar once completed.
	sentAt := noon
	for i := 0; i < 120; i++ {
		variant := "control"
		if i%2 == 0 {
			variant = "firm"
		}
		h.stores.Logs.Insert(ctx, &domain.NotificationLog{
			ID:                domain.NewID(),
			UserID:            fmt.Sprintf("user-%d", i),
			MessageID:         "tmpl-1",
			SentAt:            &sentAt,
			DeliveryStatus:    domain.StatusSent,
			ActionTaken:       domain.ActionCompletedTask,
			ExperimentID:      exp.ID,
			ExperimentVariant: variant,
			CreatedAt:         noon,
		})
	}

	// While active, the sample size only approaches significance.
	got, err := h.eng.GetExperimentResults(ctx, "lifecycle")
	if err != nil {
		t.Fatal(err)
	}
	if got.Results.Significance != experiment.SignificanceApproaching {
		t.Fatalf("active significance = %q, want approaching", got.Results.Significance)
	}

	// Completion recomputes with the final status, reaching sufficient.
	completed, err := h.eng.UpdateExperimentStatus(ctx, "lifecycle", domain.ExperimentCompleted)
	if err != nil {
		t.Fatalf("UpdateExperimentStatus: %v", err)
	}
	if completed.Status != domain.ExperimentCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	if completed.Results == nil || completed.Results.Significance != experiment.SignificanceSufficient {
		t.Fatalf("completed results = %+v, want sufficient significance", completed.Results)
	}

	// The stored row agrees, and reads keep serving the final label.
	got, err = h.eng.GetExperimentResults(ctx, "lifecycle")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.ExperimentCompleted || got.Results.Significance != experiment.SignificanceSufficient {
		t.Errorf("after completion: status %q, significance %q", got.Status, got.Results.Significance)
	}

	// A rating that lands after completion still reaches the aggregates.
	logs, _ := h.stores.Logs.ListByExperiment(ctx, exp.ID)
	five := 5
	if _, _, err := h.stores.Logs.Update(ctx, logs[0].ID, func(l *domain.NotificationLog) error {
		l.EffectivenessRating = &five
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = h.eng.GetExperimentResults(ctx, "lifecycle")
	rated := false
	for _, v := range got.Results.Variants {
		if v.AvgEffectiveness == 5 {
			rated = true
		}
	}
	if !rated {
		t.Error("late rating missing from recomputed results")
	}
}

func TestUpdateExperimentStatusTransitions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.eng.CreateExperiment(ctx, ExperimentConfig{
		Name:              "gated",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 0.5,
	}); err != nil {
		t.Fatal(err)
	}

	// Draft cannot jump straight to completed.
	if _, err := h.eng.UpdateExperimentStatus(ctx, "gated", domain.ExperimentCompleted); err == nil {
		t.Error("draft moved directly to completed")
	}

	for _, status := range []domain.ExperimentStatus{
		domain.ExperimentActive, domain.ExperimentPaused,
		domain.ExperimentActive, domain.ExperimentCompleted,
		domain.ExperimentArchived,
	} {
		if _, err := h.eng.UpdateExperimentStatus(ctx, "gated", status); err != nil {
			t.Fatalf("transition to %q: %v", status, err)
		}
	}

	// Archived is terminal.
	if _, err := h.eng.UpdateExperimentStatus(ctx, "gated", domain.ExperimentActive); err == nil {
		t.Error("archived experiment reactivated")
	}

	if _, err := h.eng.UpdateExperimentStatus(ctx, "missing", domain.ExperimentActive); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown experiment: err = %v, want ErrNotFound", err)
	}
}

func TestExperimentResultsComputedOnDemand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	exp, err := h.eng.CreateExperiment(ctx, ExperimentConfig{
		Name:              "on-demand",
		ControlVariant:    "control",
		TreatmentVariants: []string{"firm"},
		TrafficAllocation: 0.5,
		Status:            domain.ExperimentActive,
	})
	if err != nil {
		t.Fatal(err)
	}

	expLog := func(userID, variant string, action domain.ActionTaken, rating *int) *domain.NotificationLog {
		sentAt := noon
		return &domain.NotificationLog{
			ID:                  domain.NewID(),
			UserID:              userID,
			MessageID:           "tmpl-1",
			Emotion:             domain.EmotionWorried,
			Tone:                domain.ToneEncouraging,
			SentAt:              &sentAt,
			DeliveryStatus:      domain.StatusSent,
			ActionTaken:         action,
			EffectivenessRating: rating,
			ExperimentID:        exp.ID,
			ExperimentVariant:   variant,
			CreatedAt:           noon,
		}
	}
	h.stores.Logs.Insert(ctx, expLog("a", "firm", domain.ActionCompletedTask, intPtr(5)))
	h.stores.Logs.Insert(ctx, expLog("b", "firm", domain.ActionCompletedTask, nil))
	h.stores.Logs.Insert(ctx, expLog("c", "firm", domain.ActionDismissed, nil))
	h.stores.Logs.Insert(ctx, expLog("d", "control", domain.ActionDismissed, intPtr(2)))

	got, err := h.eng.GetExperimentResults(ctx, "on-demand")
	if err != nil {
		t.Fatalf("GetExperimentResults: %v", err)
	}
	if got.Results == nil {
		t.Fatal("results not computed")
	}
	if got.Results.TotalParticipants != 4 {
		t.Errorf("participants = %d, want 4", got.Results.TotalParticipants)
	}
	if got.Results.Significance != experiment.SignificanceInsufficient {
		t.Errorf("significance = %q, want insufficient", got.Results.Significance)
	}
	if len(got.Results.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(got.Results.Variants))
	}
	control, firm := got.Results.Variants[0], got.Results.Variants[1]
	if control.Variant != "control" || firm.Variant != "firm" {
		t.Fatalf("variant order = %q, %q", control.Variant, firm.Variant)
	}
	if firm.Sent != 3 || firm.Completed != 2 {
		t.Errorf("firm = %+v, want 3 sent, 2 completed", firm)
	}
	if firm.CompletionRate != 2.0/3.0 {
		t.Errorf("firm completion rate = %f", firm.CompletionRate)
	}
	if firm.AvgEffectiveness != 5 {
		t.Errorf("firm avg effectiveness = %f, want 5", firm.AvgEffectiveness)
	}
	if control.Sent != 1 || control.Completed != 0 {
		t.Errorf("control = %+v", control)
	}

	if _, err := h.eng.GetExperimentResults(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown experiment: err = %v, want ErrNotFound", err)
	}
}
