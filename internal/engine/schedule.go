package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/experiment"
	"github.com/risewell/notification-engine/internal/selector"
)

// ScheduleNotification selects and renders a template for the emotional
// state and persists a pending schedule entry. An active experiment may
// override the tone for enrolled users; the assignment is recorded on the
// entry either way.
func (e *Engine) ScheduleNotification(ctx context.Context, userID string, state *domain.EmotionalState, priority Priority) (*domain.ScheduleEntry, error) {
	if state == nil {
		return nil, fmt.Errorf("schedule notification: nil emotional state")
	}
	now := e.now()

	tone := state.RecommendedTone
	if !tone.Valid() {
		tone = domain.ToneEncouraging
	}

	var experimentID, experimentVariant string
	active, err := e.stores.Experiments.ListActive(ctx)
	if err != nil {
		e.logger.Warn("list active experiments", "error", err)
	} else if exp, variant, ok := experiment.Eligible(active, userID, state.Emotion, tone); ok {
		experimentID = exp.ID
		experimentVariant = variant
		// A treatment variant naming a valid tone overrides the selection;
		// the control arm keeps the recommended tone.
		if variant != exp.ControlVariant && domain.Tone(variant).Valid() {
			tone = domain.Tone(variant)
		}
	}

	tmpl, err := e.selector.Select(ctx, state.Emotion, tone)
	if err != nil {
		if errors.Is(err, domain.ErrNoTemplateAvailable) {
			// Aborted, logged, and never silently substituted.
			e.logger.Warn("no template available",
				"user_id", userID, "emotion", state.Emotion, "tone", tone)
		}
		return nil, err
	}

	level := escalationFor(state, e.cfg.EscalationDays)
	scheduledFor := e.sendTime(ctx, userID, priority, now)

	entry := &domain.ScheduleEntry{
		ID:                domain.NewID(),
		UserID:            userID,
		ScheduledFor:      scheduledFor,
		Emotion:           state.Emotion,
		Tone:              tone,
		EscalationLevel:   level,
		TemplateID:        tmpl.ID,
		EmotionalStateID:  state.ID,
		Status:            domain.StatusPending,
		MaxAttempts:       e.cfg.MaxAttempts,
		Payload:           e.renderPayload(tmpl.Body, state, scheduledFor),
		ExperimentID:      experimentID,
		ExperimentVariant: experimentVariant,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.stores.Schedules.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("persist schedule entry: %w", err)
	}

	e.trail.Record(ctx, userID, "schedule_entry", entry.ID, events.ActionScheduleCreated, map[string]string{
		"emotion":    string(entry.Emotion),
		"tone":       string(entry.Tone),
		"escalation": entry.EscalationLevel.String(),
	})
	return entry, nil
}

// CancelScheduled cancels a pending entry on behalf of its owner.
// Cancelling a claimed or terminal entry returns ErrNotCancellable; an
// unknown entry or one owned by someone else returns ErrNotFound.
func (e *Engine) CancelScheduled(ctx context.Context, entryID, requestingUserID string) error {
	entry, err := e.stores.Schedules.Get(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != requestingUserID {
		return domain.ErrNotFound
	}
	if err := e.stores.Schedules.Cancel(ctx, entryID, e.now()); err != nil {
		return err
	}
	e.trail.Record(ctx, requestingUserID, "schedule_entry", entryID, events.ActionCancelled, nil)
	return nil
}

// ConfirmDelivery records a platform delivery receipt for a sent entry.
func (e *Engine) ConfirmDelivery(ctx context.Context, entryID string) error {
	if err := e.stores.Schedules.MarkDelivered(ctx, entryID, e.now()); err != nil {
		return err
	}
	entry, err := e.stores.Schedules.Get(ctx, entryID)
	if err == nil {
		e.trail.Record(ctx, entry.UserID, "schedule_entry", entryID, events.ActionDelivered, nil)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// escalationFor maps the state's inactivity context onto the ordered
// escalation steps using the configured day boundaries.
func escalationFor(state *domain.EmotionalState, boundaries []int) domain.EscalationLevel {
	days := 0
	if v, ok := state.Context["days_since_use"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	level := domain.EscalationGentle
	for i, boundary := range boundaries {
		if days >= boundary {
			level = domain.EscalationLevel(i)
		}
	}
	return level
}

// sendTime picks the dispatch instant: immediately for high priority,
// otherwise the next of the user's learned optimal hours. Either way the
// result is deferred out of quiet hours.
func (e *Engine) sendTime(ctx context.Context, userID string, priority Priority, now time.Time) time.Time {
	at := now
	if priority != PriorityHigh {
		if profile, err := e.stores.Profiles.Get(ctx, userID); err == nil && len(profile.OptimalSendTimes) > 0 {
			at = nextHourOccurrence(now, profile.OptimalSendTimes)
		}
	}
	return e.deferQuietHours(at)
}

// nextHourOccurrence returns the earliest future instant whose hour is in
// hours (ascending, 0-23).
func nextHourOccurrence(now time.Time, hours []int) time.Time {
	for _, h := range hours {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, now.Location())
		if candidate.After(now) {
			return candidate
		}
	}
	// All of today's optimal hours have passed; take tomorrow's first.
	next := now.Add(24 * time.Hour)
	return time.Date(next.Year(), next.Month(), next.Day(), hours[0], 0, 0, 0, next.Location())
}

// deferQuietHours pushes an instant inside the quiet window to its end.
func (e *Engine) deferQuietHours(t time.Time) time.Time {
	h := t.Hour()
	start, end := e.cfg.QuietStartHour, e.cfg.QuietEndHour
	inQuiet := false
	if start > end { // window wraps midnight, e.g. 22 → 9
		inQuiet = h >= start || h < end
	} else {
		inQuiet = h >= start && h < end
	}
	if !inQuiet {
		return t
	}
	day := t
	if h >= start && start > end {
		day = t.Add(24 * time.Hour)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), end, 0, 0, 0, t.Location())
}

func (e *Engine) renderPayload(body string, state *domain.EmotionalState, sendAt time.Time) string {
	vars := map[string]string{
		"streak_days":   state.Context["current_streak"],
		"missed_days":   state.Context["days_since_use"],
		"missed_alarms": state.Context["missed_count"],
		"name":          state.Context["name"],
		"time":          sendAt.Format("15:04"),
	}
	return selector.Render(body, vars)
}
