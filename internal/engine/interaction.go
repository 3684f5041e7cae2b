package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
)

// Interaction is a partial update to a notification log from the user's
// response. Nil fields leave the log unchanged.
type Interaction struct {
	Opened              *bool               `json:"opened,omitempty"`
	ActionTaken         *domain.ActionTaken `json:"action_taken,omitempty"`
	EffectivenessRating *int                `json:"effectiveness_rating,omitempty"` // 1..5
	FeedbackText        string              `json:"feedback_text,omitempty"`
	SnoozeMinutes       int                 `json:"snooze_minutes,omitempty"` // with ActionTaken=snoozed
}

const defaultSnooze = time.Hour

// RecordInteraction applies a user response to a notification log and
// publishes the update event that drives the learner. Field writes are
// first-write-wins and merged under the row lock, so re-delivering the
// same payload produces no state transition and concurrent interactions
// never clobber each other's fields.
func (e *Engine) RecordInteraction(ctx context.Context, logID string, in Interaction) (*domain.NotificationLog, error) {
	if in.EffectivenessRating != nil && (*in.EffectivenessRating < 1 || *in.EffectivenessRating > 5) {
		return nil, fmt.Errorf("record interaction: rating %d out of range 1..5", *in.EffectivenessRating)
	}
	if in.ActionTaken != nil {
		switch *in.ActionTaken {
		case domain.ActionDismissed, domain.ActionSnoozed, domain.ActionOpenedApp, domain.ActionCompletedTask, domain.ActionNone:
		default:
			return nil, fmt.Errorf("record interaction: unknown action %q", *in.ActionTaken)
		}
	}

	now := e.now()
	previous, log, err := e.stores.Logs.Update(ctx, logID, func(log *domain.NotificationLog) error {
		if in.Opened != nil && *in.Opened && !log.NotificationOpened {
			log.NotificationOpened = true
			log.OpenedAt = &now
			if log.DeliveredAt == nil {
				// An open is also the first delivery confirmation we get.
				log.DeliveredAt = &now
				log.DeliveryStatus = domain.StatusDelivered
			}
		}
		if in.ActionTaken != nil && *in.ActionTaken != domain.ActionNone && log.ActionTaken == domain.ActionNone {
			log.ActionTaken = *in.ActionTaken
			log.ActionTakenAt = &now
		}
		if in.EffectivenessRating != nil && log.EffectivenessRating == nil {
			r := *in.EffectivenessRating
			log.EffectivenessRating = &r
		}
		if in.FeedbackText != "" && log.UserFeedback == "" {
			log.UserFeedback = in.FeedbackText
		}
		log.DeriveResponseTime()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update notification log: %w", err)
	}

	action := events.ActionInteraction
	if in.Opened != nil && *in.Opened {
		action = events.ActionOpened
	}
	e.trail.Record(ctx, log.UserID, "notification_log", log.ID, action, map[string]string{
		"action_taken": string(log.ActionTaken),
	})

	if err := e.bus.Publish(ctx, events.LogEvent{Previous: previous, Current: log}); err != nil {
		e.logger.Warn("log updated handlers", "log_id", log.ID, "error", err)
	}

	// A snooze that just landed schedules a follow-up one escalation step up.
	if log.ActionTaken == domain.ActionSnoozed && previous.ActionTaken != domain.ActionSnoozed {
		if err := e.scheduleSnoozeFollowUp(ctx, log, in.SnoozeMinutes, now); err != nil {
			e.logger.Warn("snooze follow-up failed", "log_id", log.ID, "error", err)
		}
	}
	return log, nil
}

// scheduleSnoozeFollowUp re-enqueues the snoozed notification after the
// requested delay, escalated one step (saturating at major_reset).
func (e *Engine) scheduleSnoozeFollowUp(ctx context.Context, log *domain.NotificationLog, snoozeMinutes int, now time.Time) error {
	if log.UserID == "" {
		return nil
	}
	delay := defaultSnooze
	if snoozeMinutes > 0 {
		delay = time.Duration(snoozeMinutes) * time.Minute
	}

	entry := &domain.ScheduleEntry{
		ID:                domain.NewID(),
		UserID:            log.UserID,
		ScheduledFor:      e.deferQuietHours(now.Add(delay)),
		Emotion:           log.Emotion,
		Tone:              log.Tone,
		EscalationLevel:   log.EscalationLevel.Next(),
		TemplateID:        log.MessageID,
		EmotionalStateID:  log.EmotionalStateID,
		Status:            domain.StatusPending,
		MaxAttempts:       e.cfg.MaxAttempts,
		Payload:           log.MessageSent,
		ExperimentID:      log.ExperimentID,
		ExperimentVariant: log.ExperimentVariant,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.stores.Schedules.Insert(ctx, entry); err != nil {
		return fmt.Errorf("persist snooze follow-up: %w", err)
	}
	e.trail.Record(ctx, log.UserID, "schedule_entry", entry.ID, events.ActionScheduleCreated, map[string]string{
		"reason":     "snooze_follow_up",
		"escalation": entry.EscalationLevel.String(),
	})
	return nil
}
