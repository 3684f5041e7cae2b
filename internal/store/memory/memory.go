// Package memory provides mutex-guarded in-memory store implementations.
// Used by the test suites and for local development without Postgres.
// Values are deep-copied on the way in and out so callers never alias
// stored state.
package memory

import (
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/store"
)

// NewStores returns a full in-memory store bundle.
func NewStores() *store.Stores {
	return &store.Stores{
		States:      NewStateStore(),
		Schedules:   NewScheduleStore(),
		Logs:        NewLogStore(),
		Profiles:    NewProfileStore(),
		Experiments: NewExperimentStore(),
		Audit:       NewAuditStore(),
	}
}

// --------------------------------------------------------------------------
// Copy helpers
// --------------------------------------------------------------------------

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func copyInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

func copyStrMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyState(s *domain.EmotionalState) *domain.EmotionalState {
	c := *s
	c.Context = copyStrMap(s.Context)
	c.Triggers = append([]string(nil), s.Triggers...)
	return &c
}

func copyEntry(e *domain.ScheduleEntry) *domain.ScheduleEntry {
	c := *e
	c.LastAttemptAt = copyTime(e.LastAttemptAt)
	c.AnonymizedAt = copyTime(e.AnonymizedAt)
	return &c
}

func copyLog(l *domain.NotificationLog) *domain.NotificationLog {
	c := *l
	c.SentAt = copyTime(l.SentAt)
	c.DeliveredAt = copyTime(l.DeliveredAt)
	c.OpenedAt = copyTime(l.OpenedAt)
	c.ActionTakenAt = copyTime(l.ActionTakenAt)
	c.ResponseTimeMs = copyInt64(l.ResponseTimeMs)
	c.EffectivenessRating = copyInt(l.EffectivenessRating)
	c.AnonymizedAt = copyTime(l.AnonymizedAt)
	return &c
}

func copyProfile(p *domain.UserEmotionalProfile) *domain.UserEmotionalProfile {
	c := *p
	c.PreferredTones = append([]domain.Tone(nil), p.PreferredTones...)
	c.AvoidedTones = append([]domain.Tone(nil), p.AvoidedTones...)
	c.MostEffectiveEmotions = append([]domain.Emotion(nil), p.MostEffectiveEmotions...)
	c.OptimalSendTimes = append([]int(nil), p.OptimalSendTimes...)
	return &c
}

func copyExperiment(e *domain.Experiment) *domain.Experiment {
	c := *e
	c.TreatmentVariants = append([]string(nil), e.TreatmentVariants...)
	c.TargetEmotions = append([]domain.Emotion(nil), e.TargetEmotions...)
	c.TargetTones = append([]domain.Tone(nil), e.TargetTones...)
	c.StartDate = copyTime(e.StartDate)
	c.EndDate = copyTime(e.EndDate)
	if e.Results != nil {
		r := *e.Results
		r.Variants = append([]domain.VariantResult(nil), e.Results.Variants...)
		c.Results = &r
	}
	return &c
}

func copyAudit(a *domain.AuditEvent) *domain.AuditEvent {
	c := *a
	c.Meta = copyStrMap(a.Meta)
	c.AnonymizedAt = copyTime(a.AnonymizedAt)
	return &c
}
