// Package postgres implements the store interfaces on pgx. Schema lives in
// schema.sql at the repository root.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/store"
)

// NewStores wires every Postgres store onto a shared pool.
func NewStores(pool *pgxpool.Pool) *store.Stores {
	return &store.Stores{
		States:      &EmotionalStateStore{pool: pool},
		Schedules:   &ScheduleStore{pool: pool},
		Logs:        &LogStore{pool: pool},
		Profiles:    &ProfileStore{pool: pool},
		Experiments: &ExperimentStore{pool: pool},
		Audit:       &AuditStore{pool: pool},
	}
}

// --------------------------------------------------------------------------
// Column helpers
// --------------------------------------------------------------------------

// Anonymized rows carry NULL user_id; the domain uses "" for the same thing.

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func textValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func tonesToStrings(tones []domain.Tone) []string {
	out := make([]string, len(tones))
	for i, t := range tones {
		out[i] = string(t)
	}
	return out
}

func stringsToTones(ss []string) []domain.Tone {
	out := make([]domain.Tone, len(ss))
	for i, s := range ss {
		out[i] = domain.Tone(s)
	}
	return out
}

func emotionsToStrings(emotions []domain.Emotion) []string {
	out := make([]string, len(emotions))
	for i, e := range emotions {
		out[i] = string(e)
	}
	return out
}

func stringsToEmotions(ss []string) []domain.Emotion {
	out := make([]domain.Emotion, len(ss))
	for i, s := range ss {
		out[i] = domain.Emotion(s)
	}
	return out
}
