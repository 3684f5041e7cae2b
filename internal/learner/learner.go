// Package learner closes the feedback loop: it reacts to NotificationLog
// lifecycle events, maintains template effectiveness counters, and keeps
// each user's emotional profile current.
//
// Every update is gated on an observed state transition (previous row vs
// current row), so re-delivering the same event is a no-op and counters
// are never double-applied.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/selector"
	"github.com/risewell/notification-engine/internal/store"
)

const (
	// successRatingMin is the rating floor for a template success.
	successRatingMin = 4

	// preference thresholds: a tone/emotion qualifies with a mean rating
	// of at least preferredMean over at least minSamples rated logs.
	preferredMean = 3.5
	minSamples    = 3

	// optimalRatingMin marks a send hour as optimal.
	optimalRatingMin = 4

	// defaultConfidence applies before any ratings exist.
	defaultConfidence = 0.5

	// upsertRetries bounds the optimistic-concurrency merge loop.
	upsertRetries = 5
)

// Learner subscribes to the event bus and performs the reactive updates.
type Learner struct {
	logs     store.LogStore
	profiles store.ProfileStore
	catalog  selector.Catalog
	logger   *slog.Logger
}

// New creates a Learner.
func New(logs store.LogStore, profiles store.ProfileStore, catalog selector.Catalog, logger *slog.Logger) *Learner {
	return &Learner{logs: logs, profiles: profiles, catalog: catalog, logger: logger}
}

// HandleLogEvent implements events.LogHandler.
func (l *Learner) HandleLogEvent(ctx context.Context, event events.LogEvent) error {
	log := event.Current

	if event.Created() {
		// Usage counts exactly once per log, at dispatch.
		if err := l.catalog.RecordUsage(ctx, log.MessageID); err != nil {
			l.logger.Warn("record template usage failed", "template_id", log.MessageID, "error", err)
		}
		return l.refreshProfile(ctx, log.UserID)
	}

	ratingSet := event.Previous.EffectivenessRating == nil && log.EffectivenessRating != nil
	actionSet := event.Previous.ActionTaken != log.ActionTaken && log.ActionTaken != domain.ActionNone
	openedSet := !event.Previous.NotificationOpened && log.NotificationOpened

	// A success counts when the combined condition first becomes true. The
	// rating and the action may arrive in separate updates, in either order,
	// so the gate is on the pair, not on either field alone.
	if succeeded(log) && !succeeded(event.Previous) {
		if err := l.catalog.RecordSuccess(ctx, log.MessageID); err != nil {
			l.logger.Warn("record template success failed", "template_id", log.MessageID, "error", err)
		}
	}

	if !ratingSet && !actionSet && !openedSet {
		// No transition: re-delivery of a known update.
		return nil
	}
	return l.refreshProfile(ctx, log.UserID)
}

// succeeded reports whether the log meets the template-success bar: a
// rating of at least successRatingMin alongside a positive action.
func succeeded(log *domain.NotificationLog) bool {
	return log.EffectivenessRating != nil &&
		*log.EffectivenessRating >= successRatingMin &&
		log.ActionTaken.Positive()
}

// refreshProfile recomputes the user's profile from their full log history
// and writes it through a version-checked upsert. On conflict, re-read and
// recompute — derived values merge by construction, so the retry never
// overwrites a concurrent counter bump.
func (l *Learner) refreshProfile(ctx context.Context, userID string) error {
	if userID == "" {
		return nil // anonymized log, nothing to learn
	}

	for attempt := 0; attempt < upsertRetries; attempt++ {
		existing, err := l.profiles.Get(ctx, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("load profile: %w", err)
		}

		logs, err := l.logs.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list logs: %w", err)
		}

		profile := Recompute(userID, logs, existing)

		var expected int64
		if existing != nil {
			expected = existing.Version
			profile.Version = existing.Version
		}

		err = l.profiles.Upsert(ctx, profile, expected)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrProfileUpsertConflict) {
			return fmt.Errorf("upsert profile: %w", err)
		}
	}
	return fmt.Errorf("refresh profile for %s: %w", userID, domain.ErrProfileUpsertConflict)
}

// Recompute derives a full profile from the user's logs (creation order).
// AvoidedTones are user-managed settings and carry over unchanged.
func Recompute(userID string, logs []*domain.NotificationLog, existing *domain.UserEmotionalProfile) *domain.UserEmotionalProfile {
	type stat struct {
		sum   float64
		count int
	}
	toneStats := make(map[domain.Tone]*stat)
	emotionStats := make(map[domain.Emotion]*stat)
	hourSet := make(map[int]bool)

	var ratingSum float64
	var ratingCount int
	var totals domain.ProfileTotals

	for _, log := range logs {
		totals.Sent++
		if log.NotificationOpened || log.ActionTaken == domain.ActionOpenedApp {
			totals.Opened++
		}
		if log.ActionTaken == domain.ActionCompletedTask {
			totals.Completed++
		}

		if log.EffectivenessRating == nil {
			continue
		}
		r := float64(*log.EffectivenessRating)
		ratingSum += r
		ratingCount++

		ts, ok := toneStats[log.Tone]
		if !ok {
			ts = &stat{}
			toneStats[log.Tone] = ts
		}
		ts.sum += r
		ts.count++

		es, ok := emotionStats[log.Emotion]
		if !ok {
			es = &stat{}
			emotionStats[log.Emotion] = es
		}
		es.sum += r
		es.count++

		if *log.EffectivenessRating >= optimalRatingMin && log.SentAt != nil {
			hourSet[log.SentAt.Hour()] = true
		}
	}

	profile := &domain.UserEmotionalProfile{
		UserID:              userID,
		DataPointsCollected: int64(len(logs)),
		Totals:              totals,
		LastAnalyzedAt:      time.Now().UTC(),
	}
	if existing != nil {
		profile.AvoidedTones = append([]domain.Tone(nil), existing.AvoidedTones...)
	}

	for tone, s := range toneStats {
		if s.count >= minSamples && s.sum/float64(s.count) >= preferredMean {
			profile.PreferredTones = append(profile.PreferredTones, tone)
		}
	}
	sort.Slice(profile.PreferredTones, func(i, j int) bool {
		return profile.PreferredTones[i] < profile.PreferredTones[j]
	})

	for emotion, s := range emotionStats {
		if s.count >= minSamples && s.sum/float64(s.count) >= preferredMean {
			profile.MostEffectiveEmotions = append(profile.MostEffectiveEmotions, emotion)
		}
	}
	sort.Slice(profile.MostEffectiveEmotions, func(i, j int) bool {
		return profile.MostEffectiveEmotions[i] < profile.MostEffectiveEmotions[j]
	})

	for h := range hourSet {
		profile.OptimalSendTimes = append(profile.OptimalSendTimes, h)
	}
	sort.Ints(profile.OptimalSendTimes)

	if ratingCount > 0 {
		profile.AverageEffectivenessRating = ratingSum / float64(ratingCount)
		profile.ConfidenceScore = profile.AverageEffectivenessRating / 5
		if profile.ConfidenceScore > 1 {
			profile.ConfidenceScore = 1
		}
	} else {
		profile.ConfidenceScore = defaultConfidence
	}

	return profile
}
