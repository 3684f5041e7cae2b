// Package classifier derives a user's emotional state from recent activity.
//
// The selection policy is a fixed priority list — first match wins:
// long inactivity, declining engagement, a freshly broken streak, an active
// growing streak, a crossed milestone, an early-morning low-engagement
// window. Confidence grows with the number of corroborating signals.
package classifier

import (
	"strconv"
	"time"

	"github.com/risewell/notification-engine/internal/domain"
)

const (
	longInactivityDays  = 14
	shortInactivityDays = 3
	freshBreakMaxDays   = 2
	earlyMorningStart   = 5
	earlyMorningEnd     = 9
	lowEngagement       = 0.3
	growingStreakMin    = 2

	baseConfidence    = 0.4
	perSignalIncrease = 0.15
)

// Classifier turns activity snapshots into emotional states.
type Classifier struct {
	// ProudStreakDays is the streak length at which happy upgrades to proud.
	ProudStreakDays int
}

// New creates a classifier.
func New(proudStreakDays int) *Classifier {
	return &Classifier{ProudStreakDays: proudStreakDays}
}

// Classify derives an EmotionalState from the snapshot. The profile biases
// the recommended tone and may be nil for users without history.
func (c *Classifier) Classify(userID string, snap domain.ActivitySnapshot, profile *domain.UserEmotionalProfile) *domain.EmotionalState {
	emotion, intensity, triggers := c.selectEmotion(snap)

	state := &domain.EmotionalState{
		ID:              domain.NewID(),
		UserID:          userID,
		Emotion:         emotion,
		Intensity:       intensity,
		Confidence:      confidence(triggers),
		Context:         snapshotContext(snap),
		Triggers:        triggers,
		RecommendedTone: RecommendTone(emotion, profile),
		CreatedAt:       snap.ObservedAt,
	}
	return state
}

// selectEmotion applies the priority rules and returns the matched emotion,
// its intensity, and the signal names that corroborated it.
func (c *Classifier) selectEmotion(snap domain.ActivitySnapshot) (domain.Emotion, int, []string) {
	declining := snap.MissedAlarms > 0 || snap.BrokenStreaks > 0

	switch {
	case snap.DaysSinceLastUse >= longInactivityDays:
		triggers := []string{"long_inactivity"}
		if snap.MissedAlarms > 0 {
			triggers = append(triggers, "missed_alarms")
		}
		if snap.BrokenStreaks > 0 {
			triggers = append(triggers, "broken_streaks")
		}
		return domain.EmotionLonely, clampIntensity(4 + snap.DaysSinceLastUse/7), triggers

	case snap.DaysSinceLastUse >= shortInactivityDays && declining:
		triggers := []string{"declining_engagement"}
		if snap.MissedAlarms > 0 {
			triggers = append(triggers, "missed_alarms")
		}
		if snap.BrokenStreaks > 0 {
			triggers = append(triggers, "broken_streaks")
		}
		return domain.EmotionWorried, clampIntensity(3 + snap.DaysSinceLastUse/2), triggers

	case snap.BrokenStreaks > 0 && snap.DaysSinceStreakBreak >= 0 && snap.DaysSinceStreakBreak <= freshBreakMaxDays:
		triggers := []string{"streak_broken"}
		if snap.MissedAlarms > 0 {
			triggers = append(triggers, "missed_alarms")
		}
		return domain.EmotionSad, clampIntensity(5 + snap.BrokenStreaks), triggers

	case snap.DaysSinceLastUse <= 1 && snap.CurrentStreak >= growingStreakMin:
		triggers := []string{"growing_streak"}
		if snap.MilestoneCrossed {
			triggers = append(triggers, "milestone_crossed")
		}
		if snap.CurrentStreak >= c.ProudStreakDays {
			return domain.EmotionProud, clampIntensity(5 + snap.CurrentStreak/7), triggers
		}
		return domain.EmotionHappy, clampIntensity(3 + snap.CurrentStreak), triggers

	case snap.MilestoneCrossed:
		return domain.EmotionExcited, 8, []string{"milestone_crossed"}

	case isEarlyMorning(snap.ObservedAt) && snap.RecentEngagement < lowEngagement:
		return domain.EmotionSleepy, 4, []string{"early_morning_low_engagement"}
	}

	// Nothing notable: mildly positive baseline.
	return domain.EmotionHappy, 2, []string{"baseline"}
}

// RecommendTone picks a tone for the emotion, consulting the user's learned
// preferences first and falling back to the global default.
func RecommendTone(emotion domain.Emotion, profile *domain.UserEmotionalProfile) domain.Tone {
	if profile != nil {
		for _, t := range profile.PreferredTones {
			if !profile.AvoidsTone(t) {
				return t
			}
		}
		if profile.AvoidsTone(domain.ToneEncouraging) {
			return domain.TonePlayful
		}
	}
	return domain.ToneEncouraging
}

// confidence maps corroborating-signal count to 0..1.
func confidence(triggers []string) float64 {
	if len(triggers) == 0 {
		return baseConfidence
	}
	c := baseConfidence + perSignalIncrease*float64(len(triggers)-1)
	if c > 1.0 {
		c = 1.0
	}
	return c
}

func snapshotContext(snap domain.ActivitySnapshot) map[string]string {
	ctx := map[string]string{
		"days_since_use": strconv.Itoa(snap.DaysSinceLastUse),
		"missed_count":   strconv.Itoa(snap.MissedAlarms),
		"broken_streaks": strconv.Itoa(snap.BrokenStreaks),
		"current_streak": strconv.Itoa(snap.CurrentStreak),
	}
	if snap.DisplayName != "" {
		ctx["name"] = snap.DisplayName
	}
	return ctx
}

func isEarlyMorning(t time.Time) bool {
	h := t.Hour()
	return h >= earlyMorningStart && h < earlyMorningEnd
}

func clampIntensity(n int) int {
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
