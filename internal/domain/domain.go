// Package domain defines the closed vocabularies, entities, and error
// taxonomy shared by every engine component. The emotion/tone/escalation
// sets are fixed — the classifier and selector switch over them
// exhaustively, so they are typed constants rather than open strings.
package domain

import "time"

// --------------------------------------------------------------------------
// Vocabularies
// --------------------------------------------------------------------------

// Emotion is a behavioral-state label inferred from user activity.
type Emotion string

const (
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionWorried Emotion = "worried"
	EmotionExcited Emotion = "excited"
	EmotionLonely  Emotion = "lonely"
	EmotionProud   Emotion = "proud"
	EmotionSleepy  Emotion = "sleepy"
)

// Emotions lists every valid emotion.
var Emotions = []Emotion{
	EmotionHappy, EmotionSad, EmotionWorried, EmotionExcited,
	EmotionLonely, EmotionProud, EmotionSleepy,
}

// Valid reports whether e is one of the fixed emotion labels.
func (e Emotion) Valid() bool {
	for _, known := range Emotions {
		if e == known {
			return true
		}
	}
	return false
}

// Tone is the rhetorical style of a message.
type Tone string

const (
	ToneEncouraging Tone = "encouraging"
	TonePlayful     Tone = "playful"
	ToneFirm        Tone = "firm"
	ToneRoast       Tone = "roast"
)

// Tones lists every valid tone.
var Tones = []Tone{ToneEncouraging, TonePlayful, ToneFirm, ToneRoast}

// Valid reports whether t is one of the fixed tone labels.
func (t Tone) Valid() bool {
	for _, known := range Tones {
		if t == known {
			return true
		}
	}
	return false
}

// EscalationLevel is an ordered severity step reflecting how long a user
// has disengaged. Ordering is by declaration: Gentle < Nudge < Concerned
// < Firm < MajorReset.
type EscalationLevel int

const (
	EscalationGentle EscalationLevel = iota
	EscalationNudge
	EscalationConcerned
	EscalationFirm
	EscalationMajorReset
)

var escalationNames = [...]string{"gentle", "nudge", "concerned", "firm", "major_reset"}

func (l EscalationLevel) String() string {
	if l < EscalationGentle || l > EscalationMajorReset {
		return "unknown"
	}
	return escalationNames[l]
}

// Next returns the following escalation step, saturating at MajorReset.
func (l EscalationLevel) Next() EscalationLevel {
	if l >= EscalationMajorReset {
		return EscalationMajorReset
	}
	return l + 1
}

// ScheduleStatus is the delivery state of a ScheduleEntry.
type ScheduleStatus string

const (
	StatusPending   ScheduleStatus = "pending"
	StatusSent      ScheduleStatus = "sent"
	StatusDelivered ScheduleStatus = "delivered"
	StatusFailed    ScheduleStatus = "failed"
	StatusCancelled ScheduleStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s ScheduleStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusCancelled
}

// ActionTaken is the user's response to a delivered notification.
type ActionTaken string

const (
	ActionNone          ActionTaken = "none"
	ActionDismissed     ActionTaken = "dismissed"
	ActionSnoozed       ActionTaken = "snoozed"
	ActionOpenedApp     ActionTaken = "opened_app"
	ActionCompletedTask ActionTaken = "completed_task"
)

// Positive reports whether the action counts as a successful outcome for
// template effectiveness.
func (a ActionTaken) Positive() bool {
	return a == ActionCompletedTask || a == ActionOpenedApp
}

// ExperimentStatus is the lifecycle state of an Experiment.
type ExperimentStatus string

const (
	ExperimentDraft     ExperimentStatus = "draft"
	ExperimentActive    ExperimentStatus = "active"
	ExperimentPaused    ExperimentStatus = "paused"
	ExperimentCompleted ExperimentStatus = "completed"
	ExperimentArchived  ExperimentStatus = "archived"
)

// --------------------------------------------------------------------------
// Activity input
// --------------------------------------------------------------------------

// ActivitySnapshot is the classifier's input: a point-in-time view of a
// user's recent engagement, assembled by the behavior-analysis job.
type ActivitySnapshot struct {
	DisplayName          string    `json:"display_name,omitempty"`
	MissedAlarms         int       `json:"missed_alarms"`
	BrokenStreaks        int       `json:"broken_streaks"`
	CurrentStreak        int       `json:"current_streak"`
	DaysSinceLastUse     int       `json:"days_since_last_use"`
	DaysSinceStreakBreak int       `json:"days_since_streak_break"` // -1 when no recent break
	MilestoneCrossed     bool      `json:"milestone_crossed"`
	RecentEngagement     float64   `json:"recent_engagement"` // 0..1 rolling open rate
	ObservedAt           time.Time `json:"observed_at"`
}
