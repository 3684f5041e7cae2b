package domain

import "time"

// --------------------------------------------------------------------------
// Entities
// --------------------------------------------------------------------------

// EmotionalState is one classifier verdict for a user. Immutable once
// written; rows older than the retention window are treated as absent.
type EmotionalState struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Emotion         Emotion           `json:"emotion"`
	Intensity       int               `json:"intensity"`  // 1..10
	Confidence      float64           `json:"confidence"` // 0.0..1.0
	Context         map[string]string `json:"context"`
	Triggers        []string          `json:"triggers"`
	RecommendedTone Tone              `json:"recommended_tone"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Template is a message template from the external catalog. The engine
// reads bodies and mutates only the effectiveness counters.
type Template struct {
	ID                 string   `json:"id"`
	Emotion            Emotion  `json:"emotion"`
	Tone               Tone     `json:"tone"`
	Body               string   `json:"body"` // contains {placeholder} markers
	Tags               []string `json:"tags"`
	EffectivenessScore float64  `json:"effectiveness_score"` // 0..100
	UsageCount         int64    `json:"usage_count"`
	SuccessCount       int64    `json:"success_count"`
	IsActive           bool     `json:"is_active"`
}

// ScheduleEntry is a persisted, retry-capable scheduled notification.
type ScheduleEntry struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"` // empty once anonymized
	ScheduledFor      time.Time       `json:"scheduled_for"`
	Emotion           Emotion         `json:"emotion"`
	Tone              Tone            `json:"tone"`
	EscalationLevel   EscalationLevel `json:"escalation_level"`
	TemplateID        string          `json:"template_id"`
	EmotionalStateID  string          `json:"emotional_state_id"`
	Status            ScheduleStatus  `json:"status"`
	Attempts          int             `json:"attempts"`
	MaxAttempts       int             `json:"max_attempts"`
	LastAttemptAt     *time.Time      `json:"last_attempt_at,omitempty"`
	Payload           string          `json:"payload"` // fully rendered body
	ExperimentID      string          `json:"experiment_id,omitempty"`
	ExperimentVariant string          `json:"experiment_variant,omitempty"`
	AnonymizedAt      *time.Time      `json:"anonymized_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NotificationLog records one dispatched notification and the user's
// eventual response. It is both the audit record and the learner's input.
type NotificationLog struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"` // empty once anonymized
	MessageID           string          `json:"message_id"` // template id
	EmotionalStateID    string          `json:"emotional_state_id"`
	Emotion             Emotion         `json:"emotion"`
	Tone                Tone            `json:"tone"`
	EscalationLevel     EscalationLevel `json:"escalation_level"`
	MessageSent         string          `json:"message_sent"`
	ScheduledFor        time.Time       `json:"scheduled_for"`
	SentAt              *time.Time      `json:"sent_at,omitempty"`
	DeliveredAt         *time.Time      `json:"delivered_at,omitempty"`
	DeliveryStatus      ScheduleStatus  `json:"delivery_status"`
	NotificationOpened  bool            `json:"notification_opened"`
	OpenedAt            *time.Time      `json:"opened_at,omitempty"`
	ActionTaken         ActionTaken     `json:"action_taken"`
	ActionTakenAt       *time.Time      `json:"action_taken_at,omitempty"`
	ResponseTimeMs      *int64          `json:"response_time_ms,omitempty"`
	EffectivenessRating *int            `json:"effectiveness_rating,omitempty"` // 1..5
	UserFeedback        string          `json:"user_feedback,omitempty"`
	ExperimentID        string          `json:"experiment_id,omitempty"`
	ExperimentVariant   string          `json:"experiment_variant,omitempty"`
	AnonymizedAt        *time.Time      `json:"anonymized_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// DeriveResponseTime sets ResponseTimeMs when both timestamps are known.
// The field is derived, never written independently.
func (l *NotificationLog) DeriveResponseTime() {
	if l.SentAt == nil || l.ActionTakenAt == nil {
		l.ResponseTimeMs = nil
		return
	}
	ms := l.ActionTakenAt.Sub(*l.SentAt).Milliseconds()
	l.ResponseTimeMs = &ms
}

// ProfileTotals are the per-user lifetime counters.
type ProfileTotals struct {
	Sent      int64 `json:"sent"`
	Opened    int64 `json:"opened"`
	Completed int64 `json:"completed"`
}

// UserEmotionalProfile is the learned per-user preference row. Exactly one
// exists per user; writes go through a version-checked upsert.
type UserEmotionalProfile struct {
	UserID                     string        `json:"user_id"`
	PreferredTones             []Tone        `json:"preferred_tones"`
	AvoidedTones               []Tone        `json:"avoided_tones"`
	MostEffectiveEmotions      []Emotion     `json:"most_effective_emotions"`
	OptimalSendTimes           []int         `json:"optimal_send_times"` // hours of day
	ConfidenceScore            float64       `json:"confidence_score"`
	DataPointsCollected        int64         `json:"data_points_collected"`
	Totals                     ProfileTotals `json:"totals"`
	AverageEffectivenessRating float64       `json:"average_effectiveness_rating"`
	LastAnalyzedAt             time.Time     `json:"last_analyzed_at"`
	Version                    int64         `json:"version"` // optimistic concurrency
}

// PrefersTone reports whether tone is in the user's preferred set.
func (p *UserEmotionalProfile) PrefersTone(tone Tone) bool {
	for _, t := range p.PreferredTones {
		if t == tone {
			return true
		}
	}
	return false
}

// AvoidsTone reports whether tone is in the user's avoided set.
func (p *UserEmotionalProfile) AvoidsTone(tone Tone) bool {
	for _, t := range p.AvoidedTones {
		if t == tone {
			return true
		}
	}
	return false
}

// VariantResult is the aggregated performance of one experiment arm.
type VariantResult struct {
	Variant           string  `json:"variant"`
	Sent              int64   `json:"sent"`
	Opened            int64   `json:"opened"`
	Completed         int64   `json:"completed"`
	OpenRate          float64 `json:"open_rate"`
	CompletionRate    float64 `json:"completion_rate"`
	AvgEffectiveness  float64 `json:"avg_effectiveness"`
	TotalParticipants int64   `json:"total_participants"`
}

// ExperimentResults is the recomputed aggregate across all arms.
type ExperimentResults struct {
	Variants          []VariantResult `json:"variants"`
	TotalParticipants int64           `json:"total_participants"`
	Significance      string          `json:"significance"` // sufficient | approaching | insufficient
	ComputedAt        time.Time       `json:"computed_at"`
}

// Experiment is a controlled A/B test over tone/variant selection.
type Experiment struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"` // unique
	ControlVariant    string             `json:"control_variant"`
	TreatmentVariants []string           `json:"treatment_variants"`
	TrafficAllocation float64            `json:"traffic_allocation"` // 0..1
	TargetEmotions    []Emotion          `json:"target_emotions"`
	TargetTones       []Tone             `json:"target_tones"`
	Status            ExperimentStatus   `json:"status"`
	StartDate         *time.Time         `json:"start_date,omitempty"`
	EndDate           *time.Time         `json:"end_date,omitempty"`
	PrimaryMetric     string             `json:"primary_metric"`
	Results           *ExperimentResults `json:"results,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Targets reports whether the experiment applies to the given emotion/tone.
// Empty target lists match everything.
func (e *Experiment) Targets(emotion Emotion, tone Tone) bool {
	if len(e.TargetEmotions) > 0 {
		found := false
		for _, te := range e.TargetEmotions {
			if te == emotion {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(e.TargetTones) > 0 {
		for _, tt := range e.TargetTones {
			if tt == tone {
				return true
			}
		}
		return false
	}
	return true
}

// AuditEvent is one row in the companion lifecycle event store.
type AuditEvent struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"` // empty once anonymized
	EntityType   string            `json:"entity_type"`
	EntityID     string            `json:"entity_id"`
	Action       string            `json:"action"`
	Meta         map[string]string `json:"meta,omitempty"`
	AnonymizedAt *time.Time        `json:"anonymized_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
