package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

const logColumns = `
	id, user_id, message_id, emotional_state_id, emotion, tone,
	escalation_level, message_sent, scheduled_for, sent_at, delivered_at,
	delivery_status, notification_opened, opened_at, action_taken,
	action_taken_at, response_time_ms, effectiveness_rating, user_feedback,
	experiment_id, experiment_variant, anonymized_at, created_at`

// LogStore persists notification logs in notification_logs.
type LogStore struct {
	pool *pgxpool.Pool
}

func (s *LogStore) Insert(ctx context.Context, log *domain.NotificationLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		logArgs(log)...)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

func (s *LogStore) Get(ctx context.Context, id string) (*domain.NotificationLog, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+logColumns+` FROM notification_logs WHERE id = $1`, id)
	log, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return log, err
}

// Update applies fn inside a transaction, with the row read FOR UPDATE so
// concurrent interaction writes serialize rather than overwrite each other.
func (s *LogStore) Update(ctx context.Context, id string, fn func(*domain.NotificationLog) error) (*domain.NotificationLog, *domain.NotificationLog, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin log update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+logColumns+` FROM notification_logs WHERE id = $1 FOR UPDATE`,
		id)
	previous, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	updated := *previous
	if err := fn(&updated); err != nil {
		return nil, nil, err
	}

	args := logArgs(&updated)
	_, err = tx.Exec(ctx, `
		UPDATE notification_logs SET
			user_id = $2, message_id = $3, emotional_state_id = $4,
			emotion = $5, tone = $6, escalation_level = $7, message_sent = $8,
			scheduled_for = $9, sent_at = $10, delivered_at = $11,
			delivery_status = $12, notification_opened = $13, opened_at = $14,
			action_taken = $15, action_taken_at = $16, response_time_ms = $17,
			effectiveness_rating = $18, user_feedback = $19,
			experiment_id = $20, experiment_variant = $21, anonymized_at = $22,
			created_at = $23
		WHERE id = $1`,
		args...)
	if err != nil {
		return nil, nil, fmt.Errorf("update notification log: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit log update: %w", err)
	}
	return previous, &updated, nil
}

func (s *LogStore) ListByUser(ctx context.Context, userID string) ([]*domain.NotificationLog, error) {
	rows, err := s.pool.Query(ctx, "logs_by_user", userID)
	if err != nil {
		return nil, fmt.Errorf("list logs by user: %w", err)
	}
	return collectLogs(rows)
}

func (s *LogStore) ListByExperiment(ctx context.Context, experimentID string) ([]*domain.NotificationLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+logColumns+` FROM notification_logs
		WHERE experiment_id = $1
		ORDER BY created_at, id`,
		experimentID)
	if err != nil {
		return nil, fmt.Errorf("list logs by experiment: %w", err)
	}
	return collectLogs(rows)
}

// AnonymizeUser strips identity while keeping the row for experiment
// aggregates: user_id, feedback text, and the rendered message are cleared.
func (s *LogStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notification_logs
		SET user_id = NULL, user_feedback = '', message_sent = '',
		    anonymized_at = $2
		WHERE user_id = $1`,
		userID, at)
	if err != nil {
		return 0, fmt.Errorf("anonymize notification logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectLogs(rows pgx.Rows) ([]*domain.NotificationLog, error) {
	defer rows.Close()
	var logs []*domain.NotificationLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func logArgs(log *domain.NotificationLog) []any {
	return []any{
		log.ID, nullableText(log.UserID), log.MessageID, log.EmotionalStateID,
		string(log.Emotion), string(log.Tone), int(log.EscalationLevel),
		log.MessageSent, log.ScheduledFor, log.SentAt, log.DeliveredAt,
		string(log.DeliveryStatus), log.NotificationOpened, log.OpenedAt,
		string(log.ActionTaken), log.ActionTakenAt, log.ResponseTimeMs,
		log.EffectivenessRating, log.UserFeedback,
		nullableText(log.ExperimentID), nullableText(log.ExperimentVariant),
		log.AnonymizedAt, log.CreatedAt,
	}
}

func scanLog(row pgx.Row) (*domain.NotificationLog, error) {
	var (
		log        domain.NotificationLog
		userID     *string
		emotion    string
		tone       string
		escalation int
		status     string
		action     string
		expID      *string
		expVariant *string
	)
	err := row.Scan(&log.ID, &userID, &log.MessageID, &log.EmotionalStateID,
		&emotion, &tone, &escalation, &log.MessageSent, &log.ScheduledFor,
		&log.SentAt, &log.DeliveredAt, &status, &log.NotificationOpened,
		&log.OpenedAt, &action, &log.ActionTakenAt, &log.ResponseTimeMs,
		&log.EffectivenessRating, &log.UserFeedback, &expID, &expVariant,
		&log.AnonymizedAt, &log.CreatedAt)
	if err != nil {
		return nil, err
	}
	log.UserID = textValue(userID)
	log.Emotion = domain.Emotion(emotion)
	log.Tone = domain.Tone(tone)
	log.EscalationLevel = domain.EscalationLevel(escalation)
	log.DeliveryStatus = domain.ScheduleStatus(status)
	log.ActionTaken = domain.ActionTaken(action)
	log.ExperimentID = textValue(expID)
	log.ExperimentVariant = textValue(expVariant)
	return &log, nil
}
