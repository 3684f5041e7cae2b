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

// claimed is a store-internal status: the row is held by a dispatch worker
// and invisible to ClaimDue until released by MarkSent/MarkRetry/MarkFailed.
const claimedStatus = "claimed"

const scheduleColumns = `
	id, user_id, scheduled_for, emotion, tone, escalation_level, template_id,
	emotional_state_id, status, attempts, max_attempts, last_attempt_at,
	payload, experiment_id, experiment_variant, anonymized_at, created_at,
	updated_at`

// ScheduleStore persists schedule entries in schedule_entries. The claim in
// ClaimDue uses FOR UPDATE SKIP LOCKED, so concurrent dispatchers never hand
// the same entry to two workers.
type ScheduleStore struct {
	pool *pgxpool.Pool
}

func (s *ScheduleStore) Insert(ctx context.Context, entry *domain.ScheduleEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_entries (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18)`,
		entry.ID, nullableText(entry.UserID), entry.ScheduledFor,
		string(entry.Emotion), string(entry.Tone), int(entry.EscalationLevel),
		entry.TemplateID, entry.EmotionalStateID, string(entry.Status),
		entry.Attempts, entry.MaxAttempts, entry.LastAttemptAt, entry.Payload,
		nullableText(entry.ExperimentID), nullableText(entry.ExperimentVariant),
		entry.AnonymizedAt, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert schedule entry: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Get(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+` FROM schedule_entries WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return entry, err
}

func (s *ScheduleStore) ClaimDue(ctx context.Context, now time.Time, backoff time.Duration, limit int) ([]*domain.ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE schedule_entries
		SET status = $4, updated_at = $1
		WHERE id IN (
			SELECT id FROM schedule_entries
			WHERE status = 'pending'
			  AND scheduled_for <= $1
			  AND (last_attempt_at IS NULL OR last_attempt_at <= $2)
			ORDER BY scheduled_for
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+scheduleColumns,
		now, now.Add(-backoff), limit, claimedStatus)
	if err != nil {
		return nil, fmt.Errorf("claim due entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ScheduleEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *ScheduleStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `
		UPDATE schedule_entries
		SET status = 'sent', attempts = attempts + 1, last_attempt_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status NOT IN ('delivered', 'failed', 'cancelled')`,
		id, at)
}

func (s *ScheduleStore) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `
		UPDATE schedule_entries
		SET status = 'delivered', updated_at = $2
		WHERE id = $1 AND status = 'sent'`,
		id, at)
}

func (s *ScheduleStore) MarkRetry(ctx context.Context, id string, at time.Time) error {
	return s.transition(ctx, id, `
		UPDATE schedule_entries
		SET status = 'pending', attempts = attempts + 1, last_attempt_at = $2,
		    updated_at = $2
		WHERE id = $1 AND status NOT IN ('delivered', 'failed', 'cancelled')`,
		id, at)
}

func (s *ScheduleStore) MarkFailed(ctx context.Context, id string, at time.Time, reason string) error {
	return s.transition(ctx, id, `
		UPDATE schedule_entries
		SET status = 'failed', fail_reason = $3, updated_at = $2
		WHERE id = $1 AND status NOT IN ('delivered', 'failed', 'cancelled')`,
		id, at, reason)
}

func (s *ScheduleStore) Cancel(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedule_entries
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		id, at)
	if err != nil {
		return fmt.Errorf("cancel schedule entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		// The entry exists but already left pending: claimed or terminal.
		return domain.ErrNotCancellable
	}
	return nil
}

func (s *ScheduleStore) PurgeTerminal(ctx context.Context, failedCutoff, deliveredCutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM schedule_entries
		WHERE (status = 'failed' AND updated_at < $1)
		   OR (status IN ('sent', 'delivered', 'cancelled') AND updated_at < $2)`,
		failedCutoff, deliveredCutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *ScheduleStore) AnonymizeUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE schedule_entries
		SET user_id = NULL, anonymized_at = $2, updated_at = $2
		WHERE user_id = $1`,
		userID, at)
	if err != nil {
		return 0, fmt.Errorf("anonymize schedule entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// transition runs a guarded status update and maps a zero-row result to
// ErrNotFound (row missing) or ErrTerminalState (guard rejected it).
func (s *ScheduleStore) transition(ctx context.Context, id, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrTerminalState
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.ScheduleEntry, error) {
	var (
		entry      domain.ScheduleEntry
		userID     *string
		emotion    string
		tone       string
		escalation int
		status     string
		expID      *string
		expVariant *string
	)
	err := row.Scan(&entry.ID, &userID, &entry.ScheduledFor, &emotion, &tone,
		&escalation, &entry.TemplateID, &entry.EmotionalStateID, &status,
		&entry.Attempts, &entry.MaxAttempts, &entry.LastAttemptAt,
		&entry.Payload, &expID, &expVariant, &entry.AnonymizedAt,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	entry.UserID = textValue(userID)
	entry.Emotion = domain.Emotion(emotion)
	entry.Tone = domain.Tone(tone)
	entry.EscalationLevel = domain.EscalationLevel(escalation)
	entry.Status = domain.ScheduleStatus(status)
	if entry.Status == claimedStatus {
		entry.Status = domain.StatusPending
	}
	entry.ExperimentID = textValue(expID)
	entry.ExperimentVariant = textValue(expVariant)
	return &entry, nil
}
