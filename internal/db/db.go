// Package db provides a pgxpool-based connection pool with prepared
// statement registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the hot-path statements the API and
// dispatch layers use. Prepared statements eliminate parse overhead on
// every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Profiles (hot path: every classify and every learner refresh)
		"get_user_profile": `
			SELECT user_id, preferred_tones, avoided_tones, most_effective_emotions,
			       optimal_send_times, confidence_score, data_points_collected,
			       total_sent, total_opened, total_completed,
			       average_effectiveness_rating, last_analyzed_at, version
			FROM user_emotional_profiles WHERE user_id = $1`,

		// Logs in creation order for profile recomputation
		"logs_by_user": `
			SELECT id, user_id, message_id, emotional_state_id, emotion, tone,
			       escalation_level, message_sent, scheduled_for, sent_at,
			       delivered_at, delivery_status, notification_opened, opened_at,
			       action_taken, action_taken_at, response_time_ms,
			       effectiveness_rating, user_feedback, experiment_id,
			       experiment_variant, anonymized_at, created_at
			FROM notification_logs WHERE user_id = $1 ORDER BY created_at, id`,

		// Template catalog lookup (external catalog tables, read-only body)
		"find_templates": `
			SELECT id, emotion, tone, body, tags, effectiveness_score,
			       usage_count, success_count, is_active
			FROM message_templates
			WHERE ($1 = '' OR emotion = $1)
			  AND ($2 = '' OR tone = $2)
			  AND (NOT $3 OR is_active)`,

		// Experiments
		"active_experiments": `
			SELECT id, name, control_variant, treatment_variants, traffic_allocation,
			       target_emotions, target_tones, status, start_date, end_date,
			       primary_metric, results, created_at
			FROM experiments WHERE status = 'active'`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
