package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/risewell/notification-engine/internal/domain"
)

// Catalog is the Postgres-backed template catalog. Bodies are owned by the
// content pipeline; the engine only bumps counters and recomputes the score.
type Catalog struct {
	pool *pgxpool.Pool
}

// NewCatalog creates a catalog over the shared pool.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) FindTemplates(ctx context.Context, emotion domain.Emotion, tone domain.Tone, activeOnly bool) ([]*domain.Template, error) {
	rows, err := c.pool.Query(ctx, "find_templates",
		string(emotion), string(tone), activeOnly)
	if err != nil {
		return nil, fmt.Errorf("find templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		var (
			tmpl    domain.Template
			emotion string
			tone    string
		)
		err := rows.Scan(&tmpl.ID, &emotion, &tone, &tmpl.Body, &tmpl.Tags,
			&tmpl.EffectivenessScore, &tmpl.UsageCount, &tmpl.SuccessCount,
			&tmpl.IsActive)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tmpl.Emotion = domain.Emotion(emotion)
		tmpl.Tone = domain.Tone(tone)
		templates = append(templates, &tmpl)
	}
	return templates, rows.Err()
}

// RecordUsage bumps usage_count and folds it into the score in one
// statement, so concurrent dispatchers never lose an increment.
func (c *Catalog) RecordUsage(ctx context.Context, templateID string) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE message_templates
		SET usage_count = usage_count + 1,
		    effectiveness_score = (success_count::float / (usage_count + 1)) * 100
		WHERE id = $1`,
		templateID)
	if err != nil {
		return fmt.Errorf("record template usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordSuccess bumps success_count, capped at usage_count, and recomputes
// the score.
func (c *Catalog) RecordSuccess(ctx context.Context, templateID string) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE message_templates
		SET success_count = LEAST(success_count + 1, usage_count),
		    effectiveness_score = CASE WHEN usage_count > 0
		        THEN (LEAST(success_count + 1, usage_count)::float / usage_count) * 100
		        ELSE 0 END
		WHERE id = $1`,
		templateID)
	if err != nil {
		return fmt.Errorf("record template success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
