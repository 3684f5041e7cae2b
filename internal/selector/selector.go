// Package selector picks and renders message templates from the external
// catalog. Selection prefers the highest effectiveness score and breaks
// ties toward the least-used template so exposure spreads and learning
// data stays fresh.
package selector

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/risewell/notification-engine/internal/domain"
)

// Catalog is the external message-template store. Bodies are read-only;
// the engine mutates only the effectiveness counters.
type Catalog interface {
	// FindTemplates returns templates matching emotion and tone. An empty
	// emotion or tone matches any.
	FindTemplates(ctx context.Context, emotion domain.Emotion, tone domain.Tone, activeOnly bool) ([]*domain.Template, error)

	// RecordUsage increments usageCount and recomputes the score. Called
	// exactly once per dispatched notification.
	RecordUsage(ctx context.Context, templateID string) error

	// RecordSuccess increments successCount and recomputes the score.
	// Never raises successCount above usageCount.
	RecordSuccess(ctx context.Context, templateID string) error
}

// Selector chooses and renders templates.
type Selector struct {
	catalog Catalog
}

// New creates a Selector over the given catalog.
func New(catalog Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Select finds the best active template for (emotion, tone), broadening to
// tone-only and then emotion-only before failing with ErrNoTemplateAvailable.
func (s *Selector) Select(ctx context.Context, emotion domain.Emotion, tone domain.Tone) (*domain.Template, error) {
	queries := []struct {
		emotion domain.Emotion
		tone    domain.Tone
	}{
		{emotion, tone},
		{"", tone},
		{emotion, ""},
	}

	for _, q := range queries {
		templates, err := s.catalog.FindTemplates(ctx, q.emotion, q.tone, true)
		if err != nil {
			return nil, fmt.Errorf("find templates: %w", err)
		}
		if best := pickBest(templates); best != nil {
			return best, nil
		}
	}
	return nil, domain.ErrNoTemplateAvailable
}

// pickBest ranks by effectiveness score descending, then usage ascending.
func pickBest(templates []*domain.Template) *domain.Template {
	if len(templates) == 0 {
		return nil
	}
	sorted := append([]*domain.Template(nil), templates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EffectivenessScore != sorted[j].EffectivenessScore {
			return sorted[i].EffectivenessScore > sorted[j].EffectivenessScore
		}
		return sorted[i].UsageCount < sorted[j].UsageCount
	})
	return sorted[0]
}

// --------------------------------------------------------------------------
// Rendering
// --------------------------------------------------------------------------

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Render substitutes {placeholder} markers from vars. Known placeholders:
// name, streak_days, missed_days, missed_alarms, achievement, time, label.
// Missing values render as an empty string rather than failing the send.
func Render(body string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(m string) string {
		key := m[1 : len(m)-1]
		return vars[key]
	})
}
