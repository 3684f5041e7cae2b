package selector

import (
	"context"
	"sync"

	"github.com/risewell/notification-engine/internal/domain"
)

// MemoryCatalog is an in-process Catalog used by tests and local
// development. Counter updates follow the same rules as the Postgres
// adapter: the score is always recomputed from the counters, never set
// independently.
type MemoryCatalog struct {
	mu        sync.Mutex
	templates map[string]*domain.Template
}

// NewMemoryCatalog creates a catalog seeded with the given templates.
func NewMemoryCatalog(templates ...*domain.Template) *MemoryCatalog {
	c := &MemoryCatalog{templates: make(map[string]*domain.Template)}
	for _, t := range templates {
		cp := *t
		cp.Tags = append([]string(nil), t.Tags...)
		c.templates[t.ID] = &cp
	}
	return c
}

func (c *MemoryCatalog) FindTemplates(ctx context.Context, emotion domain.Emotion, tone domain.Tone, activeOnly bool) ([]*domain.Template, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*domain.Template
	for _, t := range c.templates {
		if activeOnly && !t.IsActive {
			continue
		}
		if emotion != "" && t.Emotion != emotion {
			continue
		}
		if tone != "" && t.Tone != tone {
			continue
		}
		cp := *t
		cp.Tags = append([]string(nil), t.Tags...)
		out = append(out, &cp)
	}
	return out, nil
}

func (c *MemoryCatalog) RecordUsage(ctx context.Context, templateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.templates[templateID]
	if !ok {
		return domain.ErrNotFound
	}
	t.UsageCount++
	recomputeScore(t)
	return nil
}

func (c *MemoryCatalog) RecordSuccess(ctx context.Context, templateID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.templates[templateID]
	if !ok {
		return domain.ErrNotFound
	}
	if t.SuccessCount < t.UsageCount {
		t.SuccessCount++
	}
	recomputeScore(t)
	return nil
}

// Get returns a copy of a template; test helper.
func (c *MemoryCatalog) Get(templateID string) (*domain.Template, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.templates[templateID]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

func recomputeScore(t *domain.Template) {
	if t.UsageCount == 0 {
		t.EffectivenessScore = 0
		return
	}
	t.EffectivenessScore = float64(t.SuccessCount) / float64(t.UsageCount) * 100
}
