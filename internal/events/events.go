// Package events provides the in-process event plumbing: a synchronous bus
// for NotificationLog lifecycle events and the audit trail that records
// every transition.
//
// Handlers run synchronously, in subscription order, inside the unit of
// work that produced the event. Reacting exactly once per state transition
// is their responsibility — each handler gates on the previous-vs-current
// row, not on field presence.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/risewell/notification-engine/internal/domain"
)

// LogEvent is published when a NotificationLog is created or updated.
// Previous is nil on creation.
type LogEvent struct {
	Previous *domain.NotificationLog
	Current  *domain.NotificationLog
}

// Created reports whether this event is the log's creation.
func (e LogEvent) Created() bool { return e.Previous == nil }

// LogHandler reacts to log lifecycle events.
type LogHandler interface {
	HandleLogEvent(ctx context.Context, event LogEvent) error
}

// Bus is a synchronous in-process event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers []LogHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler. Handlers run in subscription order.
func (b *Bus) Subscribe(h LogHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish invokes every handler synchronously. A failing handler does not
// stop the others; all errors are joined.
func (b *Bus) Publish(ctx context.Context, event LogEvent) error {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h.HandleLogEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
