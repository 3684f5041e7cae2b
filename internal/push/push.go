// Package push defines the delivery transport boundary: the platform
// notification service that actually puts a reminder on a device.
package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risewell/notification-engine/internal/domain"
)

// Payload is a fully rendered notification ready for dispatch.
type Payload struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Transport dispatches payloads to the platform push service. Failures
// wrap domain.ErrDeliveryTransport so the scheduler can route them to the
// retry path.
type Transport interface {
	Dispatch(ctx context.Context, payload Payload) (platformMessageID string, err error)
}

// FCMTransport sends push notifications via Firebase Cloud Messaging.
// Nil-safe: when not configured, dispatch is a logged no-op.
type FCMTransport struct {
	credentialsFile string
	logger          *slog.Logger
	// TODO: Add firebase.google.com/go/v4/messaging.Client when the FCM
	// dependency is added. For now this is a structured placeholder that
	// logs send attempts.
}

// NewFCMTransport creates an FCM transport from a service account
// credentials file. Returns nil if credentialsFile is empty (delivery
// disabled).
func NewFCMTransport(credentialsFile string, logger *slog.Logger) *FCMTransport {
	if credentialsFile == "" {
		return nil
	}
	return &FCMTransport{
		credentialsFile: credentialsFile,
		logger:          logger,
	}
}

// Dispatch sends one notification. When the FCM client is integrated this
// will call Send on the messaging client; currently it logs the attempt.
func (t *FCMTransport) Dispatch(ctx context.Context, payload Payload) (string, error) {
	if t == nil {
		return "", nil
	}
	if payload.UserID == "" {
		return "", fmt.Errorf("%w: payload missing user", domain.ErrDeliveryTransport)
	}

	t.logger.Info("FCM dispatch (pending integration)",
		"user_id", payload.UserID, "title", payload.Title)
	return domain.NewID(), nil
}
