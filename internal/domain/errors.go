package domain

import "errors"

// --------------------------------------------------------------------------
// Error taxonomy
// --------------------------------------------------------------------------

var (
	// ErrNoTemplateAvailable means the selector exhausted every fallback.
	// The schedule attempt is aborted — never substituted with arbitrary content.
	ErrNoTemplateAvailable = errors.New("no template available")

	// ErrDeliveryTransport is a transport-layer failure. Retried by the
	// scheduler, never surfaced to the caller of scheduleNotification.
	ErrDeliveryTransport = errors.New("delivery transport error")

	// ErrNotCancellable means the entry already left the pending state.
	ErrNotCancellable = errors.New("entry not cancellable")

	// ErrProfileUpsertConflict signals a concurrent profile write. Resolved
	// by merge-retry, never by overwriting counters.
	ErrProfileUpsertConflict = errors.New("profile upsert conflict")

	// ErrRetentionViolation means an operation touched data past its
	// retention window; such records are treated as absent.
	ErrRetentionViolation = errors.New("record past retention window")

	// ErrNotFound is the generic missing-record error.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName rejects a second experiment with the same name.
	ErrDuplicateName = errors.New("name already in use")

	// ErrTerminalState guards the schedule state machine: delivered, failed,
	// and cancelled entries accept no further transitions.
	ErrTerminalState = errors.New("entry in terminal state")
)
