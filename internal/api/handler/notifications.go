package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/risewell/notification-engine/internal/api/respond"
	"github.com/risewell/notification-engine/internal/engine"
)

type scheduleRequest struct {
	Priority engine.Priority `json:"priority,omitempty"` // high | normal (default)
}

// ScheduleNotification schedules a notification from the latest state.
// @Summary Schedule a notification
// @Description Selects a template for the user's latest emotional state and enqueues a durable schedule entry.
// @Tags notifications
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body scheduleRequest false "Scheduling options"
// @Success 201 {object} domain.ScheduleEntry
// @Failure 404 {object} respond.ErrorResponse "No emotional state on record"
// @Failure 422 {object} respond.ErrorResponse "No template available"
// @Router /users/{userID}/notifications [post]
func (h *Handler) ScheduleNotification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req scheduleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", err.Error())
			return
		}
	}
	priority := req.Priority
	if priority == "" {
		priority = engine.PriorityNormal
	}

	state, err := h.engine.LatestState(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}

	entry, err := h.engine.ScheduleNotification(r.Context(), userID, state, priority)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, entry)
}

// CancelScheduled cancels a pending schedule entry.
// @Summary Cancel a scheduled notification
// @Description Cancels a pending entry. Entries already claimed for delivery or in a terminal state are not cancellable.
// @Tags notifications
// @Produce json
// @Param userID path string true "User ID"
// @Param entryID path string true "Schedule entry ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /users/{userID}/notifications/schedule/{entryID} [delete]
func (h *Handler) CancelScheduled(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	entryID := chi.URLParam(r, "entryID")

	if err := h.engine.CancelScheduled(r.Context(), entryID, userID); err != nil {
		writeEngineError(w, err, false)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":   "cancelled",
		"entry_id": entryID,
	})
}

// ConfirmDelivery records a platform delivery receipt.
// @Summary Confirm delivery
// @Description Marks a sent entry as delivered, typically from a push platform receipt webhook.
// @Tags notifications
// @Produce json
// @Param entryID path string true "Schedule entry ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /schedule/{entryID}/delivered [post]
func (h *Handler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "entryID")

	if err := h.engine.ConfirmDelivery(r.Context(), entryID); err != nil {
		writeEngineError(w, err, false)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":   "delivered",
		"entry_id": entryID,
	})
}

// RecordInteraction records the user's response to a notification.
// @Summary Record an interaction
// @Description Applies opens, actions, effectiveness ratings, and feedback to a notification log. Writes are first-write-wins; re-delivery of the same payload changes nothing.
// @Tags notifications
// @Accept json
// @Produce json
// @Param logID path string true "Notification log ID"
// @Param interaction body engine.Interaction true "Interaction"
// @Success 200 {object} domain.NotificationLog
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /notifications/{logID}/interaction [post]
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	logID := chi.URLParam(r, "logID")

	var in engine.Interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", err.Error())
		return
	}

	log, err := h.engine.RecordInteraction(r.Context(), logID, in)
	if err != nil {
		writeEngineError(w, err, true)
		return
	}
	if log.UserID != "" {
		h.cache.Invalidate("profile:" + log.UserID)
	}
	respond.WriteJSONObject(w, http.StatusOK, log)
}

// GetAuditTrail returns the lifecycle events for an entity.
// @Summary Entity audit trail
// @Description Returns the recorded lifecycle events for an entity in order.
// @Tags audit
// @Produce json
// @Param entityType path string true "Entity type" Enums(emotional_state, schedule_entry, notification_log, experiment, user)
// @Param entityID path string true "Entity ID"
// @Success 200 {array} domain.AuditEvent
// @Router /audit/{entityType}/{entityID} [get]
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	events, err := h.stores.Audit.ListByEntity(r.Context(), entityType, entityID)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, events)
}
