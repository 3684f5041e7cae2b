package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/risewell/notification-engine/internal/api/respond"
	"github.com/risewell/notification-engine/internal/cache"
	"github.com/risewell/notification-engine/internal/domain"
)

// AnalyzeUser classifies an activity snapshot into an emotional state.
// @Summary Analyze user behavior
// @Description Runs the behavioral classifier over an activity snapshot and persists the resulting emotional state.
// @Tags users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param snapshot body domain.ActivitySnapshot true "Activity snapshot"
// @Success 201 {object} domain.EmotionalState
// @Failure 400 {object} respond.ErrorResponse
// @Router /users/{userID}/analyze [post]
func (h *Handler) AnalyzeUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var snap domain.ActivitySnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", err.Error())
		return
	}

	state, err := h.engine.AnalyzeUser(r.Context(), userID, snap)
	if err != nil {
		writeEngineError(w, err, true)
		return
	}
	h.cache.Invalidate("state:" + userID)
	respond.WriteJSONObject(w, http.StatusCreated, state)
}

// GetLatestState returns the user's most recent emotional state.
// @Summary Latest emotional state
// @Description Returns the newest emotional state inside the retention window.
// @Tags users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} domain.EmotionalState
// @Failure 404 {object} respond.ErrorResponse
// @Router /users/{userID}/state [get]
func (h *Handler) GetLatestState(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	state, err := h.engine.LatestState(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, state)
}

// GetProfile returns the learned emotional profile, cached with ETag.
// @Summary User emotional profile
// @Description Returns the learned per-user preference profile.
// @Tags users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} domain.UserEmotionalProfile
// @Success 304 "Not Modified"
// @Failure 404 {object} respond.ErrorResponse
// @Router /users/{userID}/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	key := "profile:" + userID

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLProfile, true)
		return
	}

	profile, err := h.engine.GetUserProfile(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}

	data, err := json.Marshal(profile)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLProfile)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLProfile, false)
}

// GetUserLogs returns the user's notification history in creation order.
// @Summary Notification history
// @Description Returns the user's notification logs in creation order.
// @Tags users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {array} domain.NotificationLog
// @Router /users/{userID}/notifications [get]
func (h *Handler) GetUserLogs(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	logs, err := h.stores.Logs.ListByUser(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}
	if logs == nil {
		logs = []*domain.NotificationLog{}
	}
	respond.WriteJSONObject(w, http.StatusOK, logs)
}

// DeleteUser handles an account deletion request.
// @Summary Delete user data
// @Description Deletes emotional states and profile, anonymizes logs, schedule entries, and audit events.
// @Tags users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.enforcer.DeleteUser(r.Context(), userID); err != nil {
		writeEngineError(w, err, false)
		return
	}
	h.cache.Invalidate("profile:" + userID)
	h.cache.Invalidate("state:" + userID)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":  "deleted",
		"user_id": userID,
	})
}
