package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/risewell/notification-engine/internal/api/respond"
	"github.com/risewell/notification-engine/internal/cache"
	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/engine"
)

// CreateExperiment creates a new A/B experiment.
// @Summary Create an experiment
// @Description Creates an experiment with a control arm, treatment arms, and a traffic allocation. Names are unique.
// @Tags experiments
// @Accept json
// @Produce json
// @Param experiment body engine.ExperimentConfig true "Experiment definition"
// @Success 201 {object} domain.Experiment
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse "Duplicate name"
// @Router /experiments [post]
func (h *Handler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	var cfg engine.ExperimentConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", err.Error())
		return
	}

	exp, err := h.engine.CreateExperiment(r.Context(), cfg)
	if err != nil {
		writeEngineError(w, err, true)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, exp)
}

type experimentStatusRequest struct {
	Status domain.ExperimentStatus `json:"status"`
}

// UpdateExperimentStatus moves an experiment along its lifecycle.
// @Summary Update experiment status
// @Description Transitions an experiment (draft → active → paused/completed → archived). Completing an experiment freezes its results with a final significance label.
// @Tags experiments
// @Accept json
// @Produce json
// @Param name path string true "Experiment name"
// @Param status body experimentStatusRequest true "Target status"
// @Success 200 {object} domain.Experiment
// @Failure 400 {object} respond.ErrorResponse "Transition not allowed"
// @Failure 404 {object} respond.ErrorResponse
// @Router /experiments/{name}/status [post]
func (h *Handler) UpdateExperimentStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req experimentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", err.Error())
		return
	}

	exp, err := h.engine.UpdateExperimentStatus(r.Context(), name, req.Status)
	if err != nil {
		writeEngineError(w, err, true)
		return
	}
	h.cache.Invalidate("experiment:" + name)
	respond.WriteJSONObject(w, http.StatusOK, exp)
}

// GetExperimentResults returns aggregated per-variant results.
// @Summary Experiment results
// @Description Returns the experiment with per-variant aggregates and a sample-size significance label. Computes results on demand when no periodic aggregation has run yet.
// @Tags experiments
// @Produce json
// @Param name path string true "Experiment name"
// @Success 200 {object} domain.Experiment
// @Success 304 "Not Modified"
// @Failure 404 {object} respond.ErrorResponse
// @Router /experiments/{name}/results [get]
func (h *Handler) GetExperimentResults(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	key := "experiment:" + name

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLExperiment, true)
		return
	}

	exp, err := h.engine.GetExperimentResults(r.Context(), name)
	if err != nil {
		writeEngineError(w, err, false)
		return
	}

	data, err := json.Marshal(exp)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLExperiment)
	respond.WriteJSON(w, data, etag, cache.TTLExperiment, false)
}
