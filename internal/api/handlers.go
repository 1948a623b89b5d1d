// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/raskell-io/cloudsentry/internal/anomaly"
	"github.com/raskell-io/cloudsentry/internal/logging"
	"github.com/raskell-io/cloudsentry/internal/models"
	"github.com/raskell-io/cloudsentry/internal/pipeline"
)

// Handler serves the advisory read/detect API over the detection engine.
type Handler struct {
	engine *pipeline.Pipeline

	// maxDetectEvents bounds the batch size accepted by Detect and Train.
	maxDetectEvents int
}

// NewHandler creates an API handler over the given engine.
func NewHandler(engine *pipeline.Pipeline, maxDetectEvents int) *Handler {
	if maxDetectEvents <= 0 {
		maxDetectEvents = 10000
	}
	return &Handler{engine: engine, maxDetectEvents: maxDetectEvents}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encoding API response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Health reports liveness and whether a model is trained.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"trained": h.engine.Trained(),
	})
}

// LatestReport returns the most recent threat report. format=text selects
// the rendered report instead of JSON.
func (h *Handler) LatestReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.engine.History().Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no detection pass has run yet")
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(report.Render())); err != nil {
			logging.Error().Err(err).Msg("writing rendered report")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Reports returns recent reports, newest first. limit bounds the count;
// 0 or absent returns all retained reports.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.engine.History().Recent(limit))
}

// MonitorMetrics returns rolling aggregates over the report history.
func (h *Handler) MonitorMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.History().Metrics())
}

// Profile returns one entity's behavioral baseline snapshot.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	snapshot, ok := h.engine.Profiles().Snapshot(entityID)
	if !ok {
		writeError(w, http.StatusNotFound, "no profile for entity")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// TrainSummary returns the summary of the most recent training run.
func (h *Handler) TrainSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.engine.LastTrainSummary()
	if !ok {
		writeError(w, http.StatusNotFound, "model has not been trained")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Detect runs one synchronous detection pass over the posted events.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	events, ok := h.decodeEvents(w, r)
	if !ok {
		return
	}

	report, err := h.engine.Run(r.Context(), events)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "no valid events in batch")
		return
	case errors.Is(err, anomaly.ErrUntrainedModel):
		writeError(w, http.StatusConflict, "model has not been trained")
		return
	case err != nil:
		logging.Error().Err(err).Msg("detection pass failed")
		writeError(w, http.StatusInternalServerError, "detection pass failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Train fits a new model and behavioral baselines from the posted events.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	events, ok := h.decodeEvents(w, r)
	if !ok {
		return
	}

	summary, err := h.engine.Train(events)
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "no valid events in batch")
		return
	case err != nil:
		logging.Error().Err(err).Msg("training failed")
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) decodeEvents(w http.ResponseWriter, r *http.Request) ([]*models.Event, bool) {
	var events []*models.Event
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON array of events")
		return nil, false
	}
	if len(events) == 0 {
		writeError(w, http.StatusBadRequest, "event batch is empty")
		return nil, false
	}
	if len(events) > h.maxDetectEvents {
		writeError(w, http.StatusRequestEntityTooLarge, "event batch exceeds configured maximum")
		return nil, false
	}
	return events, true
}
