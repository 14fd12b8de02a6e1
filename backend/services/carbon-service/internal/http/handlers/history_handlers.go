package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"carboncheck/backend/services/carbon-service/internal/models"
	"carboncheck/backend/services/carbon-service/internal/render"
	"carboncheck/backend/services/carbon-service/internal/service"
)

// HistoryReader exposes stored readings.
type HistoryReader interface {
	Params() service.Params
	Recent(ctx context.Context, limit int) ([]models.Reading, error)
	Chronological(ctx context.Context) ([]models.Reading, error)
}

// HistoryHandlers serve the chart pages and the readings API.
type HistoryHandlers struct {
	history     HistoryReader
	environment string
	logger      *zap.Logger
}

// NewHistoryHandlers returns handlers instance.
func NewHistoryHandlers(history HistoryReader, environment string, logger *zap.Logger) *HistoryHandlers {
	return &HistoryHandlers{history: history, environment: environment, logger: logger}
}

// Graph handles GET /api/carbon-intensity/graph.
func (h *HistoryHandlers) Graph(w http.ResponseWriter, r *http.Request) {
	readings, ok := h.chronological(w, r)
	if !ok {
		return
	}
	params := h.history.Params()
	page := render.NewGraphPage(readings, params.Threshold, params.MaxRecords, h.environment)

	var buf bytes.Buffer
	if err := render.Graph(&buf, page); err != nil {
		h.logger.Error("failed to render graph", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// Chart handles GET /api/carbon-intensity/chart.
func (h *HistoryHandlers) Chart(w http.ResponseWriter, r *http.Request) {
	readings, ok := h.chronological(w, r)
	if !ok {
		return
	}
	page := render.NewChartPage(readings, h.history.Params().Threshold, h.environment)

	var buf bytes.Buffer
	if err := render.Chart(&buf, page); err != nil {
		h.logger.Error("failed to render chart", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// Readings handles GET /api/readings?limit=n.
func (h *HistoryHandlers) Readings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	readings, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load readings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"readings":  readings,
		"threshold": h.history.Params().Threshold,
	})
}

func (h *HistoryHandlers) chronological(w http.ResponseWriter, r *http.Request) ([]models.Reading, bool) {
	readings, err := h.history.Chronological(r.Context())
	if err != nil {
		h.logger.Error("failed to load readings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return readings, true
}
