package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"carboncheck/backend/services/carbon-service/internal/service"
)

// Checker runs an ingestion cycle.
type Checker interface {
	Trigger(ctx context.Context) (service.Result, error)
}

type checkResponse struct {
	Status          service.Status `json:"status"`
	Message         string         `json:"message"`
	CarbonIntensity int            `json:"carbon_intensity"`
	CanCharge       bool           `json:"can_charge"`
	RowKey          string         `json:"row_key,omitempty"`
}

// NewCheckHandler returns the manual trigger handler.
func NewCheckHandler(checker Checker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := checker.Trigger(r.Context())
		if err != nil {
			status := statusFor(err)
			logger.Error("manual carbon check failed", zap.Int("status", status), zap.Error(err))
			writeError(w, status, err.Error())
			return
		}

		resp := checkResponse{
			Status:          res.Status,
			Message:         res.Message,
			CarbonIntensity: res.Intensity,
			CanCharge:       res.CanCharge,
		}
		if res.Reading != nil {
			resp.RowKey = res.Reading.RowKey
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusFor(err error) int {
	var fetchErr *service.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
