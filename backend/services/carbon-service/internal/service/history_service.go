package service

import (
	"context"

	"carboncheck/backend/services/carbon-service/internal/models"
	"carboncheck/backend/services/carbon-service/internal/repository"
)

// HistoryService reads stored readings for charts and the readings API.
type HistoryService struct {
	store  repository.ReadingStore
	params Params
}

// NewHistoryService returns service instance.
func NewHistoryService(store repository.ReadingStore, params Params) *HistoryService {
	return &HistoryService{store: store, params: params.withDefaults()}
}

// Params returns the threshold and cap the charts are drawn against.
func (h *HistoryService) Params() Params {
	return h.params
}

// Recent returns up to limit readings, newest first. The limit is clamped to [1, MaxRecords].
func (h *HistoryService) Recent(ctx context.Context, limit int) ([]models.Reading, error) {
	if limit <= 0 || limit > h.params.MaxRecords {
		limit = h.params.MaxRecords
	}
	readings, err := h.store.Query(ctx, h.params.PartitionKey, limit)
	if err != nil {
		return nil, &StoreError{Op: "query history", Err: err}
	}
	return readings, nil
}

// Chronological returns the retained readings oldest first.
func (h *HistoryService) Chronological(ctx context.Context) ([]models.Reading, error) {
	readings, err := h.Recent(ctx, h.params.MaxRecords)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}
