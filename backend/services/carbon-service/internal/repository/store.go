package repository

import (
	"context"
	"errors"

	"carboncheck/backend/services/carbon-service/internal/models"
)

// ErrNotFound indicates a missing partition/row pair.
var ErrNotFound = errors.New("reading not found")

// ReadingStore is a key-value table keyed by (partition, row).
type ReadingStore interface {
	// Insert appends a reading. Inserting an existing key is an error.
	Insert(ctx context.Context, reading *models.Reading) error
	// Query returns up to limit readings of a partition ordered by created time, newest first.
	Query(ctx context.Context, partitionKey string, limit int) ([]models.Reading, error)
	// Get returns one reading or ErrNotFound.
	Get(ctx context.Context, partitionKey, rowKey string) (*models.Reading, error)
	// Delete removes one reading. Deleting a missing key is not an error.
	Delete(ctx context.Context, partitionKey, rowKey string) error
}
