package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"carboncheck/backend/services/carbon-service/internal/models"
)

// MemoryStore keeps readings in process memory. It backs local runs and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]map[string]models.Reading
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: make(map[string]map[string]models.Reading)}
}

// Insert stores a copy of reading.
func (s *MemoryStore) Insert(ctx context.Context, reading *models.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.partitions[reading.PartitionKey]
	if !ok {
		rows = make(map[string]models.Reading)
		s.partitions[reading.PartitionKey] = rows
	}
	if _, exists := rows[reading.RowKey]; exists {
		return fmt.Errorf("insert %s/%s: duplicate key", reading.PartitionKey, reading.RowKey)
	}
	rows[reading.RowKey] = *reading
	return nil
}

// Query returns newest readings first.
func (s *MemoryStore) Query(ctx context.Context, partitionKey string, limit int) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.partitions[partitionKey]
	readings := make([]models.Reading, 0, len(rows))
	for _, r := range rows {
		readings = append(readings, r)
	}
	sort.Slice(readings, func(i, j int) bool {
		if readings[i].CreatedTime.Equal(readings[j].CreatedTime) {
			return readings[i].RowKey > readings[j].RowKey
		}
		return readings[i].CreatedTime.After(readings[j].CreatedTime)
	})
	if limit > 0 && len(readings) > limit {
		readings = readings[:limit]
	}
	return readings, nil
}

// Get returns a copy of one reading.
func (s *MemoryStore) Get(ctx context.Context, partitionKey, rowKey string) (*models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.partitions[partitionKey][rowKey]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

// Delete removes one reading.
func (s *MemoryStore) Delete(ctx context.Context, partitionKey, rowKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.partitions[partitionKey], rowKey)
	return nil
}

// Len reports the number of readings in a partition.
func (s *MemoryStore) Len(partitionKey string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[partitionKey])
}
