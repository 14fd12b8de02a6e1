package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"carboncheck/backend/services/carbon-service/internal/models"
	"carboncheck/backend/services/carbon-service/internal/repository"
)

// Store keeps each partition as a sorted set of row keys scored by created time (microseconds)
// next to a hash of encoded readings. Equal scores fall back to lexical member order, which
// row keys share with time.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore returns redis-backed store. Keys are namespaced by prefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "carbon"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) indexKey(partitionKey string) string {
	return fmt.Sprintf("%s:%s:index", s.prefix, partitionKey)
}

func (s *Store) dataKey(partitionKey string) string {
	return fmt.Sprintf("%s:%s:rows", s.prefix, partitionKey)
}

// Insert stores reading, refusing duplicate keys.
func (s *Store) Insert(ctx context.Context, reading *models.Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	created, err := s.client.HSetNX(ctx, s.dataKey(reading.PartitionKey), reading.RowKey, data).Result()
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("insert %s/%s: duplicate key", reading.PartitionKey, reading.RowKey)
	}

	member := redis.Z{Score: float64(reading.CreatedTime.UnixMicro()), Member: reading.RowKey}
	if err := s.client.ZAdd(ctx, s.indexKey(reading.PartitionKey), member).Err(); err != nil {
		// keep the hash and the index in step
		s.client.HDel(context.WithoutCancel(ctx), s.dataKey(reading.PartitionKey), reading.RowKey)
		return err
	}
	return nil
}

// Query returns newest readings first.
func (s *Store) Query(ctx context.Context, partitionKey string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("query limit must be positive, got %d", limit)
	}

	rowKeys, err := s.client.ZRevRange(ctx, s.indexKey(partitionKey), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(rowKeys) == 0 {
		return nil, nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey(partitionKey), rowKeys...).Result()
	if err != nil {
		return nil, err
	}

	readings := make([]models.Reading, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("row %s/%s missing from data hash", partitionKey, rowKeys[i])
		}
		var r models.Reading
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode row %s: %w", rowKeys[i], err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// Get returns one reading.
func (s *Store) Get(ctx context.Context, partitionKey, rowKey string) (*models.Reading, error) {
	raw, err := s.client.HGet(ctx, s.dataKey(partitionKey), rowKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r models.Reading
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode row %s: %w", rowKey, err)
	}
	return &r, nil
}

// Delete removes the row from both the index and the data hash.
func (s *Store) Delete(ctx context.Context, partitionKey, rowKey string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.indexKey(partitionKey), rowKey)
		pipe.HDel(ctx, s.dataKey(partitionKey), rowKey)
		return nil
	})
	return err
}
