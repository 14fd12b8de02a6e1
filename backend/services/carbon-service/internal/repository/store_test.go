package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carboncheck/backend/libs/db"
	"carboncheck/backend/services/carbon-service/internal/models"
)

var baseTime = time.Date(2023, 7, 19, 10, 30, 0, 0, time.UTC)

func reading(offset time.Duration, intensity int) *models.Reading {
	ts := baseTime.Add(offset)
	return &models.Reading{
		PartitionKey: models.DefaultPartitionKey,
		RowKey:       models.RowKeyFor(ts),
		CreatedTime:  ts,
		Intensity:    intensity,
		CanCharge:    intensity <= 100,
	}
}

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "readings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store, err := NewSQLStore(sqlDB, "carbon_intensity", SQLite)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

// runStoreContract exercises the behaviour every ReadingStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) ReadingStore) {
	ctx := context.Background()

	t.Run("query orders newest first", func(t *testing.T) {
		store := newStore(t)
		for i, intensity := range []int{150, 120, 90, 200} {
			require.NoError(t, store.Insert(ctx, reading(time.Duration(i)*time.Minute, intensity)))
		}

		got, err := store.Query(ctx, models.DefaultPartitionKey, 10)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, []int{200, 90, 120, 150}, intensities(got))
	})

	t.Run("query honours limit", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Insert(ctx, reading(time.Duration(i)*time.Second, 100+i)))
		}

		got, err := store.Query(ctx, models.DefaultPartitionKey, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 104, got[0].Intensity)
	})

	t.Run("query is scoped to partition", func(t *testing.T) {
		store := newStore(t)
		other := reading(0, 10)
		other.PartitionKey = "Elsewhere"
		require.NoError(t, store.Insert(ctx, other))
		require.NoError(t, store.Insert(ctx, reading(time.Second, 20)))

		got, err := store.Query(ctx, models.DefaultPartitionKey, 10)
		require.NoError(t, err)
		assert.Equal(t, []int{20}, intensities(got))
	})

	t.Run("empty partition", func(t *testing.T) {
		store := newStore(t)
		got, err := store.Query(ctx, models.DefaultPartitionKey, 1)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("get round trip", func(t *testing.T) {
		store := newStore(t)
		r := reading(1234567*time.Nanosecond, 101)
		r.CreatedTime = r.CreatedTime.Truncate(models.RowKeyResolution)
		require.NoError(t, store.Insert(ctx, r))

		got, err := store.Get(ctx, r.PartitionKey, r.RowKey)
		require.NoError(t, err)
		assert.Equal(t, r.Intensity, got.Intensity)
		assert.Equal(t, r.CanCharge, got.CanCharge)
		assert.Equal(t, r.RowKey, got.RowKey)
		assert.True(t, r.CreatedTime.Equal(got.CreatedTime), "created %s, got %s", r.CreatedTime, got.CreatedTime)
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, models.DefaultPartitionKey, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate insert fails", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, reading(0, 100)))
		assert.Error(t, store.Insert(ctx, reading(0, 100)))
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		first := reading(0, 100)
		second := reading(time.Minute, 110)
		require.NoError(t, store.Insert(ctx, first))
		require.NoError(t, store.Insert(ctx, second))

		require.NoError(t, store.Delete(ctx, first.PartitionKey, first.RowKey))
		require.NoError(t, store.Delete(ctx, first.PartitionKey, "missing"))

		got, err := store.Query(ctx, models.DefaultPartitionKey, 10)
		require.NoError(t, err)
		assert.Equal(t, []int{110}, intensities(got))
	})
}

func intensities(readings []models.Reading) []int {
	out := make([]int, 0, len(readings))
	for _, r := range readings {
		out = append(out, r.Intensity)
	}
	return out
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ReadingStore { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ReadingStore { return newSQLiteStore(t) })
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	assert.ErrorIs(t, store.Insert(ctx, reading(0, 1)), context.Canceled)
	_, err := store.Query(ctx, models.DefaultPartitionKey, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len(models.DefaultPartitionKey))
}

func TestNewSQLStoreValidation(t *testing.T) {
	_, err := NewSQLStore(nil, "carbon_intensity", Postgres)
	assert.Error(t, err)

	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, name := range []string{"", "1table", "carbon; DROP TABLE x", "carbon-intensity"} {
		_, err := NewSQLStore(sqlDB, name, SQLite)
		assert.Error(t, err, name)
	}
}

func TestSQLStoreRejectsNonPositiveLimit(t *testing.T) {
	store := newSQLiteStore(t)
	_, err := store.Query(context.Background(), models.DefaultPartitionKey, 0)
	assert.Error(t, err)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}

func TestTimestampScan(t *testing.T) {
	var ts time.Time
	require.NoError(t, timestamp{dest: &ts}.Scan(baseTime))
	assert.True(t, ts.Equal(baseTime))

	require.NoError(t, timestamp{dest: &ts}.Scan([]byte("2023-07-19T10:30:00.5000000Z")))
	assert.Equal(t, 500*time.Millisecond, ts.Sub(baseTime))

	require.NoError(t, timestamp{dest: &ts}.Scan("2023-07-19T11:30:00+01:00"))
	assert.True(t, ts.Equal(baseTime))

	assert.Error(t, timestamp{dest: &ts}.Scan(42))
	assert.Error(t, timestamp{dest: &ts}.Scan("noon"))
}
