package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"carboncheck/backend/services/carbon-service/internal/intensity"
	"carboncheck/backend/services/carbon-service/internal/metrics"
	"carboncheck/backend/services/carbon-service/internal/models"
	"carboncheck/backend/services/carbon-service/internal/repository"
)

// DefaultThreshold is the charge threshold in gCO2/kWh.
const DefaultThreshold = 100

// Status describes the outcome of one cycle.
type Status string

// Cycle outcomes.
const (
	StatusUnchanged Status = "unchanged"
	StatusRecorded  Status = "recorded"
)

// Params are the explicit inputs of an ingestion cycle.
type Params struct {
	Threshold    int
	MaxRecords   int
	PartitionKey string
}

func (p Params) withDefaults() Params {
	if p.MaxRecords <= 0 {
		p.MaxRecords = DefaultMaxRecords
	}
	if p.PartitionKey == "" {
		p.PartitionKey = models.DefaultPartitionKey
	}
	return p
}

// Result is returned to triggers.
type Result struct {
	Status    Status
	Intensity int
	CanCharge bool
	Message   string
	// Reading is set when a new reading was written.
	Reading *models.Reading
}

// IngestionService fetches, deduplicates, stores and trims carbon intensity readings.
type IngestionService struct {
	source intensity.Source
	store  repository.ReadingStore
	params Params
	now    func() time.Time
	logger *zap.Logger
	group  singleflight.Group
}

// Option configures an IngestionService.
type Option func(*IngestionService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *IngestionService) {
		s.now = now
	}
}

// NewIngestionService returns service instance. params are used by Trigger.
func NewIngestionService(source intensity.Source, store repository.ReadingStore, params Params, logger *zap.Logger, opts ...Option) *IngestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &IngestionService{
		source: source,
		store:  store,
		params: params.withDefaults(),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the configured cycle parameters.
func (s *IngestionService) Params() Params {
	return s.params
}

// Trigger runs one cycle with the configured parameters. Calls that overlap an in-flight
// cycle wait for it and share its result instead of starting another. The shared cycle is
// detached from the caller's cancellation; a cancelled caller stops waiting but the cycle
// still completes for the others.
func (s *IngestionService) Trigger(ctx context.Context) (Result, error) {
	ch := s.group.DoChan("ingest", func() (interface{}, error) {
		return s.Ingest(context.WithoutCancel(ctx), s.params)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			s.logger.Debug("joined in-flight ingestion cycle")
		}
		res, _ := r.Val.(Result)
		return res, r.Err
	}
}

// Ingest runs one fetch/dedup/append/evict cycle.
func (s *IngestionService) Ingest(ctx context.Context, params Params) (Result, error) {
	params = params.withDefaults()
	started := time.Now()
	defer func() {
		metrics.CheckDuration.Observe(time.Since(started).Seconds())
	}()

	obs, err := s.source.Current(ctx)
	if err != nil {
		metrics.ChecksTotal.WithLabelValues(metrics.StatusFetchError).Inc()
		s.logger.Error("failed to fetch carbon intensity", zap.Error(err))
		return Result{}, &FetchError{Err: err}
	}

	current := obs.Actual
	canCharge, message := Decide(current, params.Threshold)
	metrics.LastIntensity.Set(float64(current))
	metrics.CanCharge.Set(metrics.BoolGauge(canCharge))

	latest, err := s.query(ctx, params.PartitionKey, 1)
	if err != nil {
		return s.storeFailure(Result{Intensity: current, CanCharge: canCharge, Message: message}, "query latest", err)
	}

	if len(latest) > 0 {
		s.logger.Info("carbon intensity compared",
			zap.Int("current", current),
			zap.Int("previous", latest[0].Intensity),
		)
		if latest[0].Intensity == current {
			metrics.ChecksTotal.WithLabelValues(metrics.StatusUnchanged).Inc()
			return Result{
				Status:    StatusUnchanged,
				Intensity: current,
				CanCharge: canCharge,
				Message:   MessageUnchanged,
			}, nil
		}
	}

	created := s.nextCreatedTime(latest)
	reading := &models.Reading{
		PartitionKey: params.PartitionKey,
		RowKey:       models.RowKeyFor(created),
		CreatedTime:  created,
		Intensity:    current,
		CanCharge:    canCharge,
	}
	result := Result{Status: StatusRecorded, Intensity: current, CanCharge: canCharge, Message: message}

	if err := s.timed("insert", func() error { return s.store.Insert(ctx, reading) }); err != nil {
		return s.storeFailure(result, "insert", err)
	}
	result.Reading = reading

	if err := s.enforceRetention(ctx, params, reading); err != nil {
		return s.storeFailure(result, "evict", err)
	}

	metrics.ChecksTotal.WithLabelValues(metrics.StatusRecorded).Inc()
	s.logger.Info("carbon intensity recorded",
		zap.String("row_key", reading.RowKey),
		zap.Int("intensity", current),
		zap.Bool("can_charge", canCharge),
	)
	return result, nil
}

// enforceRetention deletes the oldest reading of the newest MaxRecords+1 once that page
// reaches MaxRecords. The reading just written is never the victim.
func (s *IngestionService) enforceRetention(ctx context.Context, params Params, written *models.Reading) error {
	policy := RetentionPolicy{MaxRecords: params.MaxRecords}

	page, err := s.query(ctx, params.PartitionKey, policy.PageSize())
	if err != nil {
		return err
	}
	s.logger.Debug("retention page loaded", zap.Int("records", len(page)), zap.Int("max_records", params.MaxRecords))

	victim, ok := policy.Victim(page)
	if !ok || victim.RowKey == written.RowKey {
		return nil
	}

	if err := s.timed("delete", func() error { return s.store.Delete(ctx, victim.PartitionKey, victim.RowKey) }); err != nil {
		return err
	}
	metrics.ReadingsEvicted.Inc()
	s.logger.Info("oldest carbon intensity reading evicted", zap.String("row_key", victim.RowKey))
	return nil
}

// nextCreatedTime keeps row keys strictly increasing even when the clock has not moved
// past the latest stored reading.
func (s *IngestionService) nextCreatedTime(latest []models.Reading) time.Time {
	ts := s.now().UTC().Truncate(models.RowKeyResolution)
	if len(latest) == 0 {
		return ts
	}
	prev := latest[0].CreatedTime.UTC().Truncate(models.RowKeyResolution)
	if ts.After(prev) && models.RowKeyFor(ts) > latest[0].RowKey {
		return ts
	}
	return prev.Add(models.RowKeyResolution)
}

func (s *IngestionService) query(ctx context.Context, partitionKey string, limit int) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.timed("query", func() error {
		var err error
		readings, err = s.store.Query(ctx, partitionKey, limit)
		return err
	})
	return readings, err
}

func (s *IngestionService) timed(op string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	return err
}

func (s *IngestionService) storeFailure(result Result, op string, err error) (Result, error) {
	metrics.ChecksTotal.WithLabelValues(metrics.StatusStoreError).Inc()
	s.logger.Error("reading store operation failed", zap.String("op", op), zap.Error(err))

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return result, err
	}
	return result, &StoreError{Op: op, Err: err}
}
