package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes used as the status label.
const (
	StatusRecorded   = "recorded"
	StatusUnchanged  = "unchanged"
	StatusFetchError = "fetch_error"
	StatusStoreError = "store_error"
)

var (
	// Ingestion metrics
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbon_checks_total",
		Help: "The total number of ingestion cycles by outcome",
	}, []string{"status"})

	ReadingsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carbon_readings_evicted_total",
		Help: "The total number of readings removed by the retention policy",
	})

	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carbon_check_duration_seconds",
		Help:    "Duration of one ingestion cycle",
		Buckets: prometheus.DefBuckets,
	})

	// Latest observation
	LastIntensity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carbon_intensity_grams_per_kwh",
		Help: "The most recently fetched carbon intensity",
	})

	CanCharge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carbon_can_charge",
		Help: "Whether the latest intensity is at or below the charge threshold (1=yes, 0=no)",
	})

	// Reading store metrics
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carbon_store_operation_duration_seconds",
		Help:    "Duration of reading store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	SchedulerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "carbon_scheduler_runs_total",
		Help: "The total number of timer triggered cycles",
	})
)

// BoolGauge converts a flag for gauge use.
func BoolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
