package models

import (
	"fmt"
	"time"
)

// DefaultPartitionKey groups every reading into one logical series.
const DefaultPartitionKey = "CarbonIntensity"

// RowKeyLayout renders UTC instants with a fixed-width fraction so that lexical order of
// row keys matches chronological order.
const RowKeyLayout = "2006-01-02T15:04:05.0000000Z"

// RowKeyResolution is the smallest step representable in a row key.
const RowKeyResolution = 100 * time.Nanosecond

// Reading represents one stored carbon intensity observation.
type Reading struct {
	PartitionKey string    `db:"partition_key" json:"partition_key"`
	RowKey       string    `db:"row_key" json:"row_key"`
	CreatedTime  time.Time `db:"created_time" json:"created_time"`
	Intensity    int       `db:"intensity" json:"carbon_intensity"`
	CanCharge    bool      `db:"can_charge" json:"can_charge"`
}

// RowKeyFor truncates ts to the row key resolution and formats it.
func RowKeyFor(ts time.Time) string {
	return ts.UTC().Truncate(RowKeyResolution).Format(RowKeyLayout)
}

// ParseRowKey converts a row key back to its instant.
func ParseRowKey(key string) (time.Time, error) {
	ts, err := time.Parse(RowKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse row key %q: %w", key, err)
	}
	return ts.UTC(), nil
}
