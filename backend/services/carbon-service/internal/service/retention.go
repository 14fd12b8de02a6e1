package service

import "carboncheck/backend/services/carbon-service/internal/models"

// DefaultMaxRecords caps the retained readings per partition.
const DefaultMaxRecords = 100

// RetentionPolicy evicts at most the single oldest reading per cycle. The ingestion cycle
// never evicts the reading it has just written, which only matters with MaxRecords of 1.
type RetentionPolicy struct {
	MaxRecords int
}

// PageSize is the number of newest readings inspected after an insert.
func (p RetentionPolicy) PageSize() int {
	return p.maxRecords() + 1
}

// Victim returns the reading to evict from a newest-first page. Eviction starts once the
// page holds MaxRecords readings, so a series grown from empty settles one below the cap.
func (p RetentionPolicy) Victim(page []models.Reading) (models.Reading, bool) {
	if len(page) == 0 || len(page) < p.maxRecords() {
		return models.Reading{}, false
	}
	return page[len(page)-1], true
}

func (p RetentionPolicy) maxRecords() int {
	if p.MaxRecords <= 0 {
		return DefaultMaxRecords
	}
	return p.MaxRecords
}
