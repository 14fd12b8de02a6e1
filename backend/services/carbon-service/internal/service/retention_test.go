package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"carboncheck/backend/services/carbon-service/internal/models"
)

func page(n int) []models.Reading {
	out := make([]models.Reading, n)
	for i := range out {
		out[i] = models.Reading{RowKey: string(rune('z' - i))}
	}
	return out
}

func TestRetentionPolicyPageSize(t *testing.T) {
	assert.Equal(t, 101, RetentionPolicy{MaxRecords: 100}.PageSize())
	assert.Equal(t, DefaultMaxRecords+1, RetentionPolicy{}.PageSize())
}

func TestRetentionPolicyVictim(t *testing.T) {
	policy := RetentionPolicy{MaxRecords: 3}

	_, ok := policy.Victim(nil)
	assert.False(t, ok)

	_, ok = policy.Victim(page(2))
	assert.False(t, ok)

	// Eviction begins once the page reaches MaxRecords.
	victim, ok := policy.Victim(page(3))
	assert.True(t, ok)
	assert.Equal(t, page(3)[2].RowKey, victim.RowKey)

	victim, ok = policy.Victim(page(4))
	assert.True(t, ok)
	assert.Equal(t, page(4)[3].RowKey, victim.RowKey)
}
