package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	libconfig "carboncheck/backend/libs/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(libconfig.FileEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.HTTPAddress())
	assert.Equal(t, 100, cfg.Check.Threshold)
	assert.Equal(t, 100, cfg.Check.MaxRecords)
	assert.Equal(t, "CarbonIntensity", cfg.Check.PartitionKey)
	assert.Equal(t, "0 */30 * * * *", cfg.Schedule.Cron)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.IntensityTimeout())
	assert.True(t, cfg.Metrics.Enabled)

	params := cfg.CheckParams()
	assert.Equal(t, 100, params.Threshold)
	assert.Equal(t, 100, params.MaxRecords)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(libconfig.FileEnv, "")
	t.Setenv("CAR_CHARGE_THRESHOLD", "150")
	t.Setenv("MAX_CARBON_INTENSITY_RECORDS", "48")
	t.Setenv("CARBON_HTTP_PORT", ":9000")
	t.Setenv("CARBON_STORE_DRIVER", "SQLite")
	t.Setenv("CARBON_SCHEDULE_ENABLED", "false")
	t.Setenv("CARBON_CHECK_CRON", "not a schedule")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.Check.Threshold)
	assert.Equal(t, 48, cfg.Check.MaxRecords)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carbon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: Staging
check:
  threshold: 120
  maxRecords: 10
store:
  driver: postgres
database:
  dsn: postgres://carbon@localhost/carbon
`), 0o600))
	t.Setenv(libconfig.FileEnv, path)
	t.Setenv("CAR_CHARGE_THRESHOLD", "90")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Staging", cfg.Environment)
	assert.Equal(t, 90, cfg.Check.Threshold)
	assert.Equal(t, 10, cfg.Check.MaxRecords)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "8085", cfg.HTTP.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative threshold", map[string]string{"CAR_CHARGE_THRESHOLD": "-1"}},
		{"zero max records", map[string]string{"MAX_CARBON_INTENSITY_RECORDS": "0"}},
		{"unknown driver", map[string]string{"CARBON_STORE_DRIVER": "cosmos"}},
		{"postgres without dsn", map[string]string{"CARBON_STORE_DRIVER": "postgres"}},
		{"bad cron", map[string]string{"CARBON_CHECK_CRON": "every half hour"}},
		{"five field cron", map[string]string{"CARBON_CHECK_CRON": "*/30 * * * *"}},
		{"bad integer", map[string]string{"CAR_CHARGE_THRESHOLD": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(libconfig.FileEnv, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
