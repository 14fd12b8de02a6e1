package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appconfig "carboncheck/backend/services/carbon-service/internal/config"
	"carboncheck/backend/services/carbon-service/internal/models"
)

func intensityAPI(t *testing.T, values ...int) *httptest.Server {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(values) {
			i = len(values) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[{"from":"2023-07-19T10:30Z","to":"2023-07-19T11:00Z","intensity":{"forecast":180,"actual":%d,"index":"moderate"}}]}`, values[i])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(apiURL string) *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.HTTP.Port = "0"
	cfg.Check.Threshold = 100
	cfg.Check.MaxRecords = 3
	cfg.Check.PartitionKey = models.DefaultPartitionKey
	cfg.Intensity.URL = apiURL
	cfg.Intensity.TimeoutSeconds = 5
	cfg.Store.Driver = appconfig.DriverMemory
	cfg.Store.Table = "carbon_intensity"
	cfg.Metrics.Enabled = true
	return cfg
}

type checkBody struct {
	Status          string `json:"status"`
	Message         string `json:"message"`
	CarbonIntensity int    `json:"carbon_intensity"`
	CanCharge       bool   `json:"can_charge"`
	RowKey          string `json:"row_key"`
}

func check(t *testing.T, h http.Handler) checkBody {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/carbon-check", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body checkBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func readingsCount(t *testing.T, h http.Handler) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/readings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Readings []models.Reading `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return len(body.Readings)
}

func runFlow(t *testing.T, cfg *appconfig.Config) {
	application, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer application.Close()
	h := application.Handler()

	first := check(t, h)
	assert.Equal(t, "recorded", first.Status)
	assert.Equal(t, 150, first.CarbonIntensity)
	assert.False(t, first.CanCharge)
	assert.Equal(t, "It's not okay to charge your car.", first.Message)
	assert.NotEmpty(t, first.RowKey)

	second := check(t, h)
	assert.Equal(t, "unchanged", second.Status)
	assert.Equal(t, "Nothing has changed.", second.Message)
	assert.Empty(t, second.RowKey)

	third := check(t, h)
	assert.Equal(t, "recorded", third.Status)
	assert.True(t, third.CanCharge)
	assert.Greater(t, third.RowKey, first.RowKey)

	check(t, h)
	check(t, h)
	assert.Equal(t, 2, readingsCount(t, h))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/carbon-intensity/graph", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Last 3 records with threshold of 100")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carbon_checks_total")
}

func TestAppMemoryStore(t *testing.T) {
	api := intensityAPI(t, 150, 150, 90, 80, 70)
	runFlow(t, testConfig(api.URL))
}

func TestAppSQLiteStore(t *testing.T) {
	api := intensityAPI(t, 150, 150, 90, 80, 70)
	cfg := testConfig(api.URL)
	cfg.Store.Driver = appconfig.DriverSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "carbon.db")
	runFlow(t, cfg)
}

func TestAppRedisStore(t *testing.T) {
	api := intensityAPI(t, 150, 150, 90, 80, 70)
	srv := miniredis.RunT(t)
	cfg := testConfig(api.URL)
	cfg.Store.Driver = appconfig.DriverRedis
	cfg.Redis.Addr = srv.Addr()
	runFlow(t, cfg)
}

func TestAppFetchFailureMapsToBadGateway(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer api.Close()

	application, err := New(context.Background(), testConfig(api.URL), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer application.Close()

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/carbon-check", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestAppRequiresCredentialsWhenConfigured(t *testing.T) {
	api := intensityAPI(t, 150)
	cfg := testConfig(api.URL)
	cfg.Auth.JWTSecret = "secret"

	application, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer application.Close()

	rec := httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/carbon-check", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	application.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := testConfig("")
	cfg.Store.Driver = "cosmos"

	_, closeFn, err := OpenStore(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
