package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futsim/journal"
	"futsim/market"
	"futsim/sim"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	rng := rand.New(rand.NewSource(1))
	base := time.Date(2024, 3, 5, 9, 30, 0, 0, market.Eastern)
	candles := make([]market.Candle, 200)
	price := 5000.0
	for i := range candles {
		move := (rng.Float64() - 0.5) * 2
		candles[i] = market.Candle{
			Time: base.Add(time.Duration(i) * time.Minute),
			Open: price, High: price + 1.5, Low: price - 1.5, Close: price + move,
			Volume: 1000,
		}
		price += move
	}

	cfg := sim.DefaultConfig()
	cfg.Seed = 1
	cfg.WarmupBars = 40
	session, err := sim.New(cfg, candles, nil, journal.Nop{})
	require.NoError(t, err)

	return New(session, time.Second).Router()
}

func TestHealth(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStatusReportsBalance(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report sim.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.InDelta(t, 50000, report.Balance, 1e-9)
	assert.False(t, report.Running)
}

func TestStartStopLifecycle(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/start", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var report sim.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Running)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stop", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.Running)
}

func TestBatchSizeValidation(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/batch-size", strings.NewReader(`{"batch_size":0}`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/batch-size", strings.NewReader(`not json`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/batch-size", strings.NewReader(`{"batch_size":250}`))
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTradesEndpoint(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/trades?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	r := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "futsim_")
}
