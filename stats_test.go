package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devshare/analytics-go/pkg/types"
)

func TestClientStats_CountsDelivery(t *testing.T) {
	clock := newFakeClock()
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.MaxAttempts = 2
		cfg.now = clock.Now
	})

	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))
	require.NoError(t, client.Track(types.TrackOptions{EventName: "b"}))
	require.NoError(t, client.Flush(context.Background()))

	require.NoError(t, client.Track(types.TrackOptions{EventName: "c"}))
	rec.failNext(2)
	require.Error(t, client.Flush(context.Background()))
	require.Error(t, client.Flush(context.Background()))

	client.Identify("user-1")
	clock.Advance(90 * time.Second)

	stats := client.Stats()
	assert.Equal(t, ClientStateActive, stats.State)
	assert.Equal(t, int64(3), stats.EventsTracked)
	assert.Equal(t, int64(2), stats.EventsSent)
	assert.Equal(t, int64(1), stats.EventsDropped)
	assert.Equal(t, int64(1), stats.BatchesSent)
	assert.Equal(t, int64(2), stats.BatchesFailed)
	assert.Equal(t, 0, stats.QueueLength)
	assert.True(t, stats.Identified)
	assert.Equal(t, client.SessionID(), stats.SessionID)
	assert.Equal(t, "1m30s", stats.Uptime)
}

func TestStatsHandler(t *testing.T) {
	client, _ := newTestClient(t, nil)
	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))

	rr := httptest.NewRecorder()
	client.StatsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "active", body["state"])
	assert.Equal(t, float64(1), body["queue_length"])
	assert.Equal(t, float64(1), body["events_tracked"])

	rr = httptest.NewRecorder()
	client.StatsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	client, _ := newTestClient(t, nil)

	rr := httptest.NewRecorder()
	client.HealthHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","state":"active"}`, rr.Body.String())

	client.Destroy()

	rr = httptest.NewRecorder()
	client.HealthHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"unhealthy","state":"closed"}`, rr.Body.String())
}
