package analyticstest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytics "github.com/devshare/analytics-go"
	"github.com/devshare/analytics-go/pkg/types"
)

func TestMockServer_RecordsBatches(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	body := []byte(`{"events":[{"event_name":"a"},{"event_name":"b"}]}`)
	resp, err := http.Post(ms.URL+analytics.BatchPath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, ms.RequestCount())

	req := ms.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, analytics.BatchPath, req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	require.NotNil(t, req.Batch)
	assert.Equal(t, []string{"a", "b"}, ms.EventNames())
}

func TestMockServer_InvalidBodyIsRecordedWithoutBatch(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	resp, err := http.Post(ms.URL+"/anything", "text/plain", bytes.NewReader([]byte("nope")))
	require.NoError(t, err)
	resp.Body.Close()

	req := ms.LastRequest()
	require.NotNil(t, req)
	assert.Nil(t, req.Batch)
	assert.Equal(t, 0, ms.EventCount())
}

func TestMockServer_Reset(t *testing.T) {
	ms := NewMockServer()
	defer ms.Close()

	resp, err := http.Post(ms.URL, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, 1, ms.RequestCount())
	ms.Reset()
	assert.Equal(t, 0, ms.RequestCount())
	assert.Nil(t, ms.LastRequest())
}

func TestNewTestClient(t *testing.T) {
	client, server := NewTestClient(t)

	require.NoError(t, client.Track(types.TrackOptions{EventName: "signup"}))
	assert.Equal(t, 0, server.RequestCount(), "nothing is sent before a flush")

	require.NoError(t, client.Flush(context.Background()))

	events := server.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "signup", events[0].EventName)
	assert.Equal(t, TestAppID, events[0].AppID)
	assert.Equal(t, client.AnonymousID(), events[0].AnonymousID)
}

func TestNewTestClient_ErrorResponses(t *testing.T) {
	client, server := NewTestClient(t)
	server.RespondWithServerError()

	require.NoError(t, client.Track(types.TrackOptions{EventName: "signup"}))
	err := client.Flush(context.Background())
	require.Error(t, err)

	apiErr, ok := analytics.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 1, client.QueueLength(), "failed events stay queued")

	server.RespondWithSuccess()
	require.NoError(t, client.Flush(context.Background()))
	assert.Equal(t, 0, client.QueueLength())
	assert.Equal(t, []string{"signup", "signup"}, server.EventNames())
}

func TestMockTransport(t *testing.T) {
	transport := NewMockTransport()
	client, err := analytics.New("", "test-app",
		analytics.WithTransport(transport.Send),
		analytics.WithAutoTrackPageView(false),
		analytics.WithBatchSize(100),
	)
	require.NoError(t, err)
	defer client.Destroy()

	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))

	transport.FailWith(errors.New("offline"))
	require.Error(t, client.Flush(context.Background()))

	transport.FailWith(nil)
	require.NoError(t, client.Flush(context.Background()))

	batches := transport.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"a"}, types.EventNames(batches[1]))
	assert.Equal(t, 1, batches[1][0].Attempts)
	assert.Equal(t, 2, transport.Calls())
}

func TestMockLogger(t *testing.T) {
	logger := NewMockLogger()
	logger.Debug("one")
	logger.Warn("two", "key", "value")

	assert.Equal(t, []string{"[DEBUG] one", "[WARN] two"}, logger.GetMessages())
	assert.Equal(t, 2, logger.MessageCount())

	logger.Reset()
	assert.Equal(t, 0, logger.MessageCount())
}

func TestMockMetrics_WithMetricsHook(t *testing.T) {
	metrics := NewMockMetrics()
	client, _ := NewTestClient(t, analytics.WithHTTPHooks(analytics.MetricsHook(metrics)))

	require.NoError(t, client.Track(types.TrackOptions{EventName: "signup"}))
	require.NoError(t, client.Flush(context.Background()))

	assert.Equal(t, int64(1), metrics.Counter(analytics.MetricRequests))
	assert.Equal(t, int64(1), metrics.Counter(analytics.MetricStatusPrefix+"200"))
	assert.Len(t, metrics.Timings(analytics.MetricRequestTime), 1)
	assert.Positive(t, metrics.Gauge(analytics.MetricLastBatchBytes))

	metrics.Reset()
	assert.Zero(t, metrics.Counter(analytics.MetricRequests))
}
