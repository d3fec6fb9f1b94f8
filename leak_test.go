package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/devshare/analytics-go/pkg/types"
)

// TestMain runs goleak verification for all tests in the package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("testing.(*T).Parallel"),
		// HTTP keep-alive connections from httptest clients.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestClientShutdown_NoLeaks(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	rec := &recordingTransport{}
	client, err := New("", "leak-app",
		WithTransport(rec.send),
		WithBatchSize(2),
		WithBatchInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.Track(types.TrackOptions{EventName: "tick"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Shutdown(ctx))
}

func TestClientDestroy_StopsTimer(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"))

	rec := &recordingTransport{}
	client, err := New("", "leak-app",
		WithTransport(rec.send),
		WithAutoTrackPageView(false),
		WithBatchInterval(time.Millisecond),
	)
	require.NoError(t, err)

	client.Destroy()
	client.queue.Wait()
}
