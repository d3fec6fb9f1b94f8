package analyticstest

import (
	"context"
	"time"

	analytics "github.com/devshare/analytics-go"
)

// TestingT is an interface that matches *testing.T and *testing.B.
type TestingT interface {
	Fatalf(format string, args ...any)
	Cleanup(func())
	Helper()
}

// TestAppID is the application id used by test clients.
const TestAppID = "test-app"

// NewTestClient creates a client wired to a new mock server. The page
// view on construction and automatic flushing are disabled, so the server
// only sees what the test flushes. Options are applied after the defaults.
// The client and server are cleaned up when the test ends.
func NewTestClient(t TestingT, opts ...analytics.ConfigOption) (*analytics.Client, *MockServer) {
	t.Helper()

	server := NewMockServer()

	baseOpts := []analytics.ConfigOption{
		analytics.WithAutoTrackPageView(false),
		analytics.WithBatchSize(1000),
		analytics.WithBatchInterval(time.Hour),
	}

	client, err := analytics.New(server.URL, TestAppID, append(baseOpts, opts...)...)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to create test client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Shutdown(context.Background())
		server.Close()
	})

	return client, server
}
