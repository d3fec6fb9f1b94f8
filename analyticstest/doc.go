// Package analyticstest provides testing utilities for applications using
// the analytics-go SDK.
//
// # Mock Server
//
// MockServer is an httptest server that speaks the collector batch
// protocol and records every batch it receives:
//
//	server := analyticstest.NewMockServer()
//	defer server.Close()
//
//	client, _ := analytics.New(server.URL, "test-app")
//	client.Track(types.TrackOptions{EventName: "signup"})
//	client.Flush(ctx)
//
//	names := server.EventNames() // ["page_view", "signup"]
//
// # Test Client
//
// NewTestClient returns a client wired to a fresh mock server, with
// automatic flushing disabled and cleanup registered on t:
//
//	func TestSignup(t *testing.T) {
//	    client, server := analyticstest.NewTestClient(t)
//	    // ...
//	    client.Flush(context.Background())
//	    if server.EventCount() != 1 { ... }
//	}
//
// # Mock Transport and Logger
//
// MockTransport replaces HTTP entirely and can be told to fail, and
// MockLogger captures diagnostics for assertions.
package analyticstest
