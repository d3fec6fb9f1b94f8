// Package analytics provides a Go SDK for collecting product analytics
// events and delivering them to a collector in batches.
//
// Every event is decorated with the user id, a sliding session id, a
// persistent anonymous id, page and device context and first-touch UTM
// campaign parameters before it is queued. The queue flushes when it
// reaches the batch size or when the flush timer fires, whichever comes
// first.
//
// # Quick Start
//
//	client, err := analytics.New("https://collect.example.com", "my-app")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
//
//	client.Identify("user-123")
//	client.Track(types.TrackOptions{
//	    EventName:  "signup",
//	    Properties: types.Properties{"plan": "pro"},
//	})
//
// # Configuration
//
// The client can be configured with functional options, from ANALYTICS_*
// environment variables (NewFromEnv) or from a YAML file (NewFromFile):
//
//	client, err := analytics.New(apiURL, appID,
//	    analytics.WithBatchSize(20),
//	    analytics.WithBatchInterval(10 * time.Second),
//	    analytics.WithStorageDir("/var/lib/myapp"),
//	    analytics.WithDebug(true),
//	)
//
// # Sessions and Identity
//
// A session lasts while the gap between consecutive events stays within
// the session timeout (30 minutes by default). The anonymous id is created
// once per storage and survives restarts when file storage is configured.
// Reset replaces both and clears the user id.
//
// # Event Delivery Guarantees
//
// Delivery is at-least-once while the process runs. A failed batch is put
// back at the head of the queue ahead of newer events and retried on the
// next flush, so order is preserved across retries. Set WithMaxAttempts to
// stop retrying an event after a number of failures; dropped events are
// passed to the WithOnDrop callback. Queued events are kept in memory only.
//
// Track never reports delivery errors. Call Flush to deliver synchronously
// and observe the result, and call Shutdown before exit to deliver what is
// left.
//
// # Monitoring
//
// HTTP hooks observe requests of the default transport without touching
// the queue:
//
//	client, err := analytics.New(apiURL, appID,
//	    analytics.WithHTTPHooks(
//	        analytics.LoggingHook(logger),
//	        analytics.MetricsHook(metrics),
//	    ),
//	)
//
// Stats returns delivery counters; StatsHandler and HealthHandler expose
// them over HTTP.
//
// # Thread Safety
//
// Client, Registry and RouteObserver are safe for concurrent use. At most
// one delivery is in flight per client at any time.
//
// # Testing
//
// The analyticstest package provides a mock collector for tests:
//
//	client, server := analyticstest.NewTestClient(t)
//	client.Track(types.TrackOptions{EventName: "signup"})
//	client.Flush(ctx)
//	// server.EventNames() == []string{"signup"}
package analytics
