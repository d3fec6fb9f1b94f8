package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/devshare/analytics-go/pkg/queue"
	"github.com/devshare/analytics-go/pkg/types"
)

// ClientStats is a point-in-time snapshot of client activity.
type ClientStats struct {
	State       ClientState `json:"state"`
	Uptime      string      `json:"uptime"`
	UptimeNanos int64       `json:"uptime_nanos"`

	QueueLength int    `json:"queue_length"`
	SessionID   string `json:"session_id"`
	Identified  bool   `json:"identified"`

	EventsTracked int64 `json:"events_tracked"`
	EventsSent    int64 `json:"events_sent"`
	EventsDropped int64 `json:"events_dropped"`
	BatchesSent   int64 `json:"batches_sent"`
	BatchesFailed int64 `json:"batches_failed"`
}

// deliveryCounters are updated by the transport and drop wrappers.
type deliveryCounters struct {
	tracked       atomic.Int64
	eventsSent    atomic.Int64
	eventsDropped atomic.Int64
	batchesSent   atomic.Int64
	batchesFailed atomic.Int64
}

// countDelivery wraps t to record batch outcomes.
func (c *Client) countDelivery(t queue.Transport) queue.Transport {
	return func(ctx context.Context, events []types.PendingEvent) error {
		err := t(ctx, events)
		if err != nil {
			c.counters.batchesFailed.Add(1)
			return err
		}
		c.counters.batchesSent.Add(1)
		c.counters.eventsSent.Add(int64(len(events)))
		return nil
	}
}

// countDrops wraps the user's OnDrop callback, which may be nil.
func (c *Client) countDrops(onDrop func([]types.PendingEvent, error)) func([]types.PendingEvent, error) {
	return func(events []types.PendingEvent, err error) {
		c.counters.eventsDropped.Add(int64(len(events)))
		if onDrop != nil {
			onDrop(events, err)
		}
	}
}

// Uptime returns how long the client has existed.
func (c *Client) Uptime() time.Duration {
	return c.config.now().Sub(c.createdAt)
}

// Stats returns a snapshot of client activity. It is safe to call
// concurrently and after Shutdown.
//
//	stats := client.Stats()
//	log.Printf("queued=%d sent=%d dropped=%d",
//	    stats.QueueLength, stats.EventsSent, stats.EventsDropped)
func (c *Client) Stats() ClientStats {
	uptime := c.Uptime()
	return ClientStats{
		State:         c.State(),
		Uptime:        uptime.String(),
		UptimeNanos:   uptime.Nanoseconds(),
		QueueLength:   c.queue.Len(),
		SessionID:     c.identity.SessionID(),
		Identified:    c.identity.UserID() != "",
		EventsTracked: c.counters.tracked.Load(),
		EventsSent:    c.counters.eventsSent.Load(),
		EventsDropped: c.counters.eventsDropped.Load(),
		BatchesSent:   c.counters.batchesSent.Load(),
		BatchesFailed: c.counters.batchesFailed.Load(),
	}
}

// StatsHandler serves Stats as JSON.
//
//	http.Handle("/analytics/stats", client.StatsHandler())
func (c *Client) StatsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(c.Stats()); err != nil {
			http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
		}
	})
}

// HealthHandler reports 200 while the client accepts events and 503 once
// it is shutting down or closed.
func (c *Client) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := c.State()

		response := struct {
			Status string      `json:"status"`
			State  ClientState `json:"state"`
		}{
			Status: "healthy",
			State:  state,
		}

		w.Header().Set("Content-Type", "application/json")
		if state != ClientStateActive {
			response.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	})
}
