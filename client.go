package analytics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devshare/analytics-go/pkg/environment"
	"github.com/devshare/analytics-go/pkg/id"
	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/queue"
	"github.com/devshare/analytics-go/pkg/types"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "0.3.0"

// Client collects analytics events and delivers them to the collector in
// batches. It is safe for concurrent use.
//
// A Client must be shut down with Shutdown (or discarded with Destroy) to
// stop its background flush timer.
type Client struct {
	config   *Config
	identity *identity.Manager
	queue    *queue.Queue
	utm      *environment.UTMStore
	ids      *id.Generator
	state    atomic.Int32

	// lifecycleMu is held for reading from the state check to the enqueue
	// in Track, and for writing while Shutdown or Destroy leaves the
	// active state.
	lifecycleMu sync.RWMutex

	createdAt time.Time
	counters  deliveryCounters
}

// New creates a new analytics client for the collector at apiURL.
//
//	client, err := analytics.New("https://collect.example.com", "my-app",
//	    analytics.WithBatchSize(20),
//	    analytics.WithDebug(true),
//	)
func New(apiURL, appID string, opts ...ConfigOption) (*Client, error) {
	cfg := &Config{
		APIURL: apiURL,
		AppID:  appID,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a new analytics client from a Config struct.
// The config is copied; later changes to cfg have no effect.
func NewWithConfig(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	cfgCopy := *cfg
	cfgCopy.Headers = maps.Clone(cfg.Headers)

	cfgCopy.applyDefaults()

	if err := cfgCopy.validate(); err != nil {
		return nil, err
	}

	ids := id.NewGenerator(&id.Config{
		Mode:   cfgCopy.IDGenerationMode,
		Logger: cfgCopy.Logger,
	})

	storage := cfgCopy.resolveStorage()

	transport := cfgCopy.Transport
	if transport == nil {
		transport = newHTTPTransport(&cfgCopy).Send
	}

	c := &Client{
		config:    &cfgCopy,
		ids:       ids,
		utm:       environment.NewUTMStore(storage),
		createdAt: cfgCopy.now(),
		identity: identity.New(identity.Config{
			Storage:        storage,
			SessionTimeout: cfgCopy.SessionTimeout,
			UserID:         cfgCopy.UserID,
			Generator:      ids,
			Logger:         cfgCopy.Logger,
			Debug:          cfgCopy.Debug,
			Now:            cfgCopy.now,
		}),
	}

	c.queue = queue.New(queue.Config{
		BatchSize:     cfgCopy.BatchSize,
		BatchInterval: cfgCopy.BatchInterval,
		Transport:     c.countDelivery(transport),
		MaxAttempts:   cfgCopy.MaxAttempts,
		OnDrop:        c.countDrops(cfgCopy.OnDrop),
		Generator:     ids,
		Logger:        cfgCopy.Logger,
		Debug:         cfgCopy.Debug,
		Now:           cfgCopy.now,
	})

	c.state.Store(int32(ClientStateActive))

	if *cfgCopy.AutoTrackPageView {
		// Cannot fail: the client is active.
		_ = c.TrackPageView(nil)
	}

	c.debug("analytics client initialized", "config", cfgCopy.String())
	return c, nil
}

// Track decorates an event with identity, session and environment context
// and queues it for delivery. Delivery failures are never reported here;
// they surface through Flush and the queue's retry handling.
//
// Track returns ErrClientClosed once Shutdown or Destroy has been called.
func (c *Client) Track(opts types.TrackOptions) error {
	c.lifecycleMu.RLock()
	defer c.lifecycleMu.RUnlock()

	if !c.IsActive() {
		return ErrClientClosed
	}

	event := c.decorate(opts, c.config.now())
	c.queue.Enqueue(event)
	c.counters.tracked.Add(1)
	return nil
}

// TrackPageView tracks a page_view event with the current page context.
func (c *Client) TrackPageView(props types.Properties) error {
	return c.Track(types.TrackOptions{
		EventName:  EventPageView,
		Properties: props,
	})
}

// TrackClick tracks a click on an element. Caller properties override the
// element properties on key collision.
func (c *Client) TrackClick(element ElementInfo, props types.Properties) error {
	return c.Track(types.TrackOptions{
		EventName:  EventClick,
		Properties: element.properties().Merge(props),
	})
}

// Identify sets the user id attached to subsequent events.
func (c *Client) Identify(userID string) {
	c.identity.Identify(userID)
}

// Reset clears the user id, replaces the anonymous id and starts a new
// session. Call it when the user logs out. Stored UTM parameters are
// kept unless ClearUTMOnReset is set.
func (c *Client) Reset() {
	c.identity.Reset()
	if c.config.ClearUTMOnReset {
		c.utm.Forget()
	}
	c.debug("user reset")
}

// UserID returns the current default user id.
func (c *Client) UserID() string {
	return c.identity.UserID()
}

// AnonymousID returns the persisted anonymous id.
func (c *Client) AnonymousID() string {
	return c.identity.AnonymousID()
}

// SessionID returns the current session id without recording activity.
func (c *Client) SessionID() string {
	return c.identity.SessionID()
}

// QueueLength returns the number of events waiting for delivery.
func (c *Client) QueueLength() int {
	return c.queue.Len()
}

// AppID returns the configured application id.
func (c *Client) AppID() string {
	return c.config.AppID
}

func (c *Client) debug(msg string, args ...any) {
	if c.config.Debug {
		c.config.Logger.Debug(msg, args...)
	}
}
