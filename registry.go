package analytics

import (
	"context"
	"os"
	"sync"
)

// AppIDResolver supplies an application id when none is configured.
// It returns "" when it has nothing to offer.
type AppIDResolver func() string

// EnvAppIDResolver reads the application id from an environment variable.
func EnvAppIDResolver(name string) AppIDResolver {
	return func() string {
		return os.Getenv(name)
	}
}

// StaticAppIDResolver always returns appID.
func StaticAppIDResolver(appID string) AppIDResolver {
	return func() string {
		return appID
	}
}

// InitOptions configures Registry.Init.
type InitOptions struct {
	// Config is the client configuration. AutoTrackPageView is handled by
	// Init, which tracks the first page view and, when Routes is set,
	// every route change.
	Config Config

	// AppIDResolvers are consulted in order when Config.AppID is empty.
	AppIDResolvers []AppIDResolver

	// UserIDFunc supplies the initial user id. It overrides Config.UserID
	// when it returns a non-empty value.
	UserIDFunc func() string

	// Routes, when set, is observed for page views.
	Routes *RouteObserver
}

// Registry holds at most one client per process scope.
//
//	var analyticsRegistry analytics.Registry
//
//	client, err := analyticsRegistry.Init(analytics.InitOptions{...})
//
// The zero value is ready to use and safe for concurrent use.
type Registry struct {
	mu          sync.Mutex
	client      *Client
	unsubscribe func()
}

// Init returns the registered client, constructing and registering one on
// the first call. Options passed to later calls are ignored.
//
// Init returns ErrMissingAppID when neither the config nor any resolver
// supplies an application id.
func (r *Registry) Init(opts InitOptions) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	cfg := opts.Config
	if cfg.AppID == "" {
		for _, resolve := range opts.AppIDResolvers {
			if appID := resolve(); appID != "" {
				cfg.AppID = appID
				break
			}
		}
	}
	if cfg.AppID == "" {
		return nil, ErrMissingAppID
	}

	if opts.UserIDFunc != nil {
		if userID := opts.UserIDFunc(); userID != "" {
			cfg.UserID = userID
		}
	}

	autoTrack := cfg.AutoTrackPageView == nil || *cfg.AutoTrackPageView
	cfg.AutoTrackPageView = Bool(false)

	client, err := NewWithConfig(&cfg)
	if err != nil {
		return nil, err
	}

	if autoTrack {
		_ = client.TrackPageView(nil)
		if opts.Routes != nil {
			r.unsubscribe = client.TrackRouteChanges(opts.Routes)
		}
	}

	r.client = client
	return client, nil
}

// Get returns the registered client, or nil if Init has not succeeded.
func (r *Registry) Get() *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client
}

// Close shuts down the registered client and empties the registry so a
// later Init constructs a new client. Closing an empty registry is a
// no-op.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	client, unsubscribe := r.client, r.unsubscribe
	r.client, r.unsubscribe = nil, nil
	r.mu.Unlock()

	if client == nil {
		return nil
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	return client.Shutdown(ctx)
}

// defaultRegistry backs the package-level Init, Get and Close.
var defaultRegistry Registry

// Init initializes the process-wide client. See Registry.Init.
func Init(opts InitOptions) (*Client, error) {
	return defaultRegistry.Init(opts)
}

// Get returns the process-wide client, or nil.
func Get() *Client {
	return defaultRegistry.Get()
}

// Close shuts down the process-wide client.
func Close(ctx context.Context) error {
	return defaultRegistry.Close(ctx)
}
