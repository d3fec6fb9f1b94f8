package analytics

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/devshare/analytics-go/pkg/environment"
	"github.com/devshare/analytics-go/pkg/id"
	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/queue"
	"github.com/devshare/analytics-go/pkg/types"
)

// Default configuration values.
const (
	// DefaultBatchSize is the queue length that triggers an immediate flush.
	DefaultBatchSize = queue.DefaultBatchSize

	// DefaultBatchInterval is the period of the background flush timer.
	DefaultBatchInterval = queue.DefaultBatchInterval

	// DefaultSessionTimeout is the idle gap after which a new session starts.
	DefaultSessionTimeout = identity.DefaultSessionTimeout

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds Shutdown when the caller's context has
	// no deadline.
	DefaultShutdownTimeout = 30 * time.Second

	// BatchPath is appended to APIURL to form the collector endpoint.
	BatchPath = "/v1/analytics/events/batch"
)

// Config holds the configuration for the analytics client.
type Config struct {
	// APIURL is the collector base URL. Required unless Transport is set.
	APIURL string `yaml:"api_url"`

	// AppID identifies the application on the collector (required).
	AppID string `yaml:"app_id"`

	// UserID is the initial default user id.
	UserID string `yaml:"user_id"`

	// AutoTrackPageView emits a page_view event when the client is created.
	// Defaults to true when nil.
	AutoTrackPageView *bool `yaml:"auto_track_page_view"`

	// BatchSize is the queue length that triggers an immediate flush.
	// Defaults to 10 if not set.
	BatchSize int `yaml:"batch_size"`

	// BatchInterval is the period of the background flush timer.
	// Defaults to 5 seconds if not set.
	BatchInterval time.Duration `yaml:"batch_interval"`

	// SessionTimeout is the idle gap that ends a session.
	// Defaults to 30 minutes if not set.
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// MaxAttempts caps delivery attempts per event. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts"`

	// Timeout is the HTTP request timeout of the default transport.
	// Defaults to 10 seconds if not set.
	Timeout time.Duration `yaml:"timeout"`

	// Headers are added to every collector request.
	Headers map[string]string `yaml:"headers"`

	// StorageDir enables file-backed identity storage in this directory
	// when Storage is nil.
	StorageDir string `yaml:"storage_dir"`

	// ClearUTMOnReset makes Reset forget the stored first-touch UTM
	// parameters. By default they survive Reset.
	ClearUTMOnReset bool `yaml:"clear_utm_on_reset"`

	// Debug enables diagnostic logging.
	Debug bool `yaml:"debug"`

	// Storage persists the anonymous id, session and UTM parameters.
	// Defaults to in-memory storage.
	Storage identity.Storage `yaml:"-"`

	// Environment supplies page and device context.
	// Defaults to environment.Nop.
	Environment environment.Provider `yaml:"-"`

	// Transport replaces the default HTTP transport.
	Transport queue.Transport `yaml:"-"`

	// HTTPClient is used by the default transport.
	// If not set, a client with Timeout is created.
	HTTPClient *http.Client `yaml:"-"`

	// HTTPHooks observe or modify requests of the default transport.
	HTTPHooks []HTTPHook `yaml:"-"`

	// Logger receives diagnostics when Debug is set.
	// If nil and Debug is true, logs go to stderr through slog.
	Logger StructuredLogger `yaml:"-"`

	// OnDrop receives events discarded after MaxAttempts failures.
	OnDrop func(events []types.PendingEvent, err error) `yaml:"-"`

	// IDGenerationMode controls ID generation when the secure random
	// source fails.
	IDGenerationMode id.Mode `yaml:"-"`

	// now overrides the clock in tests.
	now func() time.Time
}

// String returns a compact representation of the config for debug output.
func (c *Config) String() string {
	return fmt.Sprintf("Config{APIURL: %q, AppID: %q, BatchSize: %d, BatchInterval: %v, SessionTimeout: %v, Debug: %t}",
		c.APIURL,
		c.AppID,
		c.BatchSize,
		c.BatchInterval,
		c.SessionTimeout,
		c.Debug,
	)
}

// Bool returns a pointer to v, for use with AutoTrackPageView.
func Bool(v bool) *bool {
	return &v
}

// applyDefaults sets default values for unset configuration options.
func (c *Config) applyDefaults() {
	if c.AutoTrackPageView == nil {
		c.AutoTrackPageView = Bool(true)
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchInterval == 0 {
		c.BatchInterval = DefaultBatchInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Environment == nil {
		c.Environment = environment.Nop{}
	}
	if c.Logger == nil {
		if c.Debug {
			c.Logger = defaultDebugLogger()
		} else {
			c.Logger = NopLogger{}
		}
	}
	if c.now == nil {
		c.now = time.Now
	}
}

// validate checks that the configuration is valid.
func (c *Config) validate() error {
	if c.AppID == "" {
		return ErrMissingAppID
	}

	if c.Transport == nil {
		if c.APIURL == "" {
			return ErrMissingAPIURL
		}
		u, err := url.Parse(c.APIURL)
		if err != nil {
			return fmt.Errorf("%w: invalid api url: %v", ErrInvalidConfig, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%w: api url must use http or https, got %q", ErrInvalidConfig, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("%w: api url has no host", ErrInvalidConfig)
		}
	}

	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.BatchInterval < 0 {
		return fmt.Errorf("%w: batch interval must be positive, got %v", ErrInvalidConfig, c.BatchInterval)
	}
	if c.SessionTimeout < 0 {
		return fmt.Errorf("%w: session timeout must be positive, got %v", ErrInvalidConfig, c.SessionTimeout)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: max attempts must not be negative, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	}

	return nil
}

// resolveStorage picks the identity storage. A StorageDir that cannot be
// created degrades to memory, like any other storage failure.
func (c *Config) resolveStorage() identity.Storage {
	if c.Storage != nil {
		return c.Storage
	}
	if c.StorageDir != "" {
		store, err := identity.NewFileStorage(c.StorageDir)
		if err == nil {
			return store
		}
		if c.Debug {
			c.Logger.Debug("file storage unavailable, using memory", "dir", c.StorageDir, "error", err)
		}
	}
	return identity.NewMemoryStorage()
}
