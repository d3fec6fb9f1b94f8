package analytics

import (
	"net/http"
	"time"

	"github.com/devshare/analytics-go/pkg/environment"
	"github.com/devshare/analytics-go/pkg/id"
	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/queue"
	"github.com/devshare/analytics-go/pkg/types"
)

// ConfigOption is a function that modifies a Config.
type ConfigOption func(*Config)

// WithUserID sets the initial default user id.
func WithUserID(userID string) ConfigOption {
	return func(c *Config) {
		c.UserID = userID
	}
}

// WithAutoTrackPageView controls the page_view emitted on construction.
func WithAutoTrackPageView(enabled bool) ConfigOption {
	return func(c *Config) {
		c.AutoTrackPageView = Bool(enabled)
	}
}

// WithBatchSize sets the queue length that triggers an immediate flush.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithBatchInterval sets the period of the background flush timer.
func WithBatchInterval(interval time.Duration) ConfigOption {
	return func(c *Config) {
		c.BatchInterval = interval
	}
}

// WithSessionTimeout sets the idle gap that ends a session.
func WithSessionTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.SessionTimeout = timeout
	}
}

// WithMaxAttempts caps delivery attempts per event.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithOnDrop sets the callback for events discarded after MaxAttempts.
func WithOnDrop(fn func(events []types.PendingEvent, err error)) ConfigOption {
	return func(c *Config) {
		c.OnDrop = fn
	}
}

// WithDebug enables debug logging.
func WithDebug(debug bool) ConfigOption {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger StructuredLogger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithStorage sets the identity storage.
func WithStorage(storage identity.Storage) ConfigOption {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithStorageDir enables file-backed identity storage in dir.
func WithStorageDir(dir string) ConfigOption {
	return func(c *Config) {
		c.StorageDir = dir
	}
}

// WithEnvironment sets the page and device context provider.
func WithEnvironment(env environment.Provider) ConfigOption {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithTransport replaces the default HTTP transport.
func WithTransport(transport queue.Transport) ConfigOption {
	return func(c *Config) {
		c.Transport = transport
	}
}

// WithHTTPClient sets a custom HTTP client for the default transport.
func WithHTTPClient(client *http.Client) ConfigOption {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHeaders adds headers to every collector request.
func WithHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.Headers[k] = v
		}
	}
}

// WithIDGenerationMode sets the ID generation mode.
func WithIDGenerationMode(mode id.Mode) ConfigOption {
	return func(c *Config) {
		c.IDGenerationMode = mode
	}
}

// WithHTTPHooks appends hooks to the default HTTP transport.
// Hooks are ignored when a custom Transport is set.
func WithHTTPHooks(hooks ...HTTPHook) ConfigOption {
	return func(c *Config) {
		c.HTTPHooks = append(c.HTTPHooks, hooks...)
	}
}

// WithClearUTMOnReset makes Reset forget the first-touch UTM parameters.
func WithClearUTMOnReset(enabled bool) ConfigOption {
	return func(c *Config) {
		c.ClearUTMOnReset = enabled
	}
}
