package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environment variable names for configuration.
const (
	EnvAPIURL            = "ANALYTICS_API_URL"
	EnvAppID             = "ANALYTICS_APP_ID"
	EnvUserID            = "ANALYTICS_USER_ID"
	EnvBatchSize         = "ANALYTICS_BATCH_SIZE"
	EnvBatchInterval     = "ANALYTICS_BATCH_INTERVAL"
	EnvSessionTimeout    = "ANALYTICS_SESSION_TIMEOUT"
	EnvMaxAttempts       = "ANALYTICS_MAX_ATTEMPTS"
	EnvAutoTrackPageView = "ANALYTICS_AUTO_TRACK_PAGE_VIEW"
	EnvTimeout           = "ANALYTICS_TIMEOUT"
	EnvHeaders           = "ANALYTICS_HEADERS"
	EnvStorageDir        = "ANALYTICS_STORAGE_DIR"
	EnvDebug             = "ANALYTICS_DEBUG"
)

// envConfig mirrors the environment variables. Durations use Go syntax
// ("5s", "30m"); headers are "Key:Value" pairs separated by commas.
type envConfig struct {
	APIURL            string            `env:"ANALYTICS_API_URL"`
	AppID             string            `env:"ANALYTICS_APP_ID"`
	UserID            string            `env:"ANALYTICS_USER_ID"`
	BatchSize         int               `env:"ANALYTICS_BATCH_SIZE"`
	BatchInterval     time.Duration     `env:"ANALYTICS_BATCH_INTERVAL"`
	SessionTimeout    time.Duration     `env:"ANALYTICS_SESSION_TIMEOUT"`
	MaxAttempts       int               `env:"ANALYTICS_MAX_ATTEMPTS"`
	AutoTrackPageView string            `env:"ANALYTICS_AUTO_TRACK_PAGE_VIEW"`
	Timeout           time.Duration     `env:"ANALYTICS_TIMEOUT"`
	Headers           map[string]string `env:"ANALYTICS_HEADERS"`
	StorageDir        string            `env:"ANALYTICS_STORAGE_DIR"`
	Debug             bool              `env:"ANALYTICS_DEBUG"`
}

// ConfigFromEnv builds a Config from ANALYTICS_* environment variables.
// A .env file in the working directory is loaded first if present; real
// environment variables take precedence over it.
func ConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := &Config{
		APIURL:         ec.APIURL,
		AppID:          ec.AppID,
		UserID:         ec.UserID,
		BatchSize:      ec.BatchSize,
		BatchInterval:  ec.BatchInterval,
		SessionTimeout: ec.SessionTimeout,
		MaxAttempts:    ec.MaxAttempts,
		Timeout:        ec.Timeout,
		Headers:        ec.Headers,
		StorageDir:     ec.StorageDir,
		Debug:          ec.Debug,
	}

	if ec.AutoTrackPageView != "" {
		enabled, err := strconv.ParseBool(ec.AutoTrackPageView)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvAutoTrackPageView, err)
		}
		cfg.AutoTrackPageView = Bool(enabled)
	}

	return cfg, nil
}

// NewFromEnv creates a new client using environment variables for
// configuration. ANALYTICS_API_URL and ANALYTICS_APP_ID are required
// unless supplied through opts.
//
// Example:
//
//	client, err := analytics.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Shutdown(context.Background())
func NewFromEnv(opts ...ConfigOption) (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}

	// Explicit options take precedence over the environment.
	for _, opt := range opts {
		opt(cfg)
	}

	return NewWithConfig(cfg)
}
