package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPHook observes or modifies collector requests made by the default
// HTTP transport.
//
// Use hooks for:
//   - Adding per-request headers such as short-lived auth tokens
//   - Logging request and response details
//   - Collecting delivery metrics
//
// Example:
//
//	client, _ := analytics.New(apiURL, appID,
//	    analytics.WithHTTPHooks(
//	        analytics.LoggingHook(logger),
//	        analytics.MetricsHook(myMetrics),
//	    ),
//	)
type HTTPHook interface {
	// BeforeRequest is called before sending the request. It can modify
	// the request; a non-nil error aborts the delivery attempt.
	BeforeRequest(ctx context.Context, req *http.Request) error

	// AfterResponse is called once the request has completed or failed,
	// including when a BeforeRequest hook aborted it. resp is nil when err
	// is a transport or hook error.
	AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// HTTPHookFunc is a function adapter for simple hooks.
type HTTPHookFunc struct {
	Before func(ctx context.Context, req *http.Request) error
	After  func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error)
}

// BeforeRequest implements HTTPHook.
func (f HTTPHookFunc) BeforeRequest(ctx context.Context, req *http.Request) error {
	if f.Before != nil {
		return f.Before(ctx, req)
	}
	return nil
}

// AfterResponse implements HTTPHook.
func (f HTTPHookFunc) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	if f.After != nil {
		f.After(ctx, req, resp, duration, err)
	}
}

// hookChain combines multiple hooks into a single hook.
type hookChain struct {
	hooks []HTTPHook
}

// BeforeRequest calls all hooks in order, stopping at the first error.
func (c *hookChain) BeforeRequest(ctx context.Context, req *http.Request) error {
	for _, hook := range c.hooks {
		if err := hook.BeforeRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// AfterResponse calls all hooks in reverse order, like a defer stack.
func (c *hookChain) AfterResponse(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
	for i := len(c.hooks) - 1; i >= 0; i-- {
		c.hooks[i].AfterResponse(ctx, req, resp, duration, err)
	}
}

// combineHooks returns nil for no hooks and the hook itself for one.
func combineHooks(hooks []HTTPHook) HTTPHook {
	switch len(hooks) {
	case 0:
		return nil
	case 1:
		return hooks[0]
	default:
		return &hookChain{hooks: hooks}
	}
}

// callBeforeRequest runs hook.BeforeRequest and reports a panic as an error.
func callBeforeRequest(ctx context.Context, hook HTTPHook, req *http.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analytics: request hook panicked: %v", r)
		}
	}()
	if err := hook.BeforeRequest(ctx, req); err != nil {
		return fmt.Errorf("analytics: request hook failed: %w", err)
	}
	return nil
}

// HeaderHook adds fixed headers to every request.
func HeaderHook(headers map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// DynamicHeaderHook adds headers computed for each request.
//
//	analytics.WithHTTPHooks(
//	    analytics.DynamicHeaderHook(func(ctx context.Context) map[string]string {
//	        return map[string]string{"Authorization": "Bearer " + tokens.Current()}
//	    }),
//	)
func DynamicHeaderHook(fn func(ctx context.Context) map[string]string) HTTPHook {
	return HTTPHookFunc{
		Before: func(ctx context.Context, req *http.Request) error {
			for k, v := range fn(ctx) {
				req.Header.Set(k, v)
			}
			return nil
		},
	}
}

// LoggingHook logs every collector request at debug level and failures
// at warn level.
func LoggingHook(logger StructuredLogger) HTTPHook {
	return HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			switch {
			case err != nil:
				logger.Warn("collector request failed", "method", req.Method, "path", req.URL.Path, "duration", duration, "error", err)
			case resp != nil && resp.StatusCode >= 300:
				logger.Warn("collector rejected request", "method", req.Method, "path", req.URL.Path, "duration", duration, "status", resp.StatusCode)
			case resp != nil:
				logger.Debug("collector request completed", "method", req.Method, "path", req.URL.Path, "duration", duration, "status", resp.StatusCode)
			}
		},
	}
}

// Metrics receives delivery measurements from MetricsHook.
type Metrics interface {
	IncrementCounter(name string, value int64)
	RecordDuration(name string, duration time.Duration)
	SetGauge(name string, value float64)
}

// Metric names recorded by MetricsHook.
const (
	MetricRequests       = "analytics.http.requests"
	MetricRequestErrors  = "analytics.http.errors"
	MetricRequestTime    = "analytics.http.duration"
	MetricStatusPrefix   = "analytics.http.status."
	MetricLastBatchBytes = "analytics.http.last_batch_bytes"
)

// MetricsHook records request counts, durations, transport errors and a
// per-status-code counter. A nil m yields a no-op hook.
func MetricsHook(m Metrics) HTTPHook {
	if m == nil {
		return HTTPHookFunc{}
	}
	return HTTPHookFunc{
		After: func(ctx context.Context, req *http.Request, resp *http.Response, duration time.Duration, err error) {
			m.IncrementCounter(MetricRequests, 1)
			m.RecordDuration(MetricRequestTime, duration)
			m.SetGauge(MetricLastBatchBytes, float64(req.ContentLength))

			if err != nil {
				m.IncrementCounter(MetricRequestErrors, 1)
			}
			if resp != nil {
				m.IncrementCounter(MetricStatusPrefix+strconv.Itoa(resp.StatusCode), 1)
			}
		},
	}
}
