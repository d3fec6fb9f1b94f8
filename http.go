package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devshare/analytics-go/pkg/types"
)

// maxResponseBody bounds how much of a collector response is read.
const maxResponseBody = 64 << 10

// httpTransport posts batches to the collector.
type httpTransport struct {
	client   *http.Client
	endpoint string
	appID    string
	headers  map[string]string
	hook     HTTPHook
	logger   StructuredLogger
	debug    bool
}

// newHTTPTransport creates the default transport from cfg.
func newHTTPTransport(cfg *Config) *httpTransport {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &httpTransport{
		client:   client,
		endpoint: strings.TrimSuffix(cfg.APIURL, "/") + BatchPath,
		appID:    cfg.AppID,
		headers:  cfg.Headers,
		hook:     combineHooks(cfg.HTTPHooks),
		logger:   cfg.Logger,
		debug:    cfg.Debug,
	}
}

// Send posts one batch. It has the queue.Transport signature.
func (h *httpTransport) Send(ctx context.Context, events []types.PendingEvent) error {
	body, err := json.Marshal(NewBatchPayload(h.appID, events))
	if err != nil {
		return fmt.Errorf("analytics: failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("analytics: failed to create request: %w", err)
	}

	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "analytics-go/"+Version)

	if h.hook != nil {
		if err := callBeforeRequest(ctx, h.hook, req); err != nil {
			h.hook.AfterResponse(ctx, req, nil, 0, err)
			return err
		}
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if h.hook != nil {
		h.hook.AfterResponse(ctx, req, resp, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("analytics: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("analytics: failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(respBody) > 0 {
			if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(string(respBody))
			}
		}
		return apiErr
	}

	// An empty body is accepted; anything else must be JSON.
	var result BatchResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	if h.debug {
		h.logger.Debug("batch sent", "events", len(events), "status", resp.StatusCode, "accepted", result.Accepted)
	}
	return nil
}
