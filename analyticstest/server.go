package analyticstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	analytics "github.com/devshare/analytics-go"
)

// MockServer is a test collector that records batches for verification.
type MockServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*RecordedRequest

	// ResponseFunc customizes responses. If nil, every request is accepted.
	ResponseFunc func(r *http.Request) (int, any)
}

// RecordedRequest represents a recorded HTTP request.
type RecordedRequest struct {
	Method      string
	Path        string
	Body        []byte
	ContentType string
	Header      http.Header

	// Batch is the decoded body, or nil if it was not a valid batch.
	Batch *analytics.BatchPayload
}

// NewMockServer creates a new mock collector.
func NewMockServer() *MockServer {
	ms := &MockServer{
		requests: make([]*RecordedRequest, 0),
	}

	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rec := &RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Body:        body,
			ContentType: r.Header.Get("Content-Type"),
			Header:      r.Header.Clone(),
		}
		var batch analytics.BatchPayload
		if json.Unmarshal(body, &batch) == nil {
			rec.Batch = &batch
		}

		ms.mu.Lock()
		ms.requests = append(ms.requests, rec)
		respond := ms.ResponseFunc
		ms.mu.Unlock()

		status := http.StatusOK
		var response any
		if respond != nil {
			status, response = respond(r)
		} else {
			response = analytics.BatchResponse{Accepted: len(batch.Events)}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			json.NewEncoder(w).Encode(response)
		}
	}))

	return ms
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// Events returns every event received, in arrival order. Batches that
// failed with a non-2xx response are included.
func (ms *MockServer) Events() []analytics.WireEvent {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var events []analytics.WireEvent
	for _, req := range ms.requests {
		if req.Batch != nil {
			events = append(events, req.Batch.Events...)
		}
	}
	return events
}

// EventCount returns the number of events received.
func (ms *MockServer) EventCount() int {
	return len(ms.Events())
}

// EventNames returns the names of every event received, in order.
func (ms *MockServer) EventNames() []string {
	events := ms.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName
	}
	return names
}

// Reset clears all recorded requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = make([]*RecordedRequest, 0)
}

// SetResponseFunc sets the response function for customizing responses.
func (ms *MockServer) SetResponseFunc(fn func(r *http.Request) (int, any)) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.ResponseFunc = fn
}

// RespondWithSuccess restores the default accepting behavior.
func (ms *MockServer) RespondWithSuccess() {
	ms.SetResponseFunc(nil)
}

// RespondWithError configures the server to respond with an error.
func (ms *MockServer) RespondWithError(statusCode int, message string) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		return statusCode, map[string]string{
			"error":   message,
			"message": message,
		}
	})
}

// RespondWithServerError configures the server to respond with a 500 error.
func (ms *MockServer) RespondWithServerError() {
	ms.RespondWithError(http.StatusInternalServerError, "Internal server error")
}

// RespondWith configures the server to respond with a custom status and body.
func (ms *MockServer) RespondWith(statusCode int, body any) {
	ms.SetResponseFunc(func(r *http.Request) (int, any) {
		return statusCode, body
	})
}
