package analyticstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	analytics "github.com/devshare/analytics-go"
	"github.com/devshare/analytics-go/pkg/types"
)

var (
	_ analytics.StructuredLogger = (*MockLogger)(nil)
	_ analytics.Metrics          = (*MockMetrics)(nil)
)

// MockMetrics records metric operations from analytics.MetricsHook.
type MockMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// NewMockMetrics creates an empty metrics recorder.
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

// IncrementCounter implements analytics.Metrics.
func (m *MockMetrics) IncrementCounter(name string, value int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

// RecordDuration implements analytics.Metrics.
func (m *MockMetrics) RecordDuration(name string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings[name] = append(m.timings[name], duration)
}

// SetGauge implements analytics.Metrics.
func (m *MockMetrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// Counter returns the value of a counter.
func (m *MockMetrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Gauge returns the last value of a gauge.
func (m *MockMetrics) Gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

// Timings returns all recorded durations for a metric.
func (m *MockMetrics) Timings(name string) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timings[name]...)
}

// Reset clears all recorded metrics.
func (m *MockMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.timings = make(map[string][]time.Duration)
}

// MockTransport records batches in memory instead of sending them.
// Use it with analytics.WithTransport.
type MockTransport struct {
	mu      sync.Mutex
	batches [][]types.PendingEvent
	err     error
}

// NewMockTransport creates a transport that accepts every batch.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Send records the batch. It has the queue.Transport signature.
func (m *MockTransport) Send(_ context.Context, events []types.PendingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]types.PendingEvent, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)
	return m.err
}

// FailWith makes subsequent sends fail with err. Nil restores success.
func (m *MockTransport) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Batches returns every batch handed to the transport, failed ones
// included.
func (m *MockTransport) Batches() [][]types.PendingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]types.PendingEvent{}, m.batches...)
}

// Calls returns the number of transport calls.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// MockLogger captures log output for later verification.
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
}

// NewMockLogger creates a new mock logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{
		Messages: make([]string, 0),
	}
}

func (l *MockLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprintf("[%s] %s", level, msg))
}

// Debug implements analytics.StructuredLogger.
func (l *MockLogger) Debug(msg string, _ ...any) { l.record("DEBUG", msg) }

// Info implements analytics.StructuredLogger.
func (l *MockLogger) Info(msg string, _ ...any) { l.record("INFO", msg) }

// Warn implements analytics.StructuredLogger.
func (l *MockLogger) Warn(msg string, _ ...any) { l.record("WARN", msg) }

// Error implements analytics.StructuredLogger.
func (l *MockLogger) Error(msg string, _ ...any) { l.record("ERROR", msg) }

// GetMessages returns all logged messages.
func (l *MockLogger) GetMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.Messages...)
}

// MessageCount returns the number of logged messages.
func (l *MockLogger) MessageCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Messages)
}

// Reset clears all logged messages.
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = make([]string, 0)
}
