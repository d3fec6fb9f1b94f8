package analytics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devshare/analytics-go/pkg/environment"
	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/types"
)

// recordingTransport records every batch and fails while failures > 0.
type recordingTransport struct {
	mu       sync.Mutex
	batches  [][]types.PendingEvent
	failures int
}

func (r *recordingTransport) send(_ context.Context, events []types.PendingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make([]types.PendingEvent, len(events))
	copy(batch, events)
	r.batches = append(r.batches, batch)

	if r.failures > 0 {
		r.failures--
		return errors.New("collector unavailable")
	}
	return nil
}

func (r *recordingTransport) failNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
}

func (r *recordingTransport) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recordingTransport) batch(i int) []types.PendingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[i]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestClient builds a client on a recording transport with automatic
// flushing and the initial page view disabled.
func newTestClient(t *testing.T, mutate func(cfg *Config)) (*Client, *recordingTransport) {
	t.Helper()

	rec := &recordingTransport{}
	cfg := &Config{
		AppID:             "test-app",
		Transport:         rec.send,
		AutoTrackPageView: Bool(false),
		BatchSize:         1000,
		BatchInterval:     time.Hour,
	}
	if mutate != nil {
		mutate(cfg)
	}

	client, err := NewWithConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Destroy)
	return client, rec
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		apiURL  string
		appID   string
		opts    []ConfigOption
		wantErr error
	}{
		{name: "missing app id", apiURL: "https://collect.example.com", wantErr: ErrMissingAppID},
		{name: "missing api url", appID: "app", wantErr: ErrMissingAPIURL},
		{name: "unsupported scheme", apiURL: "ftp://collect.example.com", appID: "app", wantErr: ErrInvalidConfig},
		{name: "no host", apiURL: "https://", appID: "app", wantErr: ErrInvalidConfig},
		{name: "negative batch size", apiURL: "https://collect.example.com", appID: "app", opts: []ConfigOption{WithBatchSize(-1)}, wantErr: ErrInvalidConfig},
		{name: "negative max attempts", apiURL: "https://collect.example.com", appID: "app", opts: []ConfigOption{WithMaxAttempts(-1)}, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.apiURL, tt.appID, tt.opts...)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewWithConfig_Nil(t *testing.T) {
	_, err := NewWithConfig(nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewWithConfig_DoesNotMutateInput(t *testing.T) {
	headers := map[string]string{"X-Key": "a"}
	cfg := &Config{APIURL: "https://collect.example.com", AppID: "app", Headers: headers}

	client, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer client.Destroy()

	assert.Equal(t, 0, cfg.BatchSize)
	assert.Nil(t, cfg.AutoTrackPageView)

	headers["X-Key"] = "b"
	assert.Equal(t, "a", client.config.Headers["X-Key"])
}

func TestNew_AutoTrackPageView(t *testing.T) {
	rec := &recordingTransport{}

	client, err := New("", "app", WithTransport(rec.send), WithBatchInterval(time.Hour))
	require.NoError(t, err)
	defer client.Destroy()
	assert.Equal(t, 1, client.QueueLength())

	quiet, err := New("", "app", WithTransport(rec.send), WithAutoTrackPageView(false))
	require.NoError(t, err)
	defer quiet.Destroy()
	assert.Equal(t, 0, quiet.QueueLength())

	require.NoError(t, client.Flush(context.Background()))
	require.Equal(t, 1, rec.calls())
	assert.Equal(t, []string{EventPageView}, types.EventNames(rec.batch(0)))
}

func TestTrack_DecoratesEvents(t *testing.T) {
	clock := newFakeClock()
	env := environment.NewStatic(types.PageContext{
		PageURL:          "https://shop.example.com/?utm_source=news&utm_campaign=spring",
		PageTitle:        "Shop",
		Referrer:         "https://search.example.com",
		UserAgent:        "test-agent/1.0",
		Language:         "en_us",
		ScreenResolution: "1920x1080",
	})

	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.Environment = env
		cfg.UserID = "user-1"
		cfg.now = clock.Now
	})

	require.NoError(t, client.Track(types.TrackOptions{
		EventName:  "signup",
		Properties: types.Properties{"plan": "pro"},
	}))
	require.NoError(t, client.Flush(context.Background()))

	e := rec.batch(0)[0]
	assert.Equal(t, "signup", e.EventName)
	assert.Equal(t, types.Properties{"plan": "pro"}, e.Properties)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, client.SessionID(), e.SessionID)
	assert.Equal(t, client.AnonymousID(), e.AnonymousID)
	assert.Equal(t, "https://shop.example.com/?utm_source=news&utm_campaign=spring", e.PageURL)
	assert.Equal(t, "Shop", e.PageTitle)
	assert.Equal(t, "https://search.example.com", e.Referrer)
	assert.Equal(t, types.UTMParams{Source: "news", Campaign: "spring"}, e.UTM)
	assert.Equal(t, "test-agent/1.0", e.UserAgent)
	assert.Equal(t, "en-US", e.Language)
	assert.Equal(t, "1920x1080", e.ScreenResolution)
	assert.Equal(t, clock.Now(), e.OccurredAt)
	assert.Equal(t, clock.Now(), e.Timestamp)
	assert.NotEmpty(t, e.ID)
}

func TestTrack_OverridesWin(t *testing.T) {
	env := environment.NewStatic(types.PageContext{PageURL: "https://a.example.com", PageTitle: "A"})
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.Environment = env
		cfg.UserID = "default-user"
	})

	occurred := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, client.Track(types.TrackOptions{
		EventName:   "custom",
		UserID:      "u",
		SessionID:   "s",
		AnonymousID: "anon",
		PageURL:     "https://b.example.com",
		PageTitle:   "B",
		Referrer:    "https://c.example.com",
		Timestamp:   occurred,
	}))
	require.NoError(t, client.Flush(context.Background()))

	e := rec.batch(0)[0]
	assert.Equal(t, "u", e.UserID)
	assert.Equal(t, "s", e.SessionID)
	assert.Equal(t, "anon", e.AnonymousID)
	assert.Equal(t, "https://b.example.com", e.PageURL)
	assert.Equal(t, "B", e.PageTitle)
	assert.Equal(t, "https://c.example.com", e.Referrer)
	assert.Equal(t, occurred, e.OccurredAt)
}

func TestTrack_CopiesProperties(t *testing.T) {
	client, rec := newTestClient(t, nil)

	props := types.Properties{"k": "v"}
	require.NoError(t, client.Track(types.TrackOptions{EventName: "e", Properties: props}))
	props["k"] = "changed"

	require.NoError(t, client.Flush(context.Background()))
	assert.Equal(t, "v", rec.batch(0)[0].Properties["k"])
}

func TestTrack_SlidingSessionExpiration(t *testing.T) {
	clock := newFakeClock()
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.SessionTimeout = 30 * time.Minute
		cfg.now = clock.Now
	})

	track := func() {
		require.NoError(t, client.Track(types.TrackOptions{EventName: "e"}))
	}

	track()
	clock.Advance(10 * time.Minute)
	track()
	clock.Advance(29 * time.Minute)
	track()
	clock.Advance(31 * time.Minute)
	track()

	require.NoError(t, client.Flush(context.Background()))
	events := rec.batch(0)
	require.Len(t, events, 4)

	assert.Equal(t, events[0].SessionID, events[1].SessionID)
	assert.Equal(t, events[1].SessionID, events[2].SessionID)
	assert.NotEqual(t, events[2].SessionID, events[3].SessionID)
}

func TestTrackPageView(t *testing.T) {
	client, rec := newTestClient(t, nil)

	require.NoError(t, client.TrackPageView(types.Properties{"section": "docs"}))
	require.NoError(t, client.Flush(context.Background()))

	e := rec.batch(0)[0]
	assert.Equal(t, EventPageView, e.EventName)
	assert.Equal(t, types.Properties{"section": "docs"}, e.Properties)
}

func TestTrackClick(t *testing.T) {
	client, rec := newTestClient(t, nil)

	longText := strings.Repeat("é", 150)
	require.NoError(t, client.TrackClick(ElementInfo{
		Tag:   "BUTTON",
		ID:    "buy",
		Class: "btn primary",
		Text:  longText,
	}, types.Properties{"elementId": "override", "price": 9.99}))

	require.NoError(t, client.TrackClick(ElementInfo{Tag: "A"}, nil))
	require.NoError(t, client.Flush(context.Background()))

	events := rec.batch(0)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, EventClick, first.EventName)
	assert.Equal(t, "button", first.Properties["element"])
	assert.Equal(t, "override", first.Properties["elementId"])
	assert.Equal(t, "btn primary", first.Properties["elementClass"])
	assert.Equal(t, strings.Repeat("é", 100), first.Properties["elementText"])
	assert.Equal(t, 9.99, first.Properties["price"])

	assert.Equal(t, types.Properties{"element": "a"}, events[1].Properties)
}

func TestIdentifyAndReset(t *testing.T) {
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.UserID = "initial"
	})

	assert.Equal(t, "initial", client.UserID())
	client.Identify("user-42")
	assert.Equal(t, "user-42", client.UserID())

	anon := client.AnonymousID()
	session := client.SessionID()
	assert.Equal(t, anon, client.AnonymousID(), "anonymous id is stable")

	require.NoError(t, client.Track(types.TrackOptions{EventName: "before"}))

	client.Reset()
	assert.Empty(t, client.UserID())
	assert.NotEqual(t, anon, client.AnonymousID())
	assert.NotEqual(t, session, client.SessionID())

	require.NoError(t, client.Track(types.TrackOptions{EventName: "after"}))
	require.NoError(t, client.Flush(context.Background()))

	events := rec.batch(0)
	assert.Equal(t, "user-42", events[0].UserID)
	assert.Equal(t, anon, events[0].AnonymousID)
	assert.Empty(t, events[1].UserID)
	assert.Equal(t, client.AnonymousID(), events[1].AnonymousID)
}

func TestClient_AnonymousIDPersistsWithStorageDir(t *testing.T) {
	dir := t.TempDir()

	first, _ := newTestClient(t, func(cfg *Config) { cfg.StorageDir = dir })
	second, _ := newTestClient(t, func(cfg *Config) { cfg.StorageDir = dir })

	assert.Equal(t, first.AnonymousID(), second.AnonymousID())
	assert.Equal(t, first.SessionID(), second.SessionID())
}

func TestClient_UnavailableStorageStillWorks(t *testing.T) {
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.Storage = identity.NopStorage{}
		cfg.Environment = environment.NewStatic(types.PageContext{PageURL: "https://x.example.com/?utm_source=ads"})
	})

	anon := client.AnonymousID()
	assert.NotEmpty(t, anon)
	assert.Equal(t, anon, client.AnonymousID())

	require.NoError(t, client.Track(types.TrackOptions{EventName: "e"}))
	require.NoError(t, client.Flush(context.Background()))

	e := rec.batch(0)[0]
	assert.Equal(t, anon, e.AnonymousID)
	assert.Equal(t, "ads", e.UTM.Source)
}

func TestClient_FirstTouchUTM(t *testing.T) {
	env := environment.NewStatic(types.PageContext{PageURL: "https://x.example.com/?utm_source=first"})
	client, rec := newTestClient(t, func(cfg *Config) { cfg.Environment = env })

	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))
	env.SetPage("https://x.example.com/?utm_source=second", "", "")
	require.NoError(t, client.Track(types.TrackOptions{EventName: "b"}))
	require.NoError(t, client.Flush(context.Background()))

	events := rec.batch(0)
	assert.Equal(t, "first", events[0].UTM.Source)
	assert.Equal(t, "first", events[1].UTM.Source)
}

func TestClient_ResetUTMHandling(t *testing.T) {
	tests := []struct {
		name       string
		clear      bool
		wantSource string
	}{
		{name: "kept by default", clear: false, wantSource: "first"},
		{name: "forgotten when configured", clear: true, wantSource: "second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := environment.NewStatic(types.PageContext{PageURL: "https://x.example.com/?utm_source=first"})
			client, rec := newTestClient(t, func(cfg *Config) {
				cfg.Environment = env
				WithClearUTMOnReset(tt.clear)(cfg)
			})

			require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))
			client.Reset()
			env.SetPage("https://x.example.com/?utm_source=second", "", "")
			require.NoError(t, client.Track(types.TrackOptions{EventName: "b"}))
			require.NoError(t, client.Flush(context.Background()))

			events := rec.batch(0)
			assert.Equal(t, "first", events[0].UTM.Source)
			assert.Equal(t, tt.wantSource, events[1].UTM.Source)
		})
	}
}

func TestClient_SizeTriggeredFlushEmptiesQueue(t *testing.T) {
	client, rec := newTestClient(t, func(cfg *Config) { cfg.BatchSize = 3 })

	for _, name := range []string{"a", "b"} {
		require.NoError(t, client.Track(types.TrackOptions{EventName: name}))
	}
	assert.Equal(t, 2, client.QueueLength())

	require.NoError(t, client.Track(types.TrackOptions{EventName: "c"}))
	assert.Equal(t, 0, client.QueueLength())

	require.Eventually(t, func() bool { return rec.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, types.EventNames(rec.batch(0)))
}

func TestClient_TimerFlush(t *testing.T) {
	client, rec := newTestClient(t, func(cfg *Config) { cfg.BatchInterval = 50 * time.Millisecond })

	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))

	require.Eventually(t, func() bool { return rec.calls() == 1 }, 500*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 0, client.QueueLength())
}

func TestClient_EmptyFlushNeverCallsTransport(t *testing.T) {
	client, rec := newTestClient(t, nil)

	require.NoError(t, client.Flush(context.Background()))
	require.NoError(t, client.Flush(context.Background()))
	assert.Equal(t, 0, rec.calls())
}

func TestClient_FailedFlushIsRetriedInOrder(t *testing.T) {
	client, rec := newTestClient(t, nil)

	require.NoError(t, client.Track(types.TrackOptions{EventName: "a"}))
	require.NoError(t, client.Track(types.TrackOptions{EventName: "b"}))

	rec.failNext(1)
	err := client.Flush(context.Background())
	require.Error(t, err)

	flushErr, ok := AsFlushError(err)
	require.True(t, ok)
	assert.Equal(t, 2, flushErr.Events)
	assert.Equal(t, 2, client.QueueLength())

	require.NoError(t, client.Track(types.TrackOptions{EventName: "c"}))
	require.NoError(t, client.Flush(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, types.EventNames(rec.batch(1)))
}

func TestClient_MaxAttemptsDropsEvents(t *testing.T) {
	var (
		mu      sync.Mutex
		dropped []string
	)
	client, rec := newTestClient(t, func(cfg *Config) {
		cfg.MaxAttempts = 2
		cfg.OnDrop = func(events []types.PendingEvent, _ error) {
			mu.Lock()
			defer mu.Unlock()
			dropped = append(dropped, types.EventNames(events)...)
		}
	})

	require.NoError(t, client.Track(types.TrackOptions{EventName: "poison"}))
	rec.failNext(2)

	require.Error(t, client.Flush(context.Background()))
	assert.Equal(t, 1, client.QueueLength())
	require.Error(t, client.Flush(context.Background()))
	assert.Equal(t, 0, client.QueueLength())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"poison"}, dropped)
}

func TestClient_ConcurrentTrack(t *testing.T) {
	client, rec := newTestClient(t, func(cfg *Config) { cfg.BatchSize = 7 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = client.Track(types.TrackOptions{EventName: "e"})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, client.Shutdown(context.Background()))

	total := 0
	for i := 0; i < rec.calls(); i++ {
		total += len(rec.batch(i))
	}
	assert.Equal(t, 200, total)
}
