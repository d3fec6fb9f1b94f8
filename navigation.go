package analytics

import (
	"sync"

	"github.com/devshare/analytics-go/pkg/types"
)

// RouteChange describes a navigation to a new page.
type RouteChange struct {
	// URL is the new page URL.
	URL string

	// Title is the new page title.
	Title string

	// Referrer is the page navigated from. When empty, Navigate fills in
	// the URL of the previous change.
	Referrer string
}

// RouteObserver fans out navigation notifications to subscribers.
// Applications call Navigate from their router; the zero value is ready
// to use and safe for concurrent use.
type RouteObserver struct {
	mu      sync.Mutex
	nextID  int
	subs    []routeSubscriber
	lastURL string
}

type routeSubscriber struct {
	id int
	fn func(RouteChange)
}

// NewRouteObserver creates an empty observer.
func NewRouteObserver() *RouteObserver {
	return &RouteObserver{}
}

// Subscribe registers fn for every subsequent Navigate call and returns a
// function that removes it. The returned function is idempotent.
func (o *RouteObserver) Subscribe(fn func(RouteChange)) (unsubscribe func()) {
	o.mu.Lock()
	o.nextID++
	subID := o.nextID
	o.subs = append(o.subs, routeSubscriber{id: subID, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == subID {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Navigate notifies subscribers, in subscription order, of a route change.
// Subscribers run on the caller's goroutine.
func (o *RouteObserver) Navigate(change RouteChange) {
	o.mu.Lock()
	if change.Referrer == "" {
		change.Referrer = o.lastURL
	}
	o.lastURL = change.URL
	subs := make([]routeSubscriber, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(change)
	}
}

// Subscribers returns the number of active subscriptions.
func (o *RouteObserver) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// PageSetter is implemented by environment providers whose page context
// can be updated, such as *environment.Static.
type PageSetter interface {
	SetPage(url, title, referrer string)
}

// TrackRouteChanges emits a page_view event for every navigation reported
// by o. If the client's environment implements PageSetter it is updated
// first, so later events carry the new page. The returned function stops
// tracking.
func (c *Client) TrackRouteChanges(o *RouteObserver) (unsubscribe func()) {
	return o.Subscribe(func(change RouteChange) {
		if setter, ok := c.config.Environment.(PageSetter); ok {
			setter.SetPage(change.URL, change.Title, change.Referrer)
		}

		err := c.Track(types.TrackOptions{
			EventName: EventPageView,
			PageURL:   change.URL,
			PageTitle: change.Title,
			Referrer:  change.Referrer,
		})
		if err != nil {
			c.debug("route change not tracked", "url", change.URL, "error", err)
		}
	})
}
