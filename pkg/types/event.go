package types

import "time"

// Properties is the free-form key-value bag attached to an event.
// Values are expected to be strings, numbers, booleans or nil.
type Properties map[string]any

// Clone returns a shallow copy of the properties. A nil receiver yields an
// empty, non-nil map.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with the entries of other applied on top.
func (p Properties) Merge(other Properties) Properties {
	out := p.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// TrackOptions describes a single event as supplied by the application.
// Every field except EventName is optional; empty values are filled in by
// the client's decoration step.
type TrackOptions struct {
	// EventName is the free-form event name. It is not validated.
	EventName string

	// Properties holds custom event attributes.
	Properties Properties

	// UserID overrides the configured user id.
	UserID string

	// SessionID overrides the managed session id.
	SessionID string

	// AnonymousID overrides the persisted anonymous id.
	AnonymousID string

	// PageURL overrides the environment page URL.
	PageURL string

	// PageTitle overrides the environment page title.
	PageTitle string

	// Referrer overrides the environment referrer.
	Referrer string

	// Timestamp overrides the time the event occurred. Zero means now.
	Timestamp time.Time
}

// UTMParams holds campaign attribution parameters.
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// IsZero reports whether no UTM parameter is set.
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

// PageContext is the host environment information attached to every event.
type PageContext struct {
	PageURL          string
	PageTitle        string
	Referrer         string
	UserAgent        string
	Language         string
	ScreenResolution string
}

// Event is a fully decorated event, ready to be queued.
type Event struct {
	EventName   string
	Properties  Properties
	UserID      string
	SessionID   string
	AnonymousID string

	PageURL   string
	PageTitle string
	Referrer  string

	UTM UTMParams

	UserAgent        string
	Language         string
	ScreenResolution string

	// OccurredAt is the time the event happened according to the caller.
	OccurredAt time.Time
}

// PendingEvent is an Event held by the batching queue.
//
// ID and Timestamp are assigned by the queue at enqueue time. Timestamp is
// the enqueue time, which may differ from Event.OccurredAt.
type PendingEvent struct {
	Event

	// ID is a process-unique identifier used for dedup and debugging.
	ID string

	// Timestamp is when the event entered the queue.
	Timestamp time.Time

	// Attempts counts failed delivery attempts for this event.
	Attempts int
}

// EventNames returns the names of the given events, in order.
// It is mostly useful in log lines and tests.
func EventNames(events []PendingEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName
	}
	return names
}
