package analytics

import (
	"time"

	"github.com/devshare/analytics-go/pkg/types"
)

// TimestampFormat is the layout of the wire timestamp: ISO-8601 UTC with
// millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// WireEvent is the flattened JSON representation of one event as accepted
// by the collector batch endpoint.
type WireEvent struct {
	AppID            string           `json:"app_id"`
	EventName        string           `json:"event_name"`
	UserID           string           `json:"user_id"`
	SessionID        string           `json:"session_id"`
	AnonymousID      string           `json:"anonymous_id"`
	PageURL          string           `json:"page_url"`
	PageTitle        string           `json:"page_title"`
	Referrer         string           `json:"referrer"`
	UTMSource        string           `json:"utm_source"`
	UTMMedium        string           `json:"utm_medium"`
	UTMCampaign      string           `json:"utm_campaign"`
	UTMTerm          string           `json:"utm_term"`
	UTMContent       string           `json:"utm_content"`
	UserAgent        string           `json:"user_agent"`
	IP               string           `json:"ip"`
	Language         string           `json:"language"`
	ScreenResolution string           `json:"screen_resolution"`
	Properties       types.Properties `json:"properties"`
	Timestamp        string           `json:"timestamp"`
}

// BatchPayload is the request body of the batch endpoint.
type BatchPayload struct {
	Events []WireEvent `json:"events"`
}

// BatchResponse is the collector's acknowledgement. Collectors may send
// additional fields; they are ignored.
type BatchResponse struct {
	Accepted int `json:"accepted,omitempty"`
}

// FormatTimestamp renders t in the wire timestamp format, always in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// NewWireEvent flattens a pending event for the given application.
// The IP is left empty for the collector to resolve.
func NewWireEvent(appID string, e types.PendingEvent) WireEvent {
	props := e.Properties
	if props == nil {
		props = types.Properties{}
	}
	return WireEvent{
		AppID:            appID,
		EventName:        e.EventName,
		UserID:           e.UserID,
		SessionID:        e.SessionID,
		AnonymousID:      e.AnonymousID,
		PageURL:          e.PageURL,
		PageTitle:        e.PageTitle,
		Referrer:         e.Referrer,
		UTMSource:        e.UTM.Source,
		UTMMedium:        e.UTM.Medium,
		UTMCampaign:      e.UTM.Campaign,
		UTMTerm:          e.UTM.Term,
		UTMContent:       e.UTM.Content,
		UserAgent:        e.UserAgent,
		IP:               "",
		Language:         e.Language,
		ScreenResolution: e.ScreenResolution,
		Properties:       props,
		Timestamp:        FormatTimestamp(e.Timestamp),
	}
}

// NewBatchPayload builds the request body for a batch, preserving order.
func NewBatchPayload(appID string, events []types.PendingEvent) BatchPayload {
	out := BatchPayload{Events: make([]WireEvent, len(events))}
	for i, e := range events {
		out.Events[i] = NewWireEvent(appID, e)
	}
	return out
}
