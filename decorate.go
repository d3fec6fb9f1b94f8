package analytics

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/devshare/analytics-go/pkg/types"
)

// Event names emitted by the convenience methods.
const (
	EventPageView = "page_view"
	EventClick    = "click"
)

// maxElementText is the number of runes of element text kept on click events.
const maxElementText = 100

// ElementInfo describes the element a click event refers to.
type ElementInfo struct {
	// Tag is the element tag name. It is reported lower-cased.
	Tag string

	// ID is the element id attribute.
	ID string

	// Class is the element class attribute.
	Class string

	// Text is the element text content. Only the first 100 characters are
	// reported.
	Text string
}

// properties returns the click properties for the element. Empty
// attributes are omitted.
func (e ElementInfo) properties() types.Properties {
	props := types.Properties{"element": strings.ToLower(e.Tag)}
	if e.ID != "" {
		props["elementId"] = e.ID
	}
	if e.Class != "" {
		props["elementClass"] = e.Class
	}
	if text := truncateRunes(e.Text, maxElementText); text != "" {
		props["elementText"] = text
	}
	return props
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// decorate builds a queued event from caller options. It records activity
// on the session, so a long idle gap starts a new session here.
func (c *Client) decorate(opts types.TrackOptions, now time.Time) types.Event {
	sessionID := c.identity.CheckAndUpdateSession(now)
	page := c.config.Environment.PageContext()

	occurredAt := opts.Timestamp
	if occurredAt.IsZero() {
		occurredAt = now
	}

	return types.Event{
		EventName:        opts.EventName,
		Properties:       opts.Properties.Clone(),
		UserID:           firstNonEmpty(opts.UserID, c.identity.UserID()),
		SessionID:        firstNonEmpty(opts.SessionID, sessionID),
		AnonymousID:      firstNonEmpty(opts.AnonymousID, c.identity.AnonymousID()),
		PageURL:          firstNonEmpty(opts.PageURL, page.PageURL),
		PageTitle:        firstNonEmpty(opts.PageTitle, page.PageTitle),
		Referrer:         firstNonEmpty(opts.Referrer, page.Referrer),
		UTM:              c.utm.Load(page.PageURL),
		UserAgent:        page.UserAgent,
		Language:         page.Language,
		ScreenResolution: page.ScreenResolution,
		OccurredAt:       occurredAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
