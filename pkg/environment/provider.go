package environment

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"

	"github.com/devshare/analytics-go/pkg/types"
)

// Provider reports the host context attached to every event.
type Provider interface {
	PageContext() types.PageContext
}

// Nop is the provider of a host without page or device information.
type Nop struct{}

// PageContext implements Provider.
func (Nop) PageContext() types.PageContext { return types.PageContext{} }

// Static is a Provider whose values are set by the host application.
// It is safe for concurrent use.
type Static struct {
	mu  sync.RWMutex
	ctx types.PageContext
}

// NewStatic creates a provider with the given initial context.
// The language is normalized to its canonical BCP 47 form.
func NewStatic(ctx types.PageContext) *Static {
	ctx.Language = NormalizeLanguage(ctx.Language)
	return &Static{ctx: ctx}
}

// PageContext implements Provider.
func (s *Static) PageContext() types.PageContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// SetPage records a navigation. The previous page URL becomes the
// referrer when referrer is empty.
func (s *Static) SetPage(url, title, referrer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if referrer == "" {
		referrer = s.ctx.PageURL
	}
	s.ctx.PageURL = url
	s.ctx.PageTitle = title
	s.ctx.Referrer = referrer
}

// SetDevice updates the user agent, language and screen resolution.
func (s *Static) SetDevice(userAgent, lang string, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx.UserAgent = userAgent
	s.ctx.Language = NormalizeLanguage(lang)
	s.ctx.ScreenResolution = ScreenResolution(width, height)
}

// ScreenResolution formats a screen size as WIDTHxHEIGHT.
// Non-positive dimensions yield an empty string.
func ScreenResolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// NormalizeLanguage returns the canonical BCP 47 form of tag, e.g.
// "en_us" becomes "en-US". Tags that do not parse are returned unchanged.
func NormalizeLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	return parsed.String()
}

var (
	_ Provider = Nop{}
	_ Provider = (*Static)(nil)
)
