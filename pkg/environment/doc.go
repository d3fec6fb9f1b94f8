// Package environment abstracts the host context an analytics client runs
// in: the current page, the referrer, the user agent, the preferred language
// and the screen size, plus first-touch campaign (UTM) attribution.
//
// A browser-like host supplies a Static provider and keeps it updated as the
// user navigates. Headless hosts use Nop, which reports an empty context.
package environment
