package window

import (
	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
)

// queryConfig carries per-call options for UseMediaQuery.
type queryConfig struct {
	def    bool
	window *Window
}

// QueryOption adjusts a single UseMediaQuery call.
type QueryOption func(*queryConfig)

// WithDefault sets the result reported when no window is attached,
// for example during detached rendering or before a client connects.
// The zero default is false.
func WithDefault(matches bool) QueryOption {
	return func(c *queryConfig) { c.def = matches }
}

// WithWindow evaluates against an explicit window instead of the one
// provided by the enclosing scope.
func WithWindow(w *Window) QueryOption {
	return func(c *queryConfig) { c.window = w }
}

// mediaSlot is the persistent state of one UseMediaQuery call site.
type mediaSlot struct {
	raw string
	mql *MediaQueryList
}

// UseMediaQuery reports whether the expression currently matches the
// client's environment, and subscribes the calling computation to
// changes in the result.
//
// Inside a component render the call participates in hook ordering:
// call it unconditionally, in the same order, on every render. When no
// window is attached the hook returns the configured default and
// subscribes to nothing; it never panics over a missing client.
func UseMediaQuery(query string, opts ...QueryOption) bool {
	var cfg queryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	owner := reactive.CurrentOwner()
	if owner != nil {
		owner.TrackHook(reactive.HookMedia)
	}

	win := cfg.window
	if win == nil {
		win = Current()
	}
	if win == nil {
		return cfg.def
	}

	// Hook slots are positional and only meaningful inside a render
	// bracket. Calls from effect bodies or event handlers fall through
	// to the shared list below instead of appending orphan slots.
	if owner != nil && owner.InRender() {
		slot, _ := owner.UseHookSlot().(*mediaSlot)
		if slot == nil {
			slot = &mediaSlot{}
			owner.SetHookSlot(slot)
		}
		if slot.mql == nil || slot.raw != query {
			slot.raw = query
			slot.mql = win.MatchMedia(query)
		}
		return slot.mql.Matches()
	}

	return win.MatchMedia(query).Matches()
}

// UseViewport returns the current viewport dimensions. The caller is
// subscribed to every media change, not just flips, since any resize
// changes the value it rendered.
func UseViewport() (width, height int) {
	owner := reactive.CurrentOwner()
	if owner != nil {
		owner.TrackHook(reactive.HookViewport)
	}

	win := Current()
	if win == nil {
		m := mediaquery.DefaultMedia()
		return m.Width, m.Height
	}

	win.src.Track()
	m := win.Media()
	return m.Width, m.Height
}

// UseOrientation reports how the viewport is turned.
func UseOrientation() mediaquery.Orientation {
	if UseMediaQuery("(orientation: portrait)") {
		return mediaquery.Portrait
	}
	return mediaquery.Landscape
}

// UsePrefersDark reports whether the client prefers a dark color
// scheme.
func UsePrefersDark() bool {
	return UseMediaQuery("(prefers-color-scheme: dark)")
}

// UsePrefersReducedMotion reports whether the client asked for reduced
// motion.
func UsePrefersReducedMotion() bool {
	return UseMediaQuery("(prefers-reduced-motion: reduce)")
}

// Breakpoint names a media query in an ordered breakpoint scale.
type Breakpoint struct {
	Name  string
	Query string
}

// DefaultBreakpoints is a mobile-first scale using the common Tailwind
// widths.
var DefaultBreakpoints = []Breakpoint{
	{Name: "sm", Query: "(min-width: 640px)"},
	{Name: "md", Query: "(min-width: 768px)"},
	{Name: "lg", Query: "(min-width: 1024px)"},
	{Name: "xl", Query: "(min-width: 1280px)"},
	{Name: "2xl", Query: "(min-width: 1536px)"},
}

// UseBreakpoint returns the name of the last entry in the scale whose
// query matches, or "" when none do. Entries are evaluated in slice
// order, so with a mobile-first min-width scale the widest matching
// tier wins. The caller is subscribed to every query in the scale.
func UseBreakpoint(scale []Breakpoint) string {
	owner := reactive.CurrentOwner()
	if owner != nil {
		owner.TrackHook(reactive.HookMedia)
	}

	win := Current()
	if win == nil {
		return ""
	}

	name := ""
	for _, bp := range scale {
		if win.MatchMedia(bp.Query).Matches() {
			name = bp.Name
		}
	}
	return name
}

// UseWindow returns the window provided to the enclosing scope, or nil
// when rendering detached.
func UseWindow() *Window {
	owner := reactive.CurrentOwner()
	if owner != nil {
		owner.TrackHook(reactive.HookContext)
	}
	return Current()
}
