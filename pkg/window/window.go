// Package window models the client environment a server-driven UI runs
// against: viewport dimensions, device pixel ratio, user preferences
// and the media query lists derived from them.
//
// A Window owns a registry of MediaQueryList values. Asking for the
// same query expression twice returns the same list, so every consumer
// of "(orientation: landscape)" shares one subscription. Media events
// reported by the client are applied through the Apply methods, which
// update the environment and wake the lists whose result flipped.
package window

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
)

// NotifyMode controls how eagerly query lists notify their listeners.
type NotifyMode uint8

const (
	// NotifyOnChange wakes a list only when its match result flips.
	// This is the default; a resize from 1024px to 1020px does not
	// re-render components watching (max-width: 768px).
	NotifyOnChange NotifyMode = iota

	// NotifyOnEveryEvent wakes every list on every media event,
	// regardless of whether its result changed. Useful for debugging
	// notification plumbing.
	NotifyOnEveryEvent
)

// Window is the server-side mirror of a client's browsing environment.
// All methods are safe for concurrent use.
type Window struct {
	mu    sync.RWMutex
	media mediaquery.Media

	// queries maps raw expressions to their shared lists.
	queries sync.Map // string -> *MediaQueryList

	// warned tracks invalid expressions already logged, so a bad
	// query warns once rather than on every render.
	warned sync.Map // string -> struct{}

	// src wakes on every media change, whatever the cause. Viewport
	// readers hang off this rather than off a query list.
	src *reactive.Source

	mode   NotifyMode
	logger *slog.Logger
}

// Option configures a Window.
type Option func(*Window)

// WithMedia sets the initial environment. Without it the window starts
// from DefaultMedia.
func WithMedia(m mediaquery.Media) Option {
	return func(w *Window) { w.media = m }
}

// WithNotifyMode selects the notification breadth.
func WithNotifyMode(mode NotifyMode) Option {
	return func(w *Window) { w.mode = mode }
}

// WithLogger sets the logger used for query warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Window) { w.logger = logger }
}

// New creates a Window with the default environment.
func New(opts ...Option) *Window {
	w := &Window{
		media: mediaquery.DefaultMedia(),
		src:   reactive.NewSource(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default().With("component", "window")
	}
	return w
}

// Media returns a copy of the current environment.
func (w *Window) Media() mediaquery.Media {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.media
}

// SetMedia replaces the whole environment and notifies affected lists.
func (w *Window) SetMedia(m mediaquery.Media) {
	w.mu.Lock()
	w.media = m
	w.mu.Unlock()
	w.notify()
}

// MatchMedia returns the shared MediaQueryList for the expression,
// creating it on first use. The same expression always yields the same
// pointer for the lifetime of the window.
//
// An unparseable expression yields a list that never matches, the way
// browsers canonicalize bad queries to "not all". The parse failure is
// logged once per expression.
func (w *Window) MatchMedia(raw string) *MediaQueryList {
	if v, ok := w.queries.Load(raw); ok {
		return v.(*MediaQueryList)
	}

	q, err := mediaquery.Compile(raw)
	if err != nil {
		if _, seen := w.warned.LoadOrStore(raw, struct{}{}); !seen {
			w.logger.Warn("invalid media query", "query", raw, "error", err)
		}
		q = mediaquery.Invalid(raw)
	}

	list := newMediaQueryList(w, raw, q)
	actual, _ := w.queries.LoadOrStore(raw, list)
	return actual.(*MediaQueryList)
}

// QueryCount returns the number of registered query lists.
func (w *Window) QueryCount() int {
	n := 0
	w.queries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Queries returns the raw expressions of all registered query lists,
// sorted. Session persistence uses this to re-register the lists on
// resume.
func (w *Window) Queries() []string {
	var out []string
	w.queries.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// ApplyResize updates the viewport dimensions.
func (w *Window) ApplyResize(width, height int) {
	w.mu.Lock()
	w.media.Width = width
	w.media.Height = height
	w.mu.Unlock()
	w.notify()
}

// ApplyOrientation updates the viewport after an orientation change.
// The client reports the new dimensions along with the angle; the
// orientation itself is derived from them.
func (w *Window) ApplyOrientation(width, height int) {
	w.ApplyResize(width, height)
}

// ApplyColorScheme updates the preferred color scheme.
func (w *Window) ApplyColorScheme(dark bool) {
	w.mu.Lock()
	if dark {
		w.media.ColorScheme = mediaquery.SchemeDark
	} else {
		w.media.ColorScheme = mediaquery.SchemeLight
	}
	w.mu.Unlock()
	w.notify()
}

// ApplyReducedMotion updates the reduced motion preference.
func (w *Window) ApplyReducedMotion(reduced bool) {
	w.mu.Lock()
	w.media.ReducedMotion = reduced
	w.mu.Unlock()
	w.notify()
}

// ApplyPointer updates the pointing device capabilities.
func (w *Window) ApplyPointer(pointer, anyPointer mediaquery.Pointer, hover, anyHover bool) {
	w.mu.Lock()
	w.media.Pointer = pointer
	w.media.AnyPointer = anyPointer
	w.media.Hover = hover
	w.media.AnyHover = anyHover
	w.mu.Unlock()
	w.notify()
}

// ApplyDPR updates the device pixel ratio, as reported after a zoom
// change or a move to another monitor.
func (w *Window) ApplyDPR(dpr float64) {
	w.mu.Lock()
	w.media.DPR = dpr
	w.mu.Unlock()
	w.notify()
}

// SetMediaType switches the output device kind, used by print preview
// emulation.
func (w *Window) SetMediaType(t mediaquery.MediaType) {
	w.mu.Lock()
	w.media.Type = t
	w.mu.Unlock()
	w.notify()
}

// notify wakes the window source and every query list whose result
// flipped under the new environment. Listeners always observe the new
// environment: the media write completes before any notification runs.
func (w *Window) notify() {
	m := w.Media()

	w.src.Notify()

	w.queries.Range(func(_, v any) bool {
		list := v.(*MediaQueryList)
		matched := list.query.Matches(m)
		if w.mode == NotifyOnEveryEvent || list.lastMatch.Swap(matched) != matched {
			list.src.Notify()
		}
		return true
	})
}

// windowKey is the owner context key a Window is provided under.
type windowKey struct{}

// Provide makes the window available to hooks run under the owner and
// its descendants.
func Provide(o *reactive.Owner, w *Window) {
	o.SetValue(windowKey{}, w)
}

// Current returns the window provided to the innermost enclosing owner,
// or nil when no window is available. Hooks treat a nil window as "no
// client attached" and fall back to defaults instead of failing.
func Current() *Window {
	if v := reactive.ContextValue(windowKey{}); v != nil {
		return v.(*Window)
	}
	return nil
}
