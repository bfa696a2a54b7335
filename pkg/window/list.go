package window

import (
	"sync/atomic"

	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
)

// MediaQueryList is one query's view of a window. Lists are shared:
// every caller asking the window for the same expression gets the same
// list, and with it the same underlying subscription source.
//
// Matches is computed from the live environment on every call. The
// list caches nothing a reader can observe; the only stored state is
// the previous result, kept on the notification path to detect flips.
type MediaQueryList struct {
	win   *Window
	raw   string
	query *mediaquery.Query
	src   *reactive.Source

	// lastMatch is the result as of the last notification sweep.
	// Read and written only for edge detection, never served to
	// callers.
	lastMatch atomic.Bool
}

func newMediaQueryList(w *Window, raw string, q *mediaquery.Query) *MediaQueryList {
	l := &MediaQueryList{
		win:   w,
		raw:   raw,
		query: q,
		src:   reactive.NewSource(),
	}
	l.lastMatch.Store(q.Matches(w.Media()))
	return l
}

// Matches evaluates the query against the window's current environment.
// When called inside a tracked computation (a component render or an
// effect), the caller is subscribed to future changes.
func (l *MediaQueryList) Matches() bool {
	l.src.Track()
	return l.query.Matches(l.win.Media())
}

// Peek evaluates the query without subscribing the caller.
func (l *MediaQueryList) Peek() bool {
	return l.query.Matches(l.win.Media())
}

// Media returns the expression this list was created from.
func (l *MediaQueryList) Media() string {
	return l.raw
}

// Valid reports whether the expression parsed. Invalid lists never
// match and never notify.
func (l *MediaQueryList) Valid() bool {
	return l.query.Valid()
}

// Listen registers fn to run after the match result changes. The
// returned cancel deregisters it; calling cancel more than once is
// safe, and fn never runs after cancel returns.
func (l *MediaQueryList) Listen(fn func()) func() {
	return l.src.Listen(fn)
}

// ListenerCount returns the number of active subscribers, counting
// both tracked computations and Listen callbacks.
func (l *MediaQueryList) ListenerCount() int {
	return l.src.SubscriberCount()
}
