package mqtest

import (
	"sync"

	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

// Harness drives media-query-driven components against a synthetic
// window, with no network and no goroutines. All work happens on the
// calling goroutine, so tests stay deterministic.
type Harness struct {
	win  *window.Window
	root *reactive.Owner

	mu    sync.Mutex
	dirty []*Mounted
}

// Config configures a Harness.
type Config struct {
	// Media is the initial environment. Zero value means
	// mediaquery.DefaultMedia().
	Media mediaquery.Media

	// NotifyMode is the window's notification breadth.
	NotifyMode window.NotifyMode

	mediaSet bool
}

// Option configures a Harness.
type Option func(*Config)

// WithMedia sets the initial environment.
func WithMedia(m mediaquery.Media) Option {
	return func(c *Config) {
		c.Media = m
		c.mediaSet = true
	}
}

// WithViewport sets the initial viewport on an otherwise default
// environment.
func WithViewport(width, height int) Option {
	return func(c *Config) {
		if !c.mediaSet {
			c.Media = mediaquery.DefaultMedia()
			c.mediaSet = true
		}
		c.Media.Width = width
		c.Media.Height = height
	}
}

// WithNotifyMode selects the window's notification breadth.
func WithNotifyMode(mode window.NotifyMode) Option {
	return func(c *Config) { c.NotifyMode = mode }
}

// New creates a harness with its own window and root owner. Call Close
// when done to dispose mounted components and their subscriptions.
func New(opts ...Option) *Harness {
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}
	if !config.mediaSet {
		config.Media = mediaquery.DefaultMedia()
	}

	h := &Harness{
		win: window.New(
			window.WithMedia(config.Media),
			window.WithNotifyMode(config.NotifyMode),
		),
		root: reactive.NewOwner(nil),
	}
	window.Provide(h.root, h.win)
	return h
}

// Window returns the harness's window for direct manipulation.
func (h *Harness) Window() *window.Window {
	return h.win
}

// Root returns the root owner components are mounted under.
func (h *Harness) Root() *reactive.Owner {
	return h.root
}

// Mounted is a component mounted on a harness. It implements
// reactive.Listener, so query lists and signals read during its render
// mark it dirty the way a session-owned component would be.
type Mounted struct {
	h      *Harness
	owner  *reactive.Owner
	render func() string
	id     uint64

	mu    sync.Mutex
	html  string
	dirty bool

	// sources read during the last render, re-tracked per render and
	// released on Unmount so the harness window's shared lists do not
	// keep dead handles.
	sources []*reactive.Source

	// Renders counts render passes, for asserting on re-render
	// behavior.
	Renders int
}

var _ reactive.SourceTracker = (*Mounted)(nil)

// Mount renders fn once under its own owner and returns the mounted
// handle. Reads of UseMediaQuery and friends during the render
// subscribe the handle to future changes.
func (h *Harness) Mount(fn func() string) *Mounted {
	m := &Mounted{
		h:      h,
		owner:  reactive.NewOwner(h.root),
		render: fn,
		id:     reactive.NextID(),
	}
	m.renderNow()
	return m
}

// MarkDirty implements reactive.Listener. The re-render happens on the
// next Flush, not inline, matching the session loop.
func (m *Mounted) MarkDirty() {
	m.mu.Lock()
	queued := m.dirty
	m.dirty = true
	m.mu.Unlock()
	if queued {
		return
	}

	m.h.mu.Lock()
	m.h.dirty = append(m.h.dirty, m)
	m.h.mu.Unlock()
}

// ID implements reactive.Listener.
func (m *Mounted) ID() uint64 {
	return m.id
}

// AddSource implements reactive.SourceTracker.
func (m *Mounted) AddSource(source *reactive.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s == source {
			return
		}
	}
	m.sources = append(m.sources, source)
}

func (m *Mounted) releaseSources() {
	m.mu.Lock()
	sources := m.sources
	m.sources = nil
	m.mu.Unlock()

	for _, source := range sources {
		source.Unsubscribe(m)
	}
}

// Output returns the HTML from the most recent render.
func (m *Mounted) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.html
}

// Unmount disposes the component's owner and unsubscribes the handle
// from every query list its renders read.
func (m *Mounted) Unmount() {
	m.releaseSources()
	m.owner.Dispose()
}

func (m *Mounted) renderNow() {
	m.releaseSources()

	var html string
	reactive.WithOwner(m.owner, func() {
		m.owner.StartRender()
		defer m.owner.EndRender()

		reactive.WithListener(m, func() {
			html = m.render()
		})
	})

	m.mu.Lock()
	m.html = html
	m.dirty = false
	m.Renders++
	m.mu.Unlock()
}

// Flush drains the harness the way one session loop iteration would:
// pending effects run first, then every dirty component re-renders
// against the current environment. Components dirtied by those renders
// are processed in the same call.
func (h *Harness) Flush() {
	for i := 0; i < 100; i++ {
		h.root.RunPendingEffects()

		h.mu.Lock()
		dirty := h.dirty
		h.dirty = nil
		h.mu.Unlock()

		if len(dirty) == 0 && !h.root.HasPendingEffects() {
			return
		}
		for _, m := range dirty {
			if !m.owner.IsDisposed() {
				m.renderNow()
			}
		}
	}
}

// Resize applies a viewport change. Call Flush to re-render.
func (h *Harness) Resize(width, height int) {
	h.win.ApplyResize(width, height)
}

// SetColorScheme applies a color scheme preference change.
func (h *Harness) SetColorScheme(dark bool) {
	h.win.ApplyColorScheme(dark)
}

// SetReducedMotion applies a reduced-motion preference change.
func (h *Harness) SetReducedMotion(reduced bool) {
	h.win.ApplyReducedMotion(reduced)
}

// Rotate swaps the viewport dimensions, as a device rotation would.
func (h *Harness) Rotate() {
	m := h.win.Media()
	h.win.ApplyOrientation(m.Height, m.Width)
}

// Close disposes the root owner and everything mounted under it.
func (h *Harness) Close() {
	h.root.Dispose()
	reactive.ReleaseGoroutineState()
}
