package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/matchmedia-go/matchmedia/pkg/reactive"
)

// Component is the interface for renderable components.
// Components produce the HTML for one region of the page.
type Component interface {
	// Render returns the HTML for this component.
	Render() string
}

// ComponentFunc wraps a render function as a Component.
type ComponentFunc func() string

// Render calls the wrapped function.
func (f ComponentFunc) Render() string {
	return f()
}

// ComponentInstance is a mounted component bound to one region of the
// client page. The region is the element carrying the instance's
// hydration ID in its data-mm attribute; updates replace that
// element's inner HTML wholesale.
type ComponentInstance struct {
	// InstanceID is the unique instance identifier.
	InstanceID string

	// Component is the component being rendered.
	Component Component

	// HID is the hydration ID of the region element.
	HID string

	// Owner manages signal ownership for this component.
	Owner *reactive.Owner

	// dirty indicates the component needs re-rendering.
	dirty atomic.Bool

	// session is the owning session.
	session *Session

	// lastHTML is the last rendered output.
	lastHTML string

	// sources read during the last render. Query lists outlive the
	// instance in the window registry, so the subscriptions are
	// re-tracked on every render and released on Dispose.
	sources   []*reactive.Source
	sourcesMu sync.Mutex
}

var _ reactive.SourceTracker = (*ComponentInstance)(nil)

// componentIDCounter is used to generate unique component IDs.
var componentIDCounter atomic.Uint64

// generateComponentID generates a unique component ID.
func generateComponentID() string {
	id := componentIDCounter.Add(1)
	return fmt.Sprintf("c%d", id)
}

// newComponentInstance creates a new ComponentInstance.
func newComponentInstance(component Component, session *Session) *ComponentInstance {
	var parentOwner *reactive.Owner
	if session != nil {
		parentOwner = session.owner
	}

	return &ComponentInstance{
		InstanceID: generateComponentID(),
		Component:  component,
		Owner:      reactive.NewOwner(parentOwner),
		session:    session,
	}
}

// Render renders the component and returns its HTML.
// The render runs under this instance's owner and with the instance
// registered as the tracking listener, so UseMediaQuery and friends
// subscribe the instance to the queries they touch.
func (c *ComponentInstance) Render() string {
	if c.Component == nil {
		return ""
	}

	c.releaseSources()

	var html string

	reactive.WithOwner(c.Owner, func() {
		// Hook order tracking brackets the render.
		c.Owner.StartRender()
		defer c.Owner.EndRender()

		reactive.WithListener(c, func() {
			html = c.Component.Render()
		})
	})

	c.lastHTML = html
	return html
}

// AddSource implements reactive.SourceTracker, recording a source the
// current render subscribed to.
func (c *ComponentInstance) AddSource(source *reactive.Source) {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()

	for _, s := range c.sources {
		if s == source {
			return
		}
	}
	c.sources = append(c.sources, source)
}

// releaseSources unsubscribes the instance from everything its last
// render read.
func (c *ComponentInstance) releaseSources() {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()

	for _, source := range c.sources {
		source.Unsubscribe(c)
	}
	c.sources = c.sources[:0]
}

// MarkDirty marks the component as needing re-render.
// It implements reactive.Listener and is invoked when a subscribed
// query list or signal changes.
func (c *ComponentInstance) MarkDirty() {
	if c.dirty.CompareAndSwap(false, true) {
		if c.session != nil {
			c.session.scheduleRender(c)
		}
	}
}

// IsDirty returns whether the component needs re-rendering.
func (c *ComponentInstance) IsDirty() bool {
	return c.dirty.Load()
}

// ClearDirty clears the dirty flag.
func (c *ComponentInstance) ClearDirty() {
	c.dirty.Store(false)
}

// LastHTML returns the last rendered output.
func (c *ComponentInstance) LastHTML() string {
	return c.lastHTML
}

// Dispose disposes the component instance. Subscriptions on shared
// query lists are released here; the lists themselves stay in the
// window registry for the next mount of the same query.
func (c *ComponentInstance) Dispose() {
	c.sourcesMu.Lock()
	for _, source := range c.sources {
		source.Unsubscribe(c)
	}
	c.sources = nil
	c.sourcesMu.Unlock()

	if c.Owner != nil {
		c.Owner.Dispose()
	}

	c.Component = nil
	c.session = nil
	c.Owner = nil
	c.lastHTML = ""
}

// Session returns the owning session.
func (c *ComponentInstance) Session() *Session {
	return c.session
}

// ID implements reactive.Listener and returns a globally unique identifier.
func (c *ComponentInstance) ID() uint64 {
	if c.Owner != nil {
		return c.Owner.ID()
	}
	return 0
}
