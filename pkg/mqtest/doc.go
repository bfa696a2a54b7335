// Package mqtest provides testing helpers for media-query-driven
// components.
//
// A Harness owns a synthetic Window and a root owner, so components
// can be mounted and driven without a WebSocket connection or a real
// client. Environment changes are applied directly and Flush replays
// the session loop's ordering: effects run first, then dirty
// components re-render against the already-updated environment.
//
// # Quick Start
//
//	func TestSidebar_CollapsesOnNarrowViewport(t *testing.T) {
//	    h := mqtest.New(mqtest.WithViewport(1024, 768))
//	    defer h.Close()
//
//	    m := h.Mount(Sidebar)
//	    mqtest.ExpectContains(t, m.Output(), "expanded")
//
//	    h.Resize(500, 768)
//	    h.Flush()
//	    mqtest.ExpectContains(t, m.Output(), "collapsed")
//	}
//
// # Render Assertions
//
// Assert on rendered HTML output:
//
//	mqtest.ExpectContains(t, m.Output(), "Welcome")
//	mqtest.ExpectNotContains(t, m.Output(), "hidden")
//	mqtest.ExpectMatches(t, m.Output(), `<nav[^>]*collapsed`)
package mqtest
