// Package matchmedia provides the public API for the matchmedia
// reactive media-query engine.
//
// This is the recommended import for most applications:
//
//	import "github.com/matchmedia-go/matchmedia"
//
// Usage:
//
//	app := matchmedia.New(matchmedia.Config{Address: ":8080"})
//	app.SetRoot(func() matchmedia.Component {
//	    return matchmedia.Func(func() string {
//	        if matchmedia.UseMediaQuery("(max-width: 768px)") {
//	            return `<nav class="collapsed"></nav>`
//	        }
//	        return `<nav class="expanded"></nav>`
//	    })
//	})
//	log.Fatal(app.Run())
package matchmedia

import (
	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
	"github.com/matchmedia-go/matchmedia/pkg/server"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

// =============================================================================
// Reactive primitives (re-export from pkg/reactive)
// =============================================================================

// Listener receives change notifications from signals and query lists.
type Listener = reactive.Listener

// Cleanup releases resources registered by an effect or subscription.
type Cleanup = reactive.Cleanup

// Owner is a reactive scope owning effects, cleanups and context
// values. Components render under an owner; disposing the owner
// releases everything the renders subscribed to.
type Owner = reactive.Owner

// Effect is a computation that re-runs when its dependencies change.
type Effect = reactive.Effect

// NewSignal creates a reactive container holding a value.
func NewSignal[T any](initial T) *reactive.Signal[T] {
	return reactive.NewSignal(initial)
}

// CreateEffect runs fn immediately and re-runs it when any signal or
// query list it read changes.
var CreateEffect = reactive.CreateEffect

// OnMount runs fn once after the current component's first render.
var OnMount = reactive.OnMount

// OnUnmount registers fn to run when the current owner is disposed.
var OnUnmount = reactive.OnUnmount

// Batch coalesces notifications from multiple writes into one sweep.
var Batch = reactive.Batch

// Untracked reads signals inside fn without subscribing the caller.
var Untracked = reactive.Untracked

// =============================================================================
// Media queries (re-export from pkg/window and pkg/mediaquery)
// =============================================================================

// Window is the server-side mirror of a client's browsing environment.
type Window = window.Window

// MediaQueryList is one query's live view of a window.
type MediaQueryList = window.MediaQueryList

// NotifyMode controls how eagerly query lists notify their listeners.
type NotifyMode = window.NotifyMode

// Notification breadth settings.
const (
	NotifyOnChange     = window.NotifyOnChange
	NotifyOnEveryEvent = window.NotifyOnEveryEvent
)

// Media describes a client environment for query evaluation.
type Media = mediaquery.Media

// Breakpoint names a media query in an ordered breakpoint scale.
type Breakpoint = window.Breakpoint

// DefaultBreakpoints is a mobile-first scale using the common Tailwind
// widths.
var DefaultBreakpoints = window.DefaultBreakpoints

// UseMediaQuery reports whether the expression currently matches the
// client's environment and subscribes the caller to changes.
var UseMediaQuery = window.UseMediaQuery

// UseViewport returns the current viewport dimensions.
var UseViewport = window.UseViewport

// UseOrientation reports how the viewport is turned.
var UseOrientation = window.UseOrientation

// UsePrefersDark reports whether the client prefers a dark scheme.
var UsePrefersDark = window.UsePrefersDark

// UsePrefersReducedMotion reports whether the client asked for reduced
// motion.
var UsePrefersReducedMotion = window.UsePrefersReducedMotion

// UseBreakpoint returns the name of the widest matching entry in the
// scale.
var UseBreakpoint = window.UseBreakpoint

// UseWindow returns the window serving the current render, or nil when
// rendering detached.
var UseWindow = window.UseWindow

// Compile parses a media query expression.
var Compile = mediaquery.Compile

// MustCompile is like Compile but panics on a malformed expression.
var MustCompile = mediaquery.MustCompile

// DefaultMedia returns the environment used before a client reports
// its real one.
var DefaultMedia = mediaquery.DefaultMedia

// =============================================================================
// Components and server (re-export from pkg/server)
// =============================================================================

// Component renders one region of the client page to HTML.
type Component = server.Component

// Func wraps a render function as a Component.
type Func = server.ComponentFunc

// Server is the HTTP/WebSocket server driving sessions.
type Server = server.Server

// Session is one connected (or resumable) client.
type Session = server.Session

// ServerConfig configures the HTTP/WebSocket server.
type ServerConfig = server.ServerConfig

// SessionConfig configures individual sessions.
type SessionConfig = server.SessionConfig

// DefaultServerConfig returns a ServerConfig with sensible defaults.
var DefaultServerConfig = server.DefaultServerConfig

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
var DefaultSessionConfig = server.DefaultSessionConfig
