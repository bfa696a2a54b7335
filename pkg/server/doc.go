// Package server provides the server-side runtime that drives component
// HTML from each client's media environment.
//
// The server package manages WebSocket connections, per-session windows,
// media event handling, and HTML update generation. It is the integration
// layer that brings together the reactive system (pkg/reactive), the media
// query engine (pkg/mediaquery, pkg/window), and the binary protocol
// (pkg/protocol).
//
// # Architecture
//
// The server runtime consists of several key components:
//
//   - Session: Per-connection state container managing the window, mounted components, and reactive ownership
//   - SessionManager: Manages all active sessions with cleanup, persistence, and lifecycle hooks
//   - ComponentInstance: A mounted component with its reactive state and render capability
//   - Server: HTTP/WebSocket server with handshake, resume, and graceful shutdown
//
// # Session Lifecycle
//
// Each WebSocket connection creates a Session that manages:
//   - A Window seeded from the handshake's media snapshot
//   - Mounted components and their hydration IDs
//   - Reactive ownership for signals and effects
//   - Sequence numbers for reliable delivery
//
// The session runs three goroutines:
//   - ReadLoop: Receives WebSocket frames, decodes media events, queues for processing
//   - EventLoop: Applies events to the window, runs effects, re-renders dirty components
//   - WriteLoop: Sends heartbeat pings
//
// When the connection drops, the session detaches instead of closing.
// Signal state survives, and a client reconnecting within the resume
// window picks up where it left off. With a SessionStore configured,
// detached sessions also survive server restarts.
//
// # Event Processing
//
// When a client reports a media change:
//  1. ReadLoop decodes the binary event frame
//  2. The event is queued for the EventLoop
//  3. The event is applied to the session's window
//  4. Query lists whose match state flipped notify their listeners
//  5. Pending effects are run
//  6. Dirty components are re-rendered
//  7. Updated HTML is encoded and sent to the client
//
// # Example Usage
//
//	srv := server.New(&server.ServerConfig{
//	    Address: ":8080",
//	})
//
//	srv.SetRootComponent(func() server.Component {
//	    return server.ComponentFunc(func() string {
//	        if window.UseMediaQuery("(max-width: 768px)") {
//	            return "<nav>compact</nav>"
//	        }
//	        return "<nav>full</nav>"
//	    })
//	})
//
//	srv.Run()
//
// # Thread Safety
//
// The server package is designed for concurrent access:
//   - Session.mu protects WebSocket writes and channel swaps on resume
//   - The events channel serializes event processing per session
//   - Window state uses its own synchronization
//   - SessionManager uses RWMutex for the session map
package server
