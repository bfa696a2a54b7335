package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
)

// Server is the HTTP/WebSocket server that hosts media-driven sessions.
type Server struct {
	// Session management
	sessions *SessionManager

	// HTTP handler for non-WebSocket requests
	handler http.Handler

	// Root component factory
	rootComponent func() Component

	// Configuration
	config *ServerConfig

	// Trusted proxy matcher for forwarded headers
	trustedProxies *proxyMatcher

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Middleware
	middleware []Middleware

	// HTTP server
	httpServer *http.Server

	// Logger
	logger *slog.Logger

	// Metrics
	metrics *MetricsCollector
}

// Middleware is a function that wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// New creates a new Server with the given configuration.
func New(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		// Fill in defaults for any unset fields
		defaults := DefaultServerConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.SessionConfig == nil {
			config.SessionConfig = defaults.SessionConfig
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
		if config.IdleTimeout == 0 {
			config.IdleTimeout = defaults.IdleTimeout
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
	}

	// Apply debug flags before initialization to keep logging consistent.
	DebugMode = config.DevMode

	logger := slog.Default().With("component", "server")

	for _, warning := range config.GetConfigWarnings() {
		logger.Warn("config warning", "warning", warning)
	}
	if err := config.ValidateConfig(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	sessions := NewSessionManagerWithOptions(config.SessionConfig, logger, &SessionManagerOptions{
		MaxSessions:         config.MaxSessions,
		SessionStore:        config.SessionStore,
		ResumeWindow:        config.ResumeWindow,
		MaxDetachedSessions: config.MaxDetachedSessions,
		MaxSessionsPerIP:    config.MaxSessionsPerIP,
		EvictOnIPLimit:      config.EvictOnIPLimit,
		PersistInterval:     config.PersistInterval,
	})

	metrics := NewMetricsCollector()
	sessions.SetMetricsCollector(metrics)
	if config.CleanupInterval > 0 {
		sessions.SetCleanupInterval(config.CleanupInterval)
	}

	s := &Server{
		sessions:       sessions,
		config:         config,
		trustedProxies: newProxyMatcher(config.TrustedProxies, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			CheckOrigin:       config.CheckOrigin,
			EnableCompression: config.SessionConfig.EnableCompression,
		},
		logger:  logger,
		metrics: metrics,
	}

	return s
}

// SetRootComponent sets the root component factory. Each new session
// mounts one instance produced by the factory.
func (s *Server) SetRootComponent(factory func() Component) {
	s.rootComponent = factory
}

// SetHandler sets the HTTP handler for non-WebSocket requests.
func (s *Server) SetHandler(h http.Handler) {
	s.handler = h
}

// Use adds middleware to the server.
func (s *Server) Use(mw Middleware) {
	s.middleware = append(s.middleware, mw)
}

// Handler returns an http.Handler for mounting in external routers.
// This is the integration point for Chi, Gorilla, stdlib mux, etc.
//
// The handler dispatches based on path:
//   - /_matchmedia/ws, /_matchmedia/live → WebSocket upgrade
//   - /_matchmedia/client.js → thin client script
//   - /* → the configured HTTP handler
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(middleware.Logger)
//	r.Handle("/*", app.Handler())
//	http.ListenAndServe(":3000", r)
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.ServeHTTP(w, r)
	})
}

// WebSocketHandler returns an http.Handler for WebSocket upgrade only.
// Use when you want fine-grained control over routing.
func (s *Server) WebSocketHandler() http.Handler {
	return http.HandlerFunc(s.HandleWebSocket)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Check for WebSocket upgrade
	if r.URL.Path == "/_matchmedia/ws" || r.URL.Path == "/_matchmedia/live" {
		s.HandleWebSocket(w, r)
		return
	}

	// Internal assets
	if r.URL.Path == "/_matchmedia/client.js" {
		s.serveThinClient(w, r)
		return
	}

	// Apply middleware and serve
	handler := s.handler
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}

	handler.ServeHTTP(w, r)
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade to WebSocket
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Set connection options
	conn.SetReadLimit(s.config.SessionConfig.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.SessionConfig.HandshakeTimeout))

	// Wait for handshake
	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.logger.Error("handshake read failed", "error", err)
		conn.Close()
		return
	}

	// Decode frame header first.
	// Frame format: [type:1][flags:1][len:2][payload...]
	if len(msg) < protocol.FrameHeaderSize {
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	frameType := protocol.FrameType(msg[0])
	if frameType != protocol.FrameHandshake {
		s.logger.Error("handshake frame type mismatch", "got", frameType, "expected", protocol.FrameHandshake)
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	payloadLen := int(msg[2])<<8 | int(msg[3])
	if len(msg) < protocol.FrameHeaderSize+payloadLen {
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	payload := msg[protocol.FrameHeaderSize : protocol.FrameHeaderSize+payloadLen]

	// Parse client hello from payload
	hello, err := protocol.DecodeClientHello(payload)
	if err != nil {
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}

	if hello.Version.Major != protocol.CurrentVersion.Major {
		s.logger.Warn("protocol version mismatch",
			"client", hello.Version,
			"server", protocol.CurrentVersion)
		s.sendHandshakeError(conn, protocol.HandshakeVersionMismatch)
		conn.Close()
		return
	}

	clientIP := s.clientIP(r)

	// Session resume: the client presents its previous session ID and
	// the session revives with signal state intact, either from the
	// live map or rebuilt from the persistence store.
	var sess *Session
	var isResume bool

	if hello.SessionID != "" {
		// Try active sessions first
		sess = s.sessions.Get(hello.SessionID)
		if sess != nil && !sess.IsDisposed() {
			isResume = true
		} else if s.sessions.HasPersistence() {
			// Try persistence store (server restart scenario)
			if restored, ok := s.sessions.OnSessionReconnect(hello.SessionID); ok {
				sess = restored
				isResume = true
			}
		}

		// Validate resume window
		if isResume && sess != nil {
			if time.Since(sess.LastActive) > s.sessions.ResumeWindow() {
				s.logger.Info("session resume rejected: expired",
					"session_id", hello.SessionID,
					"last_active", sess.LastActive)
				s.sessions.Close(sess.ID)
				sess = nil
				isResume = false
			}
		}
	}

	if isResume && sess != nil {
		if err := s.sessions.UpdateSessionIP(sess, clientIP); err != nil {
			s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
			conn.Close()
			return
		}

		// A still-live session detaches first so the old connection's
		// goroutines wind down before the new connection takes over.
		if !sess.IsDetached() && !sess.NeedsRestart() {
			sess.Detach()
		}

		wasDetached := sess.IsDetached()
		sess.Resume(conn, uint64(hello.LastSeq))
		if wasDetached {
			s.sessions.OnSessionReattach(sess)
		}

		// The handshake carries the client's current environment, which
		// may have changed while detached.
		sess.Window().SetMedia(mediaFromHello(hello))
		sess.Owner().RunPendingEffects()

		s.sendServerHello(conn, sess, true)

		// Sessions restored from the store have no mounts; mount the
		// root fresh. Otherwise resend every region's HTML so the
		// client DOM converges.
		if sess.MountCount() == 0 && s.rootComponent != nil {
			sess.MountRoot(s.rootComponent())
		} else {
			sess.ResyncAll()
		}

		if sess.NeedsRestart() {
			sess.Start()
		}

		s.logger.Info("session resumed",
			"session_id", sess.ID,
			"ip", clientIP)
		return
	}

	// New session
	sess, err = s.sessions.Create(conn, hello, clientIP)
	if err != nil {
		switch err {
		case ErrMaxSessionsReached, ErrTooManySessionsFromIP:
			s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
		default:
			s.sendHandshakeError(conn, protocol.HandshakeInternalError)
		}
		conn.Close()
		return
	}

	// Context bridge: copy data from the dying HTTP context into the
	// living session. This runs synchronously; after the callback
	// returns, r.Context() is dead.
	if s.config.OnSessionStart != nil {
		s.config.OnSessionStart(r.Context(), sess)
	}

	// Send server hello
	s.sendServerHello(conn, sess, false)

	// Mount root component
	if s.rootComponent != nil {
		sess.MountRoot(s.rootComponent())
	}

	// Start session loops
	sess.Start()
}

// sendHandshakeError sends a handshake error response.
func (s *Server) sendHandshakeError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	hello := protocol.NewServerHelloError(status)
	payload := protocol.EncodeServerHello(hello)
	frame := protocol.NewFrame(protocol.FrameHandshake, payload)

	conn.SetWriteDeadline(time.Now().Add(s.config.SessionConfig.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// sendServerHello sends a successful handshake response.
func (s *Server) sendServerHello(conn *websocket.Conn, sess *Session, resumed bool) {
	var hello *protocol.ServerHello
	if resumed {
		hello = protocol.NewServerHelloResumed(
			sess.ID,
			uint32(sess.sendSeq.Load()),
			uint64(time.Now().UnixMilli()),
		)
	} else {
		hello = protocol.NewServerHello(
			sess.ID,
			uint32(sess.sendSeq.Load()),
			uint64(time.Now().UnixMilli()),
		)
	}
	hello.Flags |= protocol.ServerFlagBatchUpdates

	payload := protocol.EncodeServerHello(hello)
	frame := protocol.NewFrame(protocol.FrameHandshake, payload)

	conn.SetWriteDeadline(time.Now().Add(s.config.SessionConfig.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	if err := s.config.ValidateConfig(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Error channel for ListenAndServe
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server. Sessions are persisted
// to the configured store before their connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	// Create timeout context
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	// Close all sessions first
	s.sessions.ShutdownWithContext(ctx)

	// Shutdown HTTP server
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}
