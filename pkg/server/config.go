package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/matchmedia-go/matchmedia/pkg/session"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// Timeouts

	// ReadTimeout is the maximum time to wait for a message from the client.
	// Heartbeat pings keep this deadline fed on an otherwise quiet connection.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// IdleTimeout is the time after which an inactive session is closed.
	// Default: 30 minutes.
	IdleTimeout time.Duration

	// HandshakeTimeout is the maximum time for the initial handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Must be shorter than ReadTimeout. Default: 30 seconds.
	HeartbeatInterval time.Duration

	// Limits

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the size of the event channel buffer.
	// Default: 256.
	MaxEventQueue int

	// Features

	// EnableCompression enables WebSocket per-message compression.
	// Default: false. Media events are a handful of bytes; compression
	// only pays off for large HTML updates.
	EnableCompression bool
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Minute,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024, // 64KB
		MaxEventQueue:     256,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// Session configuration

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// HTTP server lifecycle

	// ReadHeaderTimeout is the maximum time to read request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// ReadTimeout and WriteTimeout apply to plain HTTP requests.
	// Upgraded WebSocket connections manage their own deadlines and are
	// not affected. Default: 0 (no limit).
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// IdleTimeout is the HTTP keep-alive idle timeout.
	// Default: 2 minutes.
	IdleTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Limits

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit. Default: 0.
	MaxSessions int

	// MaxSessionsPerIP is the maximum number of sessions per client IP.
	// 0 means no limit. Default: 0.
	MaxSessionsPerIP int

	// EvictOnIPLimit controls whether a full IP bucket evicts that IP's
	// oldest detached session instead of rejecting the new connection.
	// Default: true when MaxSessionsPerIP is set.
	EvictOnIPLimit bool

	// Persistence

	// SessionStore is the persistence backend for detached sessions.
	// If nil, sessions survive reconnects only while the process runs.
	SessionStore session.SessionStore

	// ResumeWindow is how long a detached session remains resumable.
	// Default: 5 minutes.
	ResumeWindow time.Duration

	// MaxDetachedSessions caps the number of detached sessions kept for
	// resume. Default: 10000.
	MaxDetachedSessions int

	// PersistInterval is how often detached sessions are flushed to the
	// store. Default: 30 seconds.
	PersistInterval time.Duration

	// Cleanup

	// CleanupInterval is the interval for the session cleanup loop.
	// Default: 30 seconds.
	CleanupInterval time.Duration

	// Context Bridge

	// OnSessionStart is called during the WebSocket upgrade, before the
	// handshake completes. Use it to copy data from the HTTP context
	// into the session; after this callback returns the HTTP context is
	// dead and cannot be accessed.
	OnSessionStart func(httpCtx context.Context, sess *Session)

	// TrustedProxies lists trusted reverse proxy IPs or CIDR ranges for
	// Forwarded / X-Forwarded-For handling.
	// Default: nil (don't trust proxy headers).
	TrustedProxies []string

	// DevMode relaxes origin checks and disables thin client caching.
	// Never enable in production. Default: false.
	DevMode bool
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
// CheckOrigin enforces same-origin by default to prevent cross-site
// WebSocket hijacking.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:             ":8080",
		ReadBufferSize:      4096,
		WriteBufferSize:     4096,
		CheckOrigin:         SameOriginCheck,
		SessionConfig:       DefaultSessionConfig(),
		ReadHeaderTimeout:   10 * time.Second,
		IdleTimeout:         2 * time.Minute,
		ShutdownTimeout:     30 * time.Second,
		ResumeWindow:        5 * time.Minute,
		MaxDetachedSessions: 10000,
		PersistInterval:     30 * time.Second,
		CleanupInterval:     30 * time.Second,
	}
}

// WithDevMode relaxes the config for local development: all origins
// are accepted and the thin client is served uncached.
func (c *ServerConfig) WithDevMode() *ServerConfig {
	c.DevMode = true
	c.CheckOrigin = func(r *http.Request) bool { return true }
	return c
}

// SameOriginCheck validates that the WebSocket request origin matches the host.
// This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	// Compare the host portion (includes port if present)
	return originURL.Host == host
}

// Clone returns a copy of the ServerConfig.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.SessionConfig != nil {
		clone.SessionConfig = c.SessionConfig.Clone()
	}
	if c.TrustedProxies != nil {
		clone.TrustedProxies = append([]string(nil), c.TrustedProxies...)
	}
	return &clone
}

// WithAddress sets the server address and returns the config for chaining.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	c.Address = addr
	return c
}

// WithSessionConfig sets the session configuration and returns the config for chaining.
func (c *ServerConfig) WithSessionConfig(sc *SessionConfig) *ServerConfig {
	c.SessionConfig = sc
	return c
}

// WithMaxSessions sets the maximum sessions and returns the config for chaining.
func (c *ServerConfig) WithMaxSessions(max int) *ServerConfig {
	c.MaxSessions = max
	return c
}

// WithSessionStore sets the persistence backend and returns the config for chaining.
func (c *ServerConfig) WithSessionStore(store session.SessionStore) *ServerConfig {
	c.SessionStore = store
	return c
}

// WithResumeWindow sets the resume window and returns the config for chaining.
func (c *ServerConfig) WithResumeWindow(d time.Duration) *ServerConfig {
	c.ResumeWindow = d
	return c
}

// ValidateConfig checks the configuration for hard errors.
func (c *ServerConfig) ValidateConfig() error {
	if c.Address == "" {
		return fmt.Errorf("server: address must not be empty")
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("server: MaxSessions must not be negative")
	}
	if c.MaxSessionsPerIP < 0 {
		return fmt.Errorf("server: MaxSessionsPerIP must not be negative")
	}
	if sc := c.SessionConfig; sc != nil {
		if sc.HeartbeatInterval > 0 && sc.ReadTimeout > 0 && sc.HeartbeatInterval >= sc.ReadTimeout {
			return fmt.Errorf("server: HeartbeatInterval (%v) must be shorter than ReadTimeout (%v)",
				sc.HeartbeatInterval, sc.ReadTimeout)
		}
		if sc.MaxMessageSize < 0 {
			return fmt.Errorf("server: MaxMessageSize must not be negative")
		}
	}
	return nil
}

// GetConfigWarnings returns non-fatal configuration concerns worth
// logging at startup.
func (c *ServerConfig) GetConfigWarnings() []string {
	var warnings []string

	if c.DevMode {
		warnings = append(warnings, "DEV MODE enabled: origin checks relaxed, do not use in production")
	}
	if c.CheckOrigin == nil {
		warnings = append(warnings, "CheckOrigin is nil: same-origin check will be applied")
	}
	if c.ResumeWindow > 0 && c.SessionStore == nil {
		warnings = append(warnings, "no SessionStore configured: detached sessions will not survive a restart")
	}

	return warnings
}
