package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
	"github.com/matchmedia-go/matchmedia/pkg/session"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

// SessionManager manages all active sessions.
// It handles session creation, lookup, cleanup, and lifecycle callbacks.
type SessionManager struct {
	// Sessions map protected by RWMutex
	sessions map[string]*Session
	mu       sync.RWMutex

	// Session count per IP address (protected by mu)
	sessionsByIP map[string]int

	// Configuration
	config *SessionConfig

	// Cleanup (protected by cleanupMu)
	cleanupInterval time.Duration
	cleanupTicker   *time.Ticker
	cleanupMu       sync.Mutex
	done            chan struct{}
	cleanupDone     chan struct{} // Signals that cleanup goroutine has exited

	// Limits
	maxSessions      int
	maxSessionsPerIP int
	evictOnIPLimit   bool

	// Metrics
	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int
	metrics      *MetricsCollector

	// Callbacks
	onSessionCreate func(*Session)
	onSessionClose  func(*Session)

	// Logger
	logger *slog.Logger

	// Persistence
	// persistenceManager tracks detached sessions and writes their
	// serialized state to the session store.
	persistenceManager *session.Manager
	sessionStore       session.SessionStore
	resumeWindow       time.Duration
}

// SessionManagerOptions contains optional limit and persistence configuration.
type SessionManagerOptions struct {
	// MaxSessions is the maximum concurrent sessions, 0 for unlimited.
	MaxSessions int

	// SessionStore is the persistence backend for detached sessions.
	SessionStore session.SessionStore

	// ResumeWindow is how long detached sessions remain resumable.
	ResumeWindow time.Duration

	// MaxDetachedSessions is the maximum detached sessions before LRU eviction.
	MaxDetachedSessions int

	// MaxSessionsPerIP is the maximum sessions per IP address.
	MaxSessionsPerIP int

	// EvictOnIPLimit controls whether to evict the oldest detached session
	// for a full IP bucket instead of rejecting new sessions.
	EvictOnIPLimit bool

	// PersistInterval is how often to persist dirty sessions.
	PersistInterval time.Duration
}

// NewSessionManager creates a new SessionManager with the given configuration.
func NewSessionManager(config *SessionConfig, logger *slog.Logger) *SessionManager {
	return NewSessionManagerWithOptions(config, logger, nil)
}

// NewSessionManagerWithOptions creates a SessionManager with limits and
// persistence options.
func NewSessionManagerWithOptions(config *SessionConfig, logger *slog.Logger, opts *SessionManagerOptions) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	sm := &SessionManager{
		sessions:        make(map[string]*Session),
		sessionsByIP:    make(map[string]int),
		config:          config,
		cleanupInterval: 30 * time.Second,
		done:            make(chan struct{}),
		cleanupDone:     make(chan struct{}),
		logger:          logger.With("component", "session_manager"),
		resumeWindow:    5 * time.Minute, // Default
		evictOnIPLimit:  true,
	}

	if opts != nil {
		sm.maxSessions = opts.MaxSessions
		sm.sessionStore = opts.SessionStore
		if opts.ResumeWindow > 0 {
			sm.resumeWindow = opts.ResumeWindow
		}
		if opts.MaxSessionsPerIP > 0 {
			sm.maxSessionsPerIP = opts.MaxSessionsPerIP
		}
		if opts.EvictOnIPLimit || opts.MaxSessionsPerIP > 0 {
			sm.evictOnIPLimit = opts.EvictOnIPLimit
		}

		// Create persistence manager if store is provided
		if opts.SessionStore != nil {
			managerConfig := session.DefaultManagerConfig()
			if opts.MaxDetachedSessions > 0 {
				managerConfig.MaxDetachedSessions = opts.MaxDetachedSessions
			}
			// Per-IP limits are enforced here, not by the persistence manager.
			managerConfig.MaxSessionsPerIP = 0
			if opts.ResumeWindow > 0 {
				managerConfig.ResumeWindow = opts.ResumeWindow
			}
			if opts.PersistInterval > 0 {
				managerConfig.PersistInterval = opts.PersistInterval
			}

			sm.persistenceManager = session.NewManager(opts.SessionStore, managerConfig, logger)
		}
	}

	// Start cleanup goroutine
	go sm.cleanupLoop()

	return sm
}

// Create creates a new session for the given WebSocket connection. The
// handshake seeds the session's window with the client's media environment.
func (sm *SessionManager) Create(conn *websocket.Conn, hello *protocol.ClientHello, ip string) (*Session, error) {
	sm.mu.Lock()

	// Check session limit
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessionsReached
	}

	evicted, err := sm.ensureIPCapacityLocked(ip, "")
	if err != nil {
		sm.mu.Unlock()
		sm.closeEvictedSessions(evicted)
		return nil, err
	}

	// Create session
	sess := newSession(conn, hello, sm.config, sm.logger)
	sess.IP = ip
	sess.setOnDetach(sm.OnSessionDisconnect)
	sess.setMetrics(sm.metrics)

	// Register session
	sm.sessions[sess.ID] = sess
	sm.trackSessionLocked(sess, true)

	sm.mu.Unlock()

	sm.closeEvictedSessions(evicted)

	sm.logger.Info("session created",
		"session_id", sess.ID,
		"ip", ip,
		"active_sessions", sm.Count())

	return sess, nil
}

func (sm *SessionManager) trackSessionLocked(sess *Session, countCreated bool) {
	if sess == nil {
		return
	}
	if sess.IP != "" {
		sm.sessionsByIP[sess.IP]++
	}
	if countCreated {
		sm.totalCreated.Add(1)
	}
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	if countCreated && sm.onSessionCreate != nil {
		sm.onSessionCreate(sess)
	}
}

func (sm *SessionManager) removeSessionLocked(id string) *Session {
	sess, exists := sm.sessions[id]
	if !exists {
		return nil
	}
	delete(sm.sessions, id)
	if sess.IP != "" {
		sm.sessionsByIP[sess.IP]--
		if sm.sessionsByIP[sess.IP] <= 0 {
			delete(sm.sessionsByIP, sess.IP)
		}
	}
	return sess
}

func (sm *SessionManager) ensureIPCapacityLocked(ip, excludeID string) ([]*Session, error) {
	if sm.maxSessionsPerIP <= 0 || ip == "" {
		return nil, nil
	}

	count := sm.sessionsByIP[ip]
	if excludeID != "" {
		if sess, ok := sm.sessions[excludeID]; ok && sess.IP == ip {
			count--
		}
	}

	if count < sm.maxSessionsPerIP {
		return nil, nil
	}
	if !sm.evictOnIPLimit {
		return nil, ErrTooManySessionsFromIP
	}

	evicted := sm.evictOldestDetachedByIPLocked(ip, excludeID)
	if evicted == nil {
		return nil, ErrTooManySessionsFromIP
	}

	count = sm.sessionsByIP[ip]
	if excludeID != "" {
		if sess, ok := sm.sessions[excludeID]; ok && sess.IP == ip {
			count--
		}
	}

	if count >= sm.maxSessionsPerIP {
		return []*Session{evicted}, ErrTooManySessionsFromIP
	}

	return []*Session{evicted}, nil
}

func (sm *SessionManager) evictOldestDetachedByIPLocked(ip, excludeID string) *Session {
	var oldest *Session
	var oldestAt time.Time

	for id, sess := range sm.sessions {
		if sess == nil || sess.IP != ip || !sess.IsDetached() || id == excludeID {
			continue
		}
		detachedAt := sess.DetachedAt
		if detachedAt.IsZero() {
			detachedAt = sess.LastActive
		}
		if oldest == nil || detachedAt.Before(oldestAt) {
			oldest = sess
			oldestAt = detachedAt
		}
	}

	if oldest == nil {
		return nil
	}

	sm.removeSessionLocked(oldest.ID)
	return oldest
}

func (sm *SessionManager) closeEvictedSessions(sessions []*Session) {
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		go func(s *Session) {
			s.Close()
			sm.totalClosed.Add(1)
			if sm.onSessionClose != nil {
				sm.onSessionClose(s)
			}
		}(sess)
	}
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// UpdateSessionIP updates the session's IP address and enforces per-IP limits.
// Returns ErrTooManySessionsFromIP if the new IP bucket is full.
func (sm *SessionManager) UpdateSessionIP(sess *Session, newIP string) error {
	if sess == nil {
		return nil
	}
	if newIP == "" {
		newIP = sess.IP
	}

	sm.mu.Lock()
	evicted, err := sm.ensureIPCapacityLocked(newIP, sess.ID)
	if err != nil {
		sm.mu.Unlock()
		sm.closeEvictedSessions(evicted)
		return err
	}

	oldIP := sess.IP
	if newIP != oldIP {
		if oldIP != "" {
			sm.sessionsByIP[oldIP]--
			if sm.sessionsByIP[oldIP] <= 0 {
				delete(sm.sessionsByIP, oldIP)
			}
		}
		if newIP != "" {
			sm.sessionsByIP[newIP]++
		}
		sess.IP = newIP
	}
	sm.mu.Unlock()

	sm.closeEvictedSessions(evicted)
	return nil
}

// Close closes a session by ID and removes it from the manager.
func (sm *SessionManager) Close(id string) {
	sm.mu.Lock()
	sess := sm.removeSessionLocked(id)
	sm.mu.Unlock()

	if sess != nil {
		sess.Close()
		sm.totalClosed.Add(1)
		if sm.onSessionClose != nil {
			sm.onSessionClose(sess)
		}
		sm.logger.Info("session closed",
			"session_id", id,
			"active_sessions", sm.Count())
	}
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// cleanupLoop periodically removes expired sessions.
func (sm *SessionManager) cleanupLoop() {
	defer close(sm.cleanupDone)

	sm.cleanupMu.Lock()
	sm.cleanupTicker = time.NewTicker(sm.cleanupInterval)
	sm.cleanupMu.Unlock()

	defer func() {
		sm.cleanupMu.Lock()
		if sm.cleanupTicker != nil {
			sm.cleanupTicker.Stop()
		}
		sm.cleanupMu.Unlock()
	}()

	for {
		sm.cleanupMu.Lock()
		ticker := sm.cleanupTicker
		sm.cleanupMu.Unlock()

		select {
		case <-ticker.C:
			sm.cleanupExpired()
		case <-sm.done:
			return
		}
	}
}

// cleanupExpired removes sessions that have exceeded their idle timeout.
func (sm *SessionManager) cleanupExpired() {
	sm.mu.Lock()

	now := time.Now()
	var expired []string

	for id, sess := range sm.sessions {
		timeout := sm.config.IdleTimeout
		if sess != nil && sess.IsDetached() {
			// Detached sessions are only kept for ResumeWindow.
			timeout = sm.ResumeWindow()
		}
		if now.Sub(sess.LastActive) > timeout {
			expired = append(expired, id)
		}
	}

	var toClose []*Session
	for _, id := range expired {
		if sess := sm.removeSessionLocked(id); sess != nil {
			toClose = append(toClose, sess)
		}
	}
	remaining := len(sm.sessions)
	sm.mu.Unlock()

	sm.closeEvictedSessions(toClose)

	if len(expired) > 0 {
		sm.logger.Info("cleaned up expired sessions",
			"count", len(expired),
			"remaining", remaining)
	}
}

// Shutdown gracefully shuts down all sessions.
func (sm *SessionManager) Shutdown() {
	sm.ShutdownWithContext(context.Background())
}

// ShutdownWithContext gracefully shuts down all sessions with context for timeout.
func (sm *SessionManager) ShutdownWithContext(ctx context.Context) error {
	// Stop cleanup loop and wait for it to exit
	close(sm.done)
	<-sm.cleanupDone

	// Get all sessions
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.sessions = make(map[string]*Session)
	sm.sessionsByIP = make(map[string]int)
	sm.mu.Unlock()

	// Persist all sessions before closing
	if sm.persistenceManager != nil {
		for _, sess := range sessions {
			data := sm.serializeSessionForPersistence(sess)
			if len(data) == 0 {
				continue
			}
			managedSess := &session.ManagedSession{
				ID:         sess.ID,
				IP:         sess.IP,
				CreatedAt:  sess.CreatedAt,
				LastActive: sess.LastActive,
			}
			if err := sm.persistenceManager.Register(managedSess); err != nil {
				sm.logger.Warn("failed to register session for persistence",
					"session_id", sess.ID,
					"error", err)
				continue
			}
			sm.persistenceManager.OnDisconnect(sess.ID, data)
		}

		// Shutdown persistence manager (persists all to store)
		if err := sm.persistenceManager.Shutdown(ctx); err != nil {
			sm.logger.Warn("persistence manager shutdown error", "error", err)
		}
	}

	// Close all sessions concurrently
	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
			if sm.onSessionClose != nil {
				sm.onSessionClose(s)
			}
		}(sess)
	}
	wg.Wait()

	sm.logger.Info("session manager shutdown",
		"closed_sessions", len(sessions))

	return nil
}

// Stats returns aggregated session statistics.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	active := len(sm.sessions)
	detached := 0
	for _, s := range sm.sessions {
		if s != nil && s.IsDetached() {
			detached++
		}
	}
	peak := sm.peakSessions
	sm.mu.RUnlock()

	return ManagerStats{
		Active:       active,
		Detached:     detached,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
		Peak:         peak,
	}
}

// ManagerStats contains aggregated session manager statistics.
type ManagerStats struct {
	Active       int
	Detached     int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// ForEach iterates over all sessions.
// The callback should not perform long-running operations as it holds the read lock.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, sess := range sm.sessions {
		if !fn(sess) {
			break
		}
	}
}

// SetOnSessionCreate sets the callback for session creation.
func (sm *SessionManager) SetOnSessionCreate(fn func(*Session)) {
	sm.onSessionCreate = fn
}

// SetOnSessionClose sets the callback for session close.
func (sm *SessionManager) SetOnSessionClose(fn func(*Session)) {
	sm.onSessionClose = fn
}

// SetCleanupInterval sets the cleanup interval.
func (sm *SessionManager) SetCleanupInterval(d time.Duration) {
	sm.cleanupMu.Lock()
	defer sm.cleanupMu.Unlock()
	sm.cleanupInterval = d
	if sm.cleanupTicker != nil {
		sm.cleanupTicker.Reset(d)
	}
}

// SetMetricsCollector sets the collector new sessions report into.
func (sm *SessionManager) SetMetricsCollector(m *MetricsCollector) {
	sm.metrics = m
}

// CheckIPLimit checks if the IP has exceeded the session limit.
// Returns ErrTooManySessionsFromIP if the limit is exceeded.
// This should be called before creating a new session.
func (sm *SessionManager) CheckIPLimit(ip string) error {
	if sm.maxSessionsPerIP <= 0 || ip == "" {
		return nil
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if sm.sessionsByIP[ip] >= sm.maxSessionsPerIP {
		return ErrTooManySessionsFromIP
	}
	return nil
}

// OnSessionDisconnect is called when a WebSocket connection closes.
// It persists the session state for potential reconnection.
func (sm *SessionManager) OnSessionDisconnect(sess *Session) {
	if sm.persistenceManager == nil {
		return
	}

	// Serialize session for persistence
	data := sm.serializeSessionForPersistence(sess)

	// Register with persistence manager for LRU tracking
	managedSess := &session.ManagedSession{
		ID:         sess.ID,
		IP:         sess.IP,
		CreatedAt:  sess.CreatedAt,
		LastActive: sess.LastActive,
	}
	if err := sm.persistenceManager.Register(managedSess); err != nil {
		sm.logger.Warn("failed to register session for persistence",
			"session_id", sess.ID,
			"error", err)
		return
	}
	sm.persistenceManager.OnDisconnect(sess.ID, data)

	sm.logger.Debug("session disconnected and persisted",
		"session_id", sess.ID,
		"data_size", len(data))
}

// OnSessionReconnect attempts to restore a session after reconnection.
// Returns the restored session and true if successful, or nil and false if not found.
func (sm *SessionManager) OnSessionReconnect(sessionID string) (*Session, bool) {
	if sm.persistenceManager == nil {
		return nil, false
	}

	// Try to restore from persistence manager
	_, data, err := sm.persistenceManager.OnReconnect(sessionID)
	if err != nil || data == nil {
		return nil, false
	}

	// Deserialize and restore session
	sess := sm.restoreSessionFromPersistence(sessionID, data)
	if sess == nil {
		return nil, false
	}
	sess.setOnDetach(sm.OnSessionDisconnect)
	sess.setMetrics(sm.metrics)

	// Re-register the session
	sm.mu.Lock()
	sm.sessions[sess.ID] = sess
	sm.trackSessionLocked(sess, false)
	sm.mu.Unlock()

	sm.logger.Debug("session reconnected from persistence",
		"session_id", sessionID)

	return sess, true
}

// OnSessionReattach notifies the persistence layer that a detached
// session picked up a live connection again, so its queue entry and
// stored state are released.
func (sm *SessionManager) OnSessionReattach(sess *Session) {
	if sm.persistenceManager == nil || sess == nil {
		return
	}
	sm.persistenceManager.OnReconnect(sess.ID)
}

// serializeSessionForPersistence converts a Session to bytes for storage.
func (sm *SessionManager) serializeSessionForPersistence(sess *Session) []byte {
	data, err := sess.Serialize()
	if err != nil {
		sm.logger.Warn("failed to serialize session",
			"session_id", sess.ID,
			"error", err)
		return nil
	}
	return data
}

// restoreSessionFromPersistence creates a Session from persisted bytes.
// This creates a fully initialized session that can be resumed.
func (sm *SessionManager) restoreSessionFromPersistence(sessionID string, data []byte) *Session {
	ss, err := session.Deserialize(data)
	if err != nil {
		sm.logger.Warn("failed to deserialize session",
			"session_id", sessionID,
			"error", err)
		return nil
	}

	sessionLogger := sm.logger.With("session_id", ss.ID)

	// Create fully initialized session
	sess := &Session{
		ID:         ss.ID,
		CreatedAt:  ss.CreatedAt,
		LastActive: time.Now(),

		instances: make(map[string]*ComponentInstance),
		owner:     reactive.NewOwner(nil),

		// Initialize channels
		events:     make(chan *protocol.Event, sm.config.MaxEventQueue),
		renderCh:   make(chan struct{}, 1),
		dispatchCh: make(chan func(), sm.config.MaxEventQueue),
		done:       make(chan struct{}),

		config: sm.config,
		logger: sessionLogger,
	}

	// Rebuild the window from the last media state the client reported.
	// The handshake on resume overwrites it with current values.
	sess.win = window.New(
		window.WithMedia(mediaFromState(ss.Media)),
		window.WithLogger(sessionLogger),
	)
	window.Provide(sess.owner, sess.win)

	// Re-register query lists so re-mounted components share them.
	for _, q := range ss.Queries {
		sess.win.MatchMedia(q)
	}

	// Restore session data values
	if ss.Values != nil {
		values := make(map[string]any, len(ss.Values))
		for k, v := range ss.Values {
			var val any
			if err := json.Unmarshal(v, &val); err == nil {
				values[k] = val
			}
		}
		sess.RestoreData(values)
	}

	sm.logger.Debug("session restored from persistence",
		"session_id", sess.ID,
		"queries", len(ss.Queries))

	return sess
}

// ResumeWindow returns the configured resume window duration.
// This is how long detached sessions remain resumable.
func (sm *SessionManager) ResumeWindow() time.Duration {
	if sm.resumeWindow == 0 {
		return 5 * time.Minute // Default
	}
	return sm.resumeWindow
}

// PersistenceManager returns the underlying persistence manager for advanced use.
// Returns nil if persistence is not configured.
func (sm *SessionManager) PersistenceManager() *session.Manager {
	return sm.persistenceManager
}

// HasPersistence returns true if session persistence is configured.
func (sm *SessionManager) HasPersistence() bool {
	return sm.persistenceManager != nil
}
