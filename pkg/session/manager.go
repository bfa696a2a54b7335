package session

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Manager tracks detached sessions and protects server memory.
// It keeps an LRU queue of disconnected sessions for the resume
// window, enforces per-IP session counts and persists state through a
// SessionStore.
type Manager struct {
	mu sync.RWMutex

	// All tracked sessions by ID.
	sessions map[string]*ManagedSession

	// Detached sessions in LRU order, most recently used at the front.
	detachedQueue *list.List
	detachedIndex map[string]*list.Element

	// Session count per client IP.
	sessionsByIP map[string]int

	config ManagerConfig
	store  SessionStore
	logger *slog.Logger

	// Random source for EvictionRandom, overrideable in tests.
	randIntn func(n int) int

	done    chan struct{}
	stopped bool
}

// ManagedSession is the manager's view of a session: identity and
// lifecycle metadata plus the serialized state captured on disconnect.
type ManagedSession struct {
	// ID is the unique session identifier.
	ID string

	// IP is the client address, used for per-IP limits.
	IP string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// LastActive is when the session last saw client activity.
	LastActive time.Time

	// DisconnectedAt is when the client disconnected, zero while
	// connected.
	DisconnectedAt time.Time

	// Data is the serialized session state, set on disconnect.
	Data []byte

	// Connected reports whether the client currently holds a
	// WebSocket.
	Connected bool
}

// ManagerConfig configures the session manager.
type ManagerConfig struct {
	// MaxDetachedSessions caps the detached queue; beyond it the
	// eviction policy runs. Default: 10000.
	MaxDetachedSessions int

	// MaxSessionsPerIP caps sessions per client IP. Zero disables the
	// check. Default: 100.
	MaxSessionsPerIP int

	// ResumeWindow is how long a detached session stays resumable.
	// Default: 5 minutes.
	ResumeWindow time.Duration

	// PersistInterval is how often dirty sessions are persisted.
	// Default: 30 seconds.
	PersistInterval time.Duration

	// CleanupInterval is how often expired sessions are swept.
	// Default: 1 minute.
	CleanupInterval time.Duration

	// EvictionPolicy selects which detached session goes first when
	// the queue is full. Default: EvictionLRU.
	EvictionPolicy EvictionPolicy
}

// EvictionPolicy determines which detached sessions are evicted first.
type EvictionPolicy int

const (
	// EvictionLRU evicts the least recently accessed session.
	EvictionLRU EvictionPolicy = iota

	// EvictionOldest evicts the session with the earliest creation
	// time.
	EvictionOldest

	// EvictionRandom evicts a random session. Faster than the scans
	// above, less fair.
	EvictionRandom
)

// DefaultManagerConfig returns a ManagerConfig with sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxDetachedSessions: 10000,
		MaxSessionsPerIP:    100,
		ResumeWindow:        5 * time.Minute,
		PersistInterval:     30 * time.Second,
		CleanupInterval:     time.Minute,
		EvictionPolicy:      EvictionLRU,
	}
}

// Sentinel errors for session management.
var (
	// ErrTooManySessionsFromIP is returned when an IP exceeds its
	// session limit.
	ErrTooManySessionsFromIP = errors.New("too many sessions from this IP address")

	// ErrMaxSessionsReached is returned when the global session limit
	// is reached.
	ErrMaxSessionsReached = errors.New("maximum session limit reached")

	// ErrSessionExpired is returned when resuming a session past its
	// resume window.
	ErrSessionExpired = errors.New("session has expired")

	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrManagerStopped is returned after Shutdown.
	ErrManagerStopped = errors.New("session manager is stopped")
)

// NewManager creates a session manager backed by the given store.
// A nil store disables persistence; detached sessions then live only
// in memory.
func NewManager(store SessionStore, config ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		sessions:      make(map[string]*ManagedSession),
		detachedQueue: list.New(),
		detachedIndex: make(map[string]*list.Element),
		sessionsByIP:  make(map[string]int),
		config:        config,
		store:         store,
		logger:        logger.With("component", "session_manager"),
		randIntn:      rand.Intn,
		done:          make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// CheckIPLimit verifies that an IP has capacity for one more session.
// Call before creating a session.
func (m *Manager) CheckIPLimit(ip string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if m.config.MaxSessionsPerIP > 0 && m.sessionsByIP[ip] >= m.config.MaxSessionsPerIP {
		return ErrTooManySessionsFromIP
	}
	return nil
}

// Register adds a session to the manager and marks it connected.
func (m *Manager) Register(sess *ManagedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if m.config.MaxSessionsPerIP > 0 && m.sessionsByIP[sess.IP] >= m.config.MaxSessionsPerIP {
		return ErrTooManySessionsFromIP
	}

	m.sessions[sess.ID] = sess
	m.sessionsByIP[sess.IP]++
	sess.Connected = true
	sess.LastActive = time.Now()

	m.logger.Debug("session registered",
		"session_id", sess.ID,
		"ip", sess.IP,
		"ip_session_count", m.sessionsByIP[sess.IP])

	return nil
}

// OnDisconnect records a client disconnect. The session joins the
// detached queue and stays resumable for ResumeWindow; its serialized
// state is persisted when a store is configured.
func (m *Manager) OnDisconnect(sessionID string, serializedData []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[sessionID]
	if !exists || m.stopped {
		return
	}

	now := time.Now()
	sess.Connected = false
	sess.DisconnectedAt = now
	sess.Data = serializedData

	// At most one queue entry per session.
	if elem, ok := m.detachedIndex[sessionID]; ok {
		m.detachedQueue.Remove(elem)
		delete(m.detachedIndex, sessionID)
	}

	elem := m.detachedQueue.PushFront(sessionID)
	m.detachedIndex[sessionID] = elem

	for m.detachedQueue.Len() > m.config.MaxDetachedSessions {
		m.evictOneLocked()
	}

	if m.store != nil && len(serializedData) > 0 {
		expiresAt := now.Add(m.config.ResumeWindow)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.store.Save(ctx, sessionID, serializedData, expiresAt); err != nil {
				m.logger.Warn("failed to persist detached session",
					"session_id", sessionID,
					"error", err)
			}
		}()
	}

	m.logger.Debug("session detached",
		"session_id", sessionID,
		"detached_count", m.detachedQueue.Len())
}

// OnReconnect restores a session after reconnect. It returns the
// tracked session and the serialized state captured at disconnect.
// When only the store still holds the session (server restart), the
// returned session is nil and the caller rebuilds from the data.
func (m *Manager) OnReconnect(sessionID string) (*ManagedSession, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, nil, ErrManagerStopped
	}

	sess, exists := m.sessions[sessionID]
	if !exists {
		if m.store != nil {
			data, err := m.store.Load(context.Background(), sessionID)
			if err != nil {
				return nil, nil, err
			}
			if data != nil {
				return nil, data, nil
			}
		}
		return nil, nil, ErrSessionNotFound
	}

	if !sess.DisconnectedAt.IsZero() {
		if time.Since(sess.DisconnectedAt) > m.config.ResumeWindow {
			m.removeSessionLocked(sessionID)
			return nil, nil, ErrSessionExpired
		}
	}

	if elem, ok := m.detachedIndex[sessionID]; ok {
		m.detachedQueue.Remove(elem)
		delete(m.detachedIndex, sessionID)
	}

	sess.Connected = true
	sess.DisconnectedAt = time.Time{}
	sess.LastActive = time.Now()
	data := sess.Data
	sess.Data = nil

	m.logger.Debug("session reattached",
		"session_id", sessionID,
		"detached_count", m.detachedQueue.Len())

	return sess, data, nil
}

// Get retrieves a session by ID, or nil.
func (m *Manager) Get(sessionID string) *ManagedSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[sessionID]
}

// Touch refreshes a session's LastActive time and its LRU position.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, exists := m.sessions[sessionID]; exists {
		sess.LastActive = time.Now()

		if elem, ok := m.detachedIndex[sessionID]; ok {
			m.detachedQueue.MoveToFront(elem)
		}
	}
}

// Remove drops a session from the manager and the store.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeSessionLocked(sessionID)
}

func (m *Manager) removeSessionLocked(sessionID string) {
	sess, exists := m.sessions[sessionID]
	if !exists {
		return
	}

	delete(m.sessions, sessionID)
	m.sessionsByIP[sess.IP]--
	if m.sessionsByIP[sess.IP] <= 0 {
		delete(m.sessionsByIP, sess.IP)
	}

	if elem, ok := m.detachedIndex[sessionID]; ok {
		m.detachedQueue.Remove(elem)
		delete(m.detachedIndex, sessionID)
	}

	if m.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.store.Delete(ctx, sessionID)
		}()
	}

	m.logger.Debug("session removed",
		"session_id", sessionID,
		"remaining", len(m.sessions))
}

// evictOneLocked evicts one detached session per the configured
// policy. Caller holds the lock.
func (m *Manager) evictOneLocked() {
	if m.detachedQueue.Len() == 0 {
		return
	}

	var sessionID string

	switch m.config.EvictionPolicy {
	case EvictionLRU:
		// Least recently used sits at the back.
		if back := m.detachedQueue.Back(); back != nil {
			sessionID = back.Value.(string)
		}
	case EvictionOldest:
		var oldestID string
		var oldestTime time.Time
		found := false

		for e := m.detachedQueue.Front(); e != nil; e = e.Next() {
			id := e.Value.(string)
			sess := m.sessions[id]
			if sess == nil {
				continue
			}
			if !found || sess.CreatedAt.Before(oldestTime) {
				found = true
				oldestID = id
				oldestTime = sess.CreatedAt
			}
		}

		if found {
			sessionID = oldestID
		} else if back := m.detachedQueue.Back(); back != nil {
			sessionID = back.Value.(string)
		}
	case EvictionRandom:
		n := m.detachedQueue.Len()
		if n == 0 {
			return
		}

		intn := m.randIntn
		if intn == nil {
			intn = rand.Intn
		}

		idx := intn(n)
		if idx < 0 {
			idx = 0
		} else if idx >= n {
			idx = n - 1
		}

		e := m.detachedQueue.Front()
		for i := 0; i < idx && e != nil; i++ {
			e = e.Next()
		}
		if e == nil {
			e = m.detachedQueue.Back()
		}
		if e != nil {
			sessionID = e.Value.(string)
		}
	default:
		// Unknown values behave as LRU.
		if back := m.detachedQueue.Back(); back != nil {
			sessionID = back.Value.(string)
		}
	}

	if sessionID == "" {
		return
	}

	sess := m.sessions[sessionID]

	// Persist before dropping so a late reconnect can still resume
	// through the store.
	if m.store != nil && sess != nil && len(sess.Data) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		expiresAt := time.Now().Add(m.config.ResumeWindow)
		_ = m.store.Save(ctx, sessionID, sess.Data, expiresAt)
		cancel()
	}

	m.removeSessionLocked(sessionID)

	m.logger.Debug("evicted detached session",
		"session_id", sessionID,
		"policy", m.config.EvictionPolicy)
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.done:
			return
		}
	}
}

// cleanupExpired removes detached sessions past the resume window.
func (m *Manager) cleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expired []string

	for id, sess := range m.sessions {
		if sess.DisconnectedAt.IsZero() {
			continue
		}
		if now.Sub(sess.DisconnectedAt) > m.config.ResumeWindow {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		m.removeSessionLocked(id)
	}

	if len(expired) > 0 {
		m.logger.Debug("swept expired sessions",
			"count", len(expired),
			"remaining", len(m.sessions))
	}
}

// Shutdown stops the manager and persists every session that has
// serialized state.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()

	if m.stopped {
		m.mu.Unlock()
		return nil
	}

	m.stopped = true
	close(m.done)

	toSave := make(map[string]SessionData)
	for id, sess := range m.sessions {
		if len(sess.Data) > 0 {
			toSave[id] = SessionData{
				Data:      sess.Data,
				ExpiresAt: time.Now().Add(m.config.ResumeWindow),
			}
		}
	}

	m.mu.Unlock()

	if m.store != nil && len(toSave) > 0 {
		if err := m.store.SaveAll(ctx, toSave); err != nil {
			m.logger.Warn("failed to persist sessions on shutdown",
				"error", err,
				"count", len(toSave))
			return err
		}
		m.logger.Info("persisted sessions on shutdown", "count", len(toSave))
	}

	return nil
}

// Stats returns manager statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connected := 0
	for _, sess := range m.sessions {
		if sess.Connected {
			connected++
		}
	}

	return ManagerStats{
		Total:     len(m.sessions),
		Connected: connected,
		Detached:  m.detachedQueue.Len(),
		UniqueIPs: len(m.sessionsByIP),
	}
}

// ManagerStats contains session manager statistics.
type ManagerStats struct {
	// Total is the number of tracked sessions, connected and detached.
	Total int

	// Connected is the number of sessions with a live WebSocket.
	Connected int

	// Detached is the number of sessions waiting for reconnection.
	Detached int

	// UniqueIPs is the number of distinct client addresses.
	UniqueIPs int
}
