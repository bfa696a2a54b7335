package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
	"github.com/matchmedia-go/matchmedia/pkg/reactive"
	"github.com/matchmedia-go/matchmedia/pkg/session"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

// DebugMode enables extra validation and logging for development.
// When true, Session.Set() panics on unserializable types (func, chan).
// Set via ServerConfig.DevMode or directly for testing.
var DebugMode bool

// checkSerializable panics if value is an obviously unserializable type.
// Only called when DebugMode is true.
func checkSerializable(key string, value any) {
	t := reflect.TypeOf(value)
	if t == nil {
		return
	}
	switch t.Kind() {
	case reflect.Func:
		panic(fmt.Sprintf("Session.Set(%q): cannot store func (unserializable for persisted sessions)", key))
	case reflect.Chan:
		panic(fmt.Sprintf("Session.Set(%q): cannot store chan (unserializable for persisted sessions)", key))
	}
}

// Session represents a single WebSocket connection and its state.
// Each session owns a Window mirroring the client's media environment,
// the components mounted against it, and the reactive ownership tree.
type Session struct {
	// Identity
	ID         string
	CreatedAt  time.Time
	LastActive time.Time

	// IP is the client address, used for per-IP limits.
	IP string

	// DetachedAt is when the client disconnected, zero while connected.
	DetachedAt time.Time

	// Connection
	conn   *websocket.Conn
	mu     sync.Mutex // Protects conn writes
	closed atomic.Bool

	detached atomic.Bool
	disposed atomic.Bool
	started  atomic.Bool

	// Sequence numbers for reliable delivery
	sendSeq atomic.Uint64 // Next update sequence to send
	recvSeq atomic.Uint64 // Last received event sequence
	ackSeq  atomic.Uint64 // Last acknowledged by client

	// Media environment
	win *window.Window

	// Reactive ownership
	owner *reactive.Owner

	// Mounted components. mounts preserves mount order so update
	// frames are deterministic; instances indexes by hydration ID.
	mounts    []*ComponentInstance
	instances map[string]*ComponentInstance
	hidSeq    int

	// Page visibility, as last reported by the client.
	hidden atomic.Bool

	// Channels
	events     chan *protocol.Event // Incoming events
	renderCh   chan struct{}        // Signal for re-render
	dispatchCh chan func()          // Functions to run on the event loop
	done       chan struct{}        // Shutdown signal

	// Configuration
	config *SessionConfig

	// Logger
	logger *slog.Logger

	// Metrics
	metrics     *MetricsCollector
	eventCount  atomic.Uint64
	updateCount atomic.Uint64
	bytesSent   atomic.Uint64
	bytesRecv   atomic.Uint64

	// General-purpose session data storage.
	// Use Get/Set/Delete to access. Protected by dataMu.
	data   map[string]any
	dataMu sync.RWMutex

	// onDetach is invoked when the connection drops while the session
	// stays resumable.
	onDetach func(*Session)
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Weak session IDs are dangerous; refuse to continue.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a new session seeded from the client handshake.
func newSession(conn *websocket.Conn, hello *protocol.ClientHello, config *SessionConfig, logger *slog.Logger) *Session {
	now := time.Now()
	id := generateSessionID()
	sessionLogger := logger.With("session_id", id)

	s := &Session{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
		conn:       conn,
		owner:      reactive.NewOwner(nil),
		instances:  make(map[string]*ComponentInstance),
		events:     make(chan *protocol.Event, config.MaxEventQueue),
		renderCh:   make(chan struct{}, 1),
		dispatchCh: make(chan func(), config.MaxEventQueue),
		done:       make(chan struct{}),
		config:     config,
		logger:     sessionLogger,
	}

	s.win = window.New(
		window.WithMedia(mediaFromHello(hello)),
		window.WithLogger(sessionLogger),
	)

	// Make the window reachable from hooks run under this session's
	// owner tree.
	window.Provide(s.owner, s.win)

	return s
}

// MountRoot mounts the root component for this session and sends its
// initial HTML.
func (s *Session) MountRoot(component Component) *ComponentInstance {
	return s.Mount(component)
}

// Mount mounts a component as a new region and sends its initial HTML.
// The returned instance's HID names the element whose data-mm
// attribute the client resolves updates against.
func (s *Session) Mount(component Component) *ComponentInstance {
	inst := newComponentInstance(component, s)

	s.hidSeq++
	inst.HID = fmt.Sprintf("mm-%d", s.hidSeq)

	s.mounts = append(s.mounts, inst)
	s.instances[inst.HID] = inst

	html, ok := s.renderComponent(inst)
	if ok {
		s.sendUpdates([]protocol.Update{protocol.NewUpdate(inst.HID, html)})
	}

	s.logger.Info("mounted component",
		"hid", inst.HID,
		"queries", s.win.QueryCount())

	return inst
}

// Unmount removes a mounted component and disposes its reactive state.
// The client-side region keeps its last HTML.
func (s *Session) Unmount(inst *ComponentInstance) {
	if inst == nil {
		return
	}
	delete(s.instances, inst.HID)
	for i, m := range s.mounts {
		if m == inst {
			s.mounts = append(s.mounts[:i], s.mounts[i+1:]...)
			break
		}
	}
	inst.Dispose()
}

// MountCount returns the number of mounted components. Sessions
// restored from the persistence store start with zero mounts and need
// their root component mounted again.
func (s *Session) MountCount() int {
	return len(s.mounts)
}

// handleEvent processes a single media event from the client.
// The event is applied to the window, pending effects run, and dirty
// components re-render, all within this call. A component observing
// the window mid-render never sees a half-applied event.
func (s *Session) handleEvent(event *protocol.Event) {
	s.recvSeq.Store(event.Seq)
	s.eventCount.Add(1)
	s.LastActive = time.Now()
	if s.metrics != nil {
		s.metrics.RecordEventReceived()
	}

	start := time.Now()

	s.applyEvent(event)

	// Run effects scheduled by the media change.
	s.owner.RunPendingEffects()

	// Re-render dirty components.
	s.renderDirty()

	if s.metrics != nil {
		s.metrics.RecordEventProcessed()
		s.metrics.RecordEventLatency(time.Since(start).Microseconds())
	}
}

// applyEvent routes an event to the window.
func (s *Session) applyEvent(event *protocol.Event) {
	switch data := event.Payload.(type) {
	case *protocol.ResizeEventData:
		s.win.ApplyResize(data.Width, data.Height)

	case *protocol.OrientationEventData:
		s.win.ApplyOrientation(data.Width, data.Height)

	case *protocol.ColorSchemeEventData:
		s.win.ApplyColorScheme(data.Dark)

	case *protocol.ReducedMotionEventData:
		s.win.ApplyReducedMotion(data.Reduced)

	case *protocol.PointerEventData:
		s.win.ApplyPointer(
			pointerFromClass(data.Pointer),
			pointerFromClass(data.AnyPointer),
			data.Hover,
			data.AnyHover,
		)

	case *protocol.VisibilityEventData:
		// Visibility is not a media feature; it only gates heartbeat
		// accounting and is exposed via Hidden().
		s.hidden.Store(data.Hidden)

	case *protocol.DPREventData:
		s.win.ApplyDPR(float64(data.DPR100) / 100)

	default:
		s.logger.Debug("ignoring unknown event", "type", event.Type, "seq", event.Seq)
	}
}

// scheduleRender is called when a component marks itself dirty.
// It nudges the event loop to run a render pass; renderDirty picks up
// every dirty component, so one pending signal is enough.
func (s *Session) scheduleRender(comp *ComponentInstance) {
	s.mu.Lock()
	renderCh := s.renderCh
	s.mu.Unlock()

	select {
	case renderCh <- struct{}{}:
	default:
		// Already scheduled
	}
}

// renderDirty re-renders all dirty components and sends their updates
// in one frame.
func (s *Session) renderDirty() {
	var updates []protocol.Update
	for _, inst := range s.mounts {
		if !inst.IsDirty() {
			continue
		}
		inst.ClearDirty()

		html, ok := s.renderComponent(inst)
		if !ok {
			continue
		}
		updates = append(updates, protocol.NewUpdate(inst.HID, html))
	}

	if len(updates) > 0 {
		s.sendUpdates(updates)
	}
}

// ResyncAll re-renders every mounted component and sends the full set
// of updates. Used on resume, when the client DOM may be stale.
func (s *Session) ResyncAll() {
	var updates []protocol.Update
	for _, inst := range s.mounts {
		inst.ClearDirty()

		html, ok := s.renderComponent(inst)
		if !ok {
			continue
		}
		updates = append(updates, protocol.NewUpdate(inst.HID, html))
	}

	if len(updates) > 0 {
		s.sendUpdates(updates)
	}
}

// renderComponent renders a single component with panic recovery.
func (s *Session) renderComponent(inst *ComponentInstance) (html string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			renderErr := NewRenderError(s.ID, inst.HID, r, stack)
			s.logger.Error("render panic",
				"error", renderErr,
				"stack", string(stack))
			if s.metrics != nil {
				s.metrics.RecordRenderPanic()
			}
			s.sendErrorMessage(protocol.ErrServerError, "Internal error")
			ok = false
		}
	}()

	return inst.Render(), true
}

// sendUpdates encodes and sends HTML updates to the client.
func (s *Session) sendUpdates(updates []protocol.Update) {
	s.mu.Lock()

	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	if s.conn == nil {
		s.mu.Unlock()
		s.logger.Warn("sendUpdates: no connection available")
		return
	}

	seq := s.sendSeq.Add(1)

	frame := protocol.NewFrame(protocol.FrameUpdate, protocol.EncodeUpdates(&protocol.UpdateFrame{
		Seq:     seq,
		Updates: updates,
	}))
	frameData := frame.Encode()

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frameData); err != nil {
		s.mu.Unlock()
		s.logger.Error("write error", "error", err)
		if s.metrics != nil {
			s.metrics.RecordWriteError()
		}
		s.closeInternal()
		return
	}
	s.mu.Unlock()

	s.bytesSent.Add(uint64(len(frameData)))
	s.updateCount.Add(uint64(len(updates)))
	if s.metrics != nil {
		s.metrics.RecordUpdatesSent(len(updates), len(frameData))
		s.metrics.RecordBytesSent(len(frameData))
	}

	s.logger.Debug("sent updates",
		"seq", seq,
		"count", len(updates),
		"bytes", len(frameData))
}

// sendErrorMessage sends an error frame to the client.
func (s *Session) sendErrorMessage(code protocol.ErrorCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return
	}
	if s.conn == nil {
		s.logger.Warn("sendErrorMessage: no connection available",
			"code", code,
			"message", message)
		return
	}

	frame := protocol.NewFrame(protocol.FrameError,
		protocol.EncodeErrorMessage(protocol.NewError(code, message)))

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	s.conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}

// sendPing sends a heartbeat ping to the client.
func (s *Session) sendPing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	ct, pp := protocol.NewPing(uint64(time.Now().UnixMilli()))
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, pp))

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		s.logger.Error("ping error", "error", err)
		return err
	}

	return nil
}

// Detach is called when the connection drops while the session stays
// resumable. Reactive state survives; only the connection and its
// goroutines go away. A later Resume revives the session, and Close
// tears it down for good.
func (s *Session) Detach() {
	if s.closed.Swap(true) {
		// Explicitly closed, nothing to preserve.
		return
	}
	if s.detached.Swap(true) {
		return
	}
	s.DetachedAt = time.Now()
	s.started.Store(false)

	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()

	s.logger.Info("session detached",
		"events", s.eventCount.Load(),
		"updates", s.updateCount.Load())

	if s.onDetach != nil {
		s.onDetach(s)
	}
}

// IsDetached returns whether the session lost its connection and is
// waiting for a resume.
func (s *Session) IsDetached() bool {
	return s.detached.Load()
}

// setOnDetach installs the detach callback. Must be set before Start.
func (s *Session) setOnDetach(fn func(*Session)) {
	s.onDetach = fn
}

// Close gracefully closes the session.
// Unlike Detach, this is final: reactive state is disposed and the
// session cannot be resumed.
func (s *Session) Close() {
	s.closeInternal()
}

// closeInternal performs the actual close operations.
func (s *Session) closeInternal() {
	s.closed.Store(true)
	if s.disposed.Swap(true) {
		// Already disposed
		return
	}
	s.started.Store(false)

	// Signal shutdown to goroutines
	s.mu.Lock()
	select {
	case <-s.done:
		// Already closed
	default:
		close(s.done)
	}
	s.mu.Unlock()

	// Dispose mounted components, then the session owner. Disposing
	// the owner tears down effects and subscriptions.
	for _, inst := range s.mounts {
		inst.Dispose()
	}
	s.mounts = nil
	s.instances = nil

	if s.owner != nil {
		s.owner.Dispose()
	}

	// Send close message and close WebSocket
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}

	s.logger.Info("session closed",
		"events", s.eventCount.Load(),
		"updates", s.updateCount.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load())
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// IsDisposed returns whether the session state has been torn down.
// Detached sessions are closed but not disposed; only disposed
// sessions are beyond resuming.
func (s *Session) IsDisposed() bool {
	return s.disposed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Events returns the events channel for the event loop.
func (s *Session) Events() <-chan *protocol.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// QueueEvent queues an event for processing.
func (s *Session) QueueEvent(event *protocol.Event) error {
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()

	select {
	case events <- event:
		return nil
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
		if s.metrics != nil {
			s.metrics.RecordEventDropped()
		}
		return ErrEventQueueFull
	}
}

// Dispatch queues a function to run on the session's event loop.
// This is safe to call from any goroutine and is the correct way to
// update signals from asynchronous operations. After the function
// completes, pending effects run and dirty components re-render.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	dispatchCh, done := s.dispatchCh, s.done
	s.mu.Unlock()

	select {
	case dispatchCh <- fn:
	case <-done:
		// Session is closing, discard
	default:
		s.logger.Warn("dispatch queue full, discarding callback")
	}
}

// UpdateLastActive updates the last activity timestamp.
func (s *Session) UpdateLastActive() {
	s.LastActive = time.Now()
}

// Hidden reports whether the client page is currently hidden.
func (s *Session) Hidden() bool {
	return s.hidden.Load()
}

// Window returns the session's media environment.
func (s *Session) Window() *window.Window {
	return s.win
}

// Owner returns the reactive owner for this session.
func (s *Session) Owner() *reactive.Owner {
	return s.owner
}

// Conn returns the underlying WebSocket connection.
// Use with caution; prefer session methods when possible.
func (s *Session) Conn() *websocket.Conn {
	return s.conn
}

// Config returns the session configuration.
func (s *Session) Config() *SessionConfig {
	return s.config
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// BytesReceived adds to the bytes received counter.
func (s *Session) BytesReceived(n int) {
	s.bytesRecv.Add(uint64(n))
	if s.metrics != nil {
		s.metrics.RecordBytesReceived(n)
	}
}

// setMetrics wires the server's metrics collector into the session.
func (s *Session) setMetrics(m *MetricsCollector) {
	s.metrics = m
}

// =============================================================================
// Session State API
// =============================================================================

// Get retrieves a value from session data.
// Returns nil if key doesn't exist.
// This is thread-safe and can be called from any goroutine.
func (s *Session) Get(key string) any {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.data[key]
}

// Set stores a value in session data.
// Value must be safe to access concurrently (immutable or properly
// synchronized) and should be JSON-serializable so it survives session
// persistence. With DebugMode on, Set panics on obviously
// unserializable types like func and chan.
func (s *Session) Set(key string, value any) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	if s.data == nil {
		s.data = make(map[string]any)
	}

	if DebugMode && value != nil {
		checkSerializable(key, value)
	}

	s.data[key] = value
}

// SetString stores a string value (always serializable).
func (s *Session) SetString(key string, value string) {
	s.Set(key, value)
}

// SetInt stores an int value (always serializable).
func (s *Session) SetInt(key string, value int) {
	s.Set(key, value)
}

// Delete removes a key from session data.
func (s *Session) Delete(key string) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	delete(s.data, key)
}

// GetString is a convenience method that returns value as string.
// Returns empty string if key doesn't exist or value is not a string.
func (s *Session) GetString(key string) string {
	if v, ok := s.Get(key).(string); ok {
		return v
	}
	return ""
}

// GetInt is a convenience method that returns value as int.
// Returns 0 if key doesn't exist or value is not numeric.
// Handles int, int64, and float64 conversions.
func (s *Session) GetInt(key string) int {
	switch v := s.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Has returns whether a key exists in session data.
func (s *Session) Has(key string) bool {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// GetAllData returns a copy of all session data for serialization.
// Returns nil if no data has been set.
func (s *Session) GetAllData() map[string]any {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()

	if s.data == nil {
		return nil
	}

	dataCopy := make(map[string]any, len(s.data))
	for k, v := range s.data {
		dataCopy[k] = v
	}
	return dataCopy
}

// RestoreData restores session data from serialized values.
// Values are merged into existing data (doesn't clear existing keys).
func (s *Session) RestoreData(values map[string]any) {
	if values == nil {
		return
	}

	s.dataMu.Lock()
	defer s.dataMu.Unlock()

	if s.data == nil {
		s.data = make(map[string]any)
	}
	for k, v := range values {
		s.data[k] = v
	}
}

// =============================================================================
// Session Serialization
// =============================================================================

// Serialize converts the session state to bytes for persistence.
// This is called on disconnect, during graceful shutdown and on
// periodic saves.
//
// The serialized state includes:
//   - Session ID and timestamps
//   - The last media state reported by the client
//   - Registered media query expressions, so the shared lists can be
//     rebuilt on resume
//   - All session data values (from Get/Set)
func (s *Session) Serialize() ([]byte, error) {
	var values map[string]json.RawMessage
	if data := s.GetAllData(); data != nil {
		values = make(map[string]json.RawMessage, len(data))
		for k, v := range data {
			b, err := json.Marshal(v)
			if err != nil {
				// Skip unserializable values
				continue
			}
			values[k] = b
		}
	}

	ss := &session.SerializableSession{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive,
		Media:      mediaStateOf(s.win.Media()),
		Queries:    s.win.Queries(),
		Values:     values,
	}

	return session.Serialize(ss)
}

// Stats returns session statistics.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		LastActive:  s.LastActive,
		EventCount:  s.eventCount.Load(),
		UpdateCount: s.updateCount.Load(),
		BytesSent:   s.bytesSent.Load(),
		BytesRecv:   s.bytesRecv.Load(),
		QueryCount:  s.win.QueryCount(),
		MountCount:  len(s.mounts),
	}
}

// SessionStats contains session statistics.
type SessionStats struct {
	ID          string
	CreatedAt   time.Time
	LastActive  time.Time
	EventCount  uint64
	UpdateCount uint64
	BytesSent   uint64
	BytesRecv   uint64
	QueryCount  int
	MountCount  int
}

// =============================================================================
// Test Helpers
// =============================================================================

// NewMockSession creates a session without a WebSocket connection for
// testing. The session has all fields initialized except conn.
func NewMockSession() *Session {
	s := &Session{
		ID:         "test-session-id",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
		owner:      reactive.NewOwner(nil),
		instances:  make(map[string]*ComponentInstance),
		events:     make(chan *protocol.Event, 256),
		renderCh:   make(chan struct{}, 1),
		dispatchCh: make(chan func(), 256),
		done:       make(chan struct{}),
		config:     DefaultSessionConfig(),
		logger:     slog.Default().With("session_id", "test-session-id"),
		data:       make(map[string]any),
	}
	s.win = window.New(window.WithLogger(s.logger))
	window.Provide(s.owner, s.win)
	return s
}
