package server

import (
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
)

// ReadLoop reads frames from the WebSocket until the connection drops.
// Runs in its own goroutine. On exit the session detaches rather than
// closes, so the client can resume within the resume window.
func (s *Session) ReadLoop() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	// Detach only if this connection is still current. A resume may
	// have swapped in a new connection while this loop was blocked.
	defer func() {
		s.mu.Lock()
		current := s.conn == conn
		s.mu.Unlock()
		if current {
			s.Detach()
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				if s.metrics != nil {
					s.metrics.RecordReadError()
				}
			} else {
				s.logger.Debug("connection closed", "error", err)
			}
			return
		}

		s.UpdateLastActive()
		s.BytesReceived(len(msg))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("invalid frame", "error", err)
			s.sendErrorMessage(protocol.ErrInvalidFrame, "Malformed frame")
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame)
		case protocol.FrameControl:
			s.handleControlFrame(frame)
		case protocol.FrameAck:
			s.handleAckFrame(frame)
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

// handleEventFrame decodes and queues the events in a frame.
// A frame may coalesce several events back to back.
func (s *Session) handleEventFrame(frame *protocol.Frame) {
	d := protocol.NewDecoder(frame.Payload)

	for !d.EOF() {
		event, err := protocol.DecodeEventFrom(d)
		if err != nil {
			s.logger.Warn("invalid event", "error", err)
			s.sendErrorMessage(protocol.ErrInvalidEvent, "Malformed event")
			return
		}

		if event.Payload == nil {
			// Unknown event type; the rest of the frame is unreadable.
			s.logger.Debug("unknown event type", "type", event.Type)
			return
		}

		if err := s.QueueEvent(event); err != nil {
			s.sendErrorMessage(protocol.ErrRateLimited, "Event queue full")
		}
	}
}

// handleControlFrame handles ping/pong/close control messages.
func (s *Session) handleControlFrame(frame *protocol.Frame) {
	ct, payload, err := protocol.DecodeControl(frame.Payload)
	if err != nil {
		s.logger.Warn("invalid control frame", "error", err)
		return
	}

	switch ct {
	case protocol.ControlPing:
		if pp, ok := payload.(*protocol.PingPong); ok {
			s.sendPong(pp.Timestamp)
		}
	case protocol.ControlPong:
		s.logger.Debug("pong received")
	case protocol.ControlClose:
		if cm, ok := payload.(*protocol.CloseMessage); ok {
			s.logger.Info("client requested close",
				"reason", cm.Reason,
				"message", cm.Message)
		}
		s.Close()
	}
}

// handleAckFrame records the client's update acknowledgement.
func (s *Session) handleAckFrame(frame *protocol.Frame) {
	ack, err := protocol.DecodeAck(frame.Payload)
	if err != nil {
		s.logger.Warn("invalid ack frame", "error", err)
		return
	}
	s.ackSeq.Store(ack.LastSeq)
}

// sendPong answers a client ping, echoing its timestamp.
func (s *Session) sendPong(timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() || s.conn == nil {
		return
	}

	ct, pp := protocol.NewPong(timestamp)
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, pp))

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		s.logger.Error("pong error", "error", err)
	}
}

// WriteLoop sends heartbeat pings at the configured interval.
// Runs in its own goroutine. The done channel is captured at entry so
// a resume, which rebuilds the channels, never races with this loop.
func (s *Session) WriteLoop() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendPing(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// EventLoop processes incoming events, dispatched callbacks and render
// requests. All signal writes for this session happen on this
// goroutine, which is what makes handler code single-threaded.
func (s *Session) EventLoop() {
	s.mu.Lock()
	events, dispatchCh, renderCh, done := s.events, s.dispatchCh, s.renderCh, s.done
	s.mu.Unlock()

	for {
		select {
		case event := <-events:
			s.handleEvent(event)

		case fn := <-dispatchCh:
			s.executeDispatch(fn)

		case <-renderCh:
			s.renderDirty()

		case <-done:
			return
		}
	}
}

// executeDispatch runs a dispatched callback with panic recovery,
// then runs pending effects and re-renders dirty components.
func (s *Session) executeDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			s.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(stack))
		}
	}()

	fn()
	s.owner.RunPendingEffects()
	s.renderDirty()
}

// Start launches the session's goroutines.
func (s *Session) Start() {
	s.started.Store(true)
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}

// Resume revives a detached session on a fresh connection.
// Reactive state survived the detach; only the connection plumbing is
// replaced. The caller is responsible for restarting the goroutines
// when NeedsRestart reports true.
func (s *Session) Resume(conn *websocket.Conn, lastSeq uint64) {
	s.mu.Lock()

	// Drop the dead connection if it is somehow still around.
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	s.closed.Store(false)
	s.detached.Store(false)
	s.DetachedAt = time.Time{}
	s.LastActive = time.Now()

	// Detach closed the channels' consumers; rebuild the plumbing so
	// the restarted goroutines get fresh signals.
	select {
	case <-s.done:
		s.done = make(chan struct{})
		s.events = make(chan *protocol.Event, s.config.MaxEventQueue)
		s.renderCh = make(chan struct{}, 1)
		s.dispatchCh = make(chan func(), s.config.MaxEventQueue)
	default:
	}

	// Updates restart from zero; the resume path resends full HTML.
	s.sendSeq.Store(0)
	s.recvSeq.Store(lastSeq)

	s.mu.Unlock()

	s.logger.Info("session resumed", "last_seq", lastSeq)
}

// NeedsRestart reports whether the session goroutines are not running
// and Start must be called after a Resume. True both for detached
// sessions (their goroutines exited) and for sessions restored from
// the persistence store (never started).
func (s *Session) NeedsRestart() bool {
	return !s.started.Load()
}

// SendClose notifies the client that the server is closing the session.
func (s *Session) SendClose(reason protocol.CloseReason, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	ct, cm := protocol.NewClose(reason, message)
	frame := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, cm))

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
}
