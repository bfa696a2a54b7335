package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for common session and server error conditions.
var (
	// ErrSessionClosed is returned when an operation is attempted on a closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("server: session not found")

	// ErrEventQueueFull is returned when the event queue is full and an event is dropped.
	ErrEventQueueFull = errors.New("server: event queue full")

	// ErrInvalidHandshake is returned when the WebSocket handshake fails.
	ErrInvalidHandshake = errors.New("server: invalid handshake")

	// ErrMaxSessionsReached is returned when the maximum number of sessions is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrTooManySessionsFromIP is returned when a client IP exceeds its session limit.
	ErrTooManySessionsFromIP = errors.New("server: too many sessions from this IP")

	// ErrSessionExpired is returned when a session has expired due to inactivity.
	ErrSessionExpired = errors.New("server: session expired")

	// ErrConnectionClosed is returned when the WebSocket connection is closed.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrNoConnection is returned when attempting to send on a nil connection.
	ErrNoConnection = errors.New("server: no connection")

	// ErrNoRootComponent is returned when a session is started without a mounted component.
	ErrNoRootComponent = errors.New("server: no root component")
)

// SessionError wraps an error with session context for debugging.
type SessionError struct {
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}

// RenderError wraps a panic that occurred while rendering a component.
type RenderError struct {
	SessionID string
	HID       string
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *RenderError) Error() string {
	return fmt.Sprintf("server: render panic in session %s, region %s: %v",
		e.SessionID, e.HID, e.Panic)
}

// NewRenderError creates a new RenderError.
func NewRenderError(sessionID, hid string, panicVal any, stack []byte) *RenderError {
	return &RenderError{
		SessionID: sessionID,
		HID:       hid,
		Panic:     panicVal,
		Stack:     stack,
	}
}

// ProtocolError represents an error in the binary protocol.
type ProtocolError struct {
	SessionID string
	Op        string
	Message   string
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server: protocol error in session %s: %s: %s",
		e.SessionID, e.Op, e.Message)
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(sessionID, op, message string) *ProtocolError {
	return &ProtocolError{
		SessionID: sessionID,
		Op:        op,
		Message:   message,
	}
}
