package session

import (
	"context"
	"time"
)

// SessionStore is the persistence contract for detached sessions.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Save stores serialized session state, overwriting any previous
	// state for the ID. The session becomes unloadable after expiresAt.
	Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error

	// Load returns the serialized state for a session.
	// Returns (nil, nil) if the session does not exist or has expired.
	Load(ctx context.Context, sessionID string) ([]byte, error)

	// Delete removes a session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, sessionID string) error

	// Touch extends a session's expiration without rewriting its data.
	// Touching an absent session is not an error.
	Touch(ctx context.Context, sessionID string, expiresAt time.Time) error

	// SaveAll stores a batch of sessions, atomically where the backend
	// allows. Used on graceful shutdown.
	SaveAll(ctx context.Context, sessions map[string]SessionData) error

	// Close releases store resources. Further operations return
	// ErrStoreClosed.
	Close() error
}

// SessionData pairs serialized state with its expiration for SaveAll.
type SessionData struct {
	// Data is the serialized session state.
	Data []byte

	// ExpiresAt is when the session should expire.
	ExpiresAt time.Time
}

// SessionNotFoundError reports a lookup for a session the store does
// not hold. Load itself returns (nil, nil) for missing sessions; this
// type exists for callers that need an explicit error.
type SessionNotFoundError struct {
	SessionID string
}

func (e SessionNotFoundError) Error() string {
	return "session not found: " + e.SessionID
}

// ErrStoreClosed reports an operation on a closed store.
type ErrStoreClosed struct{}

func (e ErrStoreClosed) Error() string {
	return "session store is closed"
}
