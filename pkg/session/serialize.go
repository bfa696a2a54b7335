package session

import (
	"encoding/json"
	"time"
)

// MediaState is the JSON form of a session's media mirror. Fields use
// plain types so the store layer stays independent of the query
// compiler; the server converts to and from its own media type.
type MediaState struct {
	// Width and Height are the viewport dimensions in CSS pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// DPR is the device pixel ratio.
	DPR float64 `json:"dpr,omitempty"`

	// Dark reports a dark color scheme preference.
	Dark bool `json:"dark,omitempty"`

	// ReducedMotion reports a reduced motion preference.
	ReducedMotion bool `json:"reduced_motion,omitempty"`

	// Hover and AnyHover report hover capability of the primary and
	// any attached input.
	Hover    bool `json:"hover,omitempty"`
	AnyHover bool `json:"any_hover,omitempty"`

	// Pointer and AnyPointer are pointing device accuracies:
	// "none", "coarse" or "fine".
	Pointer    string `json:"pointer,omitempty"`
	AnyPointer string `json:"any_pointer,omitempty"`
}

// SerializableSession is the persisted representation of a detached
// session. It holds everything a server needs to rebuild the session's
// Window on resume: the last known media state and the query
// expressions components had registered.
type SerializableSession struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// LastActive is when the session last saw client activity.
	LastActive time.Time `json:"last_active"`

	// Media is the last media state reported by the client.
	Media MediaState `json:"media"`

	// Queries are the raw media query expressions registered on the
	// session's window. Re-registering them on resume restores the
	// shared query lists without waiting for components to re-render.
	Queries []string `json:"queries,omitempty"`

	// Values contains application data stored via Session.Set.
	Values map[string]json.RawMessage `json:"values,omitempty"`

	// Version is the serialization format version.
	Version int `json:"version"`
}

// CurrentSerializationVersion is the format version written by
// Serialize. Increment on breaking changes.
const CurrentSerializationVersion = 1

// Serialize converts a SerializableSession to bytes.
func Serialize(ss *SerializableSession) ([]byte, error) {
	ss.Version = CurrentSerializationVersion
	return json.Marshal(ss)
}

// Deserialize converts bytes back to a SerializableSession.
func Deserialize(data []byte) (*SerializableSession, error) {
	var ss SerializableSession
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, err
	}
	return &ss, nil
}
