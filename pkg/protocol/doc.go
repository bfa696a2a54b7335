// Package protocol implements the binary wire protocol between the thin
// browser client and the session server.
//
// The client's only job is to mirror its media environment to the server
// and apply the HTML fragment updates that come back. Environment events
// flow from client to server; fragment updates flow from server to client
// over a WebSocket connection.
//
// # Design Goals
//
//   - Minimal size: Typical event < 8 bytes, typical header overhead 4 bytes
//   - Fast encoding/decoding: No reflection, direct byte manipulation
//   - Reliable delivery: Sequence numbers, acknowledgments
//   - Reconnection: Session resume via the handshake
//   - Extensible: Version negotiation, reserved opcodes
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): Connection setup
//   - FrameEvent (0x01): Client → Server environment events
//   - FrameUpdate (0x02): Server → Client fragment updates
//   - FrameControl (0x03): Control messages (ping, close)
//   - FrameAck (0x04): Acknowledgment
//   - FrameError (0x05): Error message
//
// # Encoding
//
// The protocol uses several encoding strategies:
//
//   - Varint: Compact encoding for small integers (protobuf-style)
//   - ZigZag: Signed integers encoded as unsigned varints
//   - Length-prefixed: Strings prefixed with varint length
//   - Big-endian: Fixed-width integers (uint16, uint32, uint64)
//
// # Events
//
// Events describe changes to the client's media environment: viewport
// resize, device rotation, color scheme or motion preference flips,
// pointer capability changes, page visibility. Each event carries a
// sequence number, a type, and a type-specific payload. A frame may
// batch several events when the client coalesces a burst (FlagCoalesced).
//
// Example resize event encoding:
//
//	[Seq: varint][Type: 0x01][Width: svarint][Height: svarint]
//	Total: ~6 bytes for 1024×768
//
// # Updates
//
// Updates replace the rendered HTML of component instances whose
// media-query subscriptions changed. Each update names the fragment by
// hydration ID (HID) and carries the new HTML.
//
// # Handshake
//
// Connection establishment uses ClientHello and ServerHello messages.
// The hello carries the initial media environment (viewport, device
// pixel ratio, discrete feature flags) so the server renders correctly
// before the first event arrives:
//
//	Client                          Server
//	  │                                │
//	  │──── ClientHello ─────────────>│
//	  │     (version, session, media) │
//	  │                                │
//	  │<──── ServerHello ─────────────│
//	  │     (status, session, time)   │
//	  │                                │
//
// A client reconnecting with its previous session ID inside the resume
// window gets HandshakeResumed and keeps its query registry.
//
// # Control Messages
//
//   - Ping/Pong: Heartbeat for connection health
//   - Close: Graceful session termination with a reason code
//
// # Usage Example
//
//	// Encode an event
//	event := &Event{
//	    Seq:     1,
//	    Type:    EventResize,
//	    Payload: &ResizeEventData{Width: 500, Height: 800},
//	}
//	data := EncodeEvent(event)
//
//	// Decode an event
//	decoded, err := DecodeEvent(data)
//	if err != nil {
//	    // Handle error
//	}
//
//	// Encode updates
//	uf := &UpdateFrame{
//	    Seq: 1,
//	    Updates: []Update{
//	        NewUpdate("mm-1", "<div>phone layout</div>"),
//	    },
//	}
//	data = EncodeUpdates(uf)
//
// # File Structure
//
// The package is organized as follows:
//
//   - codec.go: Binary encoder and decoder
//   - frame.go: Frame types and transport
//   - event.go: Environment event types and encoding
//   - update.go: Fragment updates and acknowledgments
//   - handshake.go: Handshake protocol
//   - control.go: Control messages
//   - error.go: Error messages
package protocol
