package protocol

// HandshakeStatus represents the result of a handshake.
type HandshakeStatus uint8

const (
	HandshakeOK              HandshakeStatus = 0x00 // New session created
	HandshakeResumed         HandshakeStatus = 0x01 // Existing session resumed
	HandshakeVersionMismatch HandshakeStatus = 0x02
	HandshakeInvalidFormat   HandshakeStatus = 0x03 // Malformed handshake message
	HandshakeServerBusy      HandshakeStatus = 0x04
	HandshakeInternalError   HandshakeStatus = 0x05 // Server error
)

// String returns the string representation of the handshake status.
func (hs HandshakeStatus) String() string {
	switch hs {
	case HandshakeOK:
		return "OK"
	case HandshakeResumed:
		return "Resumed"
	case HandshakeVersionMismatch:
		return "VersionMismatch"
	case HandshakeInvalidFormat:
		return "InvalidFormat"
	case HandshakeServerBusy:
		return "ServerBusy"
	case HandshakeInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// MediaFlags is a bitfield describing the client's media environment at
// connect time. Continuous features (viewport, device pixel ratio) travel
// as dedicated hello fields; the discrete features fit in one byte.
type MediaFlags uint8

const (
	MediaDark             MediaFlags = 0x01 // prefers-color-scheme: dark
	MediaReducedMotion    MediaFlags = 0x02 // prefers-reduced-motion: reduce
	MediaHover            MediaFlags = 0x04 // hover: hover
	MediaAnyHover         MediaFlags = 0x08 // any-hover: hover
	MediaPointerCoarse    MediaFlags = 0x10 // pointer: coarse
	MediaPointerFine      MediaFlags = 0x20 // pointer: fine
	MediaAnyPointerCoarse MediaFlags = 0x40 // any-pointer: coarse
	MediaAnyPointerFine   MediaFlags = 0x80 // any-pointer: fine
)

// Has returns true if the flags contain the specified flag.
func (mf MediaFlags) Has(flag MediaFlags) bool {
	return mf&flag != 0
}

// ClientHello is sent by the client after the WebSocket connection is
// established. It carries everything the server needs to seed the
// session's media environment before the first render.
type ClientHello struct {
	Version   ProtocolVersion // Protocol version
	SessionID string          // Existing session ID (empty if new)
	LastSeq   uint32          // Last seen update sequence number
	ViewportW uint16          // Viewport width in CSS pixels
	ViewportH uint16          // Viewport height in CSS pixels
	DPR100    uint16          // Device pixel ratio × 100 (225 = 2.25)
	TZOffset  int16           // Timezone offset in minutes from UTC
	Media     MediaFlags      // Discrete media features
}

// ServerHello is the server's response to ClientHello.
type ServerHello struct {
	Status     HandshakeStatus // Handshake result
	SessionID  string          // Session ID (new or existing)
	NextSeq    uint32          // Next expected sequence number
	ServerTime uint64          // Server time in Unix milliseconds
	Flags      uint16          // Server capability flags
}

// Server capability flags.
const (
	ServerFlagCompression  uint16 = 0x0001 // Server supports compressed frames
	ServerFlagBatchUpdates uint16 = 0x0002 // Server batches updates per frame
)

// EncodeClientHello encodes a ClientHello to bytes.
func EncodeClientHello(ch *ClientHello) []byte {
	e := NewEncoder()
	EncodeClientHelloTo(e, ch)
	return e.Bytes()
}

// EncodeClientHelloTo encodes a ClientHello using the provided encoder.
func EncodeClientHelloTo(e *Encoder, ch *ClientHello) {
	e.WriteByte(ch.Version.Major)
	e.WriteByte(ch.Version.Minor)
	e.WriteString(ch.SessionID)
	e.WriteUint32(ch.LastSeq)
	e.WriteUint16(ch.ViewportW)
	e.WriteUint16(ch.ViewportH)
	e.WriteUint16(ch.DPR100)
	e.WriteInt16(ch.TZOffset)
	e.WriteByte(byte(ch.Media))
}

// DecodeClientHello decodes a ClientHello from bytes.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	d := NewDecoder(data)
	return DecodeClientHelloFrom(d)
}

// DecodeClientHelloFrom decodes a ClientHello from a decoder.
func DecodeClientHelloFrom(d *Decoder) (*ClientHello, error) {
	ch := &ClientHello{}
	var err error

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ch.Version = ProtocolVersion{Major: major, Minor: minor}

	ch.SessionID, err = d.ReadString()
	if err != nil {
		return nil, err
	}

	ch.LastSeq, err = d.ReadUint32()
	if err != nil {
		return nil, err
	}

	ch.ViewportW, err = d.ReadUint16()
	if err != nil {
		return nil, err
	}

	ch.ViewportH, err = d.ReadUint16()
	if err != nil {
		return nil, err
	}

	ch.DPR100, err = d.ReadUint16()
	if err != nil {
		return nil, err
	}

	ch.TZOffset, err = d.ReadInt16()
	if err != nil {
		return nil, err
	}

	media, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ch.Media = MediaFlags(media)

	return ch, nil
}

// EncodeServerHello encodes a ServerHello to bytes.
func EncodeServerHello(sh *ServerHello) []byte {
	e := NewEncoder()
	EncodeServerHelloTo(e, sh)
	return e.Bytes()
}

// EncodeServerHelloTo encodes a ServerHello using the provided encoder.
func EncodeServerHelloTo(e *Encoder, sh *ServerHello) {
	e.WriteByte(byte(sh.Status))
	e.WriteString(sh.SessionID)
	e.WriteUint32(sh.NextSeq)
	e.WriteUint64(sh.ServerTime)
	e.WriteUint16(sh.Flags)
}

// DecodeServerHello decodes a ServerHello from bytes.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	d := NewDecoder(data)
	return DecodeServerHelloFrom(d)
}

// DecodeServerHelloFrom decodes a ServerHello from a decoder.
func DecodeServerHelloFrom(d *Decoder) (*ServerHello, error) {
	sh := &ServerHello{}
	var err error

	status, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	sh.Status = HandshakeStatus(status)

	sh.SessionID, err = d.ReadString()
	if err != nil {
		return nil, err
	}

	sh.NextSeq, err = d.ReadUint32()
	if err != nil {
		return nil, err
	}

	sh.ServerTime, err = d.ReadUint64()
	if err != nil {
		return nil, err
	}

	sh.Flags, err = d.ReadUint16()
	if err != nil {
		return nil, err
	}

	return sh, nil
}

// NewClientHello creates a new ClientHello with the current version and
// the given viewport.
func NewClientHello(viewportW, viewportH uint16) *ClientHello {
	return &ClientHello{
		Version:   CurrentVersion,
		ViewportW: viewportW,
		ViewportH: viewportH,
		DPR100:    100,
	}
}

// NewServerHello creates a successful ServerHello for a new session.
func NewServerHello(sessionID string, nextSeq uint32, serverTime uint64) *ServerHello {
	return &ServerHello{
		Status:     HandshakeOK,
		SessionID:  sessionID,
		NextSeq:    nextSeq,
		ServerTime: serverTime,
	}
}

// NewServerHelloResumed creates a ServerHello for a resumed session.
func NewServerHelloResumed(sessionID string, nextSeq uint32, serverTime uint64) *ServerHello {
	return &ServerHello{
		Status:     HandshakeResumed,
		SessionID:  sessionID,
		NextSeq:    nextSeq,
		ServerTime: serverTime,
	}
}

// NewServerHelloError creates a ServerHello with an error status.
func NewServerHelloError(status HandshakeStatus) *ServerHello {
	return &ServerHello{
		Status: status,
	}
}
