package protocol

// EventType identifies the type of client environment event.
type EventType uint8

// Event type constants.
const (
	EventResize        EventType = 0x01 // Viewport resized
	EventOrientation   EventType = 0x02 // Device rotated
	EventColorScheme   EventType = 0x03 // prefers-color-scheme changed
	EventReducedMotion EventType = 0x04 // prefers-reduced-motion changed
	EventPointer       EventType = 0x05 // Pointer capabilities changed
	EventVisibility    EventType = 0x06 // Page visibility changed
	EventDPR           EventType = 0x07 // Device pixel ratio changed
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventResize:
		return "Resize"
	case EventOrientation:
		return "Orientation"
	case EventColorScheme:
		return "ColorScheme"
	case EventReducedMotion:
		return "ReducedMotion"
	case EventPointer:
		return "Pointer"
	case EventVisibility:
		return "Visibility"
	case EventDPR:
		return "DPR"
	default:
		return "Unknown"
	}
}

// PointerClass describes the accuracy of a pointing device.
type PointerClass uint8

const (
	PointerClassNone   PointerClass = 0x00 // No pointing device
	PointerClassCoarse PointerClass = 0x01 // Touch, Wii-style remote
	PointerClassFine   PointerClass = 0x02 // Mouse, trackpad, stylus
)

// String returns the string representation of the pointer class.
func (pc PointerClass) String() string {
	switch pc {
	case PointerClassNone:
		return "none"
	case PointerClassCoarse:
		return "coarse"
	case PointerClassFine:
		return "fine"
	default:
		return "unknown"
	}
}

// Event payload types.

// ResizeEventData contains viewport resize data.
type ResizeEventData struct {
	Width  int
	Height int
}

// OrientationEventData contains device orientation data.
// The client reports the post-rotation viewport alongside the angle so
// the server never has to guess which dimension flipped.
type OrientationEventData struct {
	Angle  int16 // 0, 90, 180, 270
	Width  int
	Height int
}

// ColorSchemeEventData contains color scheme preference data.
type ColorSchemeEventData struct {
	Dark bool
}

// ReducedMotionEventData contains motion preference data.
type ReducedMotionEventData struct {
	Reduced bool
}

// PointerEventData contains pointer capability data.
// Pointer/Hover describe the primary input; AnyPointer/AnyHover describe
// the union of all attached inputs.
type PointerEventData struct {
	Pointer    PointerClass
	AnyPointer PointerClass
	Hover      bool
	AnyHover   bool
}

// VisibilityEventData contains page visibility data.
type VisibilityEventData struct {
	Hidden bool
}

// DPREventData contains device pixel ratio data.
type DPREventData struct {
	DPR100 uint16 // Device pixel ratio × 100
}

// Event represents a decoded environment event from the client.
type Event struct {
	Seq     uint64
	Type    EventType
	Payload any // Type-specific payload (nil for unknown types)
}

// EncodeEvent encodes an event to bytes.
func EncodeEvent(e *Event) []byte {
	enc := NewEncoder()
	EncodeEventTo(enc, e)
	return enc.Bytes()
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(enc *Encoder, e *Event) {
	enc.WriteUvarint(e.Seq)
	enc.WriteByte(byte(e.Type))

	switch e.Type {
	case EventResize:
		data, ok := e.Payload.(*ResizeEventData)
		if !ok || data == nil {
			enc.WriteSvarint(0)
			enc.WriteSvarint(0)
		} else {
			enc.WriteSvarint(int64(data.Width))
			enc.WriteSvarint(int64(data.Height))
		}

	case EventOrientation:
		data, ok := e.Payload.(*OrientationEventData)
		if !ok || data == nil {
			enc.WriteSvarint(0)
			enc.WriteSvarint(0)
			enc.WriteSvarint(0)
		} else {
			enc.WriteSvarint(int64(data.Angle))
			enc.WriteSvarint(int64(data.Width))
			enc.WriteSvarint(int64(data.Height))
		}

	case EventColorScheme:
		data, ok := e.Payload.(*ColorSchemeEventData)
		if !ok || data == nil {
			enc.WriteBool(false)
		} else {
			enc.WriteBool(data.Dark)
		}

	case EventReducedMotion:
		data, ok := e.Payload.(*ReducedMotionEventData)
		if !ok || data == nil {
			enc.WriteBool(false)
		} else {
			enc.WriteBool(data.Reduced)
		}

	case EventPointer:
		data, ok := e.Payload.(*PointerEventData)
		if !ok || data == nil {
			enc.WriteByte(0)
			enc.WriteByte(0)
			enc.WriteBool(false)
			enc.WriteBool(false)
		} else {
			enc.WriteByte(byte(data.Pointer))
			enc.WriteByte(byte(data.AnyPointer))
			enc.WriteBool(data.Hover)
			enc.WriteBool(data.AnyHover)
		}

	case EventVisibility:
		data, ok := e.Payload.(*VisibilityEventData)
		if !ok || data == nil {
			enc.WriteBool(false)
		} else {
			enc.WriteBool(data.Hidden)
		}

	case EventDPR:
		data, ok := e.Payload.(*DPREventData)
		if !ok || data == nil {
			enc.WriteUint16(100)
		} else {
			enc.WriteUint16(data.DPR100)
		}
	}
}

// DecodeEvent decodes a single event from bytes.
func DecodeEvent(data []byte) (*Event, error) {
	d := NewDecoder(data)
	return DecodeEventFrom(d)
}

// DecodeEventFrom decodes an event from a decoder. Frames may batch
// several events back to back; call in a loop until d.EOF().
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	typeByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	eventType := EventType(typeByte)

	e := &Event{
		Seq:  seq,
		Type: eventType,
	}

	switch eventType {
	case EventResize:
		w, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		h, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		e.Payload = &ResizeEventData{
			Width:  int(w),
			Height: int(h),
		}

	case EventOrientation:
		angle, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		w, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		h, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		e.Payload = &OrientationEventData{
			Angle:  int16(angle),
			Width:  int(w),
			Height: int(h),
		}

	case EventColorScheme:
		dark, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		e.Payload = &ColorSchemeEventData{Dark: dark}

	case EventReducedMotion:
		reduced, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		e.Payload = &ReducedMotionEventData{Reduced: reduced}

	case EventPointer:
		pointer, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		anyPointer, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		hover, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		anyHover, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		e.Payload = &PointerEventData{
			Pointer:    PointerClass(pointer),
			AnyPointer: PointerClass(anyPointer),
			Hover:      hover,
			AnyHover:   anyHover,
		}

	case EventVisibility:
		hidden, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		e.Payload = &VisibilityEventData{Hidden: hidden}

	case EventDPR:
		dpr, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		e.Payload = &DPREventData{DPR100: dpr}

	default:
		// Unknown event type. Payload length is unknowable here, so the
		// caller must treat the rest of the frame as consumed.
	}

	return e, nil
}
