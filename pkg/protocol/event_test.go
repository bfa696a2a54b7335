package protocol

import (
	"testing"
)

func TestEventEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
	}{
		{
			name: "resize",
			event: &Event{
				Seq:     1,
				Type:    EventResize,
				Payload: &ResizeEventData{Width: 1024, Height: 768},
			},
		},
		{
			name: "resize_phone",
			event: &Event{
				Seq:     2,
				Type:    EventResize,
				Payload: &ResizeEventData{Width: 390, Height: 844},
			},
		},
		{
			name: "orientation",
			event: &Event{
				Seq:     3,
				Type:    EventOrientation,
				Payload: &OrientationEventData{Angle: 90, Width: 844, Height: 390},
			},
		},
		{
			name: "orientation_reverse",
			event: &Event{
				Seq:     4,
				Type:    EventOrientation,
				Payload: &OrientationEventData{Angle: 270, Width: 844, Height: 390},
			},
		},
		{
			name: "color_scheme_dark",
			event: &Event{
				Seq:     5,
				Type:    EventColorScheme,
				Payload: &ColorSchemeEventData{Dark: true},
			},
		},
		{
			name: "color_scheme_light",
			event: &Event{
				Seq:     6,
				Type:    EventColorScheme,
				Payload: &ColorSchemeEventData{Dark: false},
			},
		},
		{
			name: "reduced_motion",
			event: &Event{
				Seq:     7,
				Type:    EventReducedMotion,
				Payload: &ReducedMotionEventData{Reduced: true},
			},
		},
		{
			name: "pointer_touch",
			event: &Event{
				Seq:  8,
				Type: EventPointer,
				Payload: &PointerEventData{
					Pointer:    PointerClassCoarse,
					AnyPointer: PointerClassCoarse,
					Hover:      false,
					AnyHover:   false,
				},
			},
		},
		{
			name: "pointer_convertible_with_mouse",
			event: &Event{
				Seq:  9,
				Type: EventPointer,
				Payload: &PointerEventData{
					Pointer:    PointerClassCoarse,
					AnyPointer: PointerClassFine,
					Hover:      false,
					AnyHover:   true,
				},
			},
		},
		{
			name: "visibility_hidden",
			event: &Event{
				Seq:     10,
				Type:    EventVisibility,
				Payload: &VisibilityEventData{Hidden: true},
			},
		},
		{
			name: "dpr_change",
			event: &Event{
				Seq:     11,
				Type:    EventDPR,
				Payload: &DPREventData{DPR100: 150},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := EncodeEvent(tc.event)
			decoded, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}

			if decoded.Seq != tc.event.Seq {
				t.Errorf("Seq = %d, want %d", decoded.Seq, tc.event.Seq)
			}
			if decoded.Type != tc.event.Type {
				t.Errorf("Type = %v, want %v", decoded.Type, tc.event.Type)
			}

			switch want := tc.event.Payload.(type) {
			case *ResizeEventData:
				got, ok := decoded.Payload.(*ResizeEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *ResizeEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *OrientationEventData:
				got, ok := decoded.Payload.(*OrientationEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *OrientationEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *ColorSchemeEventData:
				got, ok := decoded.Payload.(*ColorSchemeEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *ColorSchemeEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *ReducedMotionEventData:
				got, ok := decoded.Payload.(*ReducedMotionEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *ReducedMotionEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *PointerEventData:
				got, ok := decoded.Payload.(*PointerEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *PointerEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *VisibilityEventData:
				got, ok := decoded.Payload.(*VisibilityEventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *VisibilityEventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			case *DPREventData:
				got, ok := decoded.Payload.(*DPREventData)
				if !ok {
					t.Fatalf("Payload type = %T, want *DPREventData", decoded.Payload)
				}
				if *got != *want {
					t.Errorf("Payload = %+v, want %+v", got, want)
				}
			}
		})
	}
}

func TestEventNilPayload(t *testing.T) {
	// Encoding with a nil payload writes zero values, not garbage
	data := EncodeEvent(&Event{Seq: 1, Type: EventResize})

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}

	got, ok := decoded.Payload.(*ResizeEventData)
	if !ok {
		t.Fatalf("Payload type = %T, want *ResizeEventData", decoded.Payload)
	}
	if got.Width != 0 || got.Height != 0 {
		t.Errorf("Payload = %+v, want zero values", got)
	}
}

func TestEventBatchDecode(t *testing.T) {
	// A coalesced frame carries several events back to back
	enc := NewEncoder()
	EncodeEventTo(enc, &Event{
		Seq:     1,
		Type:    EventResize,
		Payload: &ResizeEventData{Width: 844, Height: 390},
	})
	EncodeEventTo(enc, &Event{
		Seq:     2,
		Type:    EventOrientation,
		Payload: &OrientationEventData{Angle: 90, Width: 844, Height: 390},
	})
	EncodeEventTo(enc, &Event{
		Seq:     3,
		Type:    EventColorScheme,
		Payload: &ColorSchemeEventData{Dark: true},
	})

	d := NewDecoder(enc.Bytes())
	var events []*Event
	for !d.EOF() {
		e, err := DecodeEventFrom(d)
		if err != nil {
			t.Fatalf("DecodeEventFrom() error = %v", err)
		}
		events = append(events, e)
	}

	if len(events) != 3 {
		t.Fatalf("decoded %d events, want 3", len(events))
	}
	if events[0].Type != EventResize || events[1].Type != EventOrientation || events[2].Type != EventColorScheme {
		t.Errorf("event types = %v %v %v", events[0].Type, events[1].Type, events[2].Type)
	}
	for i, e := range events {
		if e.Seq != uint64(i+1) {
			t.Errorf("event %d: Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestEventUnknownType(t *testing.T) {
	enc := NewEncoder()
	enc.WriteUvarint(9)
	enc.WriteByte(0xEE)

	decoded, err := DecodeEvent(enc.Bytes())
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if decoded.Type != EventType(0xEE) {
		t.Errorf("Type = %v, want 0xEE", decoded.Type)
	}
	if decoded.Payload != nil {
		t.Errorf("Payload = %v, want nil", decoded.Payload)
	}
}

func TestDecodeEventTruncated(t *testing.T) {
	full := EncodeEvent(&Event{
		Seq:     1,
		Type:    EventOrientation,
		Payload: &OrientationEventData{Angle: 90, Width: 844, Height: 390},
	})

	for n := 0; n < len(full); n++ {
		if _, err := DecodeEvent(full[:n]); err == nil {
			t.Errorf("truncated at %d: expected error", n)
		}
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		et   EventType
		want string
	}{
		{EventResize, "Resize"},
		{EventOrientation, "Orientation"},
		{EventColorScheme, "ColorScheme"},
		{EventReducedMotion, "ReducedMotion"},
		{EventPointer, "Pointer"},
		{EventVisibility, "Visibility"},
		{EventDPR, "DPR"},
		{EventType(0xEE), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.et.String(); got != tc.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tc.et, got, tc.want)
		}
	}
}

func TestPointerClassString(t *testing.T) {
	tests := []struct {
		pc   PointerClass
		want string
	}{
		{PointerClassNone, "none"},
		{PointerClassCoarse, "coarse"},
		{PointerClassFine, "fine"},
		{PointerClass(9), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.pc.String(); got != tc.want {
			t.Errorf("PointerClass(%d).String() = %q, want %q", tc.pc, got, tc.want)
		}
	}
}

func TestResizeEventSize(t *testing.T) {
	// A typical resize event should stay under 8 bytes on the wire
	data := EncodeEvent(&Event{
		Seq:     100,
		Type:    EventResize,
		Payload: &ResizeEventData{Width: 1024, Height: 768},
	})
	if len(data) > 8 {
		t.Errorf("resize event encoded to %d bytes, want <= 8", len(data))
	}
}

func BenchmarkEventEncode(b *testing.B) {
	e := &Event{
		Seq:     1,
		Type:    EventResize,
		Payload: &ResizeEventData{Width: 1024, Height: 768},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = EncodeEvent(e)
	}
}

func BenchmarkEventDecode(b *testing.B) {
	data := EncodeEvent(&Event{
		Seq:     1,
		Type:    EventResize,
		Payload: &ResizeEventData{Width: 1024, Height: 768},
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DecodeEvent(data)
	}
}
