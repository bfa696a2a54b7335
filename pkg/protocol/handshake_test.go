package protocol

import (
	"io"
	"testing"
)

func TestClientHelloEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		hello *ClientHello
	}{
		{
			name: "new_session_desktop",
			hello: &ClientHello{
				Version:   CurrentVersion,
				SessionID: "",
				LastSeq:   0,
				ViewportW: 1920,
				ViewportH: 1080,
				DPR100:    100,
				TZOffset:  -480, // UTC-8
				Media:     MediaHover | MediaAnyHover | MediaPointerFine | MediaAnyPointerFine,
			},
		},
		{
			name: "reconnect_phone",
			hello: &ClientHello{
				Version:   ProtocolVersion{Major: 1, Minor: 1},
				SessionID: "session-12345",
				LastSeq:   42,
				ViewportW: 390,
				ViewportH: 844,
				DPR100:    300,
				TZOffset:  60, // UTC+1
				Media:     MediaDark | MediaPointerCoarse | MediaAnyPointerCoarse,
			},
		},
		{
			name: "minimal",
			hello: &ClientHello{
				Version: CurrentVersion,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeClientHello(tc.hello)
			decoded, err := DecodeClientHello(encoded)
			if err != nil {
				t.Fatalf("DecodeClientHello() error = %v", err)
			}

			if decoded.Version != tc.hello.Version {
				t.Errorf("Version = %v, want %v", decoded.Version, tc.hello.Version)
			}
			if decoded.SessionID != tc.hello.SessionID {
				t.Errorf("SessionID = %q, want %q", decoded.SessionID, tc.hello.SessionID)
			}
			if decoded.LastSeq != tc.hello.LastSeq {
				t.Errorf("LastSeq = %d, want %d", decoded.LastSeq, tc.hello.LastSeq)
			}
			if decoded.ViewportW != tc.hello.ViewportW || decoded.ViewportH != tc.hello.ViewportH {
				t.Errorf("Viewport = %dx%d, want %dx%d",
					decoded.ViewportW, decoded.ViewportH, tc.hello.ViewportW, tc.hello.ViewportH)
			}
			if decoded.DPR100 != tc.hello.DPR100 {
				t.Errorf("DPR100 = %d, want %d", decoded.DPR100, tc.hello.DPR100)
			}
			if decoded.TZOffset != tc.hello.TZOffset {
				t.Errorf("TZOffset = %d, want %d", decoded.TZOffset, tc.hello.TZOffset)
			}
			if decoded.Media != tc.hello.Media {
				t.Errorf("Media = %08b, want %08b", decoded.Media, tc.hello.Media)
			}
		})
	}
}

func TestServerHelloEncodeDecode(t *testing.T) {
	original := &ServerHello{
		Status:     HandshakeOK,
		SessionID:  "sess-xyz789",
		NextSeq:    100,
		ServerTime: 1700000000000,
		Flags:      ServerFlagBatchUpdates,
	}

	data := EncodeServerHello(original)
	decoded, err := DecodeServerHello(data)
	if err != nil {
		t.Fatalf("DecodeServerHello() error = %v", err)
	}

	if decoded.Status != HandshakeOK {
		t.Errorf("Status = %v, want HandshakeOK", decoded.Status)
	}
	if decoded.SessionID != original.SessionID {
		t.Errorf("SessionID = %q, want %q", decoded.SessionID, original.SessionID)
	}
	if decoded.NextSeq != 100 {
		t.Errorf("NextSeq = %d, want 100", decoded.NextSeq)
	}
	if decoded.ServerTime != 1700000000000 {
		t.Errorf("ServerTime = %d, want 1700000000000", decoded.ServerTime)
	}
	if decoded.Flags != ServerFlagBatchUpdates {
		t.Errorf("Flags = %04x, want %04x", decoded.Flags, ServerFlagBatchUpdates)
	}
}

func TestServerHelloErrorStatus(t *testing.T) {
	original := NewServerHelloError(HandshakeVersionMismatch)

	decoded, err := DecodeServerHello(EncodeServerHello(original))
	if err != nil {
		t.Fatalf("DecodeServerHello() error = %v", err)
	}

	if decoded.Status != HandshakeVersionMismatch {
		t.Errorf("Status = %v, want HandshakeVersionMismatch", decoded.Status)
	}
	if decoded.SessionID != "" {
		t.Errorf("SessionID = %q, want empty", decoded.SessionID)
	}
}

func TestHandshakeStatusString(t *testing.T) {
	tests := []struct {
		status HandshakeStatus
		want   string
	}{
		{HandshakeOK, "OK"},
		{HandshakeResumed, "Resumed"},
		{HandshakeVersionMismatch, "VersionMismatch"},
		{HandshakeInvalidFormat, "InvalidFormat"},
		{HandshakeServerBusy, "ServerBusy"},
		{HandshakeInternalError, "InternalError"},
		{HandshakeStatus(0xFF), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("HandshakeStatus(%d).String() = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestMediaFlagsHas(t *testing.T) {
	flags := MediaDark | MediaReducedMotion | MediaPointerFine

	if !flags.Has(MediaDark) {
		t.Error("Has(MediaDark) = false, want true")
	}
	if !flags.Has(MediaReducedMotion) {
		t.Error("Has(MediaReducedMotion) = false, want true")
	}
	if !flags.Has(MediaPointerFine) {
		t.Error("Has(MediaPointerFine) = false, want true")
	}
	if flags.Has(MediaHover) {
		t.Error("Has(MediaHover) = true, want false")
	}
	if flags.Has(MediaAnyPointerCoarse) {
		t.Error("Has(MediaAnyPointerCoarse) = true, want false")
	}
}

func TestNewClientHello(t *testing.T) {
	ch := NewClientHello(1280, 720)

	if ch.Version != CurrentVersion {
		t.Errorf("Version = %v, want CurrentVersion", ch.Version)
	}
	if ch.ViewportW != 1280 || ch.ViewportH != 720 {
		t.Errorf("Viewport = %dx%d, want 1280x720", ch.ViewportW, ch.ViewportH)
	}
	if ch.DPR100 != 100 {
		t.Errorf("DPR100 = %d, want 100", ch.DPR100)
	}
}

func TestNewServerHello(t *testing.T) {
	sh := NewServerHello("s1", 7, 123456)
	if sh.Status != HandshakeOK {
		t.Errorf("Status = %v, want HandshakeOK", sh.Status)
	}
	if sh.SessionID != "s1" || sh.NextSeq != 7 || sh.ServerTime != 123456 {
		t.Errorf("unexpected fields: %+v", sh)
	}

	resumed := NewServerHelloResumed("s1", 8, 123457)
	if resumed.Status != HandshakeResumed {
		t.Errorf("Status = %v, want HandshakeResumed", resumed.Status)
	}
}

func TestDecodeClientHelloTruncated(t *testing.T) {
	full := EncodeClientHello(&ClientHello{
		Version:   CurrentVersion,
		SessionID: "sess",
		ViewportW: 800,
		ViewportH: 600,
		DPR100:    100,
	})

	for n := 0; n < len(full); n++ {
		if _, err := DecodeClientHello(full[:n]); err != io.ErrUnexpectedEOF {
			t.Errorf("truncated at %d: err = %v, want io.ErrUnexpectedEOF", n, err)
		}
	}
}
