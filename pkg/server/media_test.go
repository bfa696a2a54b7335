package server

import (
	"testing"

	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
)

func TestMediaFromHello(t *testing.T) {
	hello := &protocol.ClientHello{
		ViewportW: 1280,
		ViewportH: 720,
		DPR100:    225,
		Media: protocol.MediaDark |
			protocol.MediaReducedMotion |
			protocol.MediaPointerCoarse |
			protocol.MediaAnyPointerCoarse |
			protocol.MediaAnyPointerFine |
			protocol.MediaAnyHover,
	}

	m := mediaFromHello(hello)

	if m.Width != 1280 || m.Height != 720 {
		t.Errorf("viewport = %dx%d, want 1280x720", m.Width, m.Height)
	}
	if m.DPR != 2.25 {
		t.Errorf("DPR = %v, want 2.25", m.DPR)
	}
	if m.ColorScheme != mediaquery.SchemeDark {
		t.Errorf("ColorScheme = %v, want dark", m.ColorScheme)
	}
	if !m.ReducedMotion {
		t.Error("ReducedMotion = false")
	}
	if m.Hover {
		t.Error("Hover = true, flag not set")
	}
	if !m.AnyHover {
		t.Error("AnyHover = false")
	}
	if m.Pointer != mediaquery.PointerCoarse {
		t.Errorf("Pointer = %v, want coarse", m.Pointer)
	}
	// Fine wins when both any-pointer bits are set.
	if m.AnyPointer != mediaquery.PointerFine {
		t.Errorf("AnyPointer = %v, want fine", m.AnyPointer)
	}
}

func TestMediaFromHelloNil(t *testing.T) {
	m := mediaFromHello(nil)
	def := mediaquery.DefaultMedia()
	if m.Width != def.Width || m.ColorScheme != def.ColorScheme {
		t.Errorf("nil hello = %+v, want defaults", m)
	}
}

func TestMediaFromHelloZeroDPR(t *testing.T) {
	m := mediaFromHello(&protocol.ClientHello{ViewportW: 100, ViewportH: 100})
	if m.DPR != mediaquery.DefaultMedia().DPR {
		t.Errorf("DPR = %v, want default when hello omits it", m.DPR)
	}
}

func TestMediaStateRoundTrip(t *testing.T) {
	m := mediaquery.DefaultMedia()
	m.Width = 375
	m.Height = 812
	m.DPR = 3
	m.ColorScheme = mediaquery.SchemeDark
	m.ReducedMotion = true
	m.Hover = false
	m.AnyHover = true
	m.Pointer = mediaquery.PointerCoarse
	m.AnyPointer = mediaquery.PointerNone

	got := mediaFromState(mediaStateOf(m))

	if got.Width != m.Width || got.Height != m.Height || got.DPR != m.DPR {
		t.Errorf("dimensions changed: %+v", got)
	}
	if got.ColorScheme != m.ColorScheme {
		t.Errorf("ColorScheme = %v", got.ColorScheme)
	}
	if got.ReducedMotion != m.ReducedMotion || got.Hover != m.Hover || got.AnyHover != m.AnyHover {
		t.Errorf("preferences changed: %+v", got)
	}
	if got.Pointer != m.Pointer || got.AnyPointer != m.AnyPointer {
		t.Errorf("pointers = %v/%v, want %v/%v", got.Pointer, got.AnyPointer, m.Pointer, m.AnyPointer)
	}
}

func TestPointerFromString(t *testing.T) {
	cases := []struct {
		in   string
		want mediaquery.Pointer
	}{
		{"none", mediaquery.PointerNone},
		{"coarse", mediaquery.PointerCoarse},
		{"fine", mediaquery.PointerFine},
		{"", mediaquery.PointerFine},
		{"bogus", mediaquery.PointerFine},
	}
	for _, tc := range cases {
		if got := pointerFromString(tc.in); got != tc.want {
			t.Errorf("pointerFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPointerFromClass(t *testing.T) {
	if pointerFromClass(protocol.PointerClassFine) != mediaquery.PointerFine {
		t.Error("fine class")
	}
	if pointerFromClass(protocol.PointerClassCoarse) != mediaquery.PointerCoarse {
		t.Error("coarse class")
	}
	if pointerFromClass(protocol.PointerClassNone) != mediaquery.PointerNone {
		t.Error("none class")
	}
}
