package server

import (
	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/protocol"
	"github.com/matchmedia-go/matchmedia/pkg/session"
)

// mediaFromHello builds the initial media environment from the
// client's handshake. Continuous features travel as dedicated hello
// fields; the discrete preferences are unpacked from the flag byte.
// A nil hello yields the defaults.
func mediaFromHello(hello *protocol.ClientHello) mediaquery.Media {
	m := mediaquery.DefaultMedia()
	if hello == nil {
		return m
	}
	m.Width = int(hello.ViewportW)
	m.Height = int(hello.ViewportH)
	if hello.DPR100 > 0 {
		m.DPR = float64(hello.DPR100) / 100
	}

	if hello.Media.Has(protocol.MediaDark) {
		m.ColorScheme = mediaquery.SchemeDark
	} else {
		m.ColorScheme = mediaquery.SchemeLight
	}
	m.ReducedMotion = hello.Media.Has(protocol.MediaReducedMotion)
	m.Hover = hello.Media.Has(protocol.MediaHover)
	m.AnyHover = hello.Media.Has(protocol.MediaAnyHover)

	m.Pointer = pointerFromFlags(hello.Media, protocol.MediaPointerCoarse, protocol.MediaPointerFine)
	m.AnyPointer = pointerFromFlags(hello.Media, protocol.MediaAnyPointerCoarse, protocol.MediaAnyPointerFine)

	return m
}

// pointerFromFlags decodes one pointer accuracy from its flag pair.
// Fine wins when both bits are set; neither bit means no pointing
// device.
func pointerFromFlags(mf protocol.MediaFlags, coarse, fine protocol.MediaFlags) mediaquery.Pointer {
	switch {
	case mf.Has(fine):
		return mediaquery.PointerFine
	case mf.Has(coarse):
		return mediaquery.PointerCoarse
	default:
		return mediaquery.PointerNone
	}
}

// pointerFromClass converts a wire pointer class to the media model.
func pointerFromClass(pc protocol.PointerClass) mediaquery.Pointer {
	switch pc {
	case protocol.PointerClassCoarse:
		return mediaquery.PointerCoarse
	case protocol.PointerClassFine:
		return mediaquery.PointerFine
	default:
		return mediaquery.PointerNone
	}
}

// mediaStateOf converts the live media environment to its persisted
// form.
func mediaStateOf(m mediaquery.Media) session.MediaState {
	return session.MediaState{
		Width:         m.Width,
		Height:        m.Height,
		DPR:           m.DPR,
		Dark:          m.ColorScheme == mediaquery.SchemeDark,
		ReducedMotion: m.ReducedMotion,
		Hover:         m.Hover,
		AnyHover:      m.AnyHover,
		Pointer:       m.Pointer.String(),
		AnyPointer:    m.AnyPointer.String(),
	}
}

// mediaFromState rebuilds a media environment from its persisted form.
func mediaFromState(st session.MediaState) mediaquery.Media {
	m := mediaquery.DefaultMedia()
	m.Width = st.Width
	m.Height = st.Height
	if st.DPR > 0 {
		m.DPR = st.DPR
	}
	if st.Dark {
		m.ColorScheme = mediaquery.SchemeDark
	} else {
		m.ColorScheme = mediaquery.SchemeLight
	}
	m.ReducedMotion = st.ReducedMotion
	m.Hover = st.Hover
	m.AnyHover = st.AnyHover
	m.Pointer = pointerFromString(st.Pointer)
	m.AnyPointer = pointerFromString(st.AnyPointer)
	return m
}

// pointerFromString parses a persisted pointer accuracy. Unknown or
// empty values fall back to fine, matching DefaultMedia.
func pointerFromString(s string) mediaquery.Pointer {
	switch s {
	case "none":
		return mediaquery.PointerNone
	case "coarse":
		return mediaquery.PointerCoarse
	case "fine":
		return mediaquery.PointerFine
	default:
		return mediaquery.PointerFine
	}
}
