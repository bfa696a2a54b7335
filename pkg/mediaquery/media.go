package mediaquery

// MediaType identifies the kind of output device.
type MediaType uint8

const (
	MediaScreen MediaType = iota
	MediaPrint
)

// String returns the CSS serialization of the media type.
func (t MediaType) String() string {
	switch t {
	case MediaScreen:
		return "screen"
	case MediaPrint:
		return "print"
	default:
		return "screen"
	}
}

// Orientation describes how the viewport is turned.
type Orientation uint8

const (
	Landscape Orientation = iota
	Portrait
)

// String returns the CSS serialization of the orientation.
func (o Orientation) String() string {
	if o == Portrait {
		return "portrait"
	}
	return "landscape"
}

// ColorScheme is the user's preferred color scheme.
type ColorScheme uint8

const (
	SchemeLight ColorScheme = iota
	SchemeDark
)

// String returns the CSS serialization of the color scheme.
func (s ColorScheme) String() string {
	if s == SchemeDark {
		return "dark"
	}
	return "light"
}

// Pointer describes the accuracy of a pointing device.
type Pointer uint8

const (
	PointerNone Pointer = iota
	PointerCoarse
	PointerFine
)

// String returns the CSS serialization of the pointer capability.
func (p Pointer) String() string {
	switch p {
	case PointerCoarse:
		return "coarse"
	case PointerFine:
		return "fine"
	default:
		return "none"
	}
}

// Media is the environment a query is evaluated against. It is a plain
// value type; copying it is cheap and evaluation never mutates it.
type Media struct {
	// Width and Height are the viewport dimensions in CSS pixels.
	Width  int
	Height int

	// DPR is the device pixel ratio (physical pixels per CSS pixel).
	DPR float64

	// Type is the output device kind.
	Type MediaType

	// ColorScheme is the preferred color scheme.
	ColorScheme ColorScheme

	// ReducedMotion reports whether the user asked for reduced motion.
	ReducedMotion bool

	// Hover reports whether the primary input can hover. AnyHover
	// reports whether any attached input can.
	Hover    bool
	AnyHover bool

	// Pointer is the accuracy of the primary pointing device.
	// AnyPointer is the most accurate of all attached devices.
	Pointer    Pointer
	AnyPointer Pointer
}

// Orientation derives the viewport orientation. A square viewport is
// landscape, matching how browsers evaluate the orientation feature.
func (m Media) Orientation() Orientation {
	if m.Height > m.Width {
		return Portrait
	}
	return Landscape
}

// DefaultMedia returns the environment used before a client reports its
// real one: a 1024x768 screen at 1x with a light scheme, a fine pointer
// and hover support.
func DefaultMedia() Media {
	return Media{
		Width:       1024,
		Height:      768,
		DPR:         1.0,
		Type:        MediaScreen,
		ColorScheme: SchemeLight,
		Hover:       true,
		AnyHover:    true,
		Pointer:     PointerFine,
		AnyPointer:  PointerFine,
	}
}
