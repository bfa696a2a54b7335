package mqtest

import (
	"fmt"
	"testing"

	"github.com/matchmedia-go/matchmedia/pkg/mediaquery"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

func TestHarness_MountRendersImmediately(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	m := h.Mount(func() string {
		if window.UseMediaQuery("(max-width: 768px)") {
			return "<nav class=\"collapsed\"></nav>"
		}
		return "<nav class=\"expanded\"></nav>"
	})

	ExpectContains(t, m.Output(), "expanded")
	if m.Renders != 1 {
		t.Errorf("Renders = %d, want 1", m.Renders)
	}
}

func TestHarness_ResizeThenFlushRerenders(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	m := h.Mount(func() string {
		return fmt.Sprintf("narrow=%v", window.UseMediaQuery("(max-width: 768px)"))
	})
	ExpectContains(t, m.Output(), "narrow=false")

	h.Resize(500, 768)
	h.Flush()

	ExpectContains(t, m.Output(), "narrow=true")
	if m.Renders != 2 {
		t.Errorf("Renders = %d, want 2", m.Renders)
	}
}

func TestHarness_NoFlipNoRerender(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	m := h.Mount(func() string {
		return fmt.Sprintf("narrow=%v", window.UseMediaQuery("(max-width: 768px)"))
	})

	// 1024 -> 1000 does not flip (max-width: 768px).
	h.Resize(1000, 768)
	h.Flush()

	if m.Renders != 1 {
		t.Errorf("Renders = %d, want 1 (no flip, no re-render)", m.Renders)
	}
}

func TestHarness_UnmountStopsRerenders(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	m := h.Mount(func() string {
		return fmt.Sprintf("narrow=%v", window.UseMediaQuery("(max-width: 768px)"))
	})
	m.Unmount()

	h.Resize(500, 768)
	h.Flush()

	if m.Renders != 1 {
		t.Errorf("Renders = %d, want 1 after unmount", m.Renders)
	}
}

func TestHarness_UnmountReleasesListeners(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	list := h.Window().MatchMedia("(max-width: 768px)")
	for i := 0; i < 5; i++ {
		m := h.Mount(func() string {
			return fmt.Sprintf("narrow=%v", window.UseMediaQuery("(max-width: 768px)"))
		})
		if got := list.ListenerCount(); got != 1 {
			t.Fatalf("cycle %d: ListenerCount() = %d while mounted, want 1", i, got)
		}
		m.Unmount()
	}

	if got := list.ListenerCount(); got != 0 {
		t.Errorf("ListenerCount() = %d after 5 mount/unmount cycles, want 0", got)
	}
}

func TestHarness_ColorSchemeAndRotation(t *testing.T) {
	h := New(WithViewport(800, 600))
	defer h.Close()

	m := h.Mount(func() string {
		dark := window.UsePrefersDark()
		orient := window.UseOrientation()
		return fmt.Sprintf("dark=%v orient=%s", dark, orient)
	})
	ExpectContains(t, m.Output(), "dark=false orient=landscape")

	h.SetColorScheme(true)
	h.Flush()
	ExpectContains(t, m.Output(), "dark=true")

	h.Rotate()
	h.Flush()
	ExpectContains(t, m.Output(), "orient=portrait")
}

func TestHarness_WithMediaInitialEnvironment(t *testing.T) {
	media := mediaquery.DefaultMedia()
	media.ReducedMotion = true
	h := New(WithMedia(media))
	defer h.Close()

	m := h.Mount(func() string {
		return fmt.Sprintf("reduced=%v", window.UsePrefersReducedMotion())
	})
	ExpectContains(t, m.Output(), "reduced=true")
}

func TestHarness_TwoMountsShareOneList(t *testing.T) {
	h := New(WithViewport(1024, 768))
	defer h.Close()

	render := func() string {
		return fmt.Sprintf("landscape=%v", window.UseMediaQuery("(orientation: landscape)"))
	}
	a := h.Mount(render)
	b := h.Mount(render)

	if a.Output() != b.Output() {
		t.Fatalf("outputs diverge: %q vs %q", a.Output(), b.Output())
	}
	if n := h.Window().QueryCount(); n != 1 {
		t.Errorf("QueryCount = %d, want 1 (shared list)", n)
	}

	h.Rotate()
	h.Flush()

	if a.Output() != b.Output() {
		t.Fatalf("outputs diverge after rotate: %q vs %q", a.Output(), b.Output())
	}
	ExpectContains(t, a.Output(), "landscape=false")
}

func TestExpectHelpers(t *testing.T) {
	html := `<div class="card dark">hello</div>`

	ExpectContains(t, html, "hello")
	ExpectNotContains(t, html, "goodbye")
	ExpectMatches(t, html, `class="[^"]*dark`)
}

func TestTruncate(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'x'
	}
	got := truncate(string(long), 500)
	if len(got) != 500+len("... (truncated)") {
		t.Errorf("truncate length = %d", len(got))
	}
	if truncate("short", 500) != "short" {
		t.Error("short strings should pass through")
	}
}
