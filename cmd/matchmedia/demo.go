package main

import (
	"fmt"
	"net/http"

	"github.com/matchmedia-go/matchmedia/pkg/server"
	"github.com/matchmedia-go/matchmedia/pkg/window"
)

// demoComponent renders a live view of the connecting browser's media
// environment. Every value below is read through the hook layer, so
// the region re-renders whenever one of them flips.
func demoComponent() server.Component {
	return server.ComponentFunc(func() string {
		width, height := window.UseViewport()
		orientation := window.UseOrientation()
		breakpoint := window.UseBreakpoint(window.DefaultBreakpoints)
		dark := window.UsePrefersDark()
		reduced := window.UsePrefersReducedMotion()
		narrow := window.UseMediaQuery("(max-width: 768px)")
		touch := window.UseMediaQuery("(pointer: coarse)")

		theme := "light"
		if dark {
			theme = "dark"
		}
		layout := "wide"
		if narrow {
			layout = "stacked"
		}
		if breakpoint == "" {
			breakpoint = "base"
		}

		return fmt.Sprintf(`<div class="demo %s %s">
  <h1>matchmedia live demo</h1>
  <p>Resize the window, rotate the device or switch the color scheme;
  the server re-renders this fragment on every flip.</p>
  <dl>
    <dt>Viewport</dt><dd>%d &times; %d</dd>
    <dt>Orientation</dt><dd>%s</dd>
    <dt>Breakpoint</dt><dd>%s</dd>
    <dt>Theme</dt><dd>%s</dd>
    <dt>Touch device</dt><dd>%v</dd>
    <dt>Reduced motion</dt><dd>%v</dd>
  </dl>
</div>`, theme, layout, width, height, orientation, breakpoint, theme, touch, reduced)
	})
}

// demoShell is the static page that loads the thin client and hosts
// the root component's region. data-mm="mm-1" is the hydration ID the
// session assigns to the root instance.
const demoShell = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>matchmedia demo</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 40rem; padding: 0 1rem; }
  .demo.dark { background: #1c1c1e; color: #f2f2f7; }
  .demo { background: #f2f2f7; color: #1c1c1e; border-radius: 12px; padding: 1.5rem; }
  .demo.stacked dl { grid-template-columns: 1fr; }
  dl { display: grid; grid-template-columns: max-content 1fr; gap: .4rem 1.25rem; }
  dt { font-weight: 600; }
  dd { margin: 0; }
</style>
</head>
<body>
<div data-mm="mm-1"><p>connecting…</p></div>
<script src="/_matchmedia/client.js"></script>
</body>
</html>
`

// serveDemoShell serves the demo page.
func serveDemoShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(demoShell))
}
