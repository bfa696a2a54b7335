package matchmedia

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matchmedia-go/matchmedia/pkg/mqtest"
)

func TestUseMediaQuery_NoWindowReturnsFalse(t *testing.T) {
	// Outside any render scope there is no window; the hook must fall
	// back to false for any expression, without panicking.
	queries := []string{
		"(max-width: 768px)",
		"(orientation: landscape)",
		"(prefers-color-scheme: dark)",
		"not a valid query ((",
	}
	for _, q := range queries {
		if got := UseMediaQuery(q); got != false {
			t.Errorf("UseMediaQuery(%q) = %v without window, want false", q, got)
		}
	}
}

func TestFacade_ComponentRendersThroughHarness(t *testing.T) {
	h := mqtest.New(mqtest.WithViewport(1024, 768))
	defer h.Close()

	comp := Func(func() string {
		if UseMediaQuery("(max-width: 768px)") {
			return "mobile"
		}
		return "desktop"
	})

	m := h.Mount(comp.Render)
	mqtest.ExpectContains(t, m.Output(), "desktop")

	h.Resize(500, 800)
	h.Flush()
	mqtest.ExpectContains(t, m.Output(), "mobile")
}

func TestFacade_SignalsAndEffects(t *testing.T) {
	sig := NewSignal(1)
	if got := sig.Peek(); got != 1 {
		t.Fatalf("Peek() = %d, want 1", got)
	}
	sig.Set(2)
	if got := sig.Peek(); got != 2 {
		t.Fatalf("Peek() = %d, want 2", got)
	}
}

func TestApp_ServesThinClient(t *testing.T) {
	app := New(Config{DevMode: true})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest("GET", "/_matchmedia/client.js", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("Content-Type = %q, want javascript", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected client script body")
	}
}

func TestApp_HandlerAndMiddleware(t *testing.T) {
	app := New(Config{DevMode: true})
	app.SetHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("shell"))
	}))

	var sawMiddleware bool
	app.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawMiddleware = true
			next.ServeHTTP(w, r)
		})
	})

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !sawMiddleware {
		t.Error("expected middleware to run")
	}
	if rec.Body.String() != "shell" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "shell")
	}
}

func TestApp_ConfigDefaults(t *testing.T) {
	app := New(Config{Address: ":9999"})
	if got := app.Server().Config().Address; got != ":9999" {
		t.Errorf("Address = %q, want %q", got, ":9999")
	}

	app = New(Config{})
	if got := app.Server().Config().Address; got != ":8080" {
		t.Errorf("default Address = %q, want %q", got, ":8080")
	}
}

func TestMustCompile_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustCompile to panic on invalid query")
		}
	}()
	MustCompile("((")
}
