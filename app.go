package matchmedia

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matchmedia-go/matchmedia/pkg/server"
	"github.com/matchmedia-go/matchmedia/pkg/session"
)

// App bundles a server and its configuration into a single
// http.Handler, the way most applications consume the engine.
//
//	app := matchmedia.New(matchmedia.Config{Address: ":8080"})
//	app.SetRoot(Dashboard)
//	http.ListenAndServe(":8080", app)
type App struct {
	server *server.Server
	config Config
	logger *slog.Logger
}

// Config is the application-level configuration. Zero values defer to
// the server defaults; use Server for full control.
type Config struct {
	// Address is the address to listen on. Default: ":8080".
	Address string

	// DevMode relaxes origin checks and disables client caching.
	// Never enable in production.
	DevMode bool

	// Store is the persistence backend for detached sessions.
	Store session.SessionStore

	// Server overrides the whole server configuration. When set, the
	// fields above are ignored.
	Server *server.ServerConfig

	// Logger is the application logger. Default: slog.Default().
	Logger *slog.Logger
}

// New creates an application with the given configuration.
func New(cfg Config) *App {
	serverCfg := cfg.Server
	if serverCfg == nil {
		serverCfg = server.DefaultServerConfig()
		if cfg.Address != "" {
			serverCfg.Address = cfg.Address
		}
		if cfg.DevMode {
			serverCfg.WithDevMode()
		}
		if cfg.Store != nil {
			serverCfg.SessionStore = cfg.Store
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	srv := server.New(serverCfg)
	srv.SetLogger(logger)

	return &App{
		server: srv,
		config: cfg,
		logger: logger,
	}
}

// SetRoot sets the root component factory. Each new session mounts one
// instance produced by the factory.
func (a *App) SetRoot(factory func() Component) {
	a.server.SetRootComponent(factory)
}

// SetHandler sets the HTTP handler serving non-WebSocket requests,
// typically the page shell that loads the thin client.
func (a *App) SetHandler(h http.Handler) {
	a.server.SetHandler(h)
}

// Use adds HTTP middleware applied to non-WebSocket requests.
func (a *App) Use(mw func(http.Handler) http.Handler) {
	a.server.Use(mw)
}

// Handler returns an http.Handler for mounting in external routers.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.server.ServeHTTP(w, r)
}

// Run starts the server and blocks until shutdown.
func (a *App) Run() error {
	return a.server.Run()
}

// Shutdown gracefully stops the server, persisting detached sessions.
func (a *App) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Server exposes the underlying server for advanced wiring.
func (a *App) Server() *server.Server {
	return a.server
}
