package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matchmedia-go/matchmedia/pkg/middleware"
	"github.com/matchmedia-go/matchmedia/pkg/server"
	"github.com/matchmedia-go/matchmedia/pkg/session"
)

// serveFileConfig is the YAML shape of --config files. Durations are
// Go duration strings ("30s", "5m").
type serveFileConfig struct {
	Address          string `yaml:"address"`
	Dev              bool   `yaml:"dev"`
	Metrics          bool   `yaml:"metrics"`
	MaxSessions      int    `yaml:"max_sessions"`
	MaxSessionsPerIP int    `yaml:"max_sessions_per_ip"`
	ResumeWindow     string `yaml:"resume_window"`
	IdleTimeout      string `yaml:"idle_timeout"`
	Persist          bool   `yaml:"persist"`
}

func serveCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		dev        bool
		metrics    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Start a server hosting the responsive demo page.

The demo mounts a component that reads the connecting browser's
viewport and preferences through media queries and re-renders live as
the window is resized or the color scheme changes. Useful for
verifying client/server notification plumbing end to end.`,
		Example: `  matchmedia serve
  matchmedia serve --addr :3000 --dev
  matchmedia serve --config matchmedia.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fileCfg := serveFileConfig{Metrics: true}
			if configPath != "" {
				data, err := os.ReadFile(configPath)
				if err != nil {
					return fmt.Errorf("read config: %w", err)
				}
				if err := yaml.Unmarshal(data, &fileCfg); err != nil {
					return fmt.Errorf("parse config %s: %w", configPath, err)
				}
			}

			// Flags override the file.
			if cmd.Flags().Changed("addr") || fileCfg.Address == "" {
				fileCfg.Address = addr
			}
			if cmd.Flags().Changed("dev") {
				fileCfg.Dev = dev
			}
			if cmd.Flags().Changed("metrics") {
				fileCfg.Metrics = metrics
			}

			serverCfg, err := buildServerConfig(fileCfg)
			if err != nil {
				return err
			}

			srv := server.New(serverCfg)
			srv.SetRootComponent(demoComponent)

			// The server dispatches /_matchmedia/* itself; everything
			// else lands on this router.
			r := chi.NewRouter()
			if fileCfg.Metrics {
				srv.Use(middleware.Prometheus())
				r.Handle("/metrics", promhttp.Handler())
			}
			r.Get("/", serveDemoShell)
			srv.SetHandler(r)

			printBanner()
			success("serving demo on http://localhost%s", fileCfg.Address)
			if fileCfg.Metrics {
				info("metrics on http://localhost%s/metrics", fileCfg.Address)
			}
			if fileCfg.Dev {
				warn("dev mode: origin checks disabled")
			}

			return srv.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().BoolVar(&dev, "dev", false, "Relax origin checks for local development")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "Expose Prometheus metrics on /metrics")

	return cmd
}

// buildServerConfig translates the file config into a ServerConfig.
func buildServerConfig(fc serveFileConfig) (*server.ServerConfig, error) {
	cfg := server.DefaultServerConfig()
	cfg.Address = fc.Address
	cfg.MaxSessions = fc.MaxSessions
	cfg.MaxSessionsPerIP = fc.MaxSessionsPerIP
	if fc.Dev {
		cfg.WithDevMode()
	}
	if fc.ResumeWindow != "" {
		d, err := time.ParseDuration(fc.ResumeWindow)
		if err != nil {
			return nil, fmt.Errorf("resume_window: %w", err)
		}
		cfg.ResumeWindow = d
	}
	if fc.IdleTimeout != "" {
		d, err := time.ParseDuration(fc.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("idle_timeout: %w", err)
		}
		cfg.SessionConfig.IdleTimeout = d
	}
	if fc.Persist {
		cfg.SessionStore = session.NewMemoryStore()
	}
	return cfg, nil
}
