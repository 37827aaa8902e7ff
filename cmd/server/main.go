// @title           Mergington Activity Signup API
// @version         0.1.0
// @description     Lists extracurricular activities and lets students sign up for or leave them.
// @basePath        /
// @schemes         http https
//
// @tag.name         Activities
// @tag.description  Activity catalogue and participant rosters.
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated port (default 9090, SIGNUP_TELEMETRY_METRICS_PROMETHEUS_PORT) at GET /metrics. pprof, when SIGNUP_TELEMETRY_PROFILING_ENABLED=true, is served on SIGNUP_TELEMETRY_PROFILING_PORT (default 6060). Neither is reachable through the Gin router.

// Package main is the entry point for the activity signup server binary.
// Subcommands are dispatched with a plain switch on os.Args:
//
//	serve              run the HTTP server (default)
//	check-seed [file]  validate a seed file without starting anything
//	version            print the version
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- only served on the dedicated profiling port, never on the Gin router.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mergington/activity-signup/internal/activities"
	"github.com/mergington/activity-signup/internal/api"
	"github.com/mergington/activity-signup/internal/config"
	"github.com/mergington/activity-signup/internal/safego"
	"github.com/mergington/activity-signup/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "version":
		fmt.Printf("Activity Signup v%s\n", api.Version)
		return nil
	case "serve", "check-seed":
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, check-seed, version", command)
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if command == "check-seed" {
		if len(args) > 1 {
			cfg.Registry.SeedFile = args[1]
		}
		return checkSeed(cfg)
	}
	return serve(cfg, configPath)
}

// loadSeed returns the configured seed file's activities, or the built-in
// catalogue when none is configured.
func loadSeed(cfg *config.Config) ([]activities.Activity, error) {
	if cfg.Registry.SeedFile == "" {
		return activities.DefaultSeed(), nil
	}
	seed, err := activities.LoadSeedFile(cfg.Registry.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}
	return seed, nil
}

func checkSeed(cfg *config.Config) error {
	seed, err := loadSeed(cfg)
	if err != nil {
		return err
	}
	if err := activities.ValidateSeed(seed); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	source := cfg.Registry.SeedFile
	if source == "" {
		source = "built-in catalogue"
	}
	fmt.Printf("%s: %d activities OK\n", source, len(seed))
	for _, a := range seed {
		fmt.Printf("  %-24s %3d/%-3d %s\n", a.Name, len(a.Participants), a.MaxParticipants, a.Schedule)
	}
	return nil
}

func serve(cfg *config.Config, configPath string) error {
	// Initialise structured logging first so everything below uses it.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	seed, err := loadSeed(cfg)
	if err != nil {
		return err
	}
	registry, err := activities.New(seed)
	if err != nil {
		return fmt.Errorf("failed to build activity registry: %w", err)
	}
	registry.Observe(func(a activities.Activity) {
		telemetry.RecordRoster(a.Name, len(a.Participants), a.MaxParticipants)
	})
	slog.Info("activity registry ready", "activities", len(seed), "seed_file", cfg.Registry.SeedFile)

	// Only the log level is applied live; other changes need a restart.
	level := cfg.Logging.Level
	watching, err := config.Watch(configPath, func(next *config.Config) {
		if next.Logging.Level != level {
			telemetry.SetLevel(next.Logging.Level)
			level = next.Logging.Level
		}
	})
	if err != nil {
		slog.Warn("config hot reload unavailable", "error", err)
	} else if watching {
		slog.Info("watching config file for log level changes")
	}

	if cfg.Telemetry.Metrics.Enabled {
		startSideServer("metrics", fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort), metricsMux(), 10*time.Second)
	}
	if cfg.Telemetry.Profiling.Enabled {
		// net/http/pprof registers its handlers on http.DefaultServeMux at init time.
		startSideServer("pprof", fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port), http.DefaultServeMux, 30*time.Second)
	}

	router, bgServices := api.NewRouter(cfg, registry)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	safego.Go("http-server", func() {
		slog.Info("starting server", "addr", server.Addr, "tls", cfg.Security.TLS.Enabled, "version", api.Version)

		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		bgServices.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()

	slog.Info("server stopped gracefully")
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// startSideServer runs an internal-only listener (metrics, pprof) in the
// background. Its failure is logged but does not stop the API.
func startSideServer(name, addr string, handler http.Handler, timeout time.Duration) {
	safego.Go(name+"-server", func() {
		slog.Info("starting "+name+" server", "addr", addr)
		srv := &http.Server{ // #nosec G112 -- internal-only port
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(name+" server error", "error", err)
		}
	})
}
