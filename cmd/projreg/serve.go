package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/projreg/internal/http"
	"github.com/fyrsmithlabs/projreg/internal/registry"
	"github.com/fyrsmithlabs/projreg/internal/telemetry"
)

type serveOptions struct {
	host string
	port int
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Long: `Start the web UI and JSON API over the registry.

The page at / lists projects and has a form to create one. The API lives
under /api/v1, health under /health and Prometheus metrics under /metrics.
SIGINT or SIGTERM shuts the server down gracefully.

Examples:
  projreg serve
  projreg serve --host 0.0.0.0 --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, so)
		},
	}

	cmd.Flags().StringVar(&so.host, "host", "", "listen host (default from config, localhost)")
	cmd.Flags().IntVar(&so.port, "port", 0, "listen port (default from config, 8501)")
	return cmd
}

// runServe serves until the context is cancelled or a signal arrives.
//
// Startup order:
//  1. Loads configuration and applies flags
//  2. Initializes telemetry, then the logger bridged to it
//  3. Opens the registry
//  4. Watches the backing file for writes by other processes
//  5. Starts the HTTP server
//
// Shutdown runs in reverse within the configured timeout, flushing the
// registry if its last write failed.
func runServe(cmd *cobra.Command, opts *globalOptions, so *serveOptions) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if so.host != "" {
		cfg.Server.Host = so.host
	}
	if so.port != 0 {
		cfg.Server.Port = so.port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if shutdownErr := tel.Shutdown(shutdownCtx); shutdownErr != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", shutdownErr)
		}
	}()

	logger, err := newLogger(cfg, tel.LoggerProvider(), false)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Close()
		return err
	}
	defer a.close(context.Background(), &err)

	logger.Info(ctx, "starting projreg",
		zap.String("version", version),
		zap.String("registry", a.store.Path()),
		zap.Bool("telemetry", tel.IsEnabled()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	srv, err := httpserver.NewServer(a.svc, logger, &httpserver.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	},
		httpserver.WithMeterProvider(tel.MeterProvider()),
		httpserver.WithTracerProvider(tel.TracerProvider()),
		httpserver.WithTelemetryHealth(tel.Health),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if cfg.Registry.Watch {
		watchErr := a.store.Watch(ctx, func(c registry.Change) {
			logger.Warn(ctx, "registry file changed by another process",
				zap.String("path", c.Path),
				zap.Bool("removed", c.Removed))
			srv.NoteExternalChange(c)
		})
		if watchErr != nil {
			// The web UI still works without the warning banner.
			logger.Warn(ctx, "registry watch unavailable", zap.Error(watchErr))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info(context.Background(), "received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info(context.Background(), "server shutdown complete")
	return nil
}
