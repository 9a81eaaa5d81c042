// Package main implements projreg, a registry of data transformation
// projects backed by a JSON file.
//
// Run without a subcommand, projreg opens the interactive prompt. The serve
// subcommand starts the web UI instead; list, create, update and delete work
// on the registry directly for scripting.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log"

	"github.com/fyrsmithlabs/projreg/internal/config"
	"github.com/fyrsmithlabs/projreg/internal/logging"
	"github.com/fyrsmithlabs/projreg/internal/project"
	"github.com/fyrsmithlabs/projreg/internal/registry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath   string
	registryPath string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "projreg",
		Short: "Register and manage data transformation projects",
		Long: `projreg keeps a registry of data transformation projects: a name, the
number of source schemas each project consumes, and the target schema it
produces. The registry is a JSON file, projects.json by default.

Without a subcommand projreg opens an interactive prompt.

Examples:
  # Open the interactive prompt
  projreg

  # Use a different registry file
  projreg --registry /srv/etl/projects.json

  # Start the web UI
  projreg serve --port 8501`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/projreg/config.yaml)")
	root.PersistentFlags().StringVar(&opts.registryPath, "registry", "", "registry file (default projects.json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		newListCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the config file and environment, then applies flags.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.registryPath != "" {
		cfg.Registry.Path = opts.registryPath
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Console output goes to stderr unless
// quiet is set, which the interactive prompt uses to keep the screen clean;
// a quiet logger with no file configured discards everything.
func newLogger(cfg *config.Config, otelProvider log.LoggerProvider, quiet bool) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	lc := logging.NewDefaultConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Output.Stderr = !quiet
	lc.Output.File = cfg.Logging.File
	lc.Output.OTEL = otelProvider != nil
	if !lc.Output.Enabled() {
		return logging.NewNop(), nil
	}
	return logging.NewLogger(lc, otelProvider)
}

// app is an opened registry and the logger it reports through.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  *registry.Store
	svc    *project.Service
}

func openApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	store, err := registry.NewStore(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}
	svc, err := project.Open(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry %s: %w", store.Path(), err)
	}
	return &app{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

// setup loads configuration and opens the registry for a one-shot command.
func setup(ctx context.Context, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	return a, nil
}

// close flushes a stale registry and releases the logger. A failed flush
// is the command's error unless it already has one.
func (a *app) close(ctx context.Context, errp *error) {
	if err := a.svc.Close(ctx); err != nil && *errp == nil {
		*errp = err
	}
	_ = a.logger.Close() // best-effort
}
