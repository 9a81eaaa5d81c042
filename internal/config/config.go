// Package config provides configuration loading for projreg.
//
// Values come from, lowest precedence first: Default, an optional YAML
// file, PROJREG_* environment variables, and finally command-line flags
// applied by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultRegistryFile is the backing file used when none is configured.
// It is resolved against the process working directory.
const DefaultRegistryFile = "projects.json"

// Config holds the complete projreg configuration.
type Config struct {
	Registry      RegistryConfig      `koanf:"registry"`
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// RegistryConfig locates the backing file.
type RegistryConfig struct {
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"` // warn when another process rewrites the file
}

// ServerConfig holds web UI server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"` // write requests per second per client, 0 disables
	RateBurst       int      `koanf:"rate_burst"`
}

// LoggingConfig holds the user-facing logging knobs.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"` // "grpc" or "http/protobuf"
	Insecure        bool   `koanf:"insecure"`
	TLSSkipVerify   bool   `koanf:"tls_skip_verify"`
	ServiceName     string `koanf:"service_name"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			Path:  DefaultRegistryFile,
			Watch: true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8501,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       5,
			RateBurst:       10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			ServiceName:     "projreg",
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the registry path is empty
//   - the server port is not between 1 and 65535
//   - the shutdown timeout is not positive
//   - the rate limit or burst is negative
//   - the log format is unknown
//   - telemetry is enabled without an endpoint or service name
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Registry.Path) == "" {
		return errors.New("registry path cannot be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative: %v", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 0 {
		return fmt.Errorf("rate burst cannot be negative: %d", c.Server.RateBurst)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.Endpoint == "" {
			return errors.New("endpoint required when telemetry is enabled")
		}
		if c.Observability.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
	}

	return nil
}
