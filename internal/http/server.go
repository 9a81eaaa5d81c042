// Package http serves the project registry as a small web UI and a JSON API.
//
// Routes:
//
//	GET  /                       HTML list and create form
//	POST /projects               form submit
//	GET  /api/v1/projects        list
//	POST /api/v1/projects        create
//	GET  /api/v1/projects/:name  get
//	PUT  /api/v1/projects/:name  update
//	DELETE /api/v1/projects/:name
//	GET  /health
//	GET  /metrics                Prometheus
//
// project.Service is not safe for concurrent use, so every route that
// touches it runs under one mutex.
package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/projreg/internal/logging"
	"github.com/fyrsmithlabs/projreg/internal/project"
	"github.com/fyrsmithlabs/projreg/internal/registry"
	"github.com/fyrsmithlabs/projreg/internal/telemetry"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds HTTP server configuration.
type Config struct {
	Host      string
	Port      int
	RateLimit float64 // write requests per second per client IP, 0 disables
	RateBurst int
}

// Server provides the web UI and API over a project.Service.
type Server struct {
	echo   *echo.Echo
	svc    *project.Service
	logger *logging.Logger
	config *Config

	// mu serializes access to svc.
	mu sync.Mutex

	external atomic.Pointer[externalChange]

	telemetryHealth func() telemetry.HealthStatus
}

// Option configures optional server instrumentation.
type Option func(*options)

type options struct {
	meterProvider   metric.MeterProvider
	tracerProvider  trace.TracerProvider
	telemetryHealth func() telemetry.HealthStatus
}

// WithMeterProvider records HTTP metrics on mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider creates request spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithTelemetryHealth reports exporter health from fn on /health.
func WithTelemetryHealth(fn func() telemetry.HealthStatus) Option {
	return func(o *options) { o.telemetryHealth = fn }
}

// NewServer creates a server for svc.
func NewServer(svc *project.Service, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("project service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8501}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &templateRenderer{templates: tmpl}
	e.HTTPErrorHandler = jsonErrorHandler

	s := &Server{
		echo:   e,
		svc:    svc,
		logger: logger.Named("http"),
		config: cfg,

		telemetryHealth: o.telemetryHealth,
	}

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(tracing(o.tracerProvider))
	e.Use(requestLogger(s.logger))
	e.Use(NewHTTPMetrics(o.meterProvider, s.logger).MetricsMiddleware())
	if cfg.RateLimit > 0 {
		e.Use(writeRateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	e := s.echo
	locked := serialize(&s.mu)

	e.GET("/health", s.handleHealth, locked)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", s.handleIndex, locked)
	e.POST("/projects", s.handleFormCreate, locked)

	v1 := e.Group("/api/v1", locked)
	v1.GET("/projects", s.handleList)
	v1.POST("/projects", s.handleCreate)
	v1.GET("/projects/:name", s.handleGet)
	v1.PUT("/projects/:name", s.handleUpdate)
	v1.DELETE("/projects/:name", s.handleDelete)
}

// NoteExternalChange records that another process rewrote the registry file.
// The HTML page shows a warning from then on.
func (s *Server) NoteExternalChange(c registry.Change) {
	s.external.Store(&externalChange{
		Removed: c.Removed,
		At:      time.Now().Format(time.RFC3339),
	})
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on the configured address until Shutdown. It returns nil
// after a graceful shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

type templateRenderer struct {
	templates *template.Template
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// jsonErrorHandler writes {"error": ...} for every error that reaches echo.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
