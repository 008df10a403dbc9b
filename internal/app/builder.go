package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/api"
	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/service"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// Options is a function that configures the app builder
type Options func(*appConfig) error

// appConfig collects the inputs of NewApp. It supports dependency injection
// for testing while providing sensible defaults for production.
type appConfig struct {
	config  *config.Config
	watcher *config.Watcher

	// Optional component overrides (primarily for testing)
	database *db.Connection
	resolver feed.Resolver
	clock    clock.WithTicker
	debugSQL bool

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...Options) (*appConfig, error) {
	cfg := &appConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil && cfg.watcher != nil {
		cfg.config = cfg.watcher.Config()
	}

	return cfg, nil
}

// NewApp opens and migrates the database, restores source state and wires
// the update pipeline behind the admin HTTP server
func NewApp(ctx context.Context, opts ...Options) (*App, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	conn := cfg.database
	if conn == nil {
		conn, err = db.Open(ctx, cfg.config.Database, db.WithDebug(cfg.debugSQL))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
	}

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = conn.Close()
		}
	}()

	if err := database.MigrateUp(ctx, conn.DB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	components, err := buildComponents(ctx, cfg, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to build components: %w", err)
	}

	if cfg.watcher != nil {
		cfg.watcher.OnReload(func(c *config.Config) {
			components.ApplyConfig(ctx, c)
		})
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	return &App{
		config:     cfg.config,
		components: components,
		database:   conn,
		watcher:    cfg.watcher,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) Options {
	return func(cfg *appConfig) error {
		cfg.config = c
		return nil
	}
}

// WithConfigWatcher reloads the active flags of sources when the
// configuration file changes. The watcher's configuration is used unless
// WithConfig is also given.
func WithConfigWatcher(w *config.Watcher) Options {
	return func(cfg *appConfig) error {
		cfg.watcher = w
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) Options {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		parts := strings.SplitN(addr, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		host := parts[0]
		port := parts[1]

		if port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Options {
	return func(cfg *appConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithDatabase uses an already open connection (for testing)
func WithDatabase(conn *db.Connection) Options {
	return func(cfg *appConfig) error {
		cfg.database = conn
		return nil
	}
}

// WithResolver replaces the default feed dispatcher (for testing)
func WithResolver(r feed.Resolver) Options {
	return func(cfg *appConfig) error {
		cfg.resolver = r
		return nil
	}
}

// WithClock sets the clock driving scheduled checks (for testing)
func WithClock(c clock.WithTicker) Options {
	return func(cfg *appConfig) error {
		cfg.clock = c
		return nil
	}
}

// WithDebugSQL logs every database query
func WithDebugSQL(debug bool) Options {
	return func(cfg *appConfig) error {
		cfg.debugSQL = debug
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for HTTP and update metrics
func WithMeterProvider(mp metric.MeterProvider) Options {
	return func(cfg *appConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) Options {
	return func(cfg *appConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves the Prometheus scrape endpoint at /metrics
func WithMetricsHandler(h http.Handler) Options {
	return func(cfg *appConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildComponents builds the update pipeline and the admin service
func buildComponents(ctx context.Context, b *appConfig, conn *db.Connection) (*Components, error) {
	slog.Info("Initializing update components")

	var opts []ComponentOption
	if b.resolver != nil {
		opts = append(opts, WithComponentResolver(b.resolver))
	}
	if b.clock != nil {
		opts = append(opts, WithComponentClock(b.clock))
	}
	if b.meterProvider != nil {
		opts = append(opts, WithComponentMeterProvider(b.meterProvider))
	}
	if b.tracerProvider != nil {
		opts = append(opts, WithComponentTracerProvider(b.tracerProvider))
	}

	components, err := NewComponents(ctx, b.config, conn, opts...)
	if err != nil {
		return nil, err
	}

	slog.Info("Update components initialized successfully",
		"sources", len(components.Registry.List()),
		"active", len(components.Registry.Active()),
	)
	return components, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *appConfig,
	svc service.AdminService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Tracing wraps metrics so recorded durations fall inside the span
	var observability []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		observability = append(observability, telemetry.TracingMiddleware(b.tracerProvider))
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			observability = append(observability, metricsMiddleware)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	b.middlewares = append(observability, b.middlewares...)

	serverOpts := []api.ServerOption{api.WithMiddlewares(b.middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
