package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/audit"
	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/db"
	"github.com/pvpmeta/pvpmeta-server/internal/events"
	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/ingest"
	"github.com/pvpmeta/pvpmeta-server/internal/service"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	pkgsync "github.com/pvpmeta/pvpmeta-server/internal/sync"
	"github.com/pvpmeta/pvpmeta-server/internal/sync/coordinator"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

// Components groups everything that operates on the store
type Components struct {
	Store    *store.BunStore
	Registry *source.Registry
	Sources  *source.Repository
	Audit    *audit.Log
	Events   *events.Bus
	Queue    *pkgsync.Queue

	// Processor drains the queue one task at a time
	Processor *pkgsync.Processor

	// Coordinator runs the scheduled checks and the bootstrap
	Coordinator coordinator.Coordinator

	// Service backs the admin API
	Service service.AdminService

	// SourceMetrics is nil when no meter provider is configured
	SourceMetrics *telemetry.SourceMetrics
}

// ComponentOption configures how components are built
type ComponentOption func(*componentConfig)

type componentConfig struct {
	resolver       feed.Resolver
	clock          clock.WithTicker
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// WithComponentResolver replaces the default feed dispatcher
func WithComponentResolver(r feed.Resolver) ComponentOption {
	return func(c *componentConfig) {
		c.resolver = r
	}
}

// WithComponentClock sets the clock shared by the queue, detector,
// processor and coordinator
func WithComponentClock(clk clock.WithTicker) ComponentOption {
	return func(c *componentConfig) {
		c.clock = clk
	}
}

// WithComponentMeterProvider enables update and source metrics
func WithComponentMeterProvider(mp metric.MeterProvider) ComponentOption {
	return func(c *componentConfig) {
		c.meterProvider = mp
	}
}

// WithComponentTracerProvider enables detector, processor and service spans
func WithComponentTracerProvider(tp trace.TracerProvider) ComponentOption {
	return func(c *componentConfig) {
		c.tracerProvider = tp
	}
}

// NewComponents builds the update pipeline over an open, migrated
// connection. Persisted source state is restored into the registry.
func NewComponents(
	ctx context.Context,
	cfg *config.Config,
	conn *db.Connection,
	opts ...ComponentOption,
) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if conn == nil {
		return nil, errors.New("database connection cannot be nil")
	}

	cc := &componentConfig{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(cc)
	}
	if cc.resolver == nil {
		cc.resolver = feed.NewDispatcher(cfg.GetFetchTimeout(), feed.WithClock(cc.clock))
	}

	c := &Components{
		Store:  store.New(conn.DB),
		Events: events.NewBus(),
	}

	var err error
	c.Registry, err = source.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build source registry: %w", err)
	}
	c.Sources = source.NewRepository(c.Store)
	if err := c.Sources.Load(ctx, c.Registry); err != nil {
		return nil, fmt.Errorf("failed to restore source state: %w", err)
	}
	c.Audit = audit.NewLog(c.Store)

	var updateMetrics *telemetry.UpdateMetrics
	if cc.meterProvider != nil {
		updateMetrics, err = telemetry.NewUpdateMetrics(cc.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create update metrics: %w", err)
		}
		c.SourceMetrics, err = telemetry.NewSourceMetrics(cc.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create source metrics: %w", err)
		}
		slog.Info("Update metrics enabled")
	}

	var tracer trace.Tracer
	if cc.tracerProvider != nil {
		tracer = cc.tracerProvider.Tracer(pkgsync.TracerName)
	}

	ingester, err := ingest.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create ingester: %w", err)
	}

	c.Queue = pkgsync.NewQueue(
		pkgsync.WithQueueClock(cc.clock),
		pkgsync.WithQueueMetrics(updateMetrics),
	)

	detector := pkgsync.NewDetector(cc.resolver, c.Audit, c.Registry,
		pkgsync.WithDetectorClock(cc.clock),
		pkgsync.WithResolveTimeout(cfg.GetFetchTimeout()),
		pkgsync.WithDetectorMetrics(updateMetrics),
		pkgsync.WithDetectorTracer(tracer),
	)

	c.Processor, err = pkgsync.NewProcessor(pkgsync.Dependencies{
		Queue:    c.Queue,
		Registry: c.Registry,
		Resolver: cc.resolver,
		Ingester: ingester,
		Store:    c.Store,
		Audit:    c.Audit,
		Sources:  c.Sources,
		Events:   c.Events,
	},
		pkgsync.WithProcessorClock(cc.clock),
		pkgsync.WithFetchTimeout(cfg.GetFetchTimeout()),
		pkgsync.WithProcessorMetrics(updateMetrics),
		pkgsync.WithProcessorTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}

	species := func(ctx context.Context) (int, error) {
		return ingest.CountPokemon(ctx, c.Store)
	}
	c.Coordinator = coordinator.New(c.Registry, c.Queue, detector, c.Processor, species,
		coordinator.WithClock(cc.clock),
		coordinator.WithStartupDelay(cfg.GetStartupDelay()),
		coordinator.WithSourceMetrics(c.SourceMetrics),
	)

	c.Service, err = service.New(
		service.WithRegistry(c.Registry),
		service.WithSourceRepository(c.Sources),
		service.WithAuditLog(c.Audit),
		service.WithQueue(c.Queue),
		service.WithWorker(c.Processor),
		service.WithUpdater(c.Coordinator),
		service.WithTracerProvider(cc.tracerProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin service: %w", err)
	}

	return c, nil
}

// ApplyConfig re-applies the active flags of a reloaded configuration and
// persists the sources whose flag changed
func (c *Components) ApplyConfig(ctx context.Context, cfg *config.Config) {
	before := make(map[string]bool)
	for _, d := range c.Registry.List() {
		before[d.ID] = d.Active
	}

	c.Registry.ApplyConfig(cfg)

	active := 0
	for _, d := range c.Registry.List() {
		if d.Active {
			active++
		}
		if prev, ok := before[d.ID]; ok && prev == d.Active {
			continue
		}
		if err := c.Sources.SaveActive(ctx, d); err != nil {
			slog.Error("Failed to persist source", "source", d.ID, "error", err)
		}
	}
	c.SourceMetrics.RecordActiveSources(ctx, int64(active))
}
