package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/events"
	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/ingest"
	"github.com/pvpmeta/pvpmeta-server/internal/otel"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

const (
	// DefaultFetchTimeout bounds one payload fetch
	DefaultFetchTimeout = 2 * time.Minute

	// TracerName is the name used for detector and processor spans
	TracerName = "github.com/pvpmeta/pvpmeta-server/sync"
)

// Ingester applies a fetched document to the store
type Ingester interface {
	Apply(ctx context.Context, st store.Store, src *source.Descriptor, doc *feed.Document) (ingest.Result, error)
}

// AuditWriter records task lifecycle transitions
type AuditWriter interface {
	Begin(ctx context.Context, task *status.UpdateTask) error
	Finish(ctx context.Context, task *status.UpdateTask) error
}

// SourceSaver persists source state
type SourceSaver interface {
	Save(ctx context.Context, d *source.Descriptor) error
}

// Publisher announces task lifecycle events
type Publisher interface {
	Publish(ctx context.Context, kind events.Kind, task *status.UpdateTask)
}

// Dependencies are the collaborators of a Processor
type Dependencies struct {
	Queue    *Queue
	Registry *source.Registry
	Resolver feed.Resolver
	Ingester Ingester
	Store    store.Store
	Audit    AuditWriter
	Sources  SourceSaver
	Events   Publisher
}

func (d *Dependencies) validate() error {
	switch {
	case d.Queue == nil:
		return errors.New("queue is required")
	case d.Registry == nil:
		return errors.New("registry is required")
	case d.Resolver == nil:
		return errors.New("resolver is required")
	case d.Ingester == nil:
		return errors.New("ingester is required")
	case d.Store == nil:
		return errors.New("store is required")
	case d.Audit == nil:
		return errors.New("audit log is required")
	case d.Sources == nil:
		return errors.New("source repository is required")
	case d.Events == nil:
		return errors.New("event publisher is required")
	}
	return nil
}

// Processor is the single consumer of the update queue
type Processor struct {
	Dependencies

	clock        clock.PassiveClock
	fetchTimeout time.Duration
	metrics      *telemetry.UpdateMetrics
	tracer       trace.Tracer

	mu      gosync.Mutex
	current *status.UpdateTask

	kicks gosync.WaitGroup
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithProcessorClock sets the clock used for task timestamps
func WithProcessorClock(c clock.PassiveClock) ProcessorOption {
	return func(p *Processor) {
		p.clock = c
	}
}

// WithFetchTimeout bounds each payload fetch
func WithFetchTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

// WithProcessorMetrics sets the task metrics
func WithProcessorMetrics(m *telemetry.UpdateMetrics) ProcessorOption {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithProcessorTracer sets the tracer for task spans
func WithProcessorTracer(t trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		p.tracer = t
	}
}

// NewProcessor creates a processor over deps
func NewProcessor(deps Dependencies, opts ...ProcessorOption) (*Processor, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid processor dependencies: %w", err)
	}

	p := &Processor{
		Dependencies: deps,
		clock:        clock.RealClock{},
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Drain processes queued tasks until the queue is empty. It returns false
// when another drain is already running.
func (p *Processor) Drain(ctx context.Context) bool {
	return p.Queue.Drain(ctx, p.process)
}

// Kick starts a drain in the background. Kicks while a drain is running
// return immediately.
func (p *Processor) Kick(ctx context.Context) {
	if p.Queue.Draining() {
		return
	}
	p.kicks.Add(1)
	go func() {
		defer p.kicks.Done()
		p.Drain(ctx)
	}()
}

// Wait blocks until every kicked drain has returned
func (p *Processor) Wait() {
	p.kicks.Wait()
}

// Current returns a copy of the task being processed, if any
func (p *Processor) Current() (*status.UpdateTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	return p.current.Clone(), true
}

func (p *Processor) setCurrent(task *status.UpdateTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if task == nil {
		p.current = nil
		return
	}
	p.current = task.Clone()
}

func (p *Processor) process(ctx context.Context, task *status.UpdateTask) {
	ctx, span := otel.StartSpan(ctx, p.tracer, "sync.Processor.process",
		trace.WithAttributes(
			otel.AttrTaskID.String(task.ID.String()),
			otel.AttrTaskTrigger.String(string(task.Trigger)),
		),
		otel.SourceAttributes(task.SourceID, task.Kind))
	defer span.End()

	// Terminal records must be written even if the drain is being cancelled
	auditCtx := context.WithoutCancel(ctx)

	started := p.clock.Now().UTC()
	task.Status = status.TaskStatusInProgress
	task.StartedAt = &started
	p.setCurrent(task)
	defer p.setCurrent(nil)

	logger := slog.With("task", task.ID.String(), "source", task.SourceID, "trigger", task.Trigger)
	logger.Info("Starting update task", "kind", task.Kind, "priority", task.Priority)

	if err := p.Audit.Begin(auditCtx, task); err != nil {
		logger.Error("Failed to write audit record", "error", err)
	}
	p.Events.Publish(ctx, events.UpdateStart, task)

	src, result, marker, err := p.run(ctx, task)

	ended := p.clock.Now().UTC()
	task.EndedAt = &ended

	if err != nil {
		task.Status = status.TaskStatusFailed
		task.ErrorMessage = err.Error()
		otel.RecordError(span, err)

		if auditErr := p.Audit.Finish(auditCtx, task); auditErr != nil {
			logger.Error("Failed to write audit record", "error", auditErr)
		}
		p.metrics.RecordTask(ctx, task.SourceID, task.Kind, task.Duration(), false)
		logger.Error("Update task failed", "duration", task.Duration(), "error", err)
		p.Events.Publish(ctx, events.UpdateError, task)
		return
	}

	task.Status = status.TaskStatusCompleted
	task.Added = result.Added
	task.Modified = result.Modified
	task.Skipped = result.Skipped
	task.VersionMarker = marker
	span.SetAttributes(otel.AttrVersionMarker.String(marker))
	otel.RecordEntries(span, task.Added, task.Modified, task.Skipped)

	if err := p.Audit.Finish(auditCtx, task); err != nil {
		logger.Error("Failed to write audit record", "error", err)
	}

	if updated, err := p.Registry.MarkUpdated(src.ID, marker, ended); err != nil {
		logger.Error("Failed to advance source marker", "error", err)
	} else if err := p.Sources.Save(auditCtx, updated); err != nil {
		logger.Error("Failed to persist source state", "error", err)
	}

	p.metrics.RecordTask(ctx, task.SourceID, task.Kind, task.Duration(), true)
	p.metrics.RecordEntries(ctx, task.SourceID, task.Added, task.Modified, task.Skipped)
	logger.Info("Update task completed",
		"duration", task.Duration(),
		"added", task.Added,
		"modified", task.Modified,
		"skipped", task.Skipped,
		"marker", marker)
	p.Events.Publish(ctx, events.UpdateComplete, task)
}

func (p *Processor) run(ctx context.Context, task *status.UpdateTask) (*source.Descriptor, ingest.Result, string, error) {
	src, ok := p.Registry.Get(task.SourceID)
	if !ok {
		return nil, ingest.Result{}, "", fmt.Errorf("%w: %s", source.ErrNotFound, task.SourceID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	doc, err := p.Resolver.FetchPayload(fetchCtx, src)
	cancel()
	if err != nil {
		return src, ingest.Result{}, "", err
	}

	result, err := p.Ingester.Apply(ctx, p.Store, src, doc)
	if err != nil {
		return src, ingest.Result{}, "", err
	}
	return src, result, doc.VersionMarker, nil
}
