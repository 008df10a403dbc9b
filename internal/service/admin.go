package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/pvpmeta/pvpmeta-server/internal/otel"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	pkgsync "github.com/pvpmeta/pvpmeta-server/internal/sync"
)

// ServiceTracerName is the name used for the admin service tracer
const ServiceTracerName = "github.com/pvpmeta/pvpmeta-server/service"

// AuditHistory reads audit records
type AuditHistory interface {
	History(ctx context.Context, sourceID string, limit int) ([]*status.AuditRecord, error)
	Recent(ctx context.Context, limit int) ([]*status.AuditRecord, error)
}

// SourceSaver persists the active flag of a source
type SourceSaver interface {
	SaveActive(ctx context.Context, d *source.Descriptor) error
}

// TaskView exposes the task currently being processed
type TaskView interface {
	Current() (*status.UpdateTask, bool)
}

// Updater triggers updates and reports bootstrap completion
type Updater interface {
	ForceUpdate(ctx context.Context) ([]*status.UpdateTask, error)
	Ready() bool
}

// adminService is the default implementation of AdminService
type adminService struct {
	registry *source.Registry
	sources  SourceSaver
	audit    AuditHistory
	queue    *pkgsync.Queue
	worker   TaskView
	updater  Updater
	tracer   trace.Tracer
}

// Option configures the admin service
type Option func(*adminService)

// WithRegistry sets the source registry
func WithRegistry(r *source.Registry) Option {
	return func(s *adminService) {
		s.registry = r
	}
}

// WithSourceRepository sets where toggled sources are persisted
func WithSourceRepository(r SourceSaver) Option {
	return func(s *adminService) {
		s.sources = r
	}
}

// WithAuditLog sets the audit record reader
func WithAuditLog(a AuditHistory) Option {
	return func(s *adminService) {
		s.audit = a
	}
}

// WithQueue sets the update queue
func WithQueue(q *pkgsync.Queue) Option {
	return func(s *adminService) {
		s.queue = q
	}
}

// WithWorker sets the view of the running task
func WithWorker(w TaskView) Option {
	return func(s *adminService) {
		s.worker = w
	}
}

// WithUpdater sets the force update entry point
func WithUpdater(u Updater) Option {
	return func(s *adminService) {
		s.updater = u
	}
}

// WithTracerProvider sets the tracer provider for service spans
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *adminService) {
		if tp != nil {
			s.tracer = tp.Tracer(ServiceTracerName)
		}
	}
}

// New creates the admin service
func New(opts ...Option) (AdminService, error) {
	s := &adminService{}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.registry == nil:
		return nil, errors.New("source registry is required")
	case s.sources == nil:
		return nil, errors.New("source repository is required")
	case s.audit == nil:
		return nil, errors.New("audit log is required")
	case s.queue == nil:
		return nil, errors.New("update queue is required")
	case s.updater == nil:
		return nil, errors.New("updater is required")
	}
	return s, nil
}

func (s *adminService) CheckReadiness(_ context.Context) error {
	if !s.updater.Ready() {
		return ErrNotReady
	}
	return nil
}

func (s *adminService) ListSources(ctx context.Context) ([]*source.Descriptor, error) {
	_, span := otel.StartSpan(ctx, s.tracer, "adminService.ListSources")
	defer span.End()

	sources := s.registry.List()
	span.SetAttributes(otel.AttrResultCount.Int(len(sources)))
	return sources, nil
}

func (s *adminService) GetSource(ctx context.Context, id string) (*source.Descriptor, error) {
	_, span := otel.StartSpan(ctx, s.tracer, "adminService.GetSource",
		trace.WithAttributes(otel.AttrSourceID.String(id)))
	defer span.End()

	src, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	return src, nil
}

func (s *adminService) SetSourceActive(ctx context.Context, id string, active bool) (*source.Descriptor, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "adminService.SetSourceActive",
		trace.WithAttributes(otel.AttrSourceID.String(id)))
	defer span.End()

	src, err := s.registry.SetActive(id, active)
	if errors.Is(err, source.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}

	if err := s.sources.SaveActive(ctx, src); err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	return src, nil
}

func (s *adminService) SourceHistory(ctx context.Context, id string, limit int) ([]*status.AuditRecord, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "adminService.SourceHistory",
		trace.WithAttributes(otel.AttrSourceID.String(id), otel.AttrLimit.Int(limit)))
	defer span.End()

	if _, ok := s.registry.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}

	records, err := s.audit.History(ctx, id, limit)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}

func (s *adminService) RecentUpdates(ctx context.Context, limit int) ([]*status.AuditRecord, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "adminService.RecentUpdates",
		trace.WithAttributes(otel.AttrLimit.Int(limit)))
	defer span.End()

	records, err := s.audit.Recent(ctx, limit)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(records)))
	return records, nil
}

func (s *adminService) QueueStatus(_ context.Context) (*QueueStatus, error) {
	qs := &QueueStatus{Pending: s.queue.Snapshot()}
	if s.worker != nil {
		if cur, ok := s.worker.Current(); ok {
			qs.Current = cur
		}
	}
	return qs, nil
}

func (s *adminService) ForceUpdate(ctx context.Context) ([]*status.UpdateTask, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "adminService.ForceUpdate")
	defer span.End()

	tasks, err := s.updater.ForceUpdate(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(tasks)))
	return tasks, nil
}
