package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/feed"
	"github.com/pvpmeta/pvpmeta-server/internal/otel"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_detector.go -package=mocks -source=detector.go ChangeDetector

// ChangeDetector decides whether a source needs an update
type ChangeDetector interface {
	Detect(ctx context.Context, src *source.Descriptor) bool
}

// AuditReader returns the last completed audit record of a source
type AuditReader interface {
	LastCompleted(ctx context.Context, sourceID string) (*status.AuditRecord, bool, error)
}

// Detection is the outcome of one change check
type Detection struct {
	// Changed is true when Current differs from Previous or no completed
	// update exists yet
	Changed bool

	// Current is the marker resolved from the remote source
	Current string

	// Previous is the marker of the last completed update, empty if none
	Previous string
}

// Detector decides whether a source has new data
type Detector struct {
	resolver feed.Resolver
	audit    AuditReader
	registry *source.Registry
	clock    clock.PassiveClock
	timeout  time.Duration
	metrics  *telemetry.UpdateMetrics
	tracer   trace.Tracer
}

// DetectorOption configures a Detector
type DetectorOption func(*Detector)

// WithDetectorClock sets the clock used to stamp LastCheckedAt
func WithDetectorClock(c clock.PassiveClock) DetectorOption {
	return func(d *Detector) {
		d.clock = c
	}
}

// WithResolveTimeout bounds each remote marker resolution
func WithResolveTimeout(d time.Duration) DetectorOption {
	return func(det *Detector) {
		if d > 0 {
			det.timeout = d
		}
	}
}

// WithDetectorMetrics sets the detection metrics
func WithDetectorMetrics(m *telemetry.UpdateMetrics) DetectorOption {
	return func(d *Detector) {
		d.metrics = m
	}
}

// WithDetectorTracer sets the tracer for detection spans
func WithDetectorTracer(t trace.Tracer) DetectorOption {
	return func(d *Detector) {
		d.tracer = t
	}
}

// NewDetector creates a detector comparing remote markers against the audit log
func NewDetector(resolver feed.Resolver, audit AuditReader, registry *source.Registry, opts ...DetectorOption) *Detector {
	d := &Detector{
		resolver: resolver,
		audit:    audit,
		registry: registry,
		clock:    clock.RealClock{},
		timeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check resolves the remote marker of src and compares it with the last
// completed update. LastCheckedAt is stamped only when the check succeeds.
func (d *Detector) Check(ctx context.Context, src *source.Descriptor) (Detection, error) {
	ctx, span := otel.StartSpan(ctx, d.tracer, "sync.Detector.Check",
		otel.SourceAttributes(src.ID, string(src.Kind)))
	defer span.End()

	resolveCtx, cancel := context.WithTimeout(ctx, d.timeout)
	current, err := d.resolver.ResolveVersionMarker(resolveCtx, src)
	cancel()
	if err != nil {
		otel.RecordError(span, err)
		return Detection{}, err
	}

	last, found, err := d.audit.LastCompleted(ctx, src.ID)
	if err != nil {
		err = fmt.Errorf("failed to read last completed update of %s: %w", src.ID, err)
		otel.RecordError(span, err)
		return Detection{}, err
	}

	det := Detection{Current: current, Changed: true}
	if found {
		det.Previous = last.VersionMarker
		det.Changed = last.VersionMarker != current
	}

	if _, err := d.registry.MarkChecked(src.ID, d.clock.Now().UTC()); err != nil {
		otel.RecordError(span, err)
		return Detection{}, err
	}

	span.SetAttributes(otel.AttrVersionMarker.String(current))
	return det, nil
}

// Detect reports whether src has changed since its last completed update.
// Any failure is logged and reported as no change.
func (d *Detector) Detect(ctx context.Context, src *source.Descriptor) bool {
	det, err := d.Check(ctx, src)
	if err != nil {
		slog.Warn("Change detection failed",
			"source", src.ID,
			"endpoint", src.Endpoint.String(),
			"error", err)
		d.metrics.RecordDetection(ctx, src.ID, telemetry.DetectionError)
		return false
	}

	if !det.Changed {
		slog.Debug("Source unchanged", "source", src.ID, "marker", det.Current)
		d.metrics.RecordDetection(ctx, src.ID, telemetry.DetectionUnchanged)
		return false
	}

	slog.Info("Source changed",
		"source", src.ID,
		"previous_marker", det.Previous,
		"current_marker", det.Current)
	d.metrics.RecordDetection(ctx, src.ID, telemetry.DetectionChanged)
	return true
}
