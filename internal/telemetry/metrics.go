// Package telemetry provides OpenTelemetry instrumentation for pvpmeta-server.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SourceMetricsMeterName is the name used for the source metrics meter
	SourceMetricsMeterName = "github.com/pvpmeta/pvpmeta-server/source"

	// UpdateMetricsMeterName is the name used for the update pipeline meter
	UpdateMetricsMeterName = "github.com/pvpmeta/pvpmeta-server/update"
)

// Detection results recorded by RecordDetection
const (
	DetectionChanged   = "changed"
	DetectionUnchanged = "unchanged"
	DetectionError     = "error"
)

// SourceMetrics holds the OpenTelemetry instruments for source state
type SourceMetrics struct {
	activeSources metric.Int64Gauge
}

// NewSourceMetrics creates a new SourceMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSourceMetrics(provider metric.MeterProvider) (*SourceMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SourceMetricsMeterName)

	activeSources, err := meter.Int64Gauge(
		"pvpmeta_sources_active",
		metric.WithDescription("Number of active sources"),
		metric.WithUnit("{source}"),
	)
	if err != nil {
		return nil, err
	}

	return &SourceMetrics{
		activeSources: activeSources,
	}, nil
}

// RecordActiveSources records the number of sources taking part in updates
func (m *SourceMetrics) RecordActiveSources(ctx context.Context, count int64) {
	if m == nil || m.activeSources == nil {
		return
	}
	m.activeSources.Record(ctx, count)
}

// UpdateMetrics holds the OpenTelemetry instruments for the update pipeline
type UpdateMetrics struct {
	taskDuration metric.Float64Histogram
	entries      metric.Int64Counter
	detections   metric.Int64Counter
	queueDepth   metric.Int64Gauge
}

// NewUpdateMetrics creates a new UpdateMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewUpdateMetrics(provider metric.MeterProvider) (*UpdateMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(UpdateMetricsMeterName)

	taskDuration, err := meter.Float64Histogram(
		"pvpmeta_update_duration_seconds",
		metric.WithDescription("Duration of update tasks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	entries, err := meter.Int64Counter(
		"pvpmeta_update_entries_total",
		metric.WithDescription("Entries processed by update tasks"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	detections, err := meter.Int64Counter(
		"pvpmeta_detections_total",
		metric.WithDescription("Change detection attempts"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"pvpmeta_queue_depth",
		metric.WithDescription("Number of pending update tasks"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, err
	}

	return &UpdateMetrics{
		taskDuration: taskDuration,
		entries:      entries,
		detections:   detections,
		queueDepth:   queueDepth,
	}, nil
}

// RecordTask records the duration and outcome of an update task
func (m *UpdateMetrics) RecordTask(ctx context.Context, sourceID, kind string, duration time.Duration, success bool) {
	if m == nil || m.taskDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", sourceID),
		attribute.String("kind", kind),
		attribute.Bool("success", success),
	}

	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEntries adds the added, modified and skipped counts of a task
func (m *UpdateMetrics) RecordEntries(ctx context.Context, sourceID string, added, modified, skipped int) {
	if m == nil || m.entries == nil {
		return
	}

	for op, n := range map[string]int{"added": added, "modified": modified, "skipped": skipped} {
		if n == 0 {
			continue
		}
		m.entries.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("source", sourceID),
			attribute.String("op", op),
		))
	}
}

// RecordDetection counts a change detection attempt with its result
func (m *UpdateMetrics) RecordDetection(ctx context.Context, sourceID, result string) {
	if m == nil || m.detections == nil {
		return
	}

	m.detections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", sourceID),
		attribute.String("result", result),
	))
}

// RecordQueueDepth records the number of pending tasks
func (m *UpdateMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Record(ctx, int64(depth))
}
