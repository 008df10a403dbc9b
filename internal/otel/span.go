// Package otel holds the span helpers and attribute keys shared by the update
// pipeline and the admin API.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys
const (
	AttrSourceID        = attribute.Key("source.id")
	AttrSourceKind      = attribute.Key("source.kind")
	AttrTaskID          = attribute.Key("task.id")
	AttrTaskTrigger     = attribute.Key("task.trigger")
	AttrVersionMarker   = attribute.Key("source.version_marker")
	AttrEntriesAdded    = attribute.Key("entries.added")
	AttrEntriesModified = attribute.Key("entries.modified")
	AttrEntriesSkipped  = attribute.Key("entries.skipped")
	AttrResultCount     = attribute.Key("result.count")
	AttrLimit           = attribute.Key("query.limit")
)

// StartSpan starts a span on tracer. A nil tracer yields the span already in
// ctx, which is a no-op span when there is none.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// SourceAttributes describes the source a span works on
func SourceAttributes(id, kind string) trace.SpanStartOption {
	return trace.WithAttributes(AttrSourceID.String(id), AttrSourceKind.String(kind))
}

// RecordEntries adds the outcome of an applied payload to span
func RecordEntries(span trace.Span, added, modified, skipped int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		AttrEntriesAdded.Int(added),
		AttrEntriesModified.Int(modified),
		AttrEntriesSkipped.Int(skipped),
	)
}

// RecordError marks span as failed. The status text stays generic so store
// or endpoint details only appear in the exception event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
