// Package otel provides OpenTelemetry span helpers shared by the reconciler packages.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehving/noticesystem-sub000/internal/entity"
)

// Attribute keys used on reconciler spans.
const (
	AttrEntityType   = attribute.Key("entity.type")
	AttrEntityID     = attribute.Key("entity.id")
	AttrAction       = attribute.Key("sync.action")
	AttrSourceStore  = attribute.Key("sync.source_store")
	AttrTargetStore  = attribute.Key("sync.target_store")
	AttrTicketID     = attribute.Key("conflict.ticket_id")
	AttrConflictType = attribute.Key("conflict.type")
	AttrJobName      = attribute.Key("job.name")
	AttrResultCount  = attribute.Key("result.count")
)

// WithEntity tags a span with the entity it concerns.
func WithEntity(t entity.Type, id string) trace.SpanStartOption {
	return trace.WithAttributes(AttrEntityType.String(string(t)), AttrEntityID.String(id))
}

// StartSpan starts a new span if the tracer is non-nil, otherwise returns
// the span already in ctx (a no-op span when there is none).
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

// RecordError records err as a span event and fails the span. The status
// description is fixed; store errors may quote SQL or a DSN.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
