package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta contains metadata about a cache operation for
// telemetry purposes.
type OperationMeta struct {
	Key        string   // Full cache key, when already resolved
	EntityType string   // Entity type label (may be empty)
	Operation  string   // "get", "set", "delete", ... (required)
	Strategy   string   // Strategy executed, if any (optional)
	Tags       []string // Entry tags, for discovery (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: cache.op.<entityType>.<operation> or cache.op.<operation>
func (m OperationMeta) SpanName() string {
	if m.EntityType != "" {
		return "cache.op." + m.EntityType + "." + m.Operation
	}
	return "cache.op." + m.Operation
}

// Validate reports whether the metadata is usable: Operation must be set.
func (m OperationMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperation
	}
	return nil
}

// OperationID returns the fully qualified operation identifier. If Key
// is set, returns it. Otherwise constructs from entity type and operation.
func (m OperationMeta) OperationID() string {
	if m.Key != "" {
		return m.Key
	}
	if m.EntityType != "" {
		return m.EntityType + "." + m.Operation
	}
	return m.Operation
}

// Tracer wraps OpenTelemetry tracing with cache-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context derived from ctx that carries the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cache operation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("cache.key", meta.OperationID()),
		attribute.String("cache.operation", meta.Operation),
		attribute.Bool("cache.error", false), // Will be updated in EndSpan if error
	}

	if meta.EntityType != "" {
		attrs = append(attrs, attribute.String("cache.entity_type", meta.EntityType))
	}
	if meta.Strategy != "" {
		attrs = append(attrs, attribute.String("cache.strategy", meta.Strategy))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("cache.tags", meta.Tags))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
