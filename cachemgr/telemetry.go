package cachemgr

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aperturestack/cachecore/observe"
)

// startSpan opens a span for meta via the configured Observer, or a
// no-op span when Config.Observer is nil. This mirrors
// observe.Tracer.StartSpan/EndSpan, which cachemgr cannot call
// directly since the package does not export a constructor wrapping
// an already-built observe.Observer's Tracer.
func (m *Manager) startSpan(ctx context.Context, meta observe.OperationMeta) (context.Context, trace.Span) {
	if m.cfg.Observer == nil {
		return ctx, nil
	}
	return m.cfg.Observer.Tracer().Start(ctx, meta.SpanName())
}

func (m *Manager) endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (m *Manager) logResult(ctx context.Context, meta observe.OperationMeta, err error) {
	if m.cfg.Observer == nil {
		return
	}
	logger := m.cfg.Observer.Logger().WithOperation(meta)
	if err != nil {
		logger.Error(ctx, "cache operation failed", observe.Field{Key: "error", Value: err.Error()})
		return
	}
	logger.Debug(ctx, "cache operation completed")
}
