package cachemetrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelInstruments wraps the counters and histogram exported to an OTel
// meter, tagged with cache-operation attributes instead of the
// tool-execution attributes observe.metricsImpl uses.
type otelInstruments struct {
	opsTotal   metric.Int64Counter
	opsErrors  metric.Int64Counter
	opDuration metric.Float64Histogram
	bytesHeld  metric.Int64UpDownCounter
}

func newOtelInstruments(meter metric.Meter) (*otelInstruments, error) {
	if meter == nil {
		return nil, nil
	}
	opsTotal, err := meter.Int64Counter(
		"cache.ops.total",
		metric.WithDescription("Total number of cache operations"),
		metric.WithUnit("{op}"),
	)
	if err != nil {
		return nil, err
	}
	opsErrors, err := meter.Int64Counter(
		"cache.ops.errors",
		metric.WithDescription("Total number of failed cache operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}
	opDuration, err := meter.Float64Histogram(
		"cache.op.duration_ms",
		metric.WithDescription("Cache operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	bytesHeld, err := meter.Int64UpDownCounter(
		"cache.bytes_held",
		metric.WithDescription("Bytes currently held by the cache"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	return &otelInstruments{
		opsTotal:   opsTotal,
		opsErrors:  opsErrors,
		opDuration: opDuration,
		bytesHeld:  bytesHeld,
	}, nil
}

func (o *otelInstruments) record(ctx context.Context, dp DataPoint) {
	if o == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("cache.operation", string(dp.Operation)),
		attribute.String("cache.entity_type", dp.EntityType),
		attribute.Bool("cache.hit", dp.Hit),
	}
	if dp.Strategy != "" {
		attrs = append(attrs, attribute.String("cache.strategy", dp.Strategy))
	}
	opt := metric.WithAttributes(attrs...)

	o.opsTotal.Add(ctx, 1, opt)
	if dp.Err != nil {
		o.opsErrors.Add(ctx, 1, opt)
	}
	o.opDuration.Record(ctx, float64(dp.Duration.Milliseconds()), opt)
	if dp.Bytes != 0 {
		o.bytesHeld.Add(ctx, dp.Bytes, metric.WithAttributes(
			attribute.String("cache.entity_type", dp.EntityType),
		))
	}
}
