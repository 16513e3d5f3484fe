package observe

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_Info_MultipleFields measures logging with multiple fields.
func BenchmarkLogger_Info_MultipleFields(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	fields := []Field{
		{Key: "field1", Value: "value1"},
		{Key: "field2", Value: 42},
		{Key: "field3", Value: true},
		{Key: "field4", Value: 3.14},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", fields...)
	}
}

// BenchmarkLogger_WithOperation measures creating operation-scoped loggers.
func BenchmarkLogger_WithOperation(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	meta := OperationMeta{
		Operation:  "get",
		EntityType: "ns",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = logger.WithOperation(meta)
	}
}

// BenchmarkLogger_WithOperation_ThenLog measures the full pattern of creating
// an operation logger and logging.
func BenchmarkLogger_WithOperation_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := OperationMeta{
		Operation:  "get",
		EntityType: "ns",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		opLogger := logger.WithOperation(meta)
		opLogger.Info(ctx, "cache operation", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_LevelFiltering measures overhead of level filtering.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard) // Only error level
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// These should be filtered out (no actual logging)
		logger.Debug(ctx, "filtered debug")
		logger.Info(ctx, "filtered info")
		logger.Warn(ctx, "filtered warn")
	}
}

// BenchmarkOperationMeta_SpanName measures span name generation.
func BenchmarkOperationMeta_SpanName(b *testing.B) {
	meta := OperationMeta{
		Operation:  "get",
		EntityType: "company",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

// BenchmarkOperationMeta_SpanName_NoEntityType measures span name without entity type.
func BenchmarkOperationMeta_SpanName_NoEntityType(b *testing.B) {
	meta := OperationMeta{
		Operation: "cleanup",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

// BenchmarkOperationMeta_OperationID measures operation ID generation.
func BenchmarkOperationMeta_OperationID(b *testing.B) {
	meta := OperationMeta{
		Operation:  "get",
		EntityType: "company",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.OperationID()
	}
}

// BenchmarkTracer_StartEndSpan measures tracer span lifecycle (noop).
func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tracer := newNoopTracer()
	ctx := context.Background()
	meta := OperationMeta{
		Operation:  "get",
		EntityType: "ns",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ctx, span := tracer.StartSpan(ctx, meta)
		tracer.EndSpan(span, nil)
		_ = ctx
	}
}

// BenchmarkMetrics_RecordCacheOp measures metrics recording.
func BenchmarkMetrics_RecordCacheOp(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		b.Fatalf("failed to create metrics: %v", err)
	}

	meta := OperationMeta{Operation: "get", EntityType: "ns"}
	duration := 100 * time.Millisecond

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordCacheOp(ctx, meta, duration, nil)
	}
}

// BenchmarkMetrics_RecordCacheOp_WithError measures metrics with error.
func BenchmarkMetrics_RecordCacheOp_WithError(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		b.Fatalf("failed to create metrics: %v", err)
	}

	meta := OperationMeta{Operation: "get", EntityType: "ns"}
	duration := 100 * time.Millisecond
	opErr := fmt.Errorf("benchmark error")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordCacheOp(ctx, meta, duration, opErr)
	}
}

// BenchmarkConcurrent_Logger measures concurrent logging.
func BenchmarkConcurrent_Logger(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			logger.Info(ctx, "concurrent message", Field{Key: "iteration", Value: i})
			i++
		}
	})
}

// BenchmarkConcurrent_Tracer measures concurrent span creation.
func BenchmarkConcurrent_Tracer(b *testing.B) {
	tracer := newNoopTracer()
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			meta := OperationMeta{
				Operation:  "get",
				EntityType: fmt.Sprintf("ns_%d", i%10),
			}
			_, span := tracer.StartSpan(ctx, meta)
			tracer.EndSpan(span, nil)
			i++
		}
	})
}

// BenchmarkConfig_Validate measures configuration validation.
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench-service",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
