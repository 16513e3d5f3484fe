// Package observe provides OpenTelemetry-based observability for cache
// operations.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers (the cachemgr composition root) wire the
// Observer into every Get/Set/Invalidate call directly.
//
// # Overview
//
// observe provides three observability pillars:
//   - Tracing: OpenTelemetry spans with cache operation metadata attributes
//   - Metrics: Operation counters and duration histograms
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, Meter, and Logger access
//   - [Tracer]: Span creation with operation metadata as span attributes
//   - [Metrics]: Records operation counts, errors, and duration histograms
//   - [Logger]: Structured JSON logging with sensitive field redaction
//
// # Quick Start
//
//	cfg := observe.Config{
//	    ServiceName: "cachecore",
//	    Version:     "1.0.0",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
//	meta := observe.OperationMeta{EntityType: "company", Operation: "get", Key: "cache:company:42"}
//	ctx, span := obs.Tracer().Start(ctx, meta.SpanName())
//	// ... perform the operation ...
//	span.End()
//
// # Telemetry Details
//
// Tracing creates spans with deterministic names:
//   - With entity type: "cache.op.<entityType>.<operation>" (e.g., "cache.op.company.get")
//   - Without entity type: "cache.op.<operation>" (e.g., "cache.op.cleanup")
//
// Span attributes include:
//   - cache.key: Resolved cache key, or a synthesized operation id
//   - cache.operation: Operation name (required)
//   - cache.entity_type: Entity type (if set)
//   - cache.strategy: Strategy executed (if set)
//   - cache.tags: Entry tags (if set)
//   - cache.error: Boolean indicating operation failure
//
// Metrics recorded:
//   - cache.op.total (counter): Total operations
//   - cache.op.errors (counter): Total errors
//   - cache.op.duration_ms (histogram): Duration distribution in milliseconds
//
// All metrics include labels: cache.key, cache.operation, cache.entity_type (if set).
//
// # Sensitive Field Redaction
//
// The logger automatically redacts these fields to prevent credential leakage:
//   - input, inputs
//   - password, secret, token
//   - api_key, apiKey, credential
//
// See [RedactedFields] for the complete list.
//
// # Exporter Configuration
//
// Tracing exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT)
//   - "jaeger": Jaeger via OTLP (requires OTEL_EXPORTER_JAEGER_ENDPOINT)
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// Metrics exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT)
//   - "prometheus": Prometheus scrape endpoint
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//   - [Observer]: Tracer(), Meter(), Logger() are safe; Shutdown() is idempotent
//   - [Tracer]: StartSpan() and EndSpan() are safe for concurrent use
//   - [Metrics]: RecordCacheOp() is safe for concurrent use
//   - [Logger]: All logging methods are mutex-protected
//
// # Error Handling
//
// Configuration errors (use errors.Is for checking):
//   - [ErrMissingServiceName]: Config.ServiceName is empty
//   - [ErrInvalidSamplePct]: Tracing.SamplePct not in [0.0, 1.0]
//   - [ErrInvalidTracingExporter]: Unknown tracing exporter name
//   - [ErrInvalidMetricsExporter]: Unknown metrics exporter name
//   - [ErrInvalidLogLevel]: Unknown log level
//
// Exporter errors:
//   - [ErrEndpointNotConfigured]: Required endpoint env var not set
//
// Runtime errors:
//   - [ErrNilObserver]: Nil Observer passed to function
//   - [ErrMissingOperation]: OperationMeta.Operation is empty
//
// Example error handling:
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if errors.Is(err, observe.ErrMissingServiceName) {
//	    // Handle missing service name
//	}
//	if errors.Is(err, observe.ErrEndpointNotConfigured) {
//	    // Handle missing OTLP endpoint
//	}
package observe
