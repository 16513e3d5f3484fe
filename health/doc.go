// Package health provides health checking primitives for this cache core.
//
// cachemgr.Manager registers a [Checker] per configured store (wrapping
// store.Store.Health) plus a [MemoryChecker] for process memory pressure
// into one [Aggregator], and serves the combined result from
// cachemgr.Manager.GetHealthStatus / cachemgr.Manager.HealthHandler.
//
// # Ecosystem Position
//
// health feeds the manager's own HTTP surface rather than a standalone
// service mesh probe set:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     Health Check Architecture                   │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│   Operator          health              Components               │
//	│   ┌─────────┐      ┌───────────┐        ┌───────────┐          │
//	│   │ GET     │─────▶│ cachemgr  │        │  Primary  │          │
//	│   │/health  │      │.Health    │◀───────│  Store    │          │
//	│   └─────────┘      │ Handler   │        ├───────────┤          │
//	│                    │           │        │  Fallback │          │
//	│                    │ ┌───────┐ │◀───────│  Store    │          │
//	│                    │ │Aggreg-│ │        ├───────────┤          │
//	│                    │ │ ator  │◀┼────────│  Memory   │          │
//	│                    │ └───────┘ │        │  Checker  │          │
//	│                    └───────────┘        └───────────┘          │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Status Types
//
// The [Status] type represents component health:
//
//   - [StatusHealthy]: Component is functioning normally
//   - [StatusDegraded]: Component is functioning but with issues
//   - [StatusUnhealthy]: Component is not functioning properly
//
// # Core Components
//
//   - [Checker]: Interface for health checks (Name() + Check())
//   - [CheckerFunc]: Adapter for function-based checkers
//   - [Result]: Health check outcome with status, message, details, duration
//   - [Aggregator]: Combines multiple checkers into composite health
//   - [MemoryChecker]: Built-in checker for memory usage thresholds
//
// # Quick Start
//
//	memCheck := health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    WarningThreshold:  0.80,
//	    CriticalThreshold: 0.95,
//	})
//
//	storeCheck := health.NewCheckerFunc("primary", func(ctx context.Context) health.Result {
//	    if err := primaryStore.Health(ctx); err != nil {
//	        return health.Unhealthy("store unreachable", err)
//	    }
//	    return health.Healthy("reachable")
//	})
//
//	agg := health.NewAggregator()
//	agg.Register("memory", memCheck)
//	agg.Register("primary", storeCheck)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package also provides generic Kubernetes-compatible handlers,
// usable directly or alongside cachemgr.Manager.HealthHandler:
//
//   - [LivenessHandler]: Simple /healthz endpoint - always returns 200 if running
//   - [ReadinessHandler]: Runs all checks, returns 503 if any unhealthy
//   - [DetailedHandler]: Returns JSON with full check details
//   - [SingleCheckHandler]: Check a specific component by name
//   - [RegisterHandlers]: Convenience function to register all handlers
//
// # Aggregation Behavior
//
// The [Aggregator] computes overall status using worst-case logic:
//
//   - If ANY check is Unhealthy → overall Unhealthy
//   - If ANY check is Degraded (and none Unhealthy) → overall Degraded
//   - If ALL checks are Healthy → overall Healthy
//
// Checks can run in parallel (default) or sequentially via [AggregatorConfig].
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Aggregator]: sync.RWMutex protects registration and check execution
//   - [MemoryChecker]: Stateless, concurrent-safe
//   - [CheckerFunc]: Delegates to user function, ensure your function is safe
//   - [Result]: Immutable after creation
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrCheckFailed]: Generic health check failure
//   - [ErrCheckTimeout]: Check exceeded timeout
//   - [ErrCheckerNotFound]: Named checker not registered
//   - [ErrNoCheckers]: No checkers registered in aggregator
//
// # Integration
//
// health is consumed directly by cachemgr: the manager builds the
// Aggregator in NewManager, registers one checker per store plus the
// memory checker, and exposes the result through GetHealthStatus and
// the JSON HealthHandler. resilience.CircuitBreaker.State() is reported
// alongside the health snapshot rather than folded into it, since an
// open circuit is a transient backoff, not a store health verdict.
package health
