// Package resilience provides the resilience patterns the cache core applies
// at specific points, rather than chaining all of them around every call:
//
//   - [CircuitBreaker]: guards primary-store access in cachemgr.Manager.Get,
//     opening after repeated store failures and half-opening after a reset
//     timeout.
//   - [Bulkhead]: caps the number of concurrent background refreshes the
//     REFRESH_AHEAD strategy may have in flight.
//   - [Timeout]: bounds a background refresh and a stampede-protected
//     caller's wait on an in-flight peer.
//   - [Retry]: bounds how many times the write-behind worker retries a
//     failed persist before dropping the pending write.
//
// # Resilience Patterns
//
//   - [CircuitBreaker]: Prevents cascading failures by stopping requests to
//     a failing store after a threshold is reached. Transitions through
//     Closed → Open → HalfOpen states.
//
//   - [Retry]: Automatically retries failed operations with configurable
//     backoff strategies (exponential, linear, constant) and jitter.
//
//   - [Bulkhead]: Semaphore-based concurrency limiting to prevent resource
//     exhaustion and isolate failures.
//
//   - [Timeout]: Context-based timeout to ensure operations complete within
//     a time limit.
//
// # Quick Start
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return primaryStore.Get(ctx, key)
//	})
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//
//   - [CircuitBreaker]: Execute() and State() are mutex-protected; Reset() is safe
//   - [Retry]: Execute() is stateless and safe for concurrent use
//   - [Bulkhead]: Acquire(), Release(), Execute() use channel-based semaphore
//   - [Timeout]: Execute() is stateless and safe for concurrent use
//
// # Error Handling
//
// Each pattern returns specific sentinel errors (use errors.Is for checking):
//
//   - [ErrCircuitOpen]: Circuit breaker is in open state, rejecting requests
//   - [ErrMaxRetriesExceeded]: All retry attempts exhausted
//   - [ErrBulkheadFull]: Bulkhead at maximum concurrency
//   - [ErrTimeout]: Operation exceeded configured timeout
//
// # Callbacks and Observability
//
// Patterns support callbacks for observability integration:
//
//   - CircuitBreakerConfig.OnStateChange: Called on state transitions
//   - RetryConfig.OnRetry: Called before each retry attempt
//   - CircuitBreakerConfig.IsFailure: Custom failure classification
//   - RetryConfig.RetryIf: Custom retry decision logic
//
// # Integration
//
// resilience is used directly by cachemgr (circuit breaker) and strategy
// (bulkhead, timeout, retry); observe.Logger is a natural sink for the
// OnStateChange/OnRetry callbacks above.
package resilience
