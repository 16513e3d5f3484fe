// Package strategy implements the five cache-access patterns a request
// can be executed under: NONE, LAZY_LOADING, WRITE_THROUGH,
// REFRESH_AHEAD and WRITE_BEHIND.
//
// Grounded on cache/middleware.go's CacheMiddleware.Execute control
// flow (skip check, key, get, miss, executor, set), generalized from
// one cache-aside pattern to all five. Refresh-ahead's concurrency
// ceiling and timeout, and write-behind's bounded retry, reuse
// resilience.Bulkhead, resilience.Timeout and resilience.Retry rather
// than hand-rolled equivalents.
package strategy
