// Package cachemgr is the cache's composition root.
//
// A Manager owns the primary store and optional fallback store, the key
// generator, the TTL manager, the metrics collector, the invalidator, the
// strategy executor, a circuit breaker, and the single-flight table used
// for stampede prevention. No other package holds a reference to more
// than one of these at a time; cachemgr is where they meet.
//
// A typical read goes: resolve a cache key from a RequestContext, check
// the circuit breaker, consult the primary store, and on miss run the
// caller's fetcher under single-flight before writing the result back
// according to the entity's configured strategy. A typical write
// computes the key and TTL, checks the entity's size/cacheability rules,
// and persists to the primary store with a fire-and-forget mirror to the
// fallback.
package cachemgr
