// Package ttlmanager computes a cache entry's lifetime from entity type,
// observed update history, business hours, and content volatility.
//
// Five strategies are available per entity, mirroring the way the
// teacher's cache.Policy clamps an override TTL into [min, max] — here
// generalized to five distinct ways of arriving at the unclamped value
// before the same clamp is applied:
//
//   - [StrategyFixed]: the entity's configured default, or its volatility
//     class default.
//   - [StrategyAdaptive]: derived from the running mean/variance of
//     observed update intervals, with a confidence score.
//   - [StrategyTimeAware]: shorter during business hours, longer outside,
//     longer still on weekends.
//   - [StrategyVolatilityBased]: the volatility class default, adjusted
//     for single-entity vs. filtered/search reads.
//   - [StrategyBusinessRules]: entity-specific multipliers plus
//     refresh-ahead and list-read adjustments.
//
// Every strategy's result is clamped into the entity's [MinTTL, MaxTTL]
// before being returned.
package ttlmanager
