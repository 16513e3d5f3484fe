// Package cachekey turns a request context into a deterministic,
// collision-resistant cache key.
//
// Four strategies are supported, selected per entity or per call:
//
//   - [StrategySimple]: prefix + entity + verb + normalized endpoint +
//     sorted params, with an 8-char payload hash appended for writes.
//   - [StrategyHash]: a 16-char SHA-256 prefix over the canonicalized
//     request context.
//   - [StrategyHierarchical] (default): colon-segmented, human-readable,
//     with optional param/body/user/time-window segments.
//   - [StrategySemantic]: hierarchical plus tokens derived from what the
//     parameters mean (search, list, paged, sorted, ...).
//
// Every strategy funnels through the same length cap and character
// sanitization so downstream stores never see a key that could collide
// with a glob or tag-index key.
//
// # Integration
//
// ttlmanager and strategy consume the same [RequestContext]; cachemgr
// owns the single [Generator] instance shared across a cache manager.
package cachekey
