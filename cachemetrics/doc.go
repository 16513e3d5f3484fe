// Package cachemetrics counts cache operations, maintains windowed
// aggregates, and raises threshold events.
//
// Two layers are wired together:
//
//   - OTel counters and a duration histogram (grounded on observe's
//     metricsImpl), tagged with entity type, operation, strategy, and
//     from-cache, for export to a metrics backend.
//   - Hand-rolled in-process aggregates with no OTel equivalent: a
//     sliding one-minute average response time, a one-second
//     operations-per-second gauge, a bounded ring buffer of recent data
//     points for ad-hoc summaries, and an hourly-bucket history capped
//     at a configurable horizon.
//
// [Collector.Record] updates both layers and evaluates the configured
// [Threshold] descriptors, invoking the collector's [EventSink] whenever
// an enabled threshold is crossed.
package cachemetrics
