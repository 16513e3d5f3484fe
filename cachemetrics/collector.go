package cachemetrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Config configures a Collector.
type Config struct {
	// Meter is the OTel meter instruments are registered against. Nil
	// disables OTel export entirely (aggregates still work).
	Meter metric.Meter

	// RingCapacity bounds the ad-hoc recent-points buffer. Defaults to
	// DefaultRingCapacity.
	RingCapacity int

	// HistoryHorizon bounds the number of retained hourly buckets.
	// Defaults to DefaultHistoryHorizon.
	HistoryHorizon int

	// Thresholds are evaluated on every Record call. Defaults to
	// DefaultThresholds().
	Thresholds []Threshold

	// Sink receives threshold-exceeded events. Nil disables emission.
	Sink EventSink

	// MemoryUsage returns the current process memory usage in bytes for
	// the memory_usage_bytes threshold. Nil disables that check.
	MemoryUsage func() uint64
}

// Collector counts cache operations, maintains windowed aggregates, and
// evaluates alert thresholds.
type Collector struct {
	mu sync.Mutex

	totals      EntityStats
	evictions   int64
	bytesHeld   int64
	perEntity   map[string]*EntityStats
	ring        *ringBuffer
	respWindow  *slidingWindow
	rateWindow  *slidingWindow
	history     *hourlyHistory
	thresholds  []Threshold
	sink        EventSink
	memoryUsage func() uint64
	otel        *otelInstruments
}

// NewCollector builds a Collector from cfg.
func NewCollector(cfg Config) (*Collector, error) {
	instruments, err := newOtelInstruments(cfg.Meter)
	if err != nil {
		return nil, err
	}
	thresholds := cfg.Thresholds
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Collector{
		perEntity:   make(map[string]*EntityStats),
		ring:        newRingBuffer(cfg.RingCapacity),
		respWindow:  newSlidingWindow(ResponseTimeWindow),
		rateWindow:  newSlidingWindow(OpsRateWindow),
		history:     newHourlyHistory(cfg.HistoryHorizon),
		thresholds:  thresholds,
		sink:        cfg.Sink,
		memoryUsage: cfg.MemoryUsage,
		otel:        instruments,
	}, nil
}

// Record ingests one observed cache operation, updating counters,
// windows, history, and OTel instruments, then evaluates thresholds.
func (c *Collector) Record(ctx context.Context, dp DataPoint) {
	if dp.Timestamp.IsZero() {
		dp.Timestamp = time.Now()
	}

	c.mu.Lock()
	c.applyLocked(dp)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.otel.record(ctx, dp)
	c.evaluateThresholds(snap, dp.Timestamp)
}

func (c *Collector) applyLocked(dp DataPoint) {
	ent := c.entity(dp.EntityType)

	switch dp.Operation {
	case OpGet:
		if dp.Hit {
			c.totals.Hits++
			ent.Hits++
		} else {
			c.totals.Misses++
			ent.Misses++
		}
	case OpSet:
		c.totals.Sets++
		ent.Sets++
	case OpDelete:
		c.totals.Deletes++
		ent.Deletes++
	case OpEviction:
		c.evictions++
	}
	if dp.Err != nil {
		c.totals.Errors++
		ent.Errors++
	}
	c.bytesHeld += dp.Bytes

	c.ring.push(dp)
	c.respWindow.add(dp.Timestamp, float64(dp.Duration.Milliseconds()))
	c.rateWindow.add(dp.Timestamp, 1)
	c.history.record(dp)
}

func (c *Collector) entity(entityType string) *EntityStats {
	if entityType == "" {
		entityType = "-"
	}
	ent, ok := c.perEntity[entityType]
	if !ok {
		ent = &EntityStats{}
		c.perEntity[entityType] = ent
	}
	return ent
}

// Snapshot returns a point-in-time read of every counter and aggregate.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Collector) snapshotLocked() Snapshot {
	now := time.Now()
	perEntity := make(map[string]EntityStats, len(c.perEntity))
	for k, v := range c.perEntity {
		perEntity[k] = *v
	}
	return Snapshot{
		Hits:              c.totals.Hits,
		Misses:            c.totals.Misses,
		Sets:              c.totals.Sets,
		Deletes:           c.totals.Deletes,
		Evictions:         c.evictions,
		Errors:            c.totals.Errors,
		BytesHeld:         c.bytesHeld,
		HitRate:           c.totals.HitRate(),
		AvgResponseTimeMs: c.respWindow.average(now),
		OpsPerSecond:      c.rateWindow.rate(now),
		PerEntity:         perEntity,
	}
}

// Recent returns up to n of the most recently recorded data points,
// newest last. n <= 0 returns everything retained.
func (c *Collector) Recent(n int) []DataPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.recent(n)
}

// History returns the retained hourly buckets, oldest first.
func (c *Collector) History() []HourlyBucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.snapshot()
}

func (c *Collector) evaluateThresholds(snap Snapshot, at time.Time) {
	if c.sink == nil {
		return
	}
	for _, th := range c.thresholds {
		if !th.Enabled {
			continue
		}
		current, ok := c.metricValue(th.Metric, snap)
		if !ok {
			continue
		}
		if th.Operator.evaluate(current, th.Value) {
			c.sink(Event{
				Metric:       th.Metric,
				Operator:     th.Operator,
				Threshold:    th.Value,
				CurrentValue: current,
				Timestamp:    at,
			})
		}
	}
}

func (c *Collector) metricValue(metricName string, snap Snapshot) (float64, bool) {
	switch metricName {
	case MetricHitRate:
		return snap.HitRate, true
	case MetricAvgResponseTimeMs:
		return snap.AvgResponseTimeMs, true
	case MetricErrorCount:
		return float64(snap.Errors), true
	case MetricMemoryUsageBytes:
		if c.memoryUsage == nil {
			return 0, false
		}
		return float64(c.memoryUsage()), true
	default:
		return 0, false
	}
}
