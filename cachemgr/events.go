package cachemgr

import (
	"time"

	"github.com/aperturestack/cachecore/cachemetrics"
	"github.com/aperturestack/cachecore/invalidate"
	"github.com/aperturestack/cachecore/strategy"
)

// EventType names one of the manager's observable event kinds.
type EventType string

const (
	EventInitialized       EventType = "initialized"
	EventShutdown          EventType = "shutdown"
	EventWarmupCompleted   EventType = "warmup_completed"
	EventInvalidation      EventType = "invalidation"
	EventRefreshCompleted  EventType = "refresh_completed"
	EventThresholdExceeded EventType = "metric_threshold_exceeded"
)

// Event is the single observable-event shape a Manager emits. Only the
// fields relevant to Type are populated; the rest are zero.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// WarmupCompleted
	WarmupName string
	Duration   time.Duration

	// Invalidation
	Invalidation *invalidate.Event

	// RefreshCompleted (also carries write-behind failures)
	Key     string
	Success bool
	Err     error

	// ThresholdExceeded
	Threshold *cachemetrics.Event
}

// EventSink receives every Event a Manager emits. Implementations must
// not block; a slow sink should hand events off to its own goroutine.
type EventSink func(Event)

func (m *Manager) emit(ev Event) {
	if m.cfg.Sink == nil {
		return
	}
	m.cfg.Sink(ev)
}

// strategyEventSink adapts strategy.Event (refresh-ahead completions,
// write-behind failures) into the manager's unified Event stream. Every
// strategy event is emitted as EventRefreshCompleted with its Success
// and Err carried over.
func (m *Manager) strategyEventSink(ev strategy.Event) {
	m.emit(Event{
		Type:      EventRefreshCompleted,
		Timestamp: ev.Timestamp,
		Key:       ev.Key,
		Success:   ev.Success,
		Err:       ev.Err,
	})
}

// invalidateEventSink adapts invalidate.Event into the unified stream.
func (m *Manager) invalidateEventSink(ev invalidate.Event) {
	e := ev
	m.emit(Event{
		Type:         EventInvalidation,
		Timestamp:    ev.Timestamp,
		Invalidation: &e,
	})
}

// metricsEventSink adapts cachemetrics.Event (threshold crossings) into
// the unified stream.
func (m *Manager) metricsEventSink(ev cachemetrics.Event) {
	e := ev
	m.emit(Event{
		Type:      EventThresholdExceeded,
		Timestamp: ev.Timestamp,
		Threshold: &e,
	})
}
