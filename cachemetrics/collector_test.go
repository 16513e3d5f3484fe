package cachemetrics

import (
	"context"
	"testing"
	"time"
)

func TestCollector_CountsHitsAndMisses(t *testing.T) {
	c, err := NewCollector(Config{})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	ctx := context.Background()
	now := time.Now()

	c.Record(ctx, DataPoint{Timestamp: now, Operation: OpGet, EntityType: "companies", Hit: true})
	c.Record(ctx, DataPoint{Timestamp: now, Operation: OpGet, EntityType: "companies", Hit: false})
	c.Record(ctx, DataPoint{Timestamp: now, Operation: OpSet, EntityType: "companies"})

	snap := c.Snapshot()
	if snap.Hits != 1 || snap.Misses != 1 || snap.Sets != 1 {
		t.Fatalf("snap = %+v, want 1 hit, 1 miss, 1 set", snap)
	}
	if snap.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", snap.HitRate)
	}
	ent := snap.PerEntity["companies"]
	if ent.Hits != 1 || ent.Misses != 1 {
		t.Errorf("per-entity stats = %+v, want 1 hit, 1 miss", ent)
	}
}

func TestCollector_ErrorsAndEvictions(t *testing.T) {
	c, _ := NewCollector(Config{})
	ctx := context.Background()
	c.Record(ctx, DataPoint{Operation: OpGet, EntityType: "x", Err: context.DeadlineExceeded})
	c.Record(ctx, DataPoint{Operation: OpEviction, EntityType: "x"})

	snap := c.Snapshot()
	if snap.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snap.Errors)
	}
	if snap.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", snap.Evictions)
	}
}

func TestCollector_RecentRingBuffer(t *testing.T) {
	c, _ := NewCollector(Config{RingCapacity: 3})
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(ctx, DataPoint{Timestamp: base.Add(time.Duration(i) * time.Second), Operation: OpGet, EntityType: "e", Hit: true})
	}
	recent := c.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len(Recent) = %d, want 3 (ring capacity)", len(recent))
	}
	// Newest should be the 5th (index 4) record, i.e. base+4s.
	if !recent[len(recent)-1].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Errorf("newest recent point = %v, want %v", recent[len(recent)-1].Timestamp, base.Add(4*time.Second))
	}
}

func TestCollector_HourlyHistory(t *testing.T) {
	c, _ := NewCollector(Config{HistoryHorizon: 2})
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	c.Record(ctx, DataPoint{Timestamp: t0, Operation: OpGet, EntityType: "e", Hit: true})
	c.Record(ctx, DataPoint{Timestamp: t0.Add(time.Hour), Operation: OpGet, EntityType: "e", Hit: false})
	c.Record(ctx, DataPoint{Timestamp: t0.Add(2 * time.Hour), Operation: OpGet, EntityType: "e", Hit: false})

	hist := c.History()
	if len(hist) != 2 {
		t.Fatalf("len(History) = %d, want 2 (horizon)", len(hist))
	}
	if hist[0].Misses != 1 || hist[1].Misses != 1 {
		t.Errorf("unexpected bucket contents: %+v", hist)
	}
}

func TestCollector_ThresholdEmitsEvent(t *testing.T) {
	var events []Event
	c, err := NewCollector(Config{
		Thresholds: []Threshold{
			{Metric: MetricErrorCount, Operator: OpGT, Value: 0, Enabled: true},
		},
		Sink: func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("NewCollector() error = %v", err)
	}
	c.Record(context.Background(), DataPoint{Operation: OpGet, EntityType: "e", Err: context.Canceled})

	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Metric != MetricErrorCount {
		t.Errorf("event metric = %q, want %q", events[0].Metric, MetricErrorCount)
	}
}

func TestCollector_DisabledThresholdDoesNotFire(t *testing.T) {
	var fired bool
	c, _ := NewCollector(Config{
		Thresholds: []Threshold{
			{Metric: MetricErrorCount, Operator: OpGT, Value: 0, Enabled: false},
		},
		Sink: func(e Event) { fired = true },
	})
	c.Record(context.Background(), DataPoint{Operation: OpGet, EntityType: "e", Err: context.Canceled})
	if fired {
		t.Errorf("disabled threshold fired an event")
	}
}

func TestSlidingWindow_PrunesOldPoints(t *testing.T) {
	w := newSlidingWindow(time.Minute)
	base := time.Now()
	w.add(base, 10)
	w.add(base.Add(90*time.Second), 20)

	if avg := w.average(base.Add(90 * time.Second)); avg != 20 {
		t.Errorf("average = %v, want 20 (first point pruned)", avg)
	}
}

func TestRingBuffer_WrapsAroundCapacity(t *testing.T) {
	r := newRingBuffer(2)
	r.push(DataPoint{EntityType: "a"})
	r.push(DataPoint{EntityType: "b"})
	r.push(DataPoint{EntityType: "c"})

	recent := r.recent(0)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].EntityType != "b" || recent[1].EntityType != "c" {
		t.Errorf("recent = %+v, want [b c]", recent)
	}
}
