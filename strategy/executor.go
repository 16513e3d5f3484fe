package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/aperturestack/cachecore/resilience"
	"github.com/aperturestack/cachecore/store"
)

// Config configures an Executor.
type Config struct {
	Store store.Store
	Sink  EventSink

	// RefreshConcurrency caps concurrent background refreshes. Zero uses
	// the Options.RefreshConcurrency of the first background refresh.
	RefreshConcurrency int

	WriteBehind WriteBehindConfig
}

// Executor orchestrates one of the five access patterns per request.
type Executor struct {
	store store.Store
	sink  EventSink

	bulkheadOnce sync.Once
	bulkhead     *resilience.Bulkhead
	bulkheadCap  int

	refreshingMu sync.Mutex
	refreshing   map[string]struct{}

	wb *writeBehindWorker
}

// NewExecutor builds an Executor. The write-behind worker's background
// goroutine starts immediately; call Close to stop it.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		store:       cfg.Store,
		sink:        cfg.Sink,
		bulkheadCap: cfg.RefreshConcurrency,
		refreshing:  make(map[string]struct{}),
	}
	e.wb = newWriteBehindWorker(cfg.Store, cfg.WriteBehind, cfg.Sink)
	return e
}

func (e *Executor) emit(evt Event) {
	if e.sink != nil {
		e.sink(evt)
	}
}

func (e *Executor) refreshBulkhead(capacity int) *resilience.Bulkhead {
	e.bulkheadOnce.Do(func() {
		if e.bulkheadCap > 0 {
			capacity = e.bulkheadCap
		}
		e.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: capacity})
	})
	return e.bulkhead
}

// Execute runs fetcher (when needed) under strategy and persists its
// result to the store per that strategy's rules. ttl is the TTL to
// apply to any entry this call writes.
func (e *Executor) Execute(ctx context.Context, key string, ttl time.Duration, strategy Strategy, opts Options, fetcher Fetcher) (Record, error) {
	opts = opts.withDefaults()
	start := time.Now()

	switch strategy {
	case None:
		value, err := fetcher(ctx)
		return Record{Value: value, FromCache: false, Strategy: None, Duration: time.Since(start)}, err
	case LazyLoading:
		return e.lazyLoading(ctx, key, ttl, opts, fetcher, start)
	case WriteThrough:
		return e.writeThrough(ctx, key, ttl, opts, fetcher, start)
	case RefreshAhead:
		return e.refreshAhead(ctx, key, ttl, opts, fetcher, start)
	case WriteBehind:
		return e.writeBehind(ctx, key, ttl, opts, fetcher, start)
	default:
		return e.lazyLoading(ctx, key, ttl, opts, fetcher, start)
	}
}

func (e *Executor) lazyLoading(ctx context.Context, key string, ttl time.Duration, opts Options, fetcher Fetcher, start time.Time) (Record, error) {
	if !opts.ForceRefresh {
		result := e.store.Get(ctx, key)
		if result.Status == store.StatusHit {
			return Record{Value: result.Entry.Value, FromCache: true, Strategy: LazyLoading, Duration: time.Since(start)}, nil
		}
	}

	value, err := fetcher(ctx)
	if err != nil {
		return Record{Strategy: LazyLoading, Duration: time.Since(start)}, err
	}
	entry := store.NewEntry(value, ttl, opts.Tags, time.Now())
	_ = e.store.Set(ctx, key, entry)
	return Record{Value: value, FromCache: false, Strategy: LazyLoading, Duration: time.Since(start)}, nil
}

func (e *Executor) writeThrough(ctx context.Context, key string, ttl time.Duration, opts Options, fetcher Fetcher, start time.Time) (Record, error) {
	value, err := fetcher(ctx)
	if err != nil {
		return Record{Strategy: WriteThrough, Duration: time.Since(start)}, err
	}
	entry := store.NewEntry(value, ttl, opts.Tags, time.Now())
	_ = e.store.Set(ctx, key, entry)
	return Record{Value: value, FromCache: false, Strategy: WriteThrough, Duration: time.Since(start)}, nil
}

func (e *Executor) refreshAhead(ctx context.Context, key string, ttl time.Duration, opts Options, fetcher Fetcher, start time.Time) (Record, error) {
	if opts.ForceRefresh {
		return e.lazyLoading(ctx, key, ttl, opts, fetcher, start)
	}

	result := e.store.Get(ctx, key)
	if result.Status != store.StatusHit {
		return e.lazyLoading(ctx, key, ttl, opts, fetcher, start)
	}

	entry := result.Entry
	age := time.Since(entry.CreatedAt)
	threshold := time.Duration(float64(entry.RequestedTTL) * opts.RefreshThreshold)
	triggered := false
	if entry.RequestedTTL > 0 && age >= threshold && e.tryBeginRefresh(key) {
		triggered = true
		go e.backgroundRefresh(key, ttl, opts, fetcher)
	}

	return Record{
		Value:     entry.Value,
		FromCache: true,
		Strategy:  RefreshAhead,
		Duration:  time.Since(start),
		Refreshed: triggered,
	}, nil
}

func (e *Executor) tryBeginRefresh(key string) bool {
	e.refreshingMu.Lock()
	defer e.refreshingMu.Unlock()
	if _, inProgress := e.refreshing[key]; inProgress {
		return false
	}
	e.refreshing[key] = struct{}{}
	return true
}

func (e *Executor) endRefresh(key string) {
	e.refreshingMu.Lock()
	delete(e.refreshing, key)
	e.refreshingMu.Unlock()
}

func (e *Executor) backgroundRefresh(key string, ttl time.Duration, opts Options, fetcher Fetcher) {
	defer e.endRefresh(key)

	bulkhead := e.refreshBulkhead(opts.RefreshConcurrency)
	if err := bulkhead.Acquire(context.Background()); err != nil {
		e.emit(Event{Type: EventRefreshCompleted, Key: key, Success: false, Err: err, Timestamp: time.Now()})
		return
	}
	defer bulkhead.Release()

	timeout := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: opts.RefreshTimeout})
	var value []byte
	err := timeout.Execute(context.Background(), func(ctx context.Context) error {
		v, fetchErr := fetcher(ctx)
		value = v
		return fetchErr
	})
	if err != nil {
		e.emit(Event{Type: EventRefreshCompleted, Key: key, Success: false, Err: err, Timestamp: time.Now()})
		return
	}

	entry := store.NewEntry(value, ttl, opts.Tags, time.Now())
	if err := e.store.Set(context.Background(), key, entry); err != nil {
		e.emit(Event{Type: EventRefreshCompleted, Key: key, Success: false, Err: err, Timestamp: time.Now()})
		return
	}
	e.emit(Event{Type: EventRefreshCompleted, Key: key, Success: true, Timestamp: time.Now()})
}

func (e *Executor) writeBehind(ctx context.Context, key string, ttl time.Duration, opts Options, fetcher Fetcher, start time.Time) (Record, error) {
	result := e.store.Get(ctx, key)
	if result.Status == store.StatusHit {
		return Record{Value: result.Entry.Value, FromCache: true, Strategy: WriteBehind, Duration: time.Since(start)}, nil
	}

	value, err := fetcher(ctx)
	if err != nil {
		return Record{Strategy: WriteBehind, Duration: time.Since(start)}, err
	}
	entry := store.NewEntry(value, ttl, opts.Tags, time.Now())
	e.wb.enqueue(ctx, key, entry, !opts.WriteBehindNoCoalesce)

	return Record{Value: value, FromCache: false, Strategy: WriteBehind, Duration: time.Since(start)}, nil
}

// Close stops the write-behind background worker.
func (e *Executor) Close() {
	e.wb.close()
}
