package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/aperturestack/cachecore/resilience"
	"github.com/aperturestack/cachecore/store"
)

// DefaultWriteBehindBound is the maximum number of pending writes held
// before new writes are persisted synchronously instead of queued.
const DefaultWriteBehindBound = 1000

// DefaultBatchSize is how many pending writes a single worker tick drains.
const DefaultBatchSize = 50

// DefaultTickInterval is how often the worker drains the pending queue.
const DefaultTickInterval = 5 * time.Second

// DefaultMaxAttempts bounds how many times a pending write is retried
// before being dropped.
const DefaultMaxAttempts = 3

// WriteBehindConfig configures the deferred-persistence worker.
type WriteBehindConfig struct {
	Bound        int
	BatchSize    int
	TickInterval time.Duration
	MaxAttempts  int
}

func (c WriteBehindConfig) withDefaults() WriteBehindConfig {
	if c.Bound <= 0 {
		c.Bound = DefaultWriteBehindBound
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

type writeBehindWorker struct {
	store store.Store
	cfg   WriteBehindConfig
	sink  EventSink
	retry *resilience.Retry

	mu      sync.Mutex
	pending map[string]store.Entry
	order   []string // insertion order, for FIFO draining

	done chan struct{}
	wg   sync.WaitGroup
}

func newWriteBehindWorker(st store.Store, cfg WriteBehindConfig, sink EventSink) *writeBehindWorker {
	cfg = cfg.withDefaults()
	w := &writeBehindWorker{
		store:   st,
		cfg:     cfg,
		sink:    sink,
		retry:   resilience.NewRetry(resilience.RetryConfig{MaxAttempts: cfg.MaxAttempts}),
		pending: make(map[string]store.Entry),
		done:    make(chan struct{}),
	}
	if st != nil {
		w.wg.Add(1)
		go w.loop()
	}
	return w
}

// enqueue either queues entry for deferred persistence or writes it
// synchronously when the pending queue is at its bound.
func (w *writeBehindWorker) enqueue(ctx context.Context, key string, entry store.Entry, coalesce bool) {
	w.mu.Lock()
	_, alreadyPending := w.pending[key]
	atBound := len(w.pending) >= w.cfg.Bound && !alreadyPending

	switch {
	case atBound:
		w.mu.Unlock()
		_ = w.store.Set(ctx, key, entry)
		return
	case alreadyPending && !coalesce:
		w.mu.Unlock()
		return
	default:
		if !alreadyPending {
			w.order = append(w.order, key)
		}
		w.pending[key] = entry
		w.mu.Unlock()
	}
}

func (w *writeBehindWorker) drainBatch() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.cfg.BatchSize
	if n > len(w.order) {
		n = len(w.order)
	}
	keys := append([]string(nil), w.order[:n]...)
	w.order = w.order[n:]
	return keys
}

func (w *writeBehindWorker) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.drainTick()
		case <-w.done:
			w.drainAll()
			return
		}
	}
}

func (w *writeBehindWorker) drainTick() {
	for _, key := range w.drainBatch() {
		w.mu.Lock()
		entry, ok := w.pending[key]
		delete(w.pending, key)
		w.mu.Unlock()
		if !ok {
			continue
		}
		w.persist(key, entry)
	}
}

// drainAll flushes every pending write best-effort, for use on shutdown.
func (w *writeBehindWorker) drainAll() {
	w.mu.Lock()
	keys := w.order
	w.order = nil
	w.mu.Unlock()
	for _, key := range keys {
		w.mu.Lock()
		entry, ok := w.pending[key]
		delete(w.pending, key)
		w.mu.Unlock()
		if ok {
			w.persist(key, entry)
		}
	}
}

func (w *writeBehindWorker) persist(key string, entry store.Entry) {
	err := w.retry.Execute(context.Background(), func(ctx context.Context) error {
		return w.store.Set(ctx, key, entry)
	})
	if err != nil && w.sink != nil {
		w.sink(Event{Type: EventWriteBehindFailed, Key: key, Success: false, Err: err, Timestamp: time.Now()})
	}
}

func (w *writeBehindWorker) close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.wg.Wait()
}
