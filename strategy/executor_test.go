package strategy

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aperturestack/cachecore/store"
	"github.com/aperturestack/cachecore/store/memstore"
)

func newTestExecutor(t *testing.T) (*Executor, store.Store) {
	t.Helper()
	s := memstore.New(memstore.Config{CleanupInterval: -1})
	t.Cleanup(func() { s.Close() })
	e := NewExecutor(Config{Store: s})
	t.Cleanup(e.Close)
	return e, s
}

func countingFetcher(value string) (Fetcher, *int32) {
	var calls int32
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte(value), nil
	}, &calls
}

func TestExecutor_None_NeverTouchesStore(t *testing.T) {
	e, s := newTestExecutor(t)
	fetcher, calls := countingFetcher("v")

	rec, err := e.Execute(context.Background(), "k", time.Minute, None, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.FromCache {
		t.Errorf("FromCache = true, want false")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("fetcher calls = %d, want 1", *calls)
	}
	if ok, _ := s.Exists(context.Background(), "k"); ok {
		t.Errorf("NONE strategy wrote to the store")
	}
}

func TestExecutor_LazyLoading_MissThenHit(t *testing.T) {
	e, _ := newTestExecutor(t)
	fetcher, calls := countingFetcher("v")
	ctx := context.Background()

	rec, err := e.Execute(ctx, "k", time.Minute, LazyLoading, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.FromCache {
		t.Errorf("first call FromCache = true, want false (miss)")
	}

	rec2, err := e.Execute(ctx, "k", time.Minute, LazyLoading, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rec2.FromCache {
		t.Errorf("second call FromCache = false, want true (hit)")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("fetcher calls = %d, want 1 (second call should be a hit)", *calls)
	}
}

func TestExecutor_LazyLoading_ForceRefreshBypassesHit(t *testing.T) {
	e, _ := newTestExecutor(t)
	fetcher, calls := countingFetcher("v")
	ctx := context.Background()

	e.Execute(ctx, "k", time.Minute, LazyLoading, Options{}, fetcher)
	e.Execute(ctx, "k", time.Minute, LazyLoading, Options{ForceRefresh: true}, fetcher)

	if atomic.LoadInt32(calls) != 2 {
		t.Errorf("fetcher calls = %d, want 2 (force refresh should bypass the cache)", *calls)
	}
}

func TestExecutor_WriteThrough_AlwaysFetches(t *testing.T) {
	e, _ := newTestExecutor(t)
	fetcher, calls := countingFetcher("v")
	ctx := context.Background()

	e.Execute(ctx, "k", time.Minute, WriteThrough, Options{}, fetcher)
	e.Execute(ctx, "k", time.Minute, WriteThrough, Options{}, fetcher)

	if atomic.LoadInt32(calls) != 2 {
		t.Errorf("fetcher calls = %d, want 2 (write-through never reads the cache)", *calls)
	}
}

func TestExecutor_LazyLoading_FetcherErrorNotCached(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()
	wantErr := errors.New("boom")
	fetcher := func(ctx context.Context) ([]byte, error) { return nil, wantErr }

	_, err := e.Execute(ctx, "k", time.Minute, LazyLoading, Options{}, fetcher)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want %v", err, wantErr)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Errorf("fetcher error was cached")
	}
}

func TestExecutor_RefreshAhead_StaleTriggersBackgroundRefresh(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	entry := store.NewEntry([]byte("old"), 10*time.Millisecond, nil, time.Now().Add(-9*time.Millisecond))
	s.Set(ctx, "k", entry)

	fetcher, _ := countingFetcher("new")
	rec, err := e.Execute(ctx, "k", 10*time.Millisecond, RefreshAhead, Options{RefreshThreshold: 0.5}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rec.FromCache {
		t.Errorf("FromCache = false, want true (stale value still returned immediately)")
	}
	if !rec.Refreshed {
		t.Errorf("Refreshed = false, want true (entry was past its refresh threshold)")
	}
	if string(rec.Value) != "old" {
		t.Errorf("Value = %q, want stale value %q", rec.Value, "old")
	}
}

func TestExecutor_RefreshAhead_FreshDoesNotRefresh(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()

	entry := store.NewEntry([]byte("fresh"), time.Hour, nil, time.Now())
	s.Set(ctx, "k", entry)

	fetcher, calls := countingFetcher("new")
	rec, err := e.Execute(ctx, "k", time.Hour, RefreshAhead, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.Refreshed {
		t.Errorf("Refreshed = true, want false (entry is within its TTL window)")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("fetcher calls = %d, want 0", *calls)
	}
}

func TestExecutor_WriteBehind_ReturnsImmediatelyAndPersistsEventually(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()
	fetcher, _ := countingFetcher("v")

	rec, err := e.Execute(ctx, "k", time.Minute, WriteBehind, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if rec.FromCache {
		t.Errorf("FromCache = true, want false on a miss")
	}

	e.wb.drainTick()

	result := s.Get(ctx, "k")
	if result.Status != store.StatusHit {
		t.Errorf("Get() status = %v, want hit after drain", result.Status)
	}
}

func TestExecutor_WriteBehind_HitSkipsFetcher(t *testing.T) {
	e, s := newTestExecutor(t)
	ctx := context.Background()
	s.Set(ctx, "k", store.NewEntry([]byte("cached"), time.Minute, nil, time.Now()))

	fetcher, calls := countingFetcher("v")
	rec, err := e.Execute(ctx, "k", time.Minute, WriteBehind, Options{}, fetcher)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rec.FromCache {
		t.Errorf("FromCache = false, want true")
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Errorf("fetcher calls = %d, want 0", *calls)
	}
}
