package cachemgr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aperturestack/cachecore/cachekey"
	"github.com/aperturestack/cachecore/invalidate"
	"github.com/aperturestack/cachecore/strategy"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Entities == nil {
		cfg.Entities = []EntityConfig{
			{EntityType: "company", DefaultTTL: time.Minute, MinTTL: time.Second, MaxTTL: time.Hour},
		}
	}
	m, err := NewManager(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		_ = m.Shutdown(context.Background())
	})
	return m
}

func TestManager_SetThenGetHits(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})

	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/42"}

	if _, err := m.Set(context.Background(), rc, []byte("hello"), SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	res, err := m.Get(context.Background(), rc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit {
		t.Fatalf("expected hit, got miss")
	}
	if string(res.Value) != "hello" {
		t.Fatalf("got value %q", res.Value)
	}
}

func TestManager_GetMissBeforeSet(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})
	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/99"}

	res, err := m.Get(context.Background(), rc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatalf("expected miss")
	}
}

func TestManager_SetRejectsEmptyValueByDefault(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})
	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/1"}

	res, err := m.Set(context.Background(), rc, nil, SetOptions{})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if res.Success {
		t.Fatalf("expected Set to reject empty value")
	}
	if !errors.Is(res.Err, ErrEmptyValue) {
		t.Fatalf("expected ErrEmptyValue, got %v", res.Err)
	}
}

func TestManager_SetRejectsOversizedEntry(t *testing.T) {
	cfg := Config{
		KeyPrefix:   "cache",
		StorageKind: StorageMemory,
		Entities: []EntityConfig{
			{EntityType: "company", DefaultTTL: time.Minute, MaxEntrySize: 4},
		},
	}
	m := newTestManager(t, cfg)
	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/1"}

	res, err := m.Set(context.Background(), rc, []byte("too big"), SetOptions{})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if res.Success || !errors.Is(res.Err, ErrEntryTooLarge) {
		t.Fatalf("expected ErrEntryTooLarge, got success=%v err=%v", res.Success, res.Err)
	}
}

func TestManager_ExecuteStrategyStampedeSingleFetch(t *testing.T) {
	m := newTestManager(t, Config{
		KeyPrefix:       "cache",
		StorageKind:     StorageMemory,
		PreventStampede: true,
		StampedeTimeout: 2 * time.Second,
	})

	var calls int64
	fetcher := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return []byte("fetched"), nil
	}

	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/7"}
	strat := strategy.LazyLoading

	results := make(chan strategy.Record, 8)
	for i := 0; i < 8; i++ {
		go func() {
			rec, err := m.ExecuteStrategy(context.Background(), rc, fetcher, ExecuteOptions{Strategy: &strat})
			if err != nil {
				t.Errorf("ExecuteStrategy: %v", err)
				return
			}
			results <- rec
		}()
	}

	for i := 0; i < 8; i++ {
		rec := <-results
		if string(rec.Value) != "fetched" {
			t.Fatalf("got value %q", rec.Value)
		}
	}

	if atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("expected exactly 1 fetcher invocation, got %d", calls)
	}
}

func TestManager_InvalidateByPattern(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})
	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/companies/1"}

	if _, err := m.Set(context.Background(), rc, []byte("v"), SetOptions{}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	glob := m.keygen.GlobForEntity("company")
	count, err := m.Invalidate(context.Background(), invalidate.Pattern, invalidate.Target{Pattern: glob}, false)
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected at least one key invalidated")
	}

	res, err := m.Get(context.Background(), rc)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Hit {
		t.Fatalf("expected miss after invalidation")
	}
}

func TestManager_GetHealthStatusReportsOverall(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})
	status := m.GetHealthStatus(context.Background())
	if status.Checks["primary"].Status.String() != "healthy" {
		t.Fatalf("expected primary check healthy, got %v", status.Checks["primary"].Status)
	}
}

func TestManager_OperationsBeforeInitializeFail(t *testing.T) {
	m, err := NewManager(context.Background(), Config{
		KeyPrefix:   "cache",
		StorageKind: StorageMemory,
		Entities:    []EntityConfig{{EntityType: "company", DefaultTTL: time.Minute}},
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Shutdown(context.Background())

	rc := cachekey.RequestContext{EntityType: "company", Verb: cachekey.VerbRead, Endpoint: "/x"}
	if _, err := m.Get(context.Background(), rc); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	m := newTestManager(t, Config{KeyPrefix: "cache", StorageKind: StorageMemory})
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
