package rediskv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aperturestack/cachecore/store"
)

func newTestStore(t *testing.T, cfg Config) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, cfg), srv
}

func TestStore_SetGetHit(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	entry := store.NewEntry([]byte("v1"), time.Minute, []string{"company"}, time.Now())

	if err := s.Set(ctx, "k1", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	result := s.Get(ctx, "k1")
	if result.Status != store.StatusHit {
		t.Fatalf("Get() status = %v, want hit", result.Status)
	}
	if string(result.Entry.Value) != "v1" {
		t.Errorf("Get() value = %q, want v1", result.Entry.Value)
	}
}

func TestStore_GetMissOnAbsent(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	result := s.Get(context.Background(), "nope")
	if result.Status != store.StatusMiss {
		t.Errorf("Get() status = %v, want miss", result.Status)
	}
}

func TestStore_AtomicSetWithTagFanout(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:", AtomicScripts: true})
	ctx := context.Background()
	entry := store.NewEntry([]byte("v"), time.Minute, []string{"company", "contacts"}, time.Now())

	if err := s.Set(ctx, "k1", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	result := s.Get(ctx, "k1")
	if result.Status != store.StatusHit {
		t.Fatalf("Get() status = %v, want hit", result.Status)
	}

	count, err := s.DeleteByTags(ctx, []string{"company"})
	if err != nil {
		t.Fatalf("DeleteByTags() error = %v", err)
	}
	if count != 1 {
		t.Errorf("DeleteByTags() count = %d, want 1", count)
	}
	if ok, _ := s.Exists(ctx, "k1"); ok {
		t.Errorf("tagged entry survived DeleteByTags")
	}
}

func TestStore_PipelinedSetWithTagFanout(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:", AtomicScripts: false})
	ctx := context.Background()
	entry := store.NewEntry([]byte("v"), time.Minute, []string{"company"}, time.Now())

	if err := s.Set(ctx, "k1", entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	count, err := s.DeleteByTags(ctx, []string{"company"})
	if err != nil {
		t.Fatalf("DeleteByTags() error = %v", err)
	}
	if count != 1 {
		t.Errorf("DeleteByTags() count = %d, want 1", count)
	}
}

func TestStore_DeleteMany(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	now := time.Now()
	s.Set(ctx, "k1", store.NewEntry([]byte("a"), time.Minute, nil, now))
	s.Set(ctx, "k2", store.NewEntry([]byte("b"), time.Minute, nil, now))

	count, err := s.DeleteMany(ctx, []string{"k1", "k2", "missing"})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteMany() count = %d, want 2", count)
	}
}

func TestStore_DeleteByPattern(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	now := time.Now()
	s.Set(ctx, "companies:1", store.NewEntry([]byte("a"), time.Minute, nil, now))
	s.Set(ctx, "companies:2", store.NewEntry([]byte("b"), time.Minute, nil, now))
	s.Set(ctx, "contacts:1", store.NewEntry([]byte("c"), time.Minute, nil, now))

	count, err := s.DeleteByPattern(ctx, "companies:*")
	if err != nil {
		t.Fatalf("DeleteByPattern() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByPattern() count = %d, want 2", count)
	}
	if ok, _ := s.Exists(ctx, "contacts:1"); !ok {
		t.Errorf("unrelated key was deleted")
	}
}

func TestStore_KeysExcludesTagSets(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	s.Set(ctx, "k1", store.NewEntry([]byte("a"), time.Minute, []string{"company"}, time.Now()))

	keys, err := s.Keys(ctx, "*")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "k1" {
		t.Errorf("Keys() = %v, want [k1]", keys)
	}
}

func TestStore_Size(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	s.Set(ctx, "k1", store.NewEntry([]byte("hello"), time.Minute, nil, time.Now()))

	sz, err := s.Size(ctx)
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if sz.EntryCount != 1 {
		t.Errorf("EntryCount = %d, want 1", sz.EntryCount)
	}
	if sz.ByteUsage <= 0 {
		t.Errorf("ByteUsage = %d, want > 0", sz.ByteUsage)
	}
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	ctx := context.Background()
	s.Set(ctx, "k1", store.NewEntry([]byte("a"), time.Minute, []string{"company"}, time.Now()))
	s.Set(ctx, "k2", store.NewEntry([]byte("b"), time.Minute, nil, time.Now()))

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	keys, _ := s.Keys(ctx, "*")
	if len(keys) != 0 {
		t.Errorf("Keys() after Clear = %v, want empty", keys)
	}
}

func TestStore_Health(t *testing.T) {
	s, _ := newTestStore(t, Config{Prefix: "cache:"})
	if err := s.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestStore_HealthUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	s := New(client, Config{Prefix: "cache:"})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := s.Health(ctx); err == nil {
		t.Errorf("Health() error = nil, want error for unreachable server")
	}
}
