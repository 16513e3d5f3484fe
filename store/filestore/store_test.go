package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aperturestack/cachecore/store"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	cfg.Root = t.TempDir()
	cfg.CleanupInterval = -1
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetGetHit(t *testing.T) {
	s := newTestStore(t, Config{})
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
	s := newTestStore(t, Config{})
	result := s.Get(context.Background(), "nope")
	if result.Status != store.StatusMiss {
		t.Errorf("Get() status = %v, want miss", result.Status)
	}
}

func TestStore_GetMissOnExpired(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	entry := store.NewEntry([]byte("v"), time.Millisecond, nil, past)

	s.Set(ctx, "k", entry)
	result := s.Get(ctx, "k")
	if result.Status != store.StatusMiss {
		t.Fatalf("Get() status = %v, want miss for expired entry", result.Status)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Errorf("expired entry was not removed")
	}
}

func TestStore_ShardedLayout(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()
	entry := store.NewEntry([]byte("v"), time.Minute, nil, time.Now())
	s.Set(ctx, "k1", entry)

	path := s.pathFor("k1")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
	digest := hashKey("k1")
	wantDir := filepath.Join(s.cfg.Root, shard(digest))
	if filepath.Dir(path) != wantDir {
		t.Errorf("path dir = %s, want %s", filepath.Dir(path), wantDir)
	}
}

func TestStore_CompressionAboveThreshold(t *testing.T) {
	s := newTestStore(t, Config{CompressionThreshold: 4})
	ctx := context.Background()
	value := []byte("this value is definitely over four bytes")
	s.Set(ctx, "k1", store.NewEntry(value, time.Minute, nil, time.Now()))

	result := s.Get(ctx, "k1")
	if result.Status != store.StatusHit {
		t.Fatalf("Get() status = %v, want hit", result.Status)
	}
	if string(result.Entry.Value) != string(value) {
		t.Errorf("Get() value = %q, want %q", result.Entry.Value, value)
	}

	raw, err := os.ReadFile(s.pathFor("k1"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	_, entry, err := decodeEnvelope(raw)
	if err != nil {
		t.Fatalf("decodeEnvelope() error = %v", err)
	}
	// gzip framing can make a short value larger, so check the recorded
	// pre-compression size rather than comparing sizes.
	if entry.OriginalSize != int64(len(value)) {
		t.Errorf("persisted entry was not compressed: original size %d, want %d", entry.OriginalSize, len(value))
	}
}

func TestStore_DeleteByTags(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()
	now := time.Now()
	s.Set(ctx, "k1", store.NewEntry([]byte("a"), time.Minute, []string{"company"}, now))
	s.Set(ctx, "k2", store.NewEntry([]byte("b"), time.Minute, []string{"company"}, now))
	s.Set(ctx, "k3", store.NewEntry([]byte("c"), time.Minute, []string{"unrelated"}, now))

	count, err := s.DeleteByTags(ctx, []string{"company"})
	if err != nil {
		t.Fatalf("DeleteByTags() error = %v", err)
	}
	if count != 2 {
		t.Errorf("DeleteByTags() count = %d, want 2", count)
	}
	if ok, _ := s.Exists(ctx, "k3"); !ok {
		t.Errorf("unrelated tagged key was deleted")
	}
}

func TestStore_DeleteByPattern(t *testing.T) {
	s := newTestStore(t, Config{})
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

func TestStore_Cleanup(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	s.Set(ctx, "expired", store.NewEntry([]byte("v"), time.Millisecond, nil, past))
	s.Set(ctx, "fresh", store.NewEntry([]byte("v"), time.Hour, nil, time.Now()))

	count, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Cleanup() count = %d, want 1", count)
	}
	if ok, _ := s.Exists(ctx, "fresh"); !ok {
		t.Errorf("fresh entry was removed by cleanup")
	}
}

func TestStore_Health(t *testing.T) {
	s := newTestStore(t, Config{})
	if err := s.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}

func TestStore_IndexRebuildOnReopen(t *testing.T) {
	root := t.TempDir()
	s, err := New(Config{Root: root, CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	s.Set(ctx, "k1", store.NewEntry([]byte("v"), time.Hour, []string{"company"}, time.Now()))
	s.Close()

	reopened, err := New(Config{Root: root, CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	result := reopened.Get(ctx, "k1")
	if result.Status != store.StatusHit {
		t.Fatalf("Get() after reopen status = %v, want hit", result.Status)
	}

	count, err := reopened.DeleteByTags(ctx, []string{"company"})
	if err != nil {
		t.Fatalf("DeleteByTags() after reopen error = %v", err)
	}
	if count != 1 {
		t.Errorf("DeleteByTags() after reopen count = %d, want 1 (tag index must survive restart)", count)
	}
}

func TestStore_RebuildDeletesCorruptFiles(t *testing.T) {
	root := t.TempDir()
	shardDir := filepath.Join(root, "ab")
	if err := os.MkdirAll(shardDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	corrupt := filepath.Join(shardDir, "deadbeef.cache")
	if err := os.WriteFile(corrupt, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := New(Config{Root: root, CleanupInterval: -1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(corrupt); !os.IsNotExist(err) {
		t.Errorf("corrupt file was not removed during rebuild")
	}
}
