package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aperturestack/cachecore/store"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// indexRecord is the in-memory bookkeeping kept alongside each file on
// disk, rebuilt by walking the directory tree on startup.
type indexRecord struct {
	path      string
	expiresAt time.Time
	tags      []string
}

// Store is a store.Store implementation that persists one file per
// entry under a sharded directory tree.
type Store struct {
	cfg  Config
	mu   sync.RWMutex
	idx  map[string]indexRecord // user key -> record
	tags *store.TagIndex

	bytesOnDisk int64

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates (or reopens) a Store rooted at cfg.Root, rebuilding its
// in-memory index by walking the existing shard tree.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Root == "" {
		return nil, fmt.Errorf("filestore: Root must not be empty")
	}
	if err := os.MkdirAll(cfg.Root, dirPerm); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	for i := 0; i < 256; i++ {
		dir := filepath.Join(cfg.Root, fmt.Sprintf("%02x", i))
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("filestore: create shard %s: %w", dir, err)
		}
	}

	s := &Store{
		cfg:  cfg,
		idx:  make(map[string]indexRecord),
		tags: store.NewTagIndex(),
		done: make(chan struct{}),
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval >= 0 {
		s.wg.Add(1)
		go s.cleanupLoop()
	}
	return s, nil
}

// rebuildIndex walks every shard directory, parsing each file's
// envelope. Corrupt files (failed JSON decode) are deleted rather than
// surfaced.
func (s *Store) rebuildIndex() error {
	return filepath.Walk(s.cfg.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != fileExt {
			return nil
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		key, entry, decodeErr := decodeEnvelope(raw)
		if decodeErr != nil {
			os.Remove(path)
			return nil
		}
		s.idx[key] = indexRecord{path: path, expiresAt: entry.ExpiresAt, tags: entry.Tags}
		s.tags.AddAll(entry.Tags, key)
		s.bytesOnDisk += int64(len(raw))
		return nil
	})
}

func (s *Store) Get(ctx context.Context, key string) store.GetResult {
	start := time.Now()
	s.mu.RLock()
	rec, ok := s.idx[key]
	s.mu.RUnlock()
	if !ok {
		return store.Miss(time.Since(start))
	}

	raw, err := os.ReadFile(rec.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.removeFromIndex(key)
			return store.Miss(time.Since(start))
		}
		return store.Failure(err, time.Since(start))
	}
	_, entry, err := decodeEnvelope(raw)
	if err != nil {
		s.removeEntry(key, rec.path)
		return store.Miss(time.Since(start))
	}
	if entry.Expired(time.Now()) {
		s.removeEntry(key, rec.path)
		return store.Miss(time.Since(start))
	}

	touched := entry.Touch(time.Now())
	go s.persistTouchFireAndForget(key, rec.path, touched)

	return store.Hit(touched, time.Since(start))
}

func (s *Store) persistTouchFireAndForget(key, path string, entry store.Entry) {
	raw, err := encodeEnvelope(key, entry, -1)
	if err != nil {
		return
	}
	_ = writeAtomic(path, raw)
}

func (s *Store) Set(ctx context.Context, key string, entry store.Entry) error {
	path := s.pathFor(key)
	raw, err := encodeEnvelope(key, entry, s.cfg.CompressionThreshold)
	if err != nil {
		return store.ErrSerialization
	}
	if err := writeAtomic(path, raw); err != nil {
		return err
	}

	s.mu.Lock()
	if old, exists := s.idx[key]; exists {
		s.bytesOnDisk -= s.fileSize(old.path)
		s.tags.RemoveAll(old.tags, key)
	}
	s.idx[key] = indexRecord{path: path, expiresAt: entry.ExpiresAt, tags: entry.Tags}
	s.tags.AddAll(entry.Tags, key)
	s.bytesOnDisk += int64(len(raw))
	overBudget := s.cfg.MaxBytes > 0 && s.bytesOnDisk > s.cfg.MaxBytes
	s.mu.Unlock()

	if overBudget {
		go s.Cleanup(context.Background())
	}
	return nil
}

func (s *Store) fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	rec, ok := s.idx[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	s.removeEntry(key, rec.path)
	return true, nil
}

func (s *Store) removeEntry(key, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesOnDisk -= s.fileSize(path)
	if rec, ok := s.idx[key]; ok {
		s.tags.RemoveAll(rec.tags, key)
	}
	delete(s.idx, key)
	os.Remove(path)
}

func (s *Store) removeFromIndex(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.idx[key]; ok {
		s.tags.RemoveAll(rec.tags, key)
	}
	delete(s.idx, key)
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	count := 0
	for _, key := range keys {
		if ok, _ := s.Delete(ctx, key); ok {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	s.mu.RLock()
	matches := make([]string, 0)
	for key := range s.idx {
		if store.MatchGlob(pattern, key) {
			matches = append(matches, key)
		}
	}
	s.mu.RUnlock()
	return s.DeleteMany(ctx, matches)
}

func (s *Store) DeleteByTags(ctx context.Context, tags []string) (int, error) {
	s.mu.RLock()
	keys := s.tags.Union(tags)
	s.mu.RUnlock()
	return s.DeleteMany(ctx, keys)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.idx[key]
	s.mu.RUnlock()
	return ok, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.idx))
	for key := range s.idx {
		keys = append(keys, key)
	}
	s.mu.Unlock()
	_, err := s.DeleteMany(ctx, keys)
	return err
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.idx))
	for key := range s.idx {
		if pattern == "" || pattern == "*" || store.MatchGlob(pattern, key) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *Store) Size(ctx context.Context) (store.SizeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.SizeStats{EntryCount: len(s.idx), ByteUsage: s.bytesOnDisk}, nil
}

func (s *Store) Cleanup(ctx context.Context) (int, error) {
	now := time.Now()
	s.mu.RLock()
	expired := make([]string, 0)
	for key, rec := range s.idx {
		if now.After(rec.expiresAt) {
			expired = append(expired, key)
		}
	}
	s.mu.RUnlock()
	return s.DeleteMany(ctx, expired)
}

func (s *Store) Health(ctx context.Context) error {
	probe := filepath.Join(s.cfg.Root, ".health")
	if err := os.WriteFile(probe, []byte("ok"), filePerm); err != nil {
		return fmt.Errorf("filestore: root not writable: %w", err)
	}
	return os.Remove(probe)
}

func (s *Store) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.wg.Wait()
	return nil
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.done:
			return
		}
	}
}

// writeAtomic writes data to a temp file alongside path, then renames
// it into place, so a concurrent reader never observes a partial write.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ store.Store = (*Store)(nil)
