package memstore

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/aperturestack/cachecore/store"
)

// DefaultCleanupInterval is how often the background sweep removes
// expired entries when Config.CleanupInterval is zero.
const DefaultCleanupInterval = 60 * time.Second

// EvictionTarget is the fraction of each bound eviction drains usage down
// to once a bound is exceeded.
const EvictionTarget = 0.8

// Config configures a Store.
type Config struct {
	// MaxEntries bounds the entry count. Zero means unbounded.
	MaxEntries int

	// MaxBytes bounds total Entry.Size usage. Zero means unbounded.
	MaxBytes int64

	// CleanupInterval is the background sweep period. Defaults to
	// DefaultCleanupInterval; a negative value disables the sweep.
	CleanupInterval time.Duration
}

type listValue struct {
	key   string
	entry store.Entry
}

// Store is an in-process, LRU-evicted store.Store implementation.
type Store struct {
	mu    sync.Mutex
	cfg   Config
	ll    *list.List
	items map[string]*list.Element
	tags  *store.TagIndex
	bytes int64
	done  chan struct{}
	wg    sync.WaitGroup
}

// New builds a Store and, unless disabled, starts its background cleanup
// sweep.
func New(cfg Config) *Store {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	s := &Store{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[string]*list.Element),
		tags:  store.NewTagIndex(),
		done:  make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cfg.CleanupInterval)
	}
	return s
}

func (s *Store) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background())
		}
	}
}

func (s *Store) Get(_ context.Context, key string) store.GetResult {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return store.Miss(time.Since(start))
	}
	lv := elem.Value.(*listValue)
	now := time.Now()
	if lv.entry.Expired(now) {
		s.removeLocked(elem)
		return store.Miss(time.Since(start))
	}
	lv.entry = lv.entry.Touch(now)
	s.ll.MoveToFront(elem)
	return store.Hit(lv.entry, time.Since(start))
}

func (s *Store) Set(_ context.Context, key string, entry store.Entry) error {
	if s.cfg.MaxBytes > 0 && entry.Size > s.cfg.MaxBytes {
		return store.ErrCapacityExceeded
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.items[key]; ok {
		s.removeLocked(elem)
	}
	elem := s.ll.PushFront(&listValue{key: key, entry: entry})
	s.items[key] = elem
	s.bytes += entry.Size
	s.tags.AddAll(entry.Tags, key)

	s.evictLocked()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.items[key]
	if !ok {
		return false, nil
	}
	s.removeLocked(elem)
	return true, nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	count := 0
	for _, k := range keys {
		ok, _ := s.Delete(ctx, k)
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var toRemove []*list.Element
	for key, elem := range s.items {
		if store.MatchGlob(pattern, key) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		s.removeLocked(elem)
	}
	return len(toRemove), nil
}

func (s *Store) DeleteByTags(_ context.Context, tags []string) (int, error) {
	keys := s.tags.Union(tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, key := range keys {
		if elem, ok := s.items[key]; ok {
			s.removeLocked(elem)
			count++
		}
	}
	return count, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.items[key]
	if !ok {
		return false, nil
	}
	lv := elem.Value.(*listValue)
	if lv.entry.Expired(time.Now()) {
		s.removeLocked(elem)
		return false, nil
	}
	return true, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ll = list.New()
	s.items = make(map[string]*list.Element)
	s.tags = store.NewTagIndex()
	s.bytes = 0
	return nil
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for key := range s.items {
		if pattern == "" || store.MatchGlob(pattern, key) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *Store) Size(_ context.Context) (store.SizeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.SizeStats{EntryCount: len(s.items), ByteUsage: s.bytes}, nil
}

func (s *Store) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var expired []*list.Element
	for _, elem := range s.items {
		if elem.Value.(*listValue).entry.Expired(now) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.removeLocked(elem)
	}
	return len(expired), nil
}

func (s *Store) Health(ctx context.Context) error {
	const probeKey = "__memstore_health_probe__"
	entry := store.NewEntry([]byte("ok"), time.Second, nil, time.Now())
	if err := s.Set(ctx, probeKey, entry); err != nil {
		return err
	}
	result := s.Get(ctx, probeKey)
	_, _ = s.Delete(ctx, probeKey)
	if result.Status != store.StatusHit {
		return store.ErrUnreachable
	}
	return nil
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

// removeLocked removes elem from the list/map/tag index and subtracts
// its bytes. Caller must hold s.mu.
func (s *Store) removeLocked(elem *list.Element) {
	lv := elem.Value.(*listValue)
	s.ll.Remove(elem)
	delete(s.items, lv.key)
	s.bytes -= lv.entry.Size
	s.tags.RemoveAll(lv.entry.Tags, lv.key)
}

// evictLocked drops least-recently-used entries until both configured
// bounds are at or below EvictionTarget. Caller must hold s.mu.
func (s *Store) evictLocked() {
	overEntries := s.cfg.MaxEntries > 0 && len(s.items) > s.cfg.MaxEntries
	overBytes := s.cfg.MaxBytes > 0 && s.bytes > s.cfg.MaxBytes
	if !overEntries && !overBytes {
		return
	}

	targetEntries := int(float64(s.cfg.MaxEntries) * EvictionTarget)
	targetBytes := int64(float64(s.cfg.MaxBytes) * EvictionTarget)

	for {
		needEntries := s.cfg.MaxEntries > 0 && len(s.items) > targetEntries
		needBytes := s.cfg.MaxBytes > 0 && s.bytes > targetBytes
		if !needEntries && !needBytes {
			return
		}
		back := s.ll.Back()
		if back == nil {
			return
		}
		s.removeLocked(back)
	}
}

var _ store.Store = (*Store)(nil)
