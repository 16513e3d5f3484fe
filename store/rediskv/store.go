package rediskv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aperturestack/cachecore/store"
)

const tagSetInfix = "tag:"

// Store is a store.Store implementation backed by a Redis-compatible
// remote key-value server.
type Store struct {
	cfg    Config
	client redis.UniversalClient
}

// New wraps an already-constructed client (see Dial) with store.Store
// semantics under cfg.
func New(client redis.UniversalClient, cfg Config) *Store {
	return &Store{cfg: cfg.withDefaults(), client: client}
}

func (s *Store) entryKey(userKey string) string {
	return s.cfg.Prefix + userKey
}

func (s *Store) tagSetKey(tag string) string {
	return s.cfg.Prefix + tagSetInfix + tag
}

func (s *Store) stripPrefix(key string) string {
	if len(key) >= len(s.cfg.Prefix) && key[:len(s.cfg.Prefix)] == s.cfg.Prefix {
		return key[len(s.cfg.Prefix):]
	}
	return key
}

func (s *Store) Get(ctx context.Context, key string) store.GetResult {
	start := time.Now()
	raw, err := getScript.Run(ctx, s.client, []string{s.entryKey(key)}).Result()
	if errors.Is(err, redis.Nil) {
		return store.Miss(time.Since(start))
	}
	if err != nil {
		return store.Failure(err, time.Since(start))
	}
	str, ok := raw.(string)
	if !ok {
		return store.Failure(store.ErrSerialization, time.Since(start))
	}

	var entry store.Entry
	if err := json.Unmarshal([]byte(str), &entry); err != nil {
		// Corrupt payload: treat as a miss and remove it, per the
		// SerializationError read policy.
		_, _ = s.Delete(ctx, key)
		return store.Miss(time.Since(start))
	}
	if entry.Expired(time.Now()) {
		_, _ = s.Delete(ctx, key)
		return store.Miss(time.Since(start))
	}

	touched := entry.Touch(time.Now())
	go s.recordHitFireAndForget(key, touched)

	return store.Hit(touched, time.Since(start))
}

// recordHitFireAndForget persists the updated hit count/last-access
// asynchronously; a failure here never affects the caller's GET result.
func (s *Store) recordHitFireAndForget(key string, entry store.Entry) {
	body, err := json.Marshal(entry)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return
	}
	_ = s.client.Set(ctx, s.entryKey(key), body, ttl).Err()
}

func (s *Store) Set(ctx context.Context, key string, entry store.Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return store.ErrSerialization
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	tagTTL := ttl + s.cfg.TagSetExtraTTL

	if s.cfg.AtomicScripts && len(entry.Tags) > 0 {
		keys := append([]string{s.entryKey(key)}, s.tagSetKeys(entry.Tags)...)
		return setWithTagFanoutScript.Run(ctx, s.client, keys,
			string(body), ttl.Milliseconds(), tagTTL.Milliseconds(), key).Err()
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.entryKey(key), body, ttl)
	for _, tag := range entry.Tags {
		tk := s.tagSetKey(tag)
		pipe.SAdd(ctx, tk, key)
		pipe.PExpire(ctx, tk, tagTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) tagSetKeys(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = s.tagSetKey(t)
	}
	return out
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.entryKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = s.entryKey(k)
	}
	n, err := s.client.Del(ctx, redisKeys...).Result()
	return int(n), err
}

func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	matches, err := s.scanEntryKeys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(matches) == 0 {
		return 0, nil
	}
	n, err := s.client.Del(ctx, matches...).Result()
	return int(n), err
}

func (s *Store) DeleteByTags(ctx context.Context, tags []string) (int, error) {
	seen := make(map[string]struct{})
	for _, tag := range tags {
		members, err := s.client.SMembers(ctx, s.tagSetKey(tag)).Result()
		if err != nil {
			return 0, err
		}
		for _, m := range members {
			seen[m] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return 0, nil
	}
	entryKeys := make([]string, 0, len(seen))
	for m := range seen {
		entryKeys = append(entryKeys, s.entryKey(m))
	}
	pipe := s.client.Pipeline()
	delCmd := pipe.Del(ctx, entryKeys...)
	for _, tag := range tags {
		pipe.Del(ctx, s.tagSetKey(tag))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(delCmd.Val()), nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.entryKey(key)).Result()
	return n > 0, err
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.scanAll(ctx, s.cfg.Prefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	matches, err := s.scanEntryKeys(ctx, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, k := range matches {
		out[i] = s.stripPrefix(k)
	}
	return out, nil
}

func (s *Store) Size(ctx context.Context) (store.SizeStats, error) {
	keys, err := s.scanEntryKeys(ctx, "*")
	if err != nil {
		return store.SizeStats{}, err
	}
	var bytes int64
	if len(keys) > 0 {
		pipe := s.client.Pipeline()
		cmds := make([]*redis.IntCmd, len(keys))
		for i, k := range keys {
			cmds[i] = pipe.StrLen(ctx, k)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return store.SizeStats{}, err
		}
		for _, c := range cmds {
			bytes += c.Val()
		}
	}
	return store.SizeStats{EntryCount: len(keys), ByteUsage: bytes}, nil
}

// Cleanup is a bounded no-op for most expirations: Redis enforces the
// PX TTL natively. It exists to catch entries whose physical TTL has
// not yet elapsed but whose encoded ExpiresAt has (e.g. after a TTL
// config change), and to satisfy the store.Store capability set.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	keys, err := s.scanEntryKeys(ctx, "*")
	if err != nil {
		return 0, err
	}
	now := time.Now()
	removed := 0
	for _, k := range keys {
		raw, err := s.client.Get(ctx, k).Result()
		if err != nil {
			continue
		}
		var entry store.Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.client.Del(ctx, k)
			removed++
			continue
		}
		if entry.Expired(now) {
			s.client.Del(ctx, k)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// scanEntryKeys scans entry keys (excluding tag-set keys) matching
// pattern under the configured prefix, using cursor iteration rather
// than KEYS so the operation never blocks the server on a large
// keyspace.
func (s *Store) scanEntryKeys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	all, err := s.scanAll(ctx, s.cfg.Prefix+pattern)
	if err != nil {
		return nil, err
	}
	tagPrefix := s.cfg.Prefix + tagSetInfix
	out := make([]string, 0, len(all))
	for _, k := range all {
		if len(k) >= len(tagPrefix) && k[:len(tagPrefix)] == tagPrefix {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

func (s *Store) scanAll(ctx context.Context, matchPattern string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, matchPattern, 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
