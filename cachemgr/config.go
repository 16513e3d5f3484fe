package cachemgr

import (
	"context"
	"time"

	"github.com/aperturestack/cachecore/cachekey"
	"github.com/aperturestack/cachecore/cachemetrics"
	"github.com/aperturestack/cachecore/observe"
	"github.com/aperturestack/cachecore/resilience"
	"github.com/aperturestack/cachecore/secret"
	"github.com/aperturestack/cachecore/store/memstore"
	"github.com/aperturestack/cachecore/strategy"
	"github.com/aperturestack/cachecore/ttlmanager"
)

// StorageKind selects a Store implementation.
type StorageKind string

const (
	StorageMemory   StorageKind = "memory"
	StorageRemoteKV StorageKind = "remote-kv"
	StorageFile     StorageKind = "file"
)

// DefaultStampedeTimeout bounds how long a caller waits on an in-flight
// peer when Config.StampedeTimeout is unset.
const DefaultStampedeTimeout = 5 * time.Second

// RemoteKVConfig describes how to reach a Redis-compatible backend.
// Credential may be a literal value, an environment reference, or a
// "secretref:<provider>:<ref>" resolved through Config.SecretResolver at
// Initialize time.
type RemoteKVConfig struct {
	Host           string
	Port           int
	Credential     string
	Database       int
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	AtomicScripts  bool
	TagSetExtraTTL time.Duration
}

// FileStoreConfig describes the on-disk layout for the file store.
type FileStoreConfig struct {
	Root                 string
	CompressionThreshold  int
	MaxBytes             int64
	CleanupInterval      time.Duration
}

// EntityConfig is the per-entity-type configuration a Manager consults
// for key generation, TTL computation, and access strategy.
type EntityConfig struct {
	EntityType string

	// Strategy selects the access pattern (NONE, LAZY_LOADING,
	// WRITE_THROUGH, REFRESH_AHEAD, WRITE_BEHIND) ExecuteStrategy uses
	// when the caller does not name one explicitly.
	Strategy strategy.Strategy

	// TTLStrategy and Volatility feed the TTL manager's formula
	// selection for this entity type.
	TTLStrategy ttlmanager.Strategy
	Volatility  ttlmanager.VolatilityClass

	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration

	// CacheEmpty allows Set to persist a zero-length value. When false
	// (the default) Set rejects empty values with ErrEmptyValue.
	CacheEmpty bool

	// MaxEntrySize rejects Set calls over this many bytes. Zero means
	// unbounded.
	MaxEntrySize int64

	// DefaultTags is applied to entries written for this entity type
	// when the caller supplies none of its own.
	DefaultTags []string

	// KeyPrefix overrides Config.KeyPrefix for keys of this entity type
	// only; empty means use the manager-wide prefix.
	KeyPrefix string
}

// WarmupStrategy is one named warmup procedure registered via
// RegisterWarmupStrategy or Config.Warmup.
type WarmupStrategy struct {
	Name        string
	EntityTypes []string
	Priority    int

	// Timeout bounds this strategy's Execute call. Defaults to
	// DefaultWarmupTimeout.
	Timeout time.Duration

	Execute func(ctx context.Context, entityType string) error
}

// Config configures a Manager.
type Config struct {
	// KeyPrefix is prepended to every generated key unless an entity
	// overrides it.
	KeyPrefix   string
	KeyStrategy cachekey.KeyStrategy
	ScopeByUser bool

	StorageKind         StorageKind
	FallbackStorageKind StorageKind // "" disables the fallback mirror

	MemStore  memstore.Config
	RemoteKV  RemoteKVConfig
	FileStore FileStoreConfig

	// FallbackMemStore/FallbackRemoteKV/FallbackFileStore configure the
	// fallback store when FallbackStorageKind selects that kind.
	FallbackMemStore  memstore.Config
	FallbackRemoteKV  RemoteKVConfig
	FallbackFileStore FileStoreConfig

	Entities      []EntityConfig
	BusinessHours ttlmanager.BusinessHours

	EnableMetrics bool
	EnableWarmup  bool
	Warmup        []WarmupStrategy

	PreventStampede bool
	StampedeTimeout time.Duration

	CircuitBreaker resilience.CircuitBreakerConfig

	RefreshConcurrency int
	WriteBehind        strategy.WriteBehindConfig

	MetricsRingCapacity   int
	MetricsHistoryHorizon int
	MetricsThresholds     []cachemetrics.Threshold
	MemoryUsage           func() uint64

	// SecretResolver resolves RemoteKV.Credential / FallbackRemoteKV.Credential
	// when they carry a "secretref:" prefix or environment reference. A nil
	// resolver leaves credentials as literal strings.
	SecretResolver *secret.Resolver

	// Sink receives every observable event (spec's initialized, shutdown,
	// warmup_completed, invalidation, refresh_completed,
	// metric_threshold_exceeded records). Nil discards events.
	Sink EventSink

	// Observer wires span, metric, and log emission through
	// the observe package. A nil Observer disables tracing/structured
	// logging; metrics still flow through cachemetrics regardless.
	Observer observe.Observer
}

// effectivePrefix mirrors cachekey.Config.withDefaults' "cache" fallback
// so every component sharing Config.KeyPrefix agrees on the same value
// even when the caller leaves it unset.
func (c Config) effectivePrefix() string {
	if c.KeyPrefix == "" {
		return "cache"
	}
	return c.KeyPrefix
}

func (c Config) entityMap() map[string]EntityConfig {
	out := make(map[string]EntityConfig, len(c.Entities))
	for _, e := range c.Entities {
		out[e.EntityType] = e
	}
	return out
}
