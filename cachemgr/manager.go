package cachemgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/aperturestack/cachecore/cachekey"
	"github.com/aperturestack/cachecore/cachemetrics"
	"github.com/aperturestack/cachecore/health"
	"github.com/aperturestack/cachecore/invalidate"
	"github.com/aperturestack/cachecore/observe"
	"github.com/aperturestack/cachecore/resilience"
	"github.com/aperturestack/cachecore/store"
	"github.com/aperturestack/cachecore/store/filestore"
	"github.com/aperturestack/cachecore/store/memstore"
	"github.com/aperturestack/cachecore/store/rediskv"
	"github.com/aperturestack/cachecore/strategy"
	"github.com/aperturestack/cachecore/ttlmanager"
)

// Result is the outcome of a Get or Set call.
type Result struct {
	Key      string
	Value    []byte
	Hit      bool
	Success  bool
	Duration time.Duration
	Err      error
}

// ExecuteOptions customizes a single ExecuteStrategy call.
type ExecuteOptions struct {
	// Strategy overrides the entity's configured access strategy.
	Strategy *strategy.Strategy

	TTL          time.Duration
	Tags         []string
	ForceRefresh bool
	RefreshAhead bool
	ListRead     bool
}

// SetOptions customizes a single Set call.
type SetOptions struct {
	TTL  time.Duration
	Tags []string
}

// HealthStatus aggregates store reachability, process memory, circuit
// breaker state, and recent cache performance into one snapshot.
type HealthStatus struct {
	Overall           health.Status
	Checks            map[string]health.Result
	CircuitState      resilience.State
	HitRate           float64
	AvgResponseTimeMs float64
	ErrorRate         float64
}

// Manager is the cache's composition root. See the package doc comment
// for the overall shape.
type Manager struct {
	cfg      Config
	entities map[string]EntityConfig

	primary  store.Store
	fallback store.Store

	keygen      *cachekey.Generator
	ttl         *ttlmanager.Manager
	metrics     *cachemetrics.Collector
	invalidator *invalidate.Invalidator
	exec        *strategy.Executor
	breaker     *resilience.CircuitBreaker
	healthAgg   *health.Aggregator

	flight singleflight.Group

	warmupMu sync.Mutex
	warmups  []WarmupStrategy

	mu          sync.RWMutex
	initialized bool
	closed      bool
	shutdownOnce sync.Once
}

// NewManager wires every component from cfg but does not contact the
// store backend or run warmup; call Initialize for that.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		entities: cfg.entityMap(),
	}

	primary, err := m.buildStore(ctx, cfg.StorageKind, cfg.MemStore, cfg.RemoteKV, cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("cachemgr: building primary store: %w", err)
	}
	m.primary = primary

	if cfg.FallbackStorageKind != "" {
		fallback, err := m.buildStore(ctx, cfg.FallbackStorageKind, cfg.FallbackMemStore, cfg.FallbackRemoteKV, cfg.FallbackFileStore)
		if err != nil {
			return nil, fmt.Errorf("cachemgr: building fallback store: %w", err)
		}
		m.fallback = fallback
	}

	m.keygen = cachekey.NewGenerator(cachekey.Config{
		Prefix:      cfg.KeyPrefix,
		ScopeByUser: cfg.ScopeByUser,
	})

	m.ttl = ttlmanager.NewManager(cfg.BusinessHours)
	for _, e := range cfg.Entities {
		ec := ttlmanager.EntityConfig{
			EntityType: e.EntityType,
			DefaultTTL: e.DefaultTTL,
			MinTTL:     e.MinTTL,
			MaxTTL:     e.MaxTTL,
			Strategy:   e.TTLStrategy,
			Volatility: e.Volatility,
		}
		if err := m.ttl.RegisterEntity(ec); err != nil {
			return nil, fmt.Errorf("cachemgr: registering entity %q: %w", e.EntityType, err)
		}
	}

	if cfg.EnableMetrics {
		var meter metric.Meter
		if cfg.Observer != nil {
			meter = cfg.Observer.Meter()
		}
		metrics, err := cachemetrics.NewCollector(cachemetrics.Config{
			Meter:          meter,
			RingCapacity:   cfg.MetricsRingCapacity,
			HistoryHorizon: cfg.MetricsHistoryHorizon,
			Thresholds:     cfg.MetricsThresholds,
			Sink:           m.metricsEventSink,
			MemoryUsage:    cfg.MemoryUsage,
		})
		if err != nil {
			return nil, fmt.Errorf("cachemgr: building metrics collector: %w", err)
		}
		m.metrics = metrics
	}

	m.invalidator = invalidate.New(invalidate.Config{
		Store:  m.primary,
		Prefix: cfg.effectivePrefix(),
		Sink:   m.invalidateEventSink,
	})

	m.exec = strategy.NewExecutor(strategy.Config{
		Store:              m.primary,
		Sink:               m.strategyEventSink,
		RefreshConcurrency: cfg.RefreshConcurrency,
		WriteBehind:        cfg.WriteBehind,
	})

	breakerCfg := cfg.CircuitBreaker
	m.breaker = resilience.NewCircuitBreaker(breakerCfg)

	m.healthAgg = health.NewAggregator()
	m.healthAgg.Register("primary", health.NewCheckerFunc("primary", func(ctx context.Context) health.Result {
		return storeHealthResult(ctx, m.primary)
	}))
	if m.fallback != nil {
		m.healthAgg.Register("fallback", health.NewCheckerFunc("fallback", func(ctx context.Context) health.Result {
			return storeHealthResult(ctx, m.fallback)
		}))
	}
	m.healthAgg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	m.warmups = append(m.warmups, cfg.Warmup...)

	return m, nil
}

func storeHealthResult(ctx context.Context, s store.Store) health.Result {
	start := time.Now()
	if err := s.Health(ctx); err != nil {
		return health.Unhealthy("store health check failed", err).WithDuration(time.Since(start))
	}
	return health.Healthy("reachable").WithDuration(time.Since(start))
}

func (m *Manager) buildStore(ctx context.Context, kind StorageKind, memCfg memstore.Config, remoteCfg RemoteKVConfig, fileCfg FileStoreConfig) (store.Store, error) {
	switch kind {
	case StorageMemory, "":
		return memstore.New(memCfg), nil
	case StorageRemoteKV:
		if remoteCfg.Host == "" {
			return nil, ErrMissingRemoteKVConfig
		}
		credential := remoteCfg.Credential
		if m.cfg.SecretResolver != nil && credential != "" {
			resolved, err := m.cfg.SecretResolver.ResolveValue(ctx, credential)
			if err != nil {
				return nil, fmt.Errorf("resolving remote-kv credential: %w", err)
			}
			credential = resolved
		}
		client := rediskv.Dial(rediskv.ConnConfig{
			Host:           remoteCfg.Host,
			Port:           remoteCfg.Port,
			Credential:     credential,
			Database:       remoteCfg.Database,
			ConnectTimeout: remoteCfg.ConnectTimeout,
			CommandTimeout: remoteCfg.CommandTimeout,
		})
		return rediskv.New(client, rediskv.Config{
			Prefix:         m.cfg.effectivePrefix(),
			AtomicScripts:  remoteCfg.AtomicScripts,
			TagSetExtraTTL: remoteCfg.TagSetExtraTTL,
		}), nil
	case StorageFile:
		if fileCfg.Root == "" {
			return nil, ErrMissingFileStoreRoot
		}
		fs, err := filestore.New(filestore.Config{
			Root:                 fileCfg.Root,
			CompressionThreshold: fileCfg.CompressionThreshold,
			MaxBytes:             fileCfg.MaxBytes,
			CleanupInterval:      fileCfg.CleanupInterval,
		})
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, ErrUnknownStorageKind
	}
}

// Initialize verifies store reachability and, when Config.EnableWarmup
// is set, runs every registered warmup strategy. Warmup failures are
// logged as events but do not abort initialization.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	if err := m.primary.Health(ctx); err != nil {
		return fmt.Errorf("cachemgr: primary store unreachable: %w", err)
	}

	if m.cfg.EnableWarmup {
		m.runWarmup(ctx)
	}

	if m.cfg.Observer != nil {
		m.cfg.Observer.Logger().Info(ctx, "cache manager initialized")
	}
	m.emit(Event{Type: EventInitialized, Timestamp: time.Now()})
	return nil
}

func (m *Manager) ready() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrAlreadyShutdown
	}
	if !m.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (m *Manager) entityFor(entityType string) EntityConfig {
	if e, ok := m.entities[entityType]; ok {
		return e
	}
	return EntityConfig{EntityType: entityType}
}

func (m *Manager) keyFor(rc cachekey.RequestContext, ks cachekey.KeyStrategy, prefixOverride string) (string, error) {
	if ks == "" {
		ks = m.cfg.KeyStrategy
	}
	key, err := m.keygen.Key(rc, ks)
	if err != nil {
		return "", err
	}
	effectivePrefix := m.cfg.effectivePrefix()
	if prefixOverride == "" || prefixOverride == effectivePrefix {
		return key, nil
	}
	return prefixOverride + key[len(effectivePrefix):], nil
}

func paramMap(params []cachekey.Param) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for _, p := range params {
		out[p.Name] = p.Value
	}
	return out
}

// executeStampedeProtected joins concurrent callers keyed by the
// resolved cache key. The operation itself runs detached from the
// caller's context so one caller timing out never cancels a peer's
// in-flight fetch; a timer races the shared call per caller instead.
func (m *Manager) executeStampedeProtected(ctx context.Context, key string, operation func(context.Context) ([]byte, error)) ([]byte, error) {
	if !m.cfg.PreventStampede {
		return operation(ctx)
	}

	type outcome struct {
		value []byte
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err, _ := m.flight.Do(key, func() (any, error) {
			return operation(context.Background())
		})
		if err != nil {
			done <- outcome{err: err}
			return
		}
		value, _ := v.([]byte)
		done <- outcome{value: value}
	}()

	timeout := m.cfg.StampedeTimeout
	if timeout <= 0 {
		timeout = DefaultStampedeTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return nil, ErrStampedeTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// awaitInFlight lets Get observe a concurrent Set/ExecuteStrategy for
// the same key instead of racing it to a stale miss. When nothing is
// in flight this joins and returns immediately.
func (m *Manager) awaitInFlight(key string) {
	if !m.cfg.PreventStampede {
		return
	}
	m.flight.Do(key, func() (any, error) { return nil, nil })
}

// Get resolves rc to a cache key and returns the current value from
// the primary store, without invoking any fetcher.
func (m *Manager) Get(ctx context.Context, rc cachekey.RequestContext) (Result, error) {
	if err := m.ready(); err != nil {
		return Result{}, err
	}
	if m.breaker.State() == resilience.StateOpen {
		return Result{Success: false, Err: resilience.ErrCircuitOpen}, nil
	}

	entity := m.entityFor(rc.EntityType)
	key, err := m.keyFor(rc, "", entity.KeyPrefix)
	if err != nil {
		return Result{}, err
	}

	meta := observe.OperationMeta{Key: key, EntityType: rc.EntityType, Operation: "get"}
	ctx, span := m.startSpan(ctx, meta)

	m.awaitInFlight(key)

	start := time.Now()
	var res store.GetResult
	breakerErr := m.breaker.Execute(ctx, func(ctx context.Context) error {
		res = m.primary.Get(ctx, key)
		if res.Status == store.StatusError {
			return res.Err
		}
		return nil
	})
	duration := time.Since(start)

	m.recordMetric(ctx, cachemetrics.OpGet, rc.EntityType, "", res.Status == store.StatusHit, duration, breakerErr)
	m.endSpan(span, breakerErr)
	m.logResult(ctx, meta, breakerErr)

	if breakerErr != nil {
		return Result{Key: key, Duration: duration, Success: false, Err: breakerErr}, nil
	}
	if res.Status == store.StatusHit {
		return Result{Key: key, Value: res.Entry.Value, Hit: true, Success: true, Duration: duration}, nil
	}
	return Result{Key: key, Hit: false, Success: true, Duration: duration}, nil
}

// ExecuteStrategy resolves rc to a cache key and TTL and runs fetcher
// through the entity's configured (or overridden) access strategy.
func (m *Manager) ExecuteStrategy(ctx context.Context, rc cachekey.RequestContext, fetcher strategy.Fetcher, opts ExecuteOptions) (strategy.Record, error) {
	if err := m.ready(); err != nil {
		return strategy.Record{}, err
	}
	if m.breaker.State() == resilience.StateOpen {
		return strategy.Record{}, resilience.ErrCircuitOpen
	}

	entity := m.entityFor(rc.EntityType)
	key, err := m.keyFor(rc, "", entity.KeyPrefix)
	if err != nil {
		return strategy.Record{}, err
	}

	strat := entity.Strategy
	if opts.Strategy != nil {
		strat = *opts.Strategy
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl, err = m.ttl.TTL(ttlmanager.Context{
			EntityType:   rc.EntityType,
			Params:       paramMap(rc.Params),
			RefreshAhead: opts.RefreshAhead,
			ListRead:     opts.ListRead,
		})
		if err != nil {
			return strategy.Record{}, err
		}
	}

	tags := opts.Tags
	if len(tags) == 0 {
		tags = entity.DefaultTags
	}

	meta := observe.OperationMeta{Key: key, EntityType: rc.EntityType, Operation: "execute_strategy", Strategy: strat.String(), Tags: tags}
	ctx, span := m.startSpan(ctx, meta)

	wrapped := func(ctx context.Context) ([]byte, error) {
		value, err := fetcher(ctx)
		if err == nil {
			m.invalidator.Observe(key, tags)
			m.ttl.RecordUpdate(rc.EntityType, time.Now())
		}
		return value, err
	}
	protected := func(ctx context.Context) ([]byte, error) {
		return m.executeStampedeProtected(ctx, key, wrapped)
	}

	stratOpts := strategy.Options{
		Tags:         tags,
		ForceRefresh: opts.ForceRefresh,
	}

	start := time.Now()
	var rec strategy.Record
	breakerErr := m.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		rec, innerErr = m.exec.Execute(ctx, key, ttl, strat, stratOpts, protected)
		return innerErr
	})
	duration := time.Since(start)

	m.recordMetric(ctx, cachemetrics.OpGet, rc.EntityType, strat.String(), rec.FromCache, duration, breakerErr)
	m.endSpan(span, breakerErr)
	m.logResult(ctx, meta, breakerErr)

	return rec, breakerErr
}

// Set writes value for rc to the primary store, mirroring it to the
// fallback store best-effort.
func (m *Manager) Set(ctx context.Context, rc cachekey.RequestContext, value []byte, opts SetOptions) (Result, error) {
	if err := m.ready(); err != nil {
		return Result{}, err
	}

	entity := m.entityFor(rc.EntityType)
	key, err := m.keyFor(rc, "", entity.KeyPrefix)
	if err != nil {
		return Result{}, err
	}

	if len(value) == 0 && !entity.CacheEmpty {
		return Result{Key: key, Success: false, Err: ErrEmptyValue}, nil
	}
	if entity.MaxEntrySize > 0 && int64(len(value)) > entity.MaxEntrySize {
		return Result{Key: key, Success: false, Err: ErrEntryTooLarge}, nil
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl, err = m.ttl.TTL(ttlmanager.Context{EntityType: rc.EntityType})
		if err != nil {
			return Result{}, err
		}
	}

	tags := opts.Tags
	if len(tags) == 0 {
		tags = entity.DefaultTags
	}

	meta := observe.OperationMeta{Key: key, EntityType: rc.EntityType, Operation: "set", Tags: tags}
	ctx, span := m.startSpan(ctx, meta)

	doSet := func(ctx context.Context) ([]byte, error) {
		entry := store.NewEntry(value, ttl, tags, time.Now())
		if err := m.primary.Set(ctx, key, entry); err != nil {
			return nil, err
		}
		m.invalidator.Observe(key, tags)
		m.ttl.RecordUpdate(rc.EntityType, time.Now())
		if m.fallback != nil {
			go func() {
				_ = m.fallback.Set(context.Background(), key, entry)
			}()
		}
		return value, nil
	}

	start := time.Now()
	var breakerErr error
	_ = m.breaker.Execute(ctx, func(ctx context.Context) error {
		var innerErr error
		if m.cfg.PreventStampede {
			_, innerErr = m.executeStampedeProtected(ctx, key, doSet)
		} else {
			_, innerErr = doSet(ctx)
		}
		breakerErr = innerErr
		return innerErr
	})
	duration := time.Since(start)

	m.recordMetric(ctx, cachemetrics.OpSet, rc.EntityType, "", false, duration, breakerErr)
	m.endSpan(span, breakerErr)
	m.logResult(ctx, meta, breakerErr)

	return Result{Key: key, Success: breakerErr == nil, Duration: duration, Err: breakerErr}, nil
}

// Invalidate delegates to the invalidator, cascading to dependent
// entity types when one can be resolved from target.
func (m *Manager) Invalidate(ctx context.Context, kind invalidate.PatternKind, target invalidate.Target, dryRun bool) (int, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if entityType := m.entityTypeFromTarget(target); entityType != "" {
		return m.invalidator.InvalidateWithCascade(ctx, entityType, kind, target, dryRun, true)
	}
	return m.invalidator.Invalidate(ctx, kind, target, dryRun)
}

func (m *Manager) entityTypeFromTarget(target invalidate.Target) string {
	switch {
	case target.Key != "":
		return m.keygen.EntityTypeFromKey(target.Key)
	case target.Pattern != "":
		return m.keygen.EntityTypeFromKey(target.Pattern)
	case len(target.Keys) > 0:
		return m.keygen.EntityTypeFromKey(target.Keys[0])
	default:
		return ""
	}
}

// InvalidateByEntityChange delegates to the invalidator's rule engine.
func (m *Manager) InvalidateByEntityChange(ctx context.Context, entityType string, entityData map[string]any, changeType invalidate.ChangeType) ([]invalidate.RuleOutcome, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.invalidator.InvalidateByEntityChange(ctx, entityType, entityData, changeType), nil
}

// GetMetrics returns a point-in-time metrics snapshot. The zero value
// is returned when Config.EnableMetrics is false.
func (m *Manager) GetMetrics() cachemetrics.Snapshot {
	if m.metrics == nil {
		return cachemetrics.Snapshot{}
	}
	return m.metrics.Snapshot()
}

// GetHealthStatus aggregates store reachability, process memory, and
// circuit breaker/cache performance into one status.
func (m *Manager) GetHealthStatus(ctx context.Context) HealthStatus {
	results := m.healthAgg.CheckAll(ctx)
	overall := m.healthAgg.OverallStatus(results)

	status := HealthStatus{
		Overall:      overall,
		Checks:       results,
		CircuitState: m.breaker.State(),
	}
	if m.metrics != nil {
		snap := m.metrics.Snapshot()
		status.HitRate = snap.HitRate
		status.AvgResponseTimeMs = snap.AvgResponseTimeMs
		total := snap.Hits + snap.Misses + snap.Sets + snap.Deletes
		if total > 0 {
			status.ErrorRate = float64(snap.Errors) / float64(total)
		}
	}
	return status
}

// RegisterWarmupStrategy adds a strategy future Initialize calls will
// run if Config.EnableWarmup is set. Calling it after Initialize has
// no effect on the already-completed run.
func (m *Manager) RegisterWarmupStrategy(s WarmupStrategy) {
	m.warmupMu.Lock()
	defer m.warmupMu.Unlock()
	m.warmups = append(m.warmups, s)
}

// Shutdown stops background work and releases the stores. It is safe
// to call more than once; only the first call does anything.
func (m *Manager) Shutdown(ctx context.Context) error {
	var shutdownErr error
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		m.exec.Close()
		m.invalidator.Shutdown(ctx)

		var errs []error
		if m.primary != nil {
			if err := m.primary.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if m.fallback != nil {
			if err := m.fallback.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if m.cfg.Observer != nil {
			m.cfg.Observer.Logger().Info(ctx, "cache manager shut down")
		}
		m.emit(Event{Type: EventShutdown, Timestamp: time.Now()})

		if len(errs) == 1 {
			shutdownErr = errs[0]
		} else if len(errs) > 1 {
			shutdownErr = fmt.Errorf("cachemgr: shutdown errors: %v", errs)
		}
	})
	return shutdownErr
}

func (m *Manager) recordMetric(ctx context.Context, op cachemetrics.Operation, entityType, strat string, hit bool, duration time.Duration, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.Record(ctx, cachemetrics.DataPoint{
		Timestamp:  time.Now(),
		Operation:  op,
		EntityType: entityType,
		Strategy:   strat,
		Hit:        hit,
		Duration:   duration,
		Err:        err,
	})
}
