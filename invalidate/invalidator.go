package invalidate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aperturestack/cachecore/store"
)

// Config configures an Invalidator.
type Config struct {
	Store store.Store
	// Prefix is used to build default rules' glob patterns and to
	// derive dependent cascade patterns (`<prefix>:<entityType>:*`).
	Prefix string
	// Rules defaults to DefaultRules(Prefix) when nil.
	Rules []Rule
	// Dependencies defaults to DefaultDependencies() when nil.
	Dependencies DependencyMap
	Sink         EventSink
}

// Invalidator applies cache deletions in response to direct calls or
// entity-change events, and mirrors tag membership so TAG_BASED
// dry-runs can report an exact count without mutating the store.
type Invalidator struct {
	store  store.Store
	prefix string
	sink   EventSink

	mu    sync.RWMutex
	rules []Rule
	deps  DependencyMap
	tags  *store.TagIndex

	timersMu sync.Mutex
	timers   map[int64]*pendingInvalidation
	timerSeq int64
}

type pendingInvalidation struct {
	timer  *time.Timer
	kind   PatternKind
	target Target
}

// New builds an Invalidator seeded with cfg.Rules/cfg.Dependencies, or
// the package defaults when either is nil.
func New(cfg Config) *Invalidator {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules(cfg.Prefix)
	}
	deps := cfg.Dependencies
	if deps == nil {
		deps = DefaultDependencies()
	}
	return &Invalidator{
		store:  cfg.Store,
		prefix: cfg.Prefix,
		sink:   cfg.Sink,
		rules:  rules,
		deps:   deps,
		tags:   store.NewTagIndex(),
		timers: make(map[int64]*pendingInvalidation),
	}
}

func (inv *Invalidator) emit(evt Event) {
	if inv.sink != nil {
		evt.Timestamp = time.Now()
		inv.sink(evt)
	}
}

// Observe records a write's tag membership so TAG_BASED dry-runs can
// report exact counts. Callers (the manager) invoke this alongside
// every store Set.
func (inv *Invalidator) Observe(key string, tags []string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.tags.AddAll(tags, key)
}

// Forget drops a key's tag membership, for callers to invoke alongside
// a direct store Delete outside the invalidator's own paths.
func (inv *Invalidator) Forget(key string, tags []string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.tags.RemoveAll(tags, key)
}

// Invalidate applies a direct invalidation: SINGLE deletes one key,
// BATCH deletes a listed set, PATTERN glob-matches and deletes, TAG_BASED
// deletes the union of tagged keys, TTL runs store cleanup. With
// dryRun, nothing is mutated and the count reports what would have
// been deleted.
func (inv *Invalidator) Invalidate(ctx context.Context, kind PatternKind, target Target, dryRun bool) (int, error) {
	start := time.Now()
	inv.emit(Event{Phase: PhaseBefore, Pattern: target.Pattern, Target: target})

	count, err := inv.apply(ctx, kind, target, dryRun)

	if err != nil {
		inv.emit(Event{Phase: PhaseError, Pattern: target.Pattern, Target: target, Err: err, ExecutionTime: time.Since(start)})
		return count, err
	}
	inv.emit(Event{Phase: PhaseAfter, Pattern: target.Pattern, Target: target, Count: count, ExecutionTime: time.Since(start)})
	return count, nil
}

func (inv *Invalidator) apply(ctx context.Context, kind PatternKind, target Target, dryRun bool) (int, error) {
	switch kind {
	case Single:
		if dryRun {
			ok, err := inv.store.Exists(ctx, target.Key)
			return boolCount(ok), err
		}
		ok, err := inv.store.Delete(ctx, target.Key)
		return boolCount(ok), err

	case Batch:
		if dryRun {
			count := 0
			for _, key := range target.Keys {
				if ok, _ := inv.store.Exists(ctx, key); ok {
					count++
				}
			}
			return count, nil
		}
		return inv.store.DeleteMany(ctx, target.Keys)

	case Pattern:
		if dryRun {
			keys, err := inv.store.Keys(ctx, target.Pattern)
			return len(keys), err
		}
		return inv.store.DeleteByPattern(ctx, target.Pattern)

	case TagBased:
		inv.mu.RLock()
		keys := inv.tags.Union(target.Tags)
		inv.mu.RUnlock()
		if dryRun {
			return len(keys), nil
		}
		count, err := inv.store.DeleteByTags(ctx, target.Tags)
		inv.mu.Lock()
		for _, tag := range target.Tags {
			for _, key := range inv.tags.Keys(tag) {
				inv.tags.Remove(tag, key)
			}
		}
		inv.mu.Unlock()
		return count, err

	case TTL:
		// Cleanup has no non-mutating preview; a dry run here reports
		// the sweep would run without predicting its count.
		if dryRun {
			return 0, nil
		}
		return inv.store.Cleanup(ctx)

	default:
		return 0, fmt.Errorf("invalidate: unknown pattern kind %d", kind)
	}
}

func boolCount(ok bool) int {
	if ok {
		return 1
	}
	return 0
}

// InvalidateDelayed schedules kind/target to run after delay and
// returns a pending ID that can be passed to CancelPending. Pending
// timers are tracked and flushed (run immediately, best-effort) on
// Shutdown.
func (inv *Invalidator) InvalidateDelayed(ctx context.Context, kind PatternKind, target Target, delay time.Duration) int64 {
	inv.timersMu.Lock()
	inv.timerSeq++
	id := inv.timerSeq
	inv.timersMu.Unlock()

	timer := time.AfterFunc(delay, func() {
		inv.timersMu.Lock()
		delete(inv.timers, id)
		inv.timersMu.Unlock()
		inv.Invalidate(ctx, kind, target, false)
	})

	inv.timersMu.Lock()
	inv.timers[id] = &pendingInvalidation{timer: timer, kind: kind, target: target}
	inv.timersMu.Unlock()
	return id
}

// CancelPending cancels a delayed invalidation scheduled by
// InvalidateDelayed, reporting whether it was still pending.
func (inv *Invalidator) CancelPending(id int64) bool {
	inv.timersMu.Lock()
	defer inv.timersMu.Unlock()
	p, ok := inv.timers[id]
	if !ok {
		return false
	}
	delete(inv.timers, id)
	return p.timer.Stop()
}

// PendingCount reports the number of delayed invalidations not yet fired.
func (inv *Invalidator) PendingCount() int {
	inv.timersMu.Lock()
	defer inv.timersMu.Unlock()
	return len(inv.timers)
}

// Cascade reads entityType's dependency map and, for each dependent,
// deletes by that dependent's glob pattern (`<prefix>:<entityType>:*`),
// applying the dependency's own delay when one is set.
func (inv *Invalidator) Cascade(ctx context.Context, entityType string) int {
	inv.mu.RLock()
	dependents := inv.deps[entityType]
	inv.mu.RUnlock()

	triggered := 0
	for _, dep := range dependents {
		target := Target{Pattern: inv.prefix + ":" + dep.EntityType + ":*"}
		if dep.Delay > 0 {
			inv.InvalidateDelayed(ctx, Pattern, target, dep.Delay)
		} else {
			inv.Invalidate(ctx, Pattern, target, false)
		}
		triggered++
	}
	return triggered
}

// InvalidateWithCascade runs a direct invalidation and then, when
// cascade is true, cascades from entityType.
func (inv *Invalidator) InvalidateWithCascade(ctx context.Context, entityType string, kind PatternKind, target Target, dryRun, cascade bool) (int, error) {
	count, err := inv.Invalidate(ctx, kind, target, dryRun)
	if cascade && !dryRun {
		inv.Cascade(ctx, entityType)
	}
	return count, err
}

// RuleOutcome reports one matching rule's invalidation result.
type RuleOutcome struct {
	Rule  Rule
	Count int
	Err   error
}

// InvalidateByEntityChange selects rules whose entity-type matches (or
// is wildcard) and whose conditions all evaluate true against
// entityData, processes them in descending priority, and fires each
// rule's target with cascade enabled. A rule's failure is recorded and
// does not prevent the next rule from running.
func (inv *Invalidator) InvalidateByEntityChange(ctx context.Context, entityType string, entityData map[string]any, changeType ChangeType) []RuleOutcome {
	inv.mu.RLock()
	var matched []Rule
	for _, r := range inv.rules {
		if r.matches(entityType, entityData, changeType) {
			matched = append(matched, r)
		}
	}
	inv.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })

	outcomes := make([]RuleOutcome, 0, len(matched))
	for _, r := range matched {
		var (
			count int
			err   error
		)
		if r.Delay > 0 {
			inv.InvalidateDelayed(ctx, r.Kind, r.Target, r.Delay)
		} else {
			count, err = inv.InvalidateWithCascade(ctx, entityType, r.Kind, r.Target, false, true)
		}
		outcomes = append(outcomes, RuleOutcome{Rule: r, Count: count, Err: err})
	}
	return outcomes
}

// Operation is one unit of work in a BatchInvalidate call.
type Operation struct {
	Kind   PatternKind
	Target Target
}

// BatchResult pairs each Operation with its outcome.
type BatchResult struct {
	Counts []int
	Errs   []error
}

// BatchInvalidate runs a named set of operations either concurrently
// (parallel) or in list order. With continueOnError false, a sequential
// run stops at the first failure; a parallel run always dispatches
// every operation and aggregates results regardless.
func (inv *Invalidator) BatchInvalidate(ctx context.Context, ops []Operation, parallel, continueOnError bool) BatchResult {
	result := BatchResult{Counts: make([]int, len(ops)), Errs: make([]error, len(ops))}

	if parallel {
		var wg sync.WaitGroup
		for i, op := range ops {
			wg.Add(1)
			go func(i int, op Operation) {
				defer wg.Done()
				result.Counts[i], result.Errs[i] = inv.Invalidate(ctx, op.Kind, op.Target, false)
			}(i, op)
		}
		wg.Wait()
		return result
	}

	for i, op := range ops {
		count, err := inv.Invalidate(ctx, op.Kind, op.Target, false)
		result.Counts[i], result.Errs[i] = count, err
		if err != nil && !continueOnError {
			break
		}
	}
	return result
}

// Shutdown stops every pending delayed invalidation's timer and runs
// each one immediately, best-effort, before returning.
func (inv *Invalidator) Shutdown(ctx context.Context) {
	inv.timersMu.Lock()
	pending := inv.timers
	inv.timers = make(map[int64]*pendingInvalidation)
	inv.timersMu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		inv.Invalidate(ctx, p.kind, p.target, false)
	}
}
