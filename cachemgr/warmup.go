package cachemgr

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultWarmupTimeout bounds a single WarmupStrategy.Execute call when
// the strategy does not set its own Timeout.
const DefaultWarmupTimeout = 30 * time.Second

// runWarmup executes every registered warmup strategy, highest Priority
// first, preloading each of a strategy's EntityTypes concurrently. A
// strategy's failure on one entity type does not block its siblings or
// abort the remaining strategies; it is only reported through the
// event sink, mirroring health.Aggregator.CheckAll's per-check
// isolation.
func (m *Manager) runWarmup(ctx context.Context) {
	m.warmupMu.Lock()
	strategies := make([]WarmupStrategy, len(m.warmups))
	copy(strategies, m.warmups)
	m.warmupMu.Unlock()

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority > strategies[j].Priority
	})

	for _, s := range strategies {
		m.runWarmupStrategy(ctx, s)
	}
}

func (m *Manager) runWarmupStrategy(ctx context.Context, s WarmupStrategy) {
	if s.Execute == nil || len(s.EntityTypes) == 0 {
		return
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultWarmupTimeout
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, entityType := range s.EntityTypes {
		wg.Add(1)
		go func(entityType string) {
			defer wg.Done()
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- s.Execute(runCtx, entityType) }()

			select {
			case err := <-done:
				if err != nil {
					m.emit(Event{
						Type:       EventWarmupCompleted,
						Timestamp:  time.Now(),
						WarmupName: s.Name,
						Key:        entityType,
						Success:    false,
						Err:        err,
					})
				}
			case <-runCtx.Done():
				m.emit(Event{
					Type:       EventWarmupCompleted,
					Timestamp:  time.Now(),
					WarmupName: s.Name,
					Key:        entityType,
					Success:    false,
					Err:        runCtx.Err(),
				})
			}
		}(entityType)
	}
	wg.Wait()

	m.emit(Event{
		Type:       EventWarmupCompleted,
		Timestamp:  time.Now(),
		WarmupName: s.Name,
		Success:    true,
		Duration:   time.Since(start),
	})
}
