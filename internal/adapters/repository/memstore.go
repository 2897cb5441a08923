package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/footsteps/internal/domain/model"
	"github.com/okian/footsteps/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// MemoryStore is an in-memory Store. It stands in for the host scene when
// the service runs standalone and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]model.Decal
	order []string // creation order; compacted lazily on delete

	newID                 func() string
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	closed   bool
}

// NewMemoryStore constructs a MemoryStore with configuration options.
// The background metrics updater stops when ctx is done or on Close.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]model.Decal),
		newID:                 func() string { return uuid.NewString() },
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Create implements Store.Create.
func (s *MemoryStore) Create(ctx context.Context, specs []model.DecalSpec) ([]model.Decal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("create", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		metrics.RecordStoreError("create")
		return nil, fmt.Errorf("create %d decals: %w", len(specs), ErrClosed)
	}

	created := make([]model.Decal, 0, len(specs))
	for _, spec := range specs {
		d := model.Decal{ID: s.newID(), DecalSpec: spec}
		s.byID[d.ID] = d
		s.order = append(s.order, d.ID)
		created = append(created, d)
	}
	return created, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.Decal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return model.Decal{}, ErrNotFound
	}
	return d, nil
}

// Update implements Store.Update.
func (s *MemoryStore) Update(ctx context.Context, id string, patch model.DecalPatch) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("update", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.byID[id] = patch.Apply(d)
	return nil
}

// Delete implements Store.Delete.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("delete", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	if len(s.order) > 2*len(s.byID)+16 {
		s.compact()
	}
	return nil
}

// Query implements Store.Query. A nil predicate matches everything.
func (s *MemoryStore) Query(ctx context.Context, pred Predicate) ([]model.Decal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreOperation("query", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Decal, 0)
	for _, id := range s.order {
		d, ok := s.byID[id]
		if !ok {
			continue
		}
		if pred == nil || pred(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Close stops the metrics updater and rejects further creates.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// compact drops deleted ids from the creation order. Must be called with
// s.mu held.
func (s *MemoryStore) compact() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.byID[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreObjectsTotal(s.Count(ctx))
			}
		}
	}()
}
