// Package service wires the footprint engine: it turns host notifications
// into scheduled decal placements and drives their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/okian/footsteps/internal/adapters/mq/queue"
	workerpool "github.com/okian/footsteps/internal/adapters/mq/worker"
	"github.com/okian/footsteps/internal/adapters/repository"
	"github.com/okian/footsteps/internal/domain/clock"
	"github.com/okian/footsteps/internal/domain/dedupe"
	"github.com/okian/footsteps/internal/domain/encounter"
	"github.com/okian/footsteps/internal/domain/lifecycle"
	"github.com/okian/footsteps/internal/domain/model"
	"github.com/okian/footsteps/internal/domain/sampler"
	"github.com/okian/footsteps/pkg/logger"
	"github.com/okian/footsteps/pkg/metrics"
)

// ErrNotStarted is returned by operations that need a started service.
var ErrNotStarted = errors.New("service not started")

// GridProvider reports the scene grid size in pixels.
type GridProvider interface {
	GridSize(ctx context.Context) float64
}

// StaticGrid is a GridProvider with a fixed size.
type StaticGrid float64

// GridSize implements GridProvider.
func (g StaticGrid) GridSize(context.Context) float64 { return float64(g) }

// Outcome is the result of submitting a notification.
type Outcome int

const (
	// Accepted notifications were queued.
	Accepted Outcome = iota
	// Duplicate notifications were seen before and dropped.
	Duplicate
	// Rejected notifications could not be queued and may be redelivered.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	default:
		return "rejected"
	}
}

// Service owns the sampler, the lifecycle manager and the plumbing that
// feeds them.
type Service struct {
	mu sync.RWMutex

	// Core components
	store          repository.Store
	ownStore       bool
	sched          clock.Scheduler
	sampler        *sampler.Sampler
	manager        *lifecycle.Manager
	tracker        *encounter.Tracker
	encounterState encounter.State
	grid           GridProvider
	deduper        dedupe.Deduper
	eventQueue     eventqueue.Queue
	workerPool     *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	samplerOpts   []sampler.Option
	lifecycleOpts []lifecycle.Option
	decalSize     float64
	decalZ        int
	baseAlpha     float64
	images        [2]string

	// Placements scheduled but not yet created.
	pendingMu sync.Mutex
	pending   map[uint64]clock.Timer
	nextID    uint64

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 1,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		grid:        StaticGrid(DefaultGridSize),
		decalSize:   DefaultDecalSize,
		decalZ:      DefaultDecalZ,
		baseAlpha:   lifecycle.DefaultBaseAlpha,
		images:      [2]string{DefaultLeftImage, DefaultRightImage},
		tracker:     encounter.NewTracker(),
		pending:     make(map[uint64]clock.Timer),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.encounterState == nil {
		s.encounterState = s.tracker
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("engine")
	}

	s.logger.Info(ctx, "starting footsteps service...")

	if s.sched == nil {
		s.sched = clock.NewReal()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.ownStore = true
		s.logger.Info(ctx, "using in-memory decal store")
	}
	s.sampler = sampler.New(s.samplerOpts...)
	s.manager = lifecycle.NewManager(s.store, s.sched,
		append([]lifecycle.Option{lifecycle.WithLogger(s.logger.Named("lifecycle"))}, s.lifecycleOpts...)...,
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "footsteps service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop drains queued notifications, cancels placements that have not been
// created yet and stops every pending fade. Decals already placed stay in
// the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.workerPool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping footsteps service...")

	// Workers apply what is still queued; handlers do not take s.mu.
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pendingMu.Lock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.manager.Close()

	if s.ownStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.store = nil
		s.ownStore = false
	}

	s.logger.Info(ctx, "footsteps service stopped")
}

// SeenAndRecord atomically checks if a notification id was seen and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordNotificationDuplicate()
	}
	return seen
}

// Unrecord forgets a notification id, allowing it to be redelivered.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue pushes a notification for asynchronous processing. It returns
// false on backpressure or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, n model.Notification) bool { //nolint:gocritic // hugeParam: passed by value like the queue
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false
	}

	s.logger.Debug(ctx, "enqueueing notification",
		logger.String("id", n.ID),
		logger.String("kind", string(n.Kind)),
	)
	if !s.eventQueue.Enqueue(ctx, n) {
		return false
	}
	metrics.RecordNotificationReceived(string(n.Kind))
	return true
}

// Submit de-duplicates n by id and queues it. A notification that could not
// be queued is forgotten so the host may redeliver it.
func (s *Service) Submit(ctx context.Context, n model.Notification) Outcome { //nolint:gocritic // hugeParam: passed by value like the queue
	if s.deduper == nil {
		return Rejected
	}
	if s.SeenAndRecord(ctx, n.ID) {
		return Duplicate
	}
	if !s.Enqueue(ctx, n) {
		s.Unrecord(ctx, n.ID)
		return Rejected
	}
	return Accepted
}

// HandleMove samples the path of a qualifying move and schedules one decal
// per placement. Moves that do not leave footprints are ignored.
func (s *Service) HandleMove(ctx context.Context, move model.MoveNotification) error {
	if s.sampler == nil {
		return ErrNotStarted
	}
	if reason := ignoreReason(move); reason != "" {
		metrics.RecordNotificationIgnored(reason)
		s.logger.Debug(ctx, "move leaves no footprints",
			logger.String("token", move.TokenID),
			logger.String("reason", reason),
		)
		return nil
	}
	if move.EncounterActive != nil {
		s.tracker.Set(*move.EncounterActive)
	}

	grid := s.grid.GridSize(ctx)
	start := time.Now()
	res := s.sampler.Sample(move.Path(), grid)
	metrics.RecordPathSampled(len(res.Placements), float64(time.Since(start).Milliseconds()))
	if len(res.Placements) == 0 {
		return nil
	}

	placeCtx := context.WithoutCancel(ctx)
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for _, p := range res.Placements {
		id := s.nextID
		s.nextID++
		spec := s.decalSpec(move.TokenID, p, grid)
		s.pending[id] = s.sched.AfterFunc(p.ScheduledDelay, func() {
			s.pendingMu.Lock()
			_, ok := s.pending[id]
			delete(s.pending, id)
			s.pendingMu.Unlock()
			if ok {
				s.place(placeCtx, spec)
			}
		})
	}

	s.logger.Debug(ctx, "footsteps scheduled",
		logger.String("token", move.TokenID),
		logger.Int("placements", len(res.Placements)),
		logger.Duration("duration", res.TotalDuration),
	)
	return nil
}

// HandleTurnChange retires the footprints of the token whose turn began.
func (s *Service) HandleTurnChange(ctx context.Context, turn model.TurnNotification) error {
	if s.manager == nil {
		return ErrNotStarted
	}
	s.tracker.TurnChanged(turn.CombatantTokenID)
	if turn.CombatantTokenID == "" {
		return nil
	}
	n := s.manager.RetireOwner(ctx, turn.CombatantTokenID)
	s.logger.Debug(ctx, "turn changed",
		logger.String("token", turn.CombatantTokenID),
		logger.Int("retired", n),
	)
	return nil
}

// HandleEncounterEnd retires every footprint on the scene.
func (s *Service) HandleEncounterEnd(ctx context.Context, _ model.EncounterEndNotification) error {
	if s.manager == nil {
		return ErrNotStarted
	}
	s.tracker.Ended()
	n := s.manager.RetireAll(ctx)
	s.logger.Debug(ctx, "encounter ended", logger.Int("retired", n))
	return nil
}

// Decals returns every footprint decal in the store.
func (s *Service) Decals(ctx context.Context) ([]model.Decal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	decals, err := s.store.Query(ctx, repository.IsFootprint)
	if err != nil {
		return nil, fmt.Errorf("query footprints: %w", err)
	}
	return decals, nil
}

// DecalState returns the lifecycle state of a tracked decal.
func (s *Service) DecalState(id string) (lifecycle.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, false
	}
	return s.manager.State(id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"encounterActive": s.encounterState.Active(ctx),
	}

	if s.started {
		persisted, aging := s.manager.Counts()
		processed, failed := s.workerPool.Processed()

		stats["queueLength"] = s.eventQueue.Len(ctx)
		stats["storedDecals"] = s.store.Count(ctx)
		stats["persistedDecals"] = persisted
		stats["agingDecals"] = aging
		stats["pendingPlacements"] = s.pendingPlacements()
		stats["processed"] = processed
		stats["failed"] = failed
		stats["currentTurn"] = s.tracker.Current()
	}

	return stats
}

func (s *Service) pendingPlacements() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// place creates one decal and hands it to the lifecycle manager. The
// encounter flag is read at creation time.
func (s *Service) place(ctx context.Context, spec model.DecalSpec) { //nolint:gocritic // hugeParam: spec is copied into the store anyway
	spec.Flags.CreatedAt = s.sched.Now().UnixMilli()

	s.mu.RLock()
	store, manager := s.store, s.manager
	s.mu.RUnlock()
	if store == nil || manager == nil {
		return
	}

	decals, err := store.Create(ctx, []model.DecalSpec{spec})
	if err != nil {
		metrics.RecordErrorByComponent("engine", "create_decal")
		s.logger.Warn(ctx, "footprint not created",
			logger.String("token", spec.Flags.OwnerTokenID),
			logger.Error(err),
		)
		return
	}

	active := s.encounterState.Active(ctx)
	for _, d := range decals {
		metrics.RecordDecalCreated()
		manager.Register(ctx, d, active)
	}
}

// decalSpec builds the decal for a placement. createdAt is stamped when the
// decal is actually placed.
func (s *Service) decalSpec(tokenID string, p model.Placement, grid float64) model.DecalSpec {
	edge := grid * s.decalSize
	return model.DecalSpec{
		Texture:  s.images[p.Side],
		Width:    edge,
		Height:   edge,
		X:        p.Position.X + edge,
		Y:        p.Position.Y + edge,
		Z:        s.decalZ,
		Alpha:    s.baseAlpha,
		Rotation: p.AngleDegrees + 90,
		Locked:   true,
		Flags: model.Flags{
			IsFootprint:  true,
			OwnerTokenID: tokenID,
		},
	}
}

func ignoreReason(m model.MoveNotification) string {
	switch {
	case m.LeavesFootprints():
		return ""
	case m.Hidden:
		return "hidden"
	case m.MovementAction != model.MovementWalk:
		return "not_walking"
	case m.Elevation > 0:
		return "elevated"
	default:
		return "no_waypoints"
	}
}
