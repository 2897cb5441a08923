// Package lifecycle owns the fade-and-delete state machine of footprint
// decals and the encounter-driven retirement rules.
//
// A decal is tracked in exactly one state. Aging decals run a fade: every
// interval the alpha drops one step and the last step deletes the decal.
// Persisted decals sit untouched until RetireOwner or RetireAll moves them
// to aging. The persisted -> aging transition happens under the manager
// lock, so a decal is never faded twice.
package lifecycle

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/footsteps/internal/domain/clock"
	"github.com/okian/footsteps/internal/domain/model"
	"github.com/okian/footsteps/pkg/logger"
	"github.com/okian/footsteps/pkg/metrics"
)

// Retirement triggers, used for metrics and logs.
const (
	TriggerTurn         = "turn"
	TriggerEncounterEnd = "encounter_end"
)

// State is the lifecycle state of a tracked decal.
type State int

const (
	// StatePersisted decals wait for a turn or encounter-end retirement.
	StatePersisted State = iota + 1
	// StateAging decals are fading towards deletion.
	StateAging
)

func (s State) String() string {
	switch s {
	case StatePersisted:
		return "persisted"
	case StateAging:
		return "aging"
	default:
		return "unknown"
	}
}

// Store is the slice of the host object store the manager needs.
type Store interface {
	Get(ctx context.Context, id string) (model.Decal, error)
	Update(ctx context.Context, id string, patch model.DecalPatch) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, pred func(model.Decal) bool) ([]model.Decal, error)
}

// task is the in-flight state of one decal.
type task struct {
	id    string
	owner string
	state State
	timer clock.Timer
}

// Manager tracks footprint decals from creation to deletion.
type Manager struct {
	store Store
	sched clock.Scheduler

	fadeDuration time.Duration
	fadeSteps    int
	baseAlpha    float64

	mu        sync.Mutex
	tasks     map[string]*task
	byOwner   map[string]map[string]struct{}
	persisted int
	aging     int
	closed    bool

	logger logger.Logger
}

// NewManager creates a Manager with configuration options.
func NewManager(store Store, sched clock.Scheduler, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		sched:        sched,
		fadeDuration: DefaultFadeDuration,
		fadeSteps:    DefaultFadeSteps,
		baseAlpha:    DefaultBaseAlpha,
		tasks:        make(map[string]*task),
		byOwner:      make(map[string]map[string]struct{}),
		logger:       logger.Get().Named("lifecycle"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Interval is the delay between fade steps.
func (m *Manager) Interval() time.Duration {
	return m.fadeDuration / time.Duration(m.fadeSteps)
}

// AlphaAt returns the alpha applied at fade step s (1-based).
func (m *Manager) AlphaAt(s int) float64 {
	return math.Max(0, m.baseAlpha-float64(s)/float64(m.fadeSteps))
}

// Register starts tracking a freshly created decal. Outside an encounter
// the decal starts aging immediately; during one it persists until retired.
// Registering an id twice keeps the first registration.
func (m *Manager) Register(ctx context.Context, d model.Decal, encounterActive bool) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tasks[d.ID]; ok {
		return t.state
	}
	if m.closed {
		return 0
	}

	t := m.track(d)
	if encounterActive {
		m.logger.Debug(ctx, "decal persisted until retirement",
			logger.String("decal_id", d.ID),
			logger.String("owner", t.owner),
		)
	} else {
		m.startFade(ctx, t)
	}
	m.publish()
	return t.state
}

// RetireOwner starts the retirement fade for every persisted footprint of
// tokenID, selected through the owner index. It returns the number of
// decals newly retired.
func (m *Manager) RetireOwner(ctx context.Context, tokenID string) int {
	if tokenID == "" {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	ids := make([]string, 0, len(m.byOwner[tokenID]))
	for id := range m.byOwner[tokenID] {
		ids = append(ids, id)
	}
	return m.retire(ctx, ids, TriggerTurn)
}

// RetireAll starts the retirement fade for every persisted footprint,
// regardless of owner. Footprints found in the store but not tracked (left
// over from an earlier run) are adopted and retired too; this is the only
// place the store is scanned. It returns the number of decals newly retired.
func (m *Manager) RetireAll(ctx context.Context) int {
	found := m.query(ctx, model.Decal.IsFootprint)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0
	}
	for _, d := range found {
		m.adopt(d)
	}
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	return m.retire(ctx, ids, TriggerEncounterEnd)
}

// State returns the tracked state of a decal.
func (m *Manager) State(id string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return 0, false
	}
	return t.state, true
}

// Len returns the number of tracked decals.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Counts returns the number of tracked decals per state.
func (m *Manager) Counts() (persisted, aging int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persisted, m.aging
}

// OwnerDecals returns the ids of tracked decals left by tokenID, sorted.
func (m *Manager) OwnerDecals(tokenID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.byOwner[tokenID]))
	for id := range m.byOwner[tokenID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every pending fade step and forgets all decals. Decals stay
// in the store as they are.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.timer != nil {
			t.timer.Stop()
		}
	}
	m.tasks = make(map[string]*task)
	m.byOwner = make(map[string]map[string]struct{})
	m.persisted, m.aging = 0, 0
	m.closed = true
	m.publish()
}

// track adds a persisted task for d. Must be called with m.mu held.
func (m *Manager) track(d model.Decal) *task {
	t := &task{id: d.ID, owner: d.Flags.OwnerTokenID, state: StatePersisted}
	m.tasks[d.ID] = t
	owned, ok := m.byOwner[t.owner]
	if !ok {
		owned = make(map[string]struct{})
		m.byOwner[t.owner] = owned
	}
	owned[d.ID] = struct{}{}
	m.persisted++
	return t
}

// adopt tracks a store footprint the manager does not know yet.
// Must be called with m.mu held.
func (m *Manager) adopt(d model.Decal) {
	if _, ok := m.tasks[d.ID]; ok {
		return
	}
	m.track(d)
}

// retire moves the persisted decals among ids to aging. Must be called
// with m.mu held.
func (m *Manager) retire(ctx context.Context, ids []string, trigger string) int {
	sort.Strings(ids)
	n := 0
	for _, id := range ids {
		t := m.tasks[id]
		if t == nil || t.state != StatePersisted {
			continue
		}
		m.startFade(ctx, t)
		n++
	}
	if n > 0 {
		metrics.RecordRetirement(trigger, n)
		m.logger.Info(ctx, "retiring footprints",
			logger.String("trigger", trigger),
			logger.Int("count", n),
		)
	}
	m.publish()
	return n
}

// startFade moves t to aging and schedules its first step. Must be called
// with m.mu held.
func (m *Manager) startFade(ctx context.Context, t *task) {
	if t.state == StatePersisted {
		m.persisted--
	}
	t.state = StateAging
	m.aging++
	fadeCtx := context.WithoutCancel(ctx)
	id := t.id
	t.timer = m.sched.AfterFunc(m.Interval(), func() { m.fadeStep(fadeCtx, id, 1) })
}

// fadeStep applies step s to decal id, deleting it on the last step.
// A decal that vanished from the store is dropped without mutation.
func (m *Manager) fadeStep(ctx context.Context, id string, s int) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok || t.state != StateAging || m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if _, err := m.store.Get(ctx, id); err != nil {
		m.dropStale(ctx, id, "get", err)
		return
	}

	alpha := m.AlphaAt(s)
	if err := m.store.Update(ctx, id, model.DecalPatch{Alpha: &alpha}); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			m.dropStale(ctx, id, "update", err)
			return
		}
		metrics.RecordStoreError("update")
		m.logger.Warn(ctx, "fade step update failed",
			logger.String("decal_id", id),
			logger.Int("step", s),
			logger.Error(err),
		)
	} else {
		metrics.RecordFadeStep()
	}

	if s >= m.fadeSteps {
		err := m.store.Delete(ctx, id)
		switch {
		case err == nil:
			metrics.RecordDecalDeleted()
		case errors.Is(err, model.ErrNotFound):
			metrics.RecordStaleSkip()
		default:
			metrics.RecordStoreError("delete")
			m.logger.Warn(ctx, "fade delete failed",
				logger.String("decal_id", id),
				logger.Error(err),
			)
		}
		m.forget(id)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok && !m.closed {
		t.timer = m.sched.AfterFunc(m.Interval(), func() { m.fadeStep(ctx, id, s+1) })
	}
}

func (m *Manager) dropStale(ctx context.Context, id, op string, err error) {
	if !errors.Is(err, model.ErrNotFound) {
		metrics.RecordStoreError(op)
		m.logger.Warn(ctx, "fade step aborted",
			logger.String("decal_id", id),
			logger.String("op", op),
			logger.Error(err),
		)
	} else {
		metrics.RecordStaleSkip()
		m.logger.Debug(ctx, "decal gone, fade dropped", logger.String("decal_id", id))
	}
	m.forget(id)
}

// forget stops tracking id.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return
	}
	delete(m.tasks, id)
	if owned := m.byOwner[t.owner]; owned != nil {
		delete(owned, id)
		if len(owned) == 0 {
			delete(m.byOwner, t.owner)
		}
	}
	switch t.state {
	case StatePersisted:
		m.persisted--
	case StateAging:
		m.aging--
	}
	m.publish()
}

func (m *Manager) query(ctx context.Context, pred func(model.Decal) bool) []model.Decal {
	found, err := m.store.Query(ctx, pred)
	if err != nil {
		metrics.RecordStoreError("query")
		m.logger.Warn(ctx, "footprint query failed; retiring tracked decals only", logger.Error(err))
		return nil
	}
	return found
}

// publish exports state gauges. Must be called with m.mu held.
func (m *Manager) publish() {
	metrics.UpdateDecalsByState(StatePersisted.String(), m.persisted)
	metrics.UpdateDecalsByState(StateAging.String(), m.aging)
}
