// Package encounter tracks whether a combat encounter is in progress as
// seen through host notifications.
package encounter

import (
	"context"
	"sync"

	"github.com/okian/footsteps/pkg/metrics"
)

// State answers whether an encounter is currently in progress.
type State interface {
	Active(ctx context.Context) bool
}

// Tracker is a State driven by notifications: a turn change implies a
// running encounter, an encounter end clears it, and hosts may also report
// the flag directly.
type Tracker struct {
	mu      sync.RWMutex
	active  bool
	current string // token whose turn it is
}

// NewTracker returns a Tracker with no encounter running.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Active implements State.
func (t *Tracker) Active(ctx context.Context) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Current returns the token whose turn it is, if any.
func (t *Tracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// TurnChanged records that tokenID now has the turn.
func (t *Tracker) TurnChanged(tokenID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.current = tokenID
	metrics.UpdateEncounterActive(true)
}

// Ended records that the encounter concluded.
func (t *Tracker) Ended() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.current = ""
	metrics.UpdateEncounterActive(false)
}

// Set overrides the flag with a value reported by the host.
func (t *Tracker) Set(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = active
	if !active {
		t.current = ""
	}
	metrics.UpdateEncounterActive(active)
}
