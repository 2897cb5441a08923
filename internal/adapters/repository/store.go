// Package repository defines the host object store contract for decals and
// an in-memory implementation of it.
package repository

import (
	"context"

	"github.com/okian/footsteps/internal/domain/model"
)

// Predicate selects decals in Query.
type Predicate = func(model.Decal) bool

// Store is the host's decal object store. Every operation targets a single
// object by id except Create and Query.
type Store interface {
	// Create places the given decals and returns them with their ids.
	Create(ctx context.Context, specs []model.DecalSpec) ([]model.Decal, error)

	// Get returns the decal with id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Decal, error)

	// Update applies a partial update. Returns ErrNotFound if id is gone.
	Update(ctx context.Context, id string, patch model.DecalPatch) error

	// Delete removes a decal. Returns ErrNotFound if id is gone.
	Delete(ctx context.Context, id string) error

	// Query returns every decal matching pred, ordered by creation.
	Query(ctx context.Context, pred Predicate) ([]model.Decal, error)

	// Count returns the number of stored decals.
	Count(ctx context.Context) int
}

// IsFootprint selects decals carrying footprint metadata.
func IsFootprint(d model.Decal) bool { return d.IsFootprint() }

// OwnedBy selects footprint decals left by tokenID.
func OwnedBy(tokenID string) Predicate {
	return func(d model.Decal) bool {
		return d.IsFootprint() && d.Flags.OwnerTokenID == tokenID
	}
}
