package service

import (
	"time"

	"github.com/okian/footsteps/internal/adapters/repository"
	"github.com/okian/footsteps/internal/domain/clock"
	"github.com/okian/footsteps/internal/domain/encounter"
	"github.com/okian/footsteps/internal/domain/lifecycle"
	"github.com/okian/footsteps/internal/domain/sampler"
	"github.com/okian/footsteps/pkg/logger"
)

// Default decal configuration constants.
const (
	DefaultGridSize   = 100.0
	DefaultDecalSize  = 0.33 // fraction of a grid square
	DefaultDecalZ     = 100
	DefaultLeftImage  = "https://cdn-icons-png.flaticon.com/512/1/1293.png"
	DefaultRightImage = "https://cdn-icons-png.flaticon.com/512/1/1275.png"

	defaultQueueSize  = 10_000
	defaultDedupeSize = 50_000
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the notification queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGridSize sets a fixed grid size in pixels. Ignored when a
// GridProvider is supplied.
func WithGridSize(size float64) Option {
	return func(s *Service) {
		if size > 0 {
			s.grid = StaticGrid(size)
		}
	}
}

// WithGridProvider sets where the scene's grid size is read from.
func WithGridProvider(g GridProvider) Option {
	return func(s *Service) {
		if g != nil {
			s.grid = g
		}
	}
}

// WithEncounterState replaces the notification-driven encounter tracker as
// the source of the encounter flag.
func WithEncounterState(state encounter.State) Option {
	return func(s *Service) {
		if state != nil {
			s.encounterState = state
		}
	}
}

// WithStore sets the host object store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScheduler sets the scheduler placements and fades run on.
func WithScheduler(sched clock.Scheduler) Option {
	return func(s *Service) {
		if sched != nil {
			s.sched = sched
		}
	}
}

// WithSampling configures the path sampler.
func WithSampling(stepsPerGridSquare int, lateralOffsetFactor float64, moveDurationPerGrid time.Duration, paced bool) Option {
	return func(s *Service) {
		s.samplerOpts = append(s.samplerOpts,
			sampler.WithStepsPerGridSquare(stepsPerGridSquare),
			sampler.WithLateralOffsetFactor(lateralOffsetFactor),
			sampler.WithMoveDurationPerGrid(moveDurationPerGrid),
			sampler.WithPaced(paced),
		)
	}
}

// WithMaxSteps caps the steps sampled for one move. Moves over the cap
// leave no footprints.
func WithMaxSteps(steps int) Option {
	return func(s *Service) {
		s.samplerOpts = append(s.samplerOpts, sampler.WithMaxSteps(steps))
	}
}

// WithFade configures the fade applied to aging decals.
func WithFade(duration time.Duration, steps int, baseAlpha float64) Option {
	return func(s *Service) {
		s.lifecycleOpts = append(s.lifecycleOpts,
			lifecycle.WithFadeDuration(duration),
			lifecycle.WithFadeSteps(steps),
			lifecycle.WithBaseAlpha(baseAlpha),
		)
		if baseAlpha > 0 && baseAlpha <= 1 {
			s.baseAlpha = baseAlpha
		}
	}
}

// WithDecalSize sets the decal edge as a fraction of the grid size.
func WithDecalSize(size float64) Option {
	return func(s *Service) {
		if size > 0 {
			s.decalSize = size
		}
	}
}

// WithDecalZ sets the z-order of created decals.
func WithDecalZ(z int) Option {
	return func(s *Service) {
		s.decalZ = z
	}
}

// WithImages sets the textures used for left and right footprints.
func WithImages(left, right string) Option {
	return func(s *Service) {
		if left != "" {
			s.images[0] = left
		}
		if right != "" {
			s.images[1] = right
		}
	}
}
