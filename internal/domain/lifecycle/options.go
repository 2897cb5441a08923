package lifecycle

import (
	"time"

	"github.com/okian/footsteps/pkg/logger"
)

// Default fade configuration constants.
const (
	DefaultFadeDuration = 6 * time.Second
	DefaultFadeSteps    = 20
	DefaultBaseAlpha    = 0.4
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithFadeDuration sets the total time from trigger to deletion.
func WithFadeDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.fadeDuration = d
		}
	}
}

// WithFadeSteps sets how many alpha reductions a fade is split into.
func WithFadeSteps(steps int) Option {
	return func(m *Manager) {
		if steps > 0 {
			m.fadeSteps = steps
		}
	}
}

// WithBaseAlpha sets the alpha decals start from. Use 1 for a full-scale
// fade that reaches zero exactly on the final step.
func WithBaseAlpha(alpha float64) Option {
	return func(m *Manager) {
		if alpha > 0 && alpha <= 1 {
			m.baseAlpha = alpha
		}
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}
