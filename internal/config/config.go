// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile, when set, sends logs to a rotating file instead of stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AllowedOrigins lists browser origins allowed on /ws, comma separated.
	// Empty accepts same-host origins only; "*" accepts any.
	AllowedOrigins string `koanf:"allowed_origins"`

	// QueueSize bounds the in-memory notification queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of notification workers. Values above one
	// give up arrival ordering between notifications.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many notification ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// GridSize is the scene grid square edge in pixels.
	GridSize float64 `koanf:"grid_size"`

	// Path sampling.
	StepsPerGridSquare    int     `koanf:"steps_per_grid_square"`
	LateralOffsetFactor   float64 `koanf:"lateral_offset_factor"`
	MoveDurationPerGridMS int     `koanf:"move_duration_per_grid_ms"`
	Paced                 bool    `koanf:"paced"`

	// MaxStepsPerMove caps the steps of one move; longer moves leave no
	// footprints.
	MaxStepsPerMove int `koanf:"max_steps_per_move"`

	// Decal fade.
	FadeDurationMS int     `koanf:"fade_duration_ms"`
	FadeSteps      int     `koanf:"fade_steps"`
	BaseAlpha      float64 `koanf:"base_alpha"`

	// Decal appearance.
	DecalSize  float64 `koanf:"decal_size"`
	DecalZ     int     `koanf:"decal_z"`
	LeftImage  string  `koanf:"left_image"`
	RightImage string  `koanf:"right_image"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		QueueSize:             10_000,
		WorkerCount:           1,
		DedupeSize:            50_000,
		GridSize:              100,
		StepsPerGridSquare:    3,
		LateralOffsetFactor:   0.1,
		MoveDurationPerGridMS: 150,
		Paced:                 true,
		MaxStepsPerMove:       10_000,
		FadeDurationMS:        6000,
		FadeSteps:             20,
		BaseAlpha:             0.4,
		DecalSize:             0.33,
		DecalZ:                100,
		LeftImage:             "https://cdn-icons-png.flaticon.com/512/1/1293.png",
		RightImage:            "https://cdn-icons-png.flaticon.com/512/1/1275.png",
	}
}

// MoveDurationPerGrid returns the walk time for one grid square.
func (c *Config) MoveDurationPerGrid() time.Duration {
	return time.Duration(c.MoveDurationPerGridMS) * time.Millisecond
}

// FadeDuration returns the time from fade start to deletion.
func (c *Config) FadeDuration() time.Duration {
	return time.Duration(c.FadeDurationMS) * time.Millisecond
}

// Origins returns AllowedOrigins split into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.GridSize <= 0:
		return fmt.Errorf("%w: grid_size must be positive, got %g", ErrInvalidConfig, c.GridSize)
	case c.StepsPerGridSquare <= 0:
		return fmt.Errorf("%w: steps_per_grid_square must be positive, got %d", ErrInvalidConfig, c.StepsPerGridSquare)
	case c.LateralOffsetFactor < 0:
		return fmt.Errorf("%w: lateral_offset_factor must not be negative, got %g", ErrInvalidConfig, c.LateralOffsetFactor)
	case c.MoveDurationPerGridMS < 0:
		return fmt.Errorf("%w: move_duration_per_grid_ms must not be negative, got %d", ErrInvalidConfig, c.MoveDurationPerGridMS)
	case c.MaxStepsPerMove <= 0:
		return fmt.Errorf("%w: max_steps_per_move must be positive, got %d", ErrInvalidConfig, c.MaxStepsPerMove)
	case c.FadeDurationMS <= 0:
		return fmt.Errorf("%w: fade_duration_ms must be positive, got %d", ErrInvalidConfig, c.FadeDurationMS)
	case c.FadeSteps <= 0:
		return fmt.Errorf("%w: fade_steps must be positive, got %d", ErrInvalidConfig, c.FadeSteps)
	case c.BaseAlpha <= 0 || c.BaseAlpha > 1:
		return fmt.Errorf("%w: base_alpha must be in (0, 1], got %g", ErrInvalidConfig, c.BaseAlpha)
	case c.DecalSize <= 0:
		return fmt.Errorf("%w: decal_size must be positive, got %g", ErrInvalidConfig, c.DecalSize)
	case c.LeftImage == "" || c.RightImage == "":
		return fmt.Errorf("%w: left_image and right_image must be set", ErrInvalidConfig)
	}
	return nil
}
