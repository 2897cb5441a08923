// Package sampler turns a travelled path into an ordered sequence of
// footstep placements.
//
// Interpolation is continuous along the raw polyline; placements are never
// snapped to grid centres, so waypoints with very different spacing keep
// the same step density per grid square.
package sampler

import (
	"math"
	"time"

	"github.com/okian/footsteps/internal/domain/model"
)

// Default sampling configuration constants.
const (
	DefaultStepsPerGridSquare  = 3
	DefaultLateralOffsetFactor = 0.1
	DefaultMoveDurationPerGrid = 150 * time.Millisecond
	// DefaultMaxSteps bounds the steps of a single path. At three steps per
	// square that is over three thousand grid squares of travel.
	DefaultMaxSteps = 10_000

	radiansPerDegree = math.Pi / 180
	perpendicularDeg = 90
)

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithStepsPerGridSquare sets the step density along a segment.
func WithStepsPerGridSquare(steps int) Option {
	return func(s *Sampler) {
		if steps > 0 {
			s.stepsPerGridSquare = steps
		}
	}
}

// WithLateralOffsetFactor sets the left/right offset as a fraction of the grid size.
func WithLateralOffsetFactor(factor float64) Option {
	return func(s *Sampler) {
		if factor >= 0 && !math.IsInf(factor, 0) {
			s.lateralOffsetFactor = factor
		}
	}
}

// WithMoveDurationPerGrid sets the expected animated move time per grid square.
func WithMoveDurationPerGrid(d time.Duration) Option {
	return func(s *Sampler) {
		if d >= 0 {
			s.moveDurationPerGrid = d
		}
	}
}

// WithMaxSteps sets the largest step count a path may have. Longer paths
// yield an empty result.
func WithMaxSteps(steps int) Option {
	return func(s *Sampler) {
		if steps > 0 {
			s.maxSteps = steps
		}
	}
}

// WithPaced toggles per-step delays. Unpaced placements all carry a zero delay.
func WithPaced(paced bool) Option {
	return func(s *Sampler) {
		s.paced = paced
	}
}

// Result is the outcome of sampling one path.
type Result struct {
	Placements []model.Placement
	// TotalSteps counts every step across the path, including the
	// suppressed destination step; it is the divisor for pacing.
	TotalSteps int
	// TotalDuration is the expected animated duration of the whole move.
	TotalDuration time.Duration
}

// Sampler computes footstep placements. It is stateless between calls and
// safe for concurrent use.
type Sampler struct {
	stepsPerGridSquare  int
	lateralOffsetFactor float64
	moveDurationPerGrid time.Duration
	paced               bool
	maxSteps            int
}

// New creates a Sampler with configuration options.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		stepsPerGridSquare:  DefaultStepsPerGridSquare,
		lateralOffsetFactor: DefaultLateralOffsetFactor,
		moveDurationPerGrid: DefaultMoveDurationPerGrid,
		paced:               true,
		maxSteps:            DefaultMaxSteps,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type segment struct {
	from     model.Point
	delta    model.Point
	distance float64
	angle    float64
	steps    int
}

// Sample computes the placements for path on a grid of the given cell size.
// Degenerate input (fewer than two points, non-positive grid size, no whole
// step anywhere on the path, more than the step limit) yields an empty result.
func (s *Sampler) Sample(path model.Path, gridSize float64) Result {
	if len(path) < 2 || !(gridSize > 0) || math.IsInf(gridSize, 0) {
		return Result{}
	}

	stepSpacing := gridSize / float64(s.stepsPerGridSquare)
	lateral := s.lateralOffsetFactor * gridSize

	segments := make([]segment, 0, len(path)-1)
	totalSteps := 0
	totalGrids := 0.0
	for i := 1; i < len(path); i++ {
		seg, ok := newSegment(path[i-1], path[i], stepSpacing, s.maxSteps-totalSteps)
		if !ok {
			return Result{}
		}
		totalSteps += seg.steps
		totalGrids += seg.distance / gridSize
		segments = append(segments, seg)
	}

	res := Result{
		TotalSteps:    totalSteps,
		TotalDuration: time.Duration(totalGrids * float64(s.moveDurationPerGrid)),
	}
	if totalSteps == 0 {
		return res
	}

	var delayPerStep float64
	if s.paced {
		delayPerStep = float64(res.TotalDuration) / float64(totalSteps)
	}

	res.Placements = make([]model.Placement, 0, totalSteps)
	k := 0
	last := len(segments) - 1
	for i, seg := range segments {
		for j := 1; j <= seg.steps; j++ {
			if i == last && j == seg.steps {
				continue
			}
			t := float64(j) / float64(seg.steps)
			centre := seg.from.Add(seg.delta.Scale(t))
			side := model.SideFor(k)
			res.Placements = append(res.Placements, model.Placement{
				Index:          k,
				Position:       offset(centre, seg.angle, lateral, side),
				AngleDegrees:   seg.angle,
				Side:           side,
				ScheduledDelay: time.Duration(float64(k) * delayPerStep),
			})
			k++
		}
	}

	return res
}

// newSegment measures the segment p1→p2. It reports false when the segment
// would need more than budget steps; the ratio is checked before the int
// conversion so huge coordinates cannot overflow it.
func newSegment(p1, p2 model.Point, stepSpacing float64, budget int) (segment, bool) {
	seg := segment{from: p1}
	if !p1.Finite() || !p2.Finite() {
		return seg, true
	}
	seg.delta = p2.Sub(p1)
	seg.distance = math.Hypot(seg.delta.X, seg.delta.Y)
	ratio := math.Floor(seg.distance / stepSpacing)
	if math.IsNaN(ratio) || ratio > float64(budget) {
		return segment{}, false
	}
	seg.angle = math.Atan2(seg.delta.Y, seg.delta.X) / radiansPerDegree
	seg.steps = int(ratio)
	return seg, true
}

// offset moves p sideways from a heading of angleDeg: positive distance to
// the left, negative to the right.
func offset(p model.Point, angleDeg, distance float64, side model.Side) model.Point {
	rad := (angleDeg + perpendicularDeg) * radiansPerDegree
	if side == model.SideRight {
		distance = -distance
	}
	return model.Point{
		X: p.X + math.Cos(rad)*distance,
		Y: p.Y + math.Sin(rad)*distance,
	}
}
