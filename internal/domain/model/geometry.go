// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// Point is a position in scene coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p multiplied by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Path is the ordered polyline a token travelled during one move,
// starting at its pre-move position.
type Path []Point

// Side marks which foot a placement belongs to.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideRight {
		return "right"
	}
	return "left"
}

// SideFor returns the side for the k-th placement of a path (0 = left).
func SideFor(k int) Side {
	if k%2 == 0 {
		return SideLeft
	}
	return SideRight
}

// Placement is one computed footstep along a path.
type Placement struct {
	Index          int           // global index along the path, 0-based
	Position       Point         // laterally offset from the centreline
	AngleDegrees   float64       // direction of travel on the segment
	Side           Side          // alternates per Index
	ScheduledDelay time.Duration // offset from the move at which to submit
}

// ScheduledDelayMs returns the scheduled delay in milliseconds.
func (p Placement) ScheduledDelayMs() float64 {
	return float64(p.ScheduledDelay) / float64(time.Millisecond)
}
