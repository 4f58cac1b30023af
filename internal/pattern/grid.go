// Package pattern captures a device unlock pattern drawn on a 3x3 grid and
// replays stored patterns for the technician.
package pattern

import (
	"fmt"
	"math"
)

const (
	// Columns is the side length of the grid.
	Columns = 3
	// NodeCount is the number of touch targets.
	NodeCount = Columns * Columns
	// MinLength is the shortest sequence accepted as a pattern.
	MinLength = 4
)

// Point is a position on the canvas in the caller's units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Grid is the square canvas geometry: nine nodes on evenly spaced centers.
type Grid struct {
	size   float64
	radius float64
}

// NewGrid validates the canvas side and node radius. A radius of zero or less
// falls back to size/12, the proportion of DefaultGrid. Nodes may not overlap.
func NewGrid(size, radius float64) (Grid, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return Grid{}, fmt.Errorf("grid size must be positive, got %v", size)
	}
	if math.IsNaN(radius) {
		return Grid{}, fmt.Errorf("node radius must be a number")
	}
	if radius <= 0 {
		radius = size / defaultRadiusRatio
	}
	if radius > size/(2*Columns) {
		return Grid{}, fmt.Errorf("node radius must be in (0, %v], got %v", size/(2*Columns), radius)
	}
	return Grid{size: size, radius: radius}, nil
}

const (
	defaultSize        = 300
	defaultRadiusRatio = 12
)

// DefaultGrid is a 300 unit canvas with 25 unit touch targets.
func DefaultGrid() Grid {
	return Grid{size: defaultSize, radius: defaultSize / defaultRadiusRatio}
}

func (g Grid) Size() float64   { return g.size }
func (g Grid) Radius() float64 { return g.radius }

// Center returns the center of node i (row-major, 0 at the top left).
func (g Grid) Center(i int) Point {
	cell := g.size / Columns
	return Point{
		X: (float64(i%Columns) + 0.5) * cell,
		Y: (float64(i/Columns) + 0.5) * cell,
	}
}

// HitTest returns the node whose center is strictly closer than the radius.
func (g Grid) HitTest(p Point) (int, bool) {
	for i := 0; i < NodeCount; i++ {
		if p.distance(g.Center(i)) < g.radius {
			return i, true
		}
	}
	return -1, false
}
