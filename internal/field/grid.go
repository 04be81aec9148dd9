// File: internal/field/grid.go
package field

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensions is returned when a grid cannot be laid out for the requested
// shape or viewport.
var ErrDimensions = errors.New("invalid grid dimensions")

// Point is the simulated state of a single lattice cell.
type Point struct {
	// Pos is the current rendered location. Mutated every tick.
	Pos Vec2
	// Rest is the undeformed lattice anchor. Never mutated after construction.
	Rest Vec2
	// Vel accumulates acceleration and is damped by friction each tick.
	Vel Vec2
	// Z is the sampled brightness in [0, 1].
	Z float64
}

// Grid is a row-major arena of points for one (image, resolution, viewport)
// combination. Adjacency is implicit: index = row*Cols + col.
type Grid struct {
	Cols, Rows    int
	Width, Height float64
	GapX, GapY    float64
	OffsetY       float64

	Points []Point

	// Per-tick scratch written by Step and read by the renderer within the
	// same frame.
	Interaction []float64
	RowActive   []bool
}

// RowsFor derives the row count for a column resolution so cells keep the
// viewport's aspect ratio. Never less than 1.
func RowsFor(cols int, width, height float64) int {
	if cols < 1 || width <= 0 || height <= 0 {
		return 1
	}
	rows := int(math.Floor(float64(cols) * height / width))
	if rows < 1 {
		return 1
	}
	return rows
}

// NewGrid lays out cols*rows points over a width x height viewport and seeds
// each with the matching brightness value from data. Every point starts at
// rest with zero velocity.
func NewGrid(data []float32, cols, rows int, width, height float64) (*Grid, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, cols, rows)
	}
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: viewport %.1fx%.1f", ErrDimensions, width, height)
	}
	if len(data) != cols*rows {
		return nil, fmt.Errorf("%w: have %d samples for a %dx%d grid", ErrDimensions, len(data), cols, rows)
	}

	gapX := width
	if cols > 1 {
		gapX = width / float64(cols-1)
	}
	gapY := height
	if rows > 1 {
		gapY = height / float64(rows-1)
	}
	offsetY := (height - float64(rows)*gapY) / 2

	g := &Grid{
		Cols:        cols,
		Rows:        rows,
		Width:       width,
		Height:      height,
		GapX:        gapX,
		GapY:        gapY,
		OffsetY:     offsetY,
		Points:      make([]Point, cols*rows),
		Interaction: make([]float64, cols*rows),
		RowActive:   make([]bool, rows),
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			rest := Vec2{X: float64(c) * gapX, Y: float64(r)*gapY + offsetY}
			g.Points[i] = Point{
				Pos:  rest,
				Rest: rest,
				Z:    clamp01(float64(data[i])),
			}
		}
	}
	return g, nil
}

// Index returns the arena index of (col, row).
func (g *Grid) Index(col, row int) int {
	return row*g.Cols + col
}

// At returns the point at (col, row).
func (g *Grid) At(col, row int) *Point {
	return &g.Points[g.Index(col, row)]
}

// Row returns the points of one row as a sub-slice of the arena.
func (g *Grid) Row(row int) []Point {
	start := row * g.Cols
	return g.Points[start : start+g.Cols]
}

// Brightness returns a copy of the per-point brightness values in arena
// order, suitable for rebuilding an identical grid.
func (g *Grid) Brightness() []float32 {
	out := make([]float32, len(g.Points))
	for i := range g.Points {
		out[i] = float32(g.Points[i].Z)
	}
	return out
}

func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
