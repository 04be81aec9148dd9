// File: internal/render/plan.go
package render

import (
	"image/color"
	"math"

	"github.com/xkilldash9x/flux-cli/internal/field"
	"github.com/xkilldash9x/flux-cli/internal/ramp"
)

// backlightMinX is the pointer x at or below which the backlight is skipped.
// The leave sentinel sits well past it.
const backlightMinX = -500.0

// Style is the subset of the simulation settings the renderer reads.
type Style struct {
	LineColor        color.NRGBA
	Background       color.NRGBA
	MouseRadius      float64
	RainbowIntensity float64
}

// SegmentKind distinguishes path commands.
type SegmentKind uint8

const (
	MoveTo SegmentKind = iota
	LineTo
	QuadTo
)

// Segment is one path command. Ctrl is only meaningful for QuadTo.
type Segment struct {
	Kind SegmentKind
	Ctrl field.Vec2
	To   field.Vec2
}

// RowStroke is the fully resolved draw call for one grid row.
type RowStroke struct {
	Segments []Segment
	Width    float64
	Opacity  float64
	// Active is set when the pointer touched any point of the row this frame.
	Active bool
	// Spectral rows are stroked with Frame.Spectral instead of the line colour.
	Spectral bool
}

// Frame is a backend-independent description of one rendered frame.
type Frame struct {
	Width, Height int
	Background    color.NRGBA
	LineColor     color.NRGBA
	Pointer       field.Vec2

	// Glow is set when the pointer is close enough to light the backlight.
	// It is only drawn when a source image is available.
	Glow *ramp.Radial
	// Spectral is the hue-cycling stroke gradient, nil when disabled.
	Spectral *ramp.Radial

	Rows []RowStroke
}

// StrokeWidth maps a row's mean brightness to its line width.
func StrokeWidth(avgZ float64) float64 {
	return 0.15 + math.Pow(math.Max(0, avgZ), 1.5)*2.5
}

// StrokeOpacity maps a row's mean brightness and activity to its opacity.
func StrokeOpacity(avgZ float64, active bool) float64 {
	o := avgZ * 1.2
	if active {
		o += 0.2
	}
	return math.Max(0.05, math.Min(1, o))
}

// Plan turns the grid as left by the latest field.Step into stroke commands.
// It reads g.Interaction and g.RowActive, so it must run after Step within
// the same frame.
func Plan(g *field.Grid, pointer field.Vec2, t float64, st Style) *Frame {
	f := &Frame{
		Width:      int(math.Round(g.Width)),
		Height:     int(math.Round(g.Height)),
		Background: st.Background,
		LineColor:  st.LineColor,
		Pointer:    pointer,
		Rows:       make([]RowStroke, g.Rows),
	}

	if pointer.X > backlightMinX {
		glow := ramp.Glow(pointer.X, pointer.Y, st.MouseRadius)
		f.Glow = &glow
	}
	if ramp.SpectralEnabled(pointer.X, g.Width, st.RainbowIntensity) {
		sp := ramp.Spectral(pointer.X, pointer.Y, st.MouseRadius, t, st.RainbowIntensity, st.LineColor)
		f.Spectral = &sp
	}

	for r := 0; r < g.Rows; r++ {
		row := g.Row(r)
		base := r * g.Cols
		segs := make([]Segment, 0, len(row))

		var sumZ float64
		for c := range row {
			p := &row[c]
			sumZ += p.Z
			switch {
			case c == 0:
				segs = append(segs, Segment{Kind: MoveTo, To: p.Pos})
			case g.Interaction[base+c] > 0:
				// Straight segments inside the pointer field.
				segs = append(segs, Segment{Kind: LineTo, To: p.Pos})
			default:
				prev := row[c-1].Pos
				segs = append(segs, Segment{Kind: QuadTo, Ctrl: prev, To: prev.Mid(p.Pos)})
			}
		}

		avgZ := sumZ / float64(g.Cols)
		active := g.RowActive[r]
		f.Rows[r] = RowStroke{
			Segments: segs,
			Width:    StrokeWidth(avgZ),
			Opacity:  StrokeOpacity(avgZ, active),
			Active:   active,
			Spectral: active && f.Spectral != nil,
		}
	}
	return f
}
