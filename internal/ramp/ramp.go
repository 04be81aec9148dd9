// File: internal/ramp/ramp.go
//
// Package ramp evaluates the colour ramps used by the renderer. Every function
// here is pure: the same (pointer, time, settings) always yields the same
// stops, independent of any drawing backend.
package ramp

import (
	"image/color"
	"math"
)

// Stop is one colour stop of a radial gradient. Offset runs from 0 at the
// centre to 1 at the outer radius.
type Stop struct {
	Offset float64
	Color  color.NRGBA
}

// Radial is a radial gradient centred on (X, Y).
type Radial struct {
	X, Y   float64
	Radius float64
	Stops  []Stop
}

const (
	// HueRate is the hue rotation in degrees per unit of simulation time.
	HueRate = 40.0
	// SpectralRadiusScale scales the pointer radius to the spectral gradient radius.
	SpectralRadiusScale = 1.5
	// GlowRadiusScale scales the pointer radius to the backlight glow radius.
	GlowRadiusScale = 1.2
	// spectralMargin is how far outside the viewport the pointer may be
	// while still colouring rows.
	spectralMargin = 100.0
	// minIntensity is the rainbow intensity at or below which rows stay flat.
	minIntensity = 5.0
)

// Hue returns the base hue in degrees [0, 360) at simulation time t.
func Hue(t float64) float64 {
	h := math.Mod(HueRate*t, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// SpectralEnabled reports whether active rows use the spectral gradient for
// a pointer at x over a viewport of the given width.
func SpectralEnabled(pointerX, width, intensity float64) bool {
	return pointerX > -spectralMargin && pointerX < width+spectralMargin && intensity > minIntensity
}

// SpectralStops builds the hue-cycling stops: three hues 60 degrees apart with
// saturation scaled by intensity (0..100), fading into the flat line colour.
func SpectralStops(t, intensity float64, line color.NRGBA) []Stop {
	h := Hue(t)
	s := intensity / 100
	return []Stop{
		{Offset: 0, Color: HSLA(h, s, 0.75, 1)},
		{Offset: 0.2, Color: HSLA(h+60, s*0.9, 0.75, 0.9)},
		{Offset: 0.5, Color: HSLA(h+120, s*0.8, 0.80, 0.8)},
		{Offset: 1, Color: line},
	}
}

// Spectral returns the spectral gradient centred on the pointer.
func Spectral(x, y, mouseRadius, t, intensity float64, line color.NRGBA) Radial {
	return Radial{
		X:      x,
		Y:      y,
		Radius: mouseRadius * SpectralRadiusScale,
		Stops:  SpectralStops(t, intensity, line),
	}
}

// GlowStops are the backlight stops: a faint white core fading out.
func GlowStops() []Stop {
	return []Stop{
		{Offset: 0, Color: color.NRGBA{255, 255, 255, alpha8(0.12)}},
		{Offset: 0.6, Color: color.NRGBA{255, 255, 255, alpha8(0.02)}},
		{Offset: 1, Color: color.NRGBA{0, 0, 0, 0}},
	}
}

// Glow returns the backlight gradient centred on the pointer.
func Glow(x, y, mouseRadius float64) Radial {
	return Radial{
		X:      x,
		Y:      y,
		Radius: mouseRadius * GlowRadiusScale,
		Stops:  GlowStops(),
	}
}

// Eval samples stops at offset, interpolating linearly between neighbours.
// Offsets outside the stop range take the nearest end colour.
func Eval(stops []Stop, offset float64) color.NRGBA {
	if len(stops) == 0 {
		return color.NRGBA{}
	}
	if offset <= stops[0].Offset {
		return stops[0].Color
	}
	for i := 1; i < len(stops); i++ {
		a, b := stops[i-1], stops[i]
		if offset > b.Offset {
			continue
		}
		span := b.Offset - a.Offset
		if span <= 0 {
			return b.Color
		}
		return Lerp(a.Color, b.Color, (offset-a.Offset)/span)
	}
	return stops[len(stops)-1].Color
}

// At samples the gradient at canvas point (x, y).
func (r Radial) At(x, y float64) color.NRGBA {
	if r.Radius <= 0 {
		return Eval(r.Stops, 1)
	}
	return Eval(r.Stops, math.Hypot(x-r.X, y-r.Y)/r.Radius)
}

// Lerp blends a towards b by f in [0, 1], channel by channel.
func Lerp(a, b color.NRGBA, f float64) color.NRGBA {
	f = clamp01(f)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// WithOpacity multiplies the alpha of c by o in [0, 1].
func WithOpacity(c color.NRGBA, o float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * clamp01(o)))
	return c
}

// FadeStops applies WithOpacity to every stop.
func FadeStops(stops []Stop, o float64) []Stop {
	out := make([]Stop, len(stops))
	for i, s := range stops {
		out[i] = Stop{Offset: s.Offset, Color: WithOpacity(s.Color, o)}
	}
	return out
}
