// File: internal/field/physics.go
package field

import "math"

// TimeStep is the amount the simulation clock advances per tick.
const TimeStep = 0.01

// Params holds the numeric simulation settings consumed by Step. Values are
// used as given; out-of-range settings may diverge but never panic.
type Params struct {
	Amplitude      float64
	HoverAmplitude float64
	Friction       float64
	Elasticity     float64
	MouseRadius    float64
	MouseStrength  float64
}

// Interaction maps a pointer distance to a proximity weight in [0, 1]:
// 1 at the pointer, 0 at or beyond radius. A non-positive radius disables it.
func Interaction(dist, radius float64) float64 {
	if !(radius > 0) {
		return 0
	}
	v := 1 - dist/radius
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

// Smoothstep eases x in [0, 1] with 3x² - 2x³.
func Smoothstep(x float64) float64 {
	return x * x * (3 - 2*x)
}

// Breathing is the ambient, pointer-independent vertical oscillation of a
// point at simulation time t.
func Breathing(p *Point, t float64) float64 {
	return math.Sin(0.5*t+0.02*p.Rest.X+0.02*p.Rest.Y) * (p.Z * 1.5)
}

// Step advances every point of g by one forward-Euler spring-damper tick
// against the pointer at time t. It refreshes g.Interaction and g.RowActive
// and returns the number of points the pointer touched.
//
// Velocity and acceleration are not clamped.
func Step(g *Grid, pointer Vec2, t float64, p Params) int {
	for r := range g.RowActive {
		g.RowActive[r] = false
	}

	active := 0
	for i := range g.Points {
		pt := &g.Points[i]

		toPointer := pointer.Sub(pt.Pos)
		inter := Interaction(toPointer.Mag(), p.MouseRadius)
		smooth := Smoothstep(inter)

		amp := p.Amplitude + (p.HoverAmplitude-p.Amplitude)*smooth
		targetY := pt.Rest.Y - (pt.Z*amp + Breathing(pt, t))

		var force Vec2
		if inter > 0 {
			push := -smooth * p.MouseStrength
			angle := toPointer.Angle()
			force = Vec2{X: math.Cos(angle) * push, Y: math.Sin(angle) * push}
			g.RowActive[i/g.Cols] = true
			active++
		}

		acc := Vec2{
			X: (pt.Rest.X + force.X - pt.Pos.X) * p.Elasticity,
			Y: (targetY + force.Y - pt.Pos.Y) * p.Elasticity,
		}
		pt.Vel = pt.Vel.Add(acc).Mul(p.Friction)
		pt.Pos = pt.Pos.Add(pt.Vel)

		g.Interaction[i] = inter
	}
	return active
}
