// File: internal/field/physics_test.go
package field

import (
	"math"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentinel = Vec2{X: -5000, Y: -5000}

func defaultParams() Params {
	return Params{
		Amplitude:      15,
		HoverAmplitude: 150,
		Friction:       0.94,
		Elasticity:     0.1,
		MouseRadius:    180,
		MouseStrength:  25,
	}
}

func TestInteraction_Boundaries(t *testing.T) {
	assert.Equal(t, 0.0, Interaction(180, 180), "zero at the radius")
	assert.Equal(t, 1.0, Interaction(0, 180), "one at the pointer")
	assert.Equal(t, 0.0, Interaction(500, 180))
	assert.InDelta(t, 0.5, Interaction(90, 180), 1e-12)
	assert.Equal(t, 0.0, Interaction(0, 0), "non-positive radius disables interaction")
	assert.Equal(t, 0.0, Interaction(10, -5))
	assert.Equal(t, 0.0, Interaction(math.NaN(), 100))
}

func TestSmoothstep_Monotonic(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(0))
	assert.Equal(t, 1.0, Smoothstep(1))
	assert.Equal(t, 0.5, Smoothstep(0.5))

	prev := Smoothstep(0)
	for i := 1; i <= 1000; i++ {
		cur := Smoothstep(float64(i) / 1000)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestInteraction_MonotonicInRadius(t *testing.T) {
	g, err := NewGrid(ramp(30*17), 30, 17, 600, 340)
	require.NoError(t, err)
	pointer := Vec2{X: 212, Y: 97}

	count := func(radius float64) int {
		n := 0
		for i := range g.Points {
			if Interaction(g.Points[i].Pos.Dist(pointer), radius) > 0 {
				n++
			}
		}
		return n
	}

	prev := count(0)
	for radius := 5.0; radius <= 800; radius += 5 {
		cur := count(radius)
		assert.GreaterOrEqual(t, cur, prev, "radius %.0f", radius)
		prev = cur
	}
}

func TestStep_SentinelHasNoEffect(t *testing.T) {
	g, err := NewGrid(uniform(40*22, 1), 40, 22, 1920, 1080)
	require.NoError(t, err)

	for _, radius := range []float64{1, 180, 1000, 2000} {
		p := defaultParams()
		p.MouseRadius = radius
		active := Step(g, sentinel, 0, p)

		assert.Zero(t, active)
		for i, v := range g.Interaction {
			require.Zero(t, v, "point %d", i)
		}
		for r, on := range g.RowActive {
			require.False(t, on, "row %d", r)
		}
	}
}

func TestStep_ConvergesToRest(t *testing.T) {
	configs := []struct{ elasticity, friction float64 }{
		{0.1, 0.94},
		{1, 0.5},
		{0.5, 0.9},
		{0.05, 0.8},
		{0.01, 0.5},
	}
	for _, c := range configs {
		g, err := NewGrid(uniform(6*4, 0), 6, 4, 300, 200)
		require.NoError(t, err)
		for i := range g.Points {
			g.Points[i].Pos = g.Points[i].Pos.Add(Vec2{X: 40, Y: -25})
			g.Points[i].Vel = Vec2{X: -3, Y: 7}
		}

		p := Params{Amplitude: 15, HoverAmplitude: 15, Friction: c.friction, Elasticity: c.elasticity, MouseRadius: 180}
		for tick := 0; tick < 10000; tick++ {
			Step(g, sentinel, float64(tick)*TimeStep, p)
		}
		for i, pt := range g.Points {
			require.InDelta(t, pt.Rest.X, pt.Pos.X, 1e-3, "e=%v f=%v point %d", c.elasticity, c.friction, i)
			require.InDelta(t, pt.Rest.Y, pt.Pos.Y, 1e-3, "e=%v f=%v point %d", c.elasticity, c.friction, i)
		}
	}
}

func TestStep_SettlesAtBreathingTarget(t *testing.T) {
	g, err := NewGrid(uniform(3*3, 0.8), 3, 3, 200, 200)
	require.NoError(t, err)
	p := defaultParams()

	const frozen = 2.0
	for tick := 0; tick < 5000; tick++ {
		Step(g, sentinel, frozen, p)
	}
	for _, pt := range g.Points {
		want := pt.Rest.Y - (pt.Z*p.Amplitude + Breathing(&pt, frozen))
		assert.InDelta(t, want, pt.Pos.Y, 1e-6)
		assert.InDelta(t, pt.Rest.X, pt.Pos.X, 1e-6)
	}
}

func TestStep_PointerRepels(t *testing.T) {
	g, err := NewGrid(uniform(3*3, 0), 3, 3, 200, 200)
	require.NoError(t, err)
	p := defaultParams()
	p.MouseRadius = 50

	// Pointer just left of the centre point. Neighbours sit 100px away.
	centre := g.At(1, 1)
	pointer := centre.Pos.Add(Vec2{X: -20})
	active := Step(g, pointer, 0, p)

	assert.Equal(t, 1, active)
	assert.True(t, g.RowActive[1])
	assert.False(t, g.RowActive[0])
	assert.Greater(t, g.Interaction[g.Index(1, 1)], 0.0)
	assert.Greater(t, centre.Pos.X, centre.Rest.X, "positive strength pushes away from the pointer")

	g2, err := NewGrid(uniform(3*3, 0), 3, 3, 200, 200)
	require.NoError(t, err)
	p.MouseStrength = -25
	Step(g2, pointer, 0, p)
	assert.Less(t, g2.At(1, 1).Pos.X, g2.At(1, 1).Rest.X, "negative strength attracts")
}

func TestStep_HoverAmplitudeLifts(t *testing.T) {
	g, err := NewGrid(uniform(3*3, 1), 3, 3, 200, 200)
	require.NoError(t, err)
	p := defaultParams()
	p.MouseStrength = 0

	centre := g.At(1, 1)
	baseline := *centre
	Step(g, centre.Pos, 0, p)

	calm, err := NewGrid(uniform(3*3, 1), 3, 3, 200, 200)
	require.NoError(t, err)
	Step(calm, sentinel, 0, p)

	// Directly under the pointer the target uses the hover amplitude.
	assert.Less(t, centre.Pos.Y, calm.At(1, 1).Pos.Y)
	assert.Equal(t, baseline.Rest, centre.Rest, "rest positions never move")
}

func TestStep_DivergesWithoutClamp(t *testing.T) {
	g, err := NewGrid(uniform(2*2, 0), 2, 2, 100, 100)
	require.NoError(t, err)
	g.Points[0].Pos.X += 1

	p := Params{Friction: 1, Elasticity: 4.5, MouseRadius: 10}
	for tick := 0; tick < 200; tick++ {
		Step(g, sentinel, 0, p)
	}
	assert.Greater(t, math.Abs(g.Points[0].Pos.X-g.Points[0].Rest.X), 1e6,
		"pathological configs are allowed to blow up")
}

func FuzzStep_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		var in struct {
			Params  Params
			Pointer Vec2
			Time    float64
			Ticks   uint8
		}
		if err := consumer.GenerateStruct(&in); err != nil {
			return
		}

		g, err := NewGrid(ramp(5*4), 5, 4, 250, 200)
		require.NoError(t, err)

		for i := 0; i < int(in.Ticks%16)+1; i++ {
			active := Step(g, in.Pointer, in.Time, in.Params)
			require.GreaterOrEqual(t, active, 0)
			for _, v := range g.Interaction {
				require.True(t, v >= 0 && v <= 1, "interaction %v out of range", v)
			}
		}
		for i, pt := range g.Points {
			require.Equal(t, g.Points[i].Rest, pt.Rest)
		}
	})
}
