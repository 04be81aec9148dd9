// File: internal/ramp/ramp_test.go
package ramp

import (
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineColor = color.NRGBA{240, 240, 240, 242}

func hsl(c color.NRGBA) (h, s, l float64) {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hsl()
}

func TestHue(t *testing.T) {
	tests := []struct{ t, want float64 }{
		{0, 0},
		{1, 40},
		{4.5, 180},
		{9, 0},
		{10, 40},
		{-1, 320},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Hue(tt.t), 1e-9, "t=%v", tt.t)
	}
}

func TestSpectralStops_HueAndSaturation(t *testing.T) {
	samples := []struct {
		t         float64
		intensity float64
	}{
		{0, 85}, {1.25, 80}, {3, 100}, {7.5, 40},
	}
	for _, sm := range samples {
		stops := SpectralStops(sm.t, sm.intensity, lineColor)
		require.Len(t, stops, 4)
		assert.Equal(t, []float64{0, 0.2, 0.5, 1}, []float64{stops[0].Offset, stops[1].Offset, stops[2].Offset, stops[3].Offset})

		base := Hue(sm.t)
		wantHues := []float64{base, base + 60, base + 120}
		wantSats := []float64{sm.intensity / 100, 0.9 * sm.intensity / 100, 0.8 * sm.intensity / 100}
		wantLights := []float64{0.75, 0.75, 0.80}
		wantAlpha := []uint8{255, 230, 204}
		for i := 0; i < 3; i++ {
			h, s, l := hsl(stops[i].Color)
			want := wantHues[i]
			for want >= 360 {
				want -= 360
			}
			// 8-bit quantisation costs a few degrees at worst.
			assert.InDelta(t, want, h, 3, "t=%v stop %d hue", sm.t, i)
			assert.InDelta(t, wantSats[i], s, 0.03, "t=%v stop %d saturation", sm.t, i)
			assert.InDelta(t, wantLights[i], l, 0.01, "t=%v stop %d lightness", sm.t, i)
			assert.Equal(t, wantAlpha[i], stops[i].Color.A)
		}
		assert.Equal(t, lineColor, stops[3].Color, "outer edge is the flat line colour")
	}
}

func TestSpectralEnabled(t *testing.T) {
	assert.True(t, SpectralEnabled(500, 1000, 85))
	assert.True(t, SpectralEnabled(-99, 1000, 85))
	assert.True(t, SpectralEnabled(1099, 1000, 85))
	assert.False(t, SpectralEnabled(-100, 1000, 85))
	assert.False(t, SpectralEnabled(1100, 1000, 85))
	assert.False(t, SpectralEnabled(-5000, 1000, 85), "leave sentinel disables it")
	assert.False(t, SpectralEnabled(500, 1000, 5))
	assert.True(t, SpectralEnabled(500, 1000, 5.1))
}

func TestRadial(t *testing.T) {
	r := Spectral(100, 100, 180, 0, 80, lineColor)
	assert.Equal(t, 270.0, r.Radius)
	assert.Equal(t, r.Stops[0].Color, r.At(100, 100))
	assert.Equal(t, lineColor, r.At(100+270, 100))
	assert.Equal(t, lineColor, r.At(1000, 1000), "beyond the radius holds the last stop")

	g := Glow(0, 0, 100)
	assert.Equal(t, 120.0, g.Radius)
	assert.Equal(t, uint8(31), g.At(0, 0).A)
	assert.Equal(t, uint8(5), g.At(72, 0).A)
	assert.Equal(t, uint8(0), g.At(120, 0).A)
}

func TestEval(t *testing.T) {
	stops := []Stop{
		{0, color.NRGBA{0, 0, 0, 255}},
		{1, color.NRGBA{200, 100, 50, 255}},
	}
	assert.Equal(t, color.NRGBA{100, 50, 25, 255}, Eval(stops, 0.5))
	assert.Equal(t, stops[0].Color, Eval(stops, -1))
	assert.Equal(t, stops[1].Color, Eval(stops, 2))
	assert.Equal(t, color.NRGBA{}, Eval(nil, 0.5))
}

func TestWithOpacity(t *testing.T) {
	assert.Equal(t, uint8(121), WithOpacity(lineColor, 0.5).A)
	assert.Equal(t, uint8(0), WithOpacity(lineColor, -1).A)
	assert.Equal(t, lineColor, WithOpacity(lineColor, 3))

	faded := FadeStops(GlowStops(), 0.5)
	assert.Equal(t, uint8(16), faded[0].Color.A)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#050505", color.NRGBA{5, 5, 5, 255}},
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#ff000080", color.NRGBA{255, 0, 0, 128}},
		{"rgba(240, 240, 240, 0.95)", color.NRGBA{240, 240, 240, 242}},
		{"rgb(10,20,30)", color.NRGBA{10, 20, 30, 255}},
		{"rgb(10 20 30 / 50%)", color.NRGBA{10, 20, 30, 128}},
		{"hsla(0, 100%, 50%, 1)", color.NRGBA{255, 0, 0, 255}},
		{"hsl(120deg, 100%, 25%)", color.NRGBA{0, 128, 0, 255}},
		{" White ", color.NRGBA{255, 255, 255, 255}},
		{"transparent", color.NRGBA{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "blurple", "rgb(1,2)", "#12", "rgba(a,b,c,d)", "hsl(x, 1%, 1%)"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestCSSRoundTrip(t *testing.T) {
	c := MustParseColor("rgba(240, 240, 240, 0.95)")
	back, err := ParseColor(CSS(c))
	require.NoError(t, err)
	assert.Equal(t, c, back)
	assert.Equal(t, "#050505", Hex(MustParseColor("#050505")))
}
