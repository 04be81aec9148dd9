// File: internal/render/raster.go
package render

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/xkilldash9x/flux-cli/internal/ramp"
)

// BackdropAlpha is the strength of the full-frame source image hint drawn
// under the backlight glow.
const BackdropAlpha = 0.03

// Raster draws frames into an RGBA surface with gg. It is not safe for
// concurrent use; the driver serialises access.
type Raster struct {
	img *image.RGBA
	dc  *gg.Context

	// Source image resampled to the surface size, rebuilt when either changes.
	backdropSrc    image.Image
	backdropScaled *image.RGBA
}

// NewRaster allocates a width x height surface.
func NewRaster(width, height int) *Raster {
	r := &Raster{}
	r.resize(width, height)
	return r
}

func (r *Raster) resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	r.img = image.NewRGBA(image.Rect(0, 0, width, height))
	r.dc = gg.NewContextForRGBA(r.img)
	r.dc.SetLineCapButt()
	r.dc.SetLineJoinRound()
	r.backdropSrc, r.backdropScaled = nil, nil
}

// Bounds returns the surface rectangle.
func (r *Raster) Bounds() image.Rectangle {
	return r.img.Rect
}

// Draw renders f. source may be nil, in which case the backlight is skipped.
func (r *Raster) Draw(f *Frame, source image.Image) {
	if f.Width != r.img.Rect.Dx() || f.Height != r.img.Rect.Dy() {
		r.resize(f.Width, f.Height)
	}
	dc := r.dc

	dc.SetColor(f.Background)
	dc.Clear()

	if f.Glow != nil && source != nil {
		addRadial(r.img, *f.Glow)
		addScaled(r.img, r.backdrop(source), BackdropAlpha)
	}

	for i := range f.Rows {
		row := &f.Rows[i]
		if len(row.Segments) == 0 {
			continue
		}
		tracePath(dc, row.Segments)

		if row.Spectral && f.Spectral != nil {
			dc.SetStrokeStyle(fadedGradient(f.Spectral, row.Opacity))
		} else {
			dc.SetColor(ramp.WithOpacity(f.LineColor, row.Opacity))
		}
		dc.SetLineWidth(row.Width)
		dc.Stroke()
	}
}

// Image exposes the live surface. Callers must not retain it across Draw calls.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Snapshot returns a copy of the current surface.
func (r *Raster) Snapshot() *image.RGBA {
	out := image.NewRGBA(r.img.Rect)
	copy(out.Pix, r.img.Pix)
	return out
}

func tracePath(dc *gg.Context, segs []Segment) {
	dc.ClearPath()
	for _, s := range segs {
		switch s.Kind {
		case MoveTo:
			dc.MoveTo(s.To.X, s.To.Y)
		case LineTo:
			dc.LineTo(s.To.X, s.To.Y)
		case QuadTo:
			dc.QuadraticTo(s.Ctrl.X, s.Ctrl.Y, s.To.X, s.To.Y)
		}
	}
}

// fadedGradient builds the spectral stroke pattern with the row opacity
// folded into every stop.
func fadedGradient(sp *ramp.Radial, opacity float64) gg.Gradient {
	g := gg.NewRadialGradient(sp.X, sp.Y, 0, sp.X, sp.Y, sp.Radius)
	for _, s := range ramp.FadeStops(sp.Stops, opacity) {
		g.AddColorStop(s.Offset, s.Color)
	}
	return g
}

func (r *Raster) backdrop(source image.Image) *image.RGBA {
	if r.backdropScaled != nil && r.backdropSrc == source {
		return r.backdropScaled
	}
	scaled := image.NewRGBA(r.img.Rect)
	draw.ApproxBiLinear.Scale(scaled, scaled.Rect, source, source.Bounds(), draw.Src, nil)
	r.backdropSrc, r.backdropScaled = source, scaled
	return scaled
}

// addRadial composites g onto dst with additive ("lighter") blending.
func addRadial(dst *image.RGBA, g ramp.Radial) {
	if g.Radius <= 0 {
		return
	}
	b := dst.Rect.Intersect(image.Rect(
		int(math.Floor(g.X-g.Radius)), int(math.Floor(g.Y-g.Radius)),
		int(math.Ceil(g.X+g.Radius))+1, int(math.Ceil(g.Y+g.Radius))+1,
	))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-g.X, float64(y)+0.5-g.Y)
			if d >= g.Radius {
				continue
			}
			c := ramp.Eval(g.Stops, d/g.Radius)
			if c.A == 0 {
				continue
			}
			a := float64(c.A) / 255
			i := dst.PixOffset(x, y)
			addChannel(dst.Pix, i, float64(c.R)*a, float64(c.G)*a, float64(c.B)*a, float64(c.A))
		}
	}
}

// addScaled adds src, weighted by alpha, onto dst. Both share bounds.
func addScaled(dst, src *image.RGBA, alpha float64) {
	for i := 0; i+3 < len(dst.Pix) && i+3 < len(src.Pix); i += 4 {
		addChannel(dst.Pix, i,
			float64(src.Pix[i])*alpha,
			float64(src.Pix[i+1])*alpha,
			float64(src.Pix[i+2])*alpha,
			float64(src.Pix[i+3])*alpha,
		)
	}
}

func addChannel(pix []uint8, i int, r, g, b, a float64) {
	pix[i] = sat8(float64(pix[i]) + r)
	pix[i+1] = sat8(float64(pix[i+1]) + g)
	pix[i+2] = sat8(float64(pix[i+2]) + b)
	pix[i+3] = sat8(float64(pix[i+3]) + a)
}

func sat8(v float64) uint8 {
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v + 0.5)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// EncodeJPEG writes img as JPEG at the given quality (1-100).
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
