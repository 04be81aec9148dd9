// File: internal/sampler/sampler.go
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Luminance weights (ITU-R BT.601).
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// BrightnessMap is a row-major grid of normalized luminance values.
type BrightnessMap struct {
	Data   []float32
	Width  int
	Height int
	// Source is the decoded image the map was sampled from. Nil for
	// procedural maps.
	Source image.Image
}

// At returns the brightness of cell (x, y).
func (m *BrightnessMap) At(x, y int) float32 {
	return m.Data[y*m.Width+x]
}

// Sampler loads images from files, remote URLs and data: URLs and resamples
// them onto a brightness grid. It is stateless apart from its collaborators
// and safe for concurrent use. It never retries.
type Sampler struct {
	client HTTPDoer
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock overrides the clock used for cache-busting remote URLs.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

// New creates a Sampler. A nil client falls back to http.DefaultClient.
func New(client HTTPDoer, logger *zap.Logger, opts ...Option) *Sampler {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sampler{
		client: client,
		logger: logger.Named("sampler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches and decodes the image behind src.
func (s *Sampler) Load(ctx context.Context, src string) (image.Image, error) {
	data, err := s.readSource(ctx, src)
	if err != nil {
		return nil, &ImageLoadError{Source: redact(src), Cause: err}
	}
	img, format, err := decodeImage(data)
	if err != nil {
		return nil, &ImageLoadError{Source: redact(src), Cause: err}
	}
	s.logger.Debug("Decoded source image",
		zap.String("source", redact(src)),
		zap.Stringer("kind", Classify(src)),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return img, nil
}

// Sample loads src and stretches it onto a samplesX x samplesY grid.
func (s *Sampler) Sample(ctx context.Context, src string, samplesX, samplesY int) (*BrightnessMap, error) {
	if samplesX < 1 || samplesY < 1 {
		return nil, &SampleExtractionError{
			Source: redact(src),
			Cause:  fmt.Errorf("invalid sample grid %dx%d", samplesX, samplesY),
		}
	}
	img, err := s.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &ImageLoadError{Source: redact(src), Cause: err}
	}
	m, err := FromImage(img, samplesX, samplesY)
	if err != nil {
		var se *SampleExtractionError
		if errors.As(err, &se) {
			se.Source = redact(src)
		}
		return nil, err
	}
	return m, nil
}

// FromImage stretches img onto a samplesX x samplesY grid, ignoring its
// aspect ratio, and converts each cell to luminance in [0, 1].
func FromImage(img image.Image, samplesX, samplesY int) (*BrightnessMap, error) {
	if samplesX < 1 || samplesY < 1 {
		return nil, &SampleExtractionError{Cause: fmt.Errorf("invalid sample grid %dx%d", samplesX, samplesY)}
	}
	if img == nil || img.Bounds().Empty() {
		return nil, &SampleExtractionError{Cause: errors.New("image has no pixels")}
	}

	dst := image.NewNRGBA(image.Rect(0, 0, samplesX, samplesY))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, samplesX*samplesY)
	for y := 0; y < samplesY; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+samplesX*4]
		for x := 0; x < samplesX; x++ {
			px := row[x*4 : x*4+3]
			l := (lumaR*float64(px[0]) + lumaG*float64(px[1]) + lumaB*float64(px[2])) / 255
			out[y*samplesX+x] = float32(math.Min(1, math.Max(0, l)))
		}
	}
	return &BrightnessMap{Data: out, Width: samplesX, Height: samplesY, Source: img}, nil
}

// Fallback generates the procedural radial field used when sampling fails:
// a bright centred disk fading to zero towards the corners.
func Fallback(cols, rows int) *BrightnessMap {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	out := make([]float32, cols*rows)
	for r := 0; r < rows; r++ {
		ny := float64(r)/float64(rows)*2 - 1
		for c := 0; c < cols; c++ {
			nx := float64(c)/float64(cols)*2 - 1
			out[r*cols+c] = float32(math.Max(0, 1-math.Sqrt(nx*nx+ny*ny)))
		}
	}
	return &BrightnessMap{Data: out, Width: cols, Height: rows}
}

// redact keeps data: URLs out of logs and error strings.
func redact(src string) string {
	if Classify(src) == SourceData && len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}
