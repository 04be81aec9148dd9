// internal/record/recorder.go
package record

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/icza/mjpeg"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/render"
)

// ErrClosed is returned by AddFrame after Close.
var ErrClosed = errors.New("recorder is closed")

// Config describes the output video.
type Config struct {
	Path    string
	Width   int
	Height  int
	FPS     int
	Quality int
}

// Recorder writes frames to a Motion-JPEG AVI file.
type Recorder struct {
	logger *zap.Logger
	cfg    Config

	mu     sync.Mutex
	aw     mjpeg.AviWriter
	buf    bytes.Buffer
	frames int
	closed bool
}

// New opens the output file. A leading ~ in the path is expanded.
func New(logger *zap.Logger, cfg Config) (*Recorder, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", cfg.FPS)
	}
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	path, err := homedir.Expand(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output path: %w", err)
	}
	cfg.Path = path

	aw, err := mjpeg.New(path, int32(cfg.Width), int32(cfg.Height), int32(cfg.FPS))
	if err != nil {
		return nil, fmt.Errorf("failed to create MJPEG writer: %w", err)
	}

	r := &Recorder{logger: logger.Named("recorder"), cfg: cfg, aw: aw}
	r.logger.Info("Recording started.", zap.String("path", path), zap.Int("fps", cfg.FPS),
		zap.Int("width", cfg.Width), zap.Int("height", cfg.Height))
	return r, nil
}

// AddFrame JPEG-encodes img and appends it. The image must match the
// configured frame size.
func (r *Recorder) AddFrame(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != r.cfg.Width || b.Dy() != r.cfg.Height {
		return fmt.Errorf("frame is %dx%d, recording is %dx%d", b.Dx(), b.Dy(), r.cfg.Width, r.cfg.Height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	r.buf.Reset()
	if err := render.EncodeJPEG(&r.buf, img, r.cfg.Quality); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", r.frames, err)
	}
	if err := r.aw.AddFrame(r.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", r.frames, err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Path returns the resolved output path.
func (r *Recorder) Path() string {
	return r.cfg.Path
}

// Close finalizes the AVI index. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.aw.Close(); err != nil {
		return fmt.Errorf("failed to finalize recording: %w", err)
	}
	r.logger.Info("Recording finished.", zap.String("path", r.cfg.Path), zap.Int("frames", r.frames))
	return nil
}
