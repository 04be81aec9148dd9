// internal/driver/driver.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/field"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/ramp"
	"github.com/xkilldash9x/flux-cli/internal/render"
	"github.com/xkilldash9x/flux-cli/internal/sampler"
)

// ErrClosed is returned by operations on a closed driver.
var ErrClosed = errors.New("driver closed")

const defaultRebuildTimeout = 30 * time.Second

// FieldSampler produces the brightness map a grid is built from.
type FieldSampler interface {
	Sample(ctx context.Context, src string, samplesX, samplesY int) (*sampler.BrightnessMap, error)
}

// Request describes one grid build: which image, how many columns, and the
// viewport the grid spans.
type Request struct {
	Source        string
	Cols          int
	Width, Height int
}

// Status reports the driver's externally visible state.
type Status struct {
	// Ready is false while a rebuild is outstanding.
	Ready bool
	// Fallback is set when the current grid came from the procedural map.
	Fallback bool
	// Message carries the user-facing reason for a fallback.
	Message string
	// Generation identifies the most recent rebuild request.
	Generation uint64
	// Frames counts completed ticks since construction.
	Frames uint64
	Source string
}

// Snapshot is a copy of a completed frame.
type Snapshot struct {
	ID    string
	Frame uint64
	Time  float64
	Image *image.RGBA
	Plan  *render.Frame
}

// settings is the derived, immutable form of a SimulationConfig.
type settings struct {
	sim    config.SimulationConfig
	params field.Params
	style  render.Style
}

func newSettings(sim config.SimulationConfig) (*settings, error) {
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	line, err := ramp.ParseColor(sim.LineColor)
	if err != nil {
		return nil, fmt.Errorf("simulation.line_color: %w", err)
	}
	bg, err := ramp.ParseColor(sim.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("simulation.background_color: %w", err)
	}
	sim = sim.Resolved()
	return &settings{
		sim: sim,
		params: field.Params{
			Amplitude:      sim.Amplitude,
			HoverAmplitude: *sim.HoverAmplitude,
			Friction:       sim.Friction,
			Elasticity:     sim.Elasticity,
			MouseRadius:    sim.MouseRadius,
			MouseStrength:  sim.MouseStrength,
		},
		style: render.Style{
			LineColor:        line,
			Background:       bg,
			MouseRadius:      sim.MouseRadius,
			RainbowIntensity: *sim.RainbowIntensity,
		},
	}, nil
}

// Option configures a Driver.
type Option func(*Driver)

// WithRebuildTimeout bounds each image load and grid build.
func WithRebuildTimeout(d time.Duration) Option {
	return func(drv *Driver) {
		if d > 0 {
			drv.rebuildTimeout = d
		}
	}
}

// Driver owns the grid, the simulation clock and the raster. Rebuilds run in
// the background and are tagged with a generation; only the newest one is
// applied. Ticks are serialised and may come from any goroutine.
type Driver struct {
	logger         *zap.Logger
	sampler        FieldSampler
	pointer        pointer.Source
	rebuildTimeout time.Duration

	settings atomic.Pointer[settings]

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	// mu guards everything below.
	mu            sync.Mutex
	closed        bool
	grid          *field.Grid
	source        image.Image
	raster        *render.Raster
	t             float64
	frames        uint64
	generation    uint64
	pending       bool
	ready         chan struct{}
	cancelRebuild context.CancelFunc
	request       Request
	fallback      bool
	message       string

	// snapMu guards the published copy of the last completed frame.
	snapMu    sync.RWMutex
	snapImg   *image.RGBA
	snapPlan  *render.Frame
	snapFrame uint64
	snapTime  float64
}

// New creates an idle driver. Call Rebuild before ticking.
func New(logger *zap.Logger, smp FieldSampler, src pointer.Source, sim config.SimulationConfig, opts ...Option) (*Driver, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if smp == nil {
		return nil, errors.New("sampler cannot be nil")
	}
	if src == nil {
		return nil, errors.New("pointer source cannot be nil")
	}
	s, err := newSettings(sim)
	if err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Driver{
		logger:         logger.Named("driver"),
		sampler:        smp,
		pointer:        src,
		rebuildTimeout: defaultRebuildTimeout,
		baseCtx:        ctx,
		baseCancel:     cancel,
		ready:          make(chan struct{}),
	}
	d.settings.Store(s)
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Rebuild starts building a grid for req and returns its generation. Any
// earlier outstanding rebuild is cancelled and its result discarded. The
// grid is sized with req.Cols columns; a zero Cols uses the configured
// resolution.
func (d *Driver) Rebuild(ctx context.Context, req Request) (uint64, error) {
	if req.Cols <= 0 {
		req.Cols = d.settings.Load().sim.Resolution
	}
	if req.Width <= 0 || req.Height <= 0 {
		return 0, fmt.Errorf("%w: viewport %dx%d", field.ErrDimensions, req.Width, req.Height)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, ErrClosed
	}
	if d.cancelRebuild != nil {
		d.cancelRebuild()
	}
	d.generation++
	gen := d.generation
	if !d.pending {
		d.ready = make(chan struct{})
	}
	d.pending = true
	d.request = req

	rctx, cancel := context.WithTimeout(ctx, d.rebuildTimeout)
	stop := context.AfterFunc(d.baseCtx, cancel)
	d.cancelRebuild = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	d.logger.Info("Rebuilding grid.",
		zap.Uint64("generation", gen),
		zap.Int("cols", req.Cols),
		zap.Int("width", req.Width),
		zap.Int("height", req.Height),
	)

	go func() {
		defer d.wg.Done()
		defer stop()
		defer cancel()
		d.build(rctx, gen, req)
	}()
	return gen, nil
}

// build samples, lays out and, if still current, applies one grid.
func (d *Driver) build(ctx context.Context, gen uint64, req Request) {
	w, h := float64(req.Width), float64(req.Height)
	rows := field.RowsFor(req.Cols, w, h)

	var (
		fallback bool
		message  string
		source   image.Image
	)
	data, err := d.sampler.Sample(ctx, req.Source, req.Cols, rows)
	if err != nil {
		fallback = true
		message = fmt.Sprintf("Source unavailable: %s. Using synthesis.", errorText(err))
		data = sampler.Fallback(req.Cols, rows)
	} else {
		source = data.Source
	}

	grid, gridErr := field.NewGrid(data.Data, req.Cols, rows, w, h)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || gen != d.generation {
		d.logger.Debug("Discarding superseded grid.", zap.Uint64("generation", gen), zap.Uint64("current", d.generation))
		return
	}
	if gridErr != nil {
		// Dimensions were validated up front, so this is a programming error.
		d.logger.Error("Failed to lay out grid.", zap.Uint64("generation", gen), zap.Error(gridErr))
		d.finishRebuild()
		return
	}
	if fallback {
		d.logger.Warn("Failed to load flux map, switching to procedural fallback.",
			zap.Uint64("generation", gen), zap.Error(err))
	}

	d.grid = grid
	d.source = source
	d.fallback = fallback
	d.message = message
	if d.raster == nil {
		d.raster = render.NewRaster(req.Width, req.Height)
	}
	d.finishRebuild()
	d.logger.Info("Grid applied.",
		zap.Uint64("generation", gen),
		zap.Int("cols", grid.Cols),
		zap.Int("rows", grid.Rows),
		zap.Bool("fallback", fallback),
	)
}

// finishRebuild marks the current generation done. Caller holds mu.
func (d *Driver) finishRebuild() {
	d.pending = false
	d.cancelRebuild = nil
	close(d.ready)
}

func errorText(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}

// WaitReady blocks until no rebuild is outstanding.
func (d *Driver) WaitReady(ctx context.Context) error {
	d.mu.Lock()
	ready := d.ready
	d.mu.Unlock()
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Tick advances the simulation by one frame and draws it. It reports
// whether a frame was produced; ticks during a rebuild or after Close are
// no-ops.
func (d *Driver) Tick() bool {
	s := d.settings.Load()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.pending || d.grid == nil {
		return false
	}

	ptr := d.pointer.Position()
	d.t += field.TimeStep
	active := field.Step(d.grid, ptr, d.t, s.params)
	frame := render.Plan(d.grid, ptr, d.t, s.style)
	d.raster.Draw(frame, d.source)
	d.frames++

	d.publish(frame)
	d.logger.Debug("Tick.", zap.Uint64("frame", d.frames), zap.Int("active", active))
	return true
}

// publish copies the raster into the snapshot buffer. Caller holds mu.
func (d *Driver) publish(frame *render.Frame) {
	img := d.raster.Image()

	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	if d.snapImg == nil || d.snapImg.Rect != img.Rect {
		d.snapImg = image.NewRGBA(img.Rect)
	}
	copy(d.snapImg.Pix, img.Pix)
	d.snapPlan = frame
	d.snapFrame = d.frames
	d.snapTime = d.t
}

// Advance runs n ticks and returns how many produced a frame.
func (d *Driver) Advance(n int) int {
	produced := 0
	for i := 0; i < n; i++ {
		if d.Tick() {
			produced++
		}
	}
	return produced
}

// Run ticks once per pacer release until ctx is cancelled or the driver is
// closed. Cancellation is a clean stop and returns nil.
func (d *Driver) Run(ctx context.Context, pacer Pacer) error {
	d.logger.Info("Frame loop started.")
	defer d.logger.Info("Frame loop stopped.")
	for {
		if err := pacer.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pacer failed: %w", err)
		}
		if d.isClosed() {
			return ErrClosed
		}
		d.Tick()
	}
}

func (d *Driver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// UpdateConfig swaps in new simulation settings for the next tick. A
// resolution change also starts a rebuild.
func (d *Driver) UpdateConfig(sim config.SimulationConfig) error {
	s, err := newSettings(sim)
	if err != nil {
		return err
	}
	prev := d.settings.Swap(s)
	if prev.sim.Resolution == s.sim.Resolution {
		return nil
	}

	d.mu.Lock()
	req := d.request
	d.mu.Unlock()
	if req.Width == 0 {
		// Never built; the first Rebuild picks up the new resolution.
		return nil
	}
	req.Cols = s.sim.Resolution
	_, err = d.Rebuild(d.baseCtx, req)
	return err
}

// Resize rebuilds for a new viewport. Same-size calls are ignored.
func (d *Driver) Resize(width, height int) error {
	d.mu.Lock()
	req := d.request
	d.mu.Unlock()
	if req.Width == width && req.Height == height {
		return nil
	}
	req.Width, req.Height = width, height
	_, err := d.Rebuild(d.baseCtx, req)
	return err
}

// SetSource rebuilds from a new image, keeping the current grid shape.
func (d *Driver) SetSource(src string) error {
	d.mu.Lock()
	req := d.request
	d.mu.Unlock()
	req.Source = src
	_, err := d.Rebuild(d.baseCtx, req)
	return err
}

// Snapshot returns a copy of the last completed frame. ok is false until
// the first frame has been drawn.
func (d *Driver) Snapshot() (snap Snapshot, ok bool) {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	if d.snapImg == nil {
		return Snapshot{}, false
	}
	img := image.NewRGBA(d.snapImg.Rect)
	copy(img.Pix, d.snapImg.Pix)
	return Snapshot{
		ID:    uuid.NewString(),
		Frame: d.snapFrame,
		Time:  d.snapTime,
		Image: img,
		Plan:  d.snapPlan,
	}, true
}

// View calls fn with the last completed frame, without copying. fn must not
// retain img. It reports false until the first frame has been drawn.
func (d *Driver) View(fn func(img *image.RGBA, frame uint64)) bool {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	if d.snapImg == nil {
		return false
	}
	fn(d.snapImg, d.snapFrame)
	return true
}

// Viewport returns the size of the most recently requested grid.
func (d *Driver) Viewport() (width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.request.Width, d.request.Height
}

// Status reports readiness, fallback state and counters.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Ready:      !d.pending && d.grid != nil,
		Fallback:   d.fallback,
		Message:    d.message,
		Generation: d.generation,
		Frames:     d.frames,
		Source:     d.request.Source,
	}
}

// Simulation returns the settings the next tick will use.
func (d *Driver) Simulation() config.SimulationConfig {
	return d.settings.Load().sim
}

// Grid returns the current grid for read-only inspection. Callers must not
// use it concurrently with ticks.
func (d *Driver) Grid() *field.Grid {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grid
}

// Close cancels outstanding rebuilds, waits for them, and stops all ticks.
// It is safe to call more than once.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	if d.pending {
		d.pending = false
		close(d.ready)
	}
	d.mu.Unlock()

	d.baseCancel()
	d.wg.Wait()
	d.logger.Info("Driver closed.", zap.Uint64("frames", d.Status().Frames))
	return nil
}
