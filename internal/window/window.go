// internal/window/window.go
package window

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/ncruces/zenity"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/render"
)

// Driver is the part of *driver.Driver the window uses.
type Driver interface {
	Tick() bool
	View(fn func(img *image.RGBA, frame uint64)) bool
	Viewport() (width, height int)
	Resize(width, height int) error
	SetSource(src string) error
	Snapshot() (driver.Snapshot, bool)
	Status() driver.Status
}

// CritiqueFunc reviews an encoded PNG frame and returns a one-line summary.
type CritiqueFunc func(ctx context.Context, snap driver.Snapshot, png []byte) (string, error)

// Picker asks the user for an image path. An empty path means cancelled.
type Picker func() (string, error)

// Game is the ebiten host. Each ebiten Update is exactly one driver tick.
type Game struct {
	logger  *zap.Logger
	drv     Driver
	tracker *pointer.Tracker
	ctx     context.Context

	saveDir string
	picker  Picker
	critic  CritiqueFunc

	quit    atomic.Bool
	busy    atomic.Bool
	showHUD bool
	screenW int
	screenH int
	staging *ebiten.Image

	mu     sync.Mutex
	notice string
}

// Option configures a Game.
type Option func(*Game)

// WithSaveDir sets where S writes PNG snapshots.
func WithSaveDir(dir string) Option {
	return func(g *Game) { g.saveDir = dir }
}

// WithPicker replaces the native file dialog.
func WithPicker(p Picker) Option {
	return func(g *Game) { g.picker = p }
}

// WithCritic enables the C key.
func WithCritic(fn CritiqueFunc) Option {
	return func(g *Game) { g.critic = fn }
}

// New creates a Game bound to ctx; cancelling ctx closes the window.
func New(ctx context.Context, logger *zap.Logger, drv Driver, tracker *pointer.Tracker, opts ...Option) *Game {
	g := &Game{
		logger:  logger.Named("window"),
		drv:     drv,
		tracker: tracker,
		ctx:     ctx,
		saveDir: ".",
		picker:  pickImage,
		showHUD: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run opens the window and blocks until it is closed or ctx ends.
func (g *Game) Run(title string) error {
	w, h := g.drv.Viewport()
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	stop := context.AfterFunc(g.ctx, func() { g.quit.Store(true) })
	defer stop()

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("window closed with error: %w", err)
	}
	return nil
}

// Update handles input and advances the simulation one frame.
func (g *Game) Update() error {
	if g.quit.Load() {
		return ebiten.Termination
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape), inpututil.IsKeyJustPressed(ebiten.KeyQ):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		g.background("open", g.openImage)
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		g.saveSnapshot()
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		if g.critic != nil {
			g.background("critique", g.critique)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		g.showHUD = !g.showHUD
	}

	g.trackCursor()
	g.drv.Tick()
	return nil
}

// trackCursor maps the cursor into grid space, or clears the pointer when
// the cursor is outside the window.
func (g *Game) trackCursor() {
	cx, cy := ebiten.CursorPosition()
	if !ebiten.IsFocused() || !image.Pt(cx, cy).In(image.Rect(0, 0, g.screenW, g.screenH)) {
		g.tracker.Leave()
		return
	}
	vw, vh := g.drv.Viewport()
	g.tracker.Set(pointer.MapToCanvas(float64(cx), float64(cy),
		float64(g.screenW), float64(g.screenH), float64(vw), float64(vh)))
}

// Draw blits the last completed frame and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	g.drv.View(func(img *image.RGBA, _ uint64) {
		if img.Rect.Eq(screen.Bounds()) {
			screen.WritePixels(img.Pix)
			return
		}
		// Mid-resize: stretch the previous size until the rebuild lands.
		if g.staging == nil || !g.staging.Bounds().Eq(img.Rect) {
			if g.staging != nil {
				g.staging.Deallocate()
			}
			g.staging = ebiten.NewImage(img.Rect.Dx(), img.Rect.Dy())
		}
		g.staging.WritePixels(img.Pix)
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		sb := screen.Bounds()
		op.GeoM.Scale(float64(sb.Dx())/float64(img.Rect.Dx()), float64(sb.Dy())/float64(img.Rect.Dy()))
		screen.DrawImage(g.staging, op)
	})

	if g.showHUD {
		for i, line := range hudLines(g.drv.Status(), g.currentNotice(), g.critic != nil) {
			ebitenutil.DebugPrintAt(screen, line, 12, 12+i*16)
		}
	}
}

// Layout sizes the backing store in device pixels and rebuilds the grid
// when it changes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := ebiten.Monitor().DeviceScaleFactor()
	w, h := backingSize(outsideWidth, outsideHeight, scale)
	if w != g.screenW || h != g.screenH {
		g.screenW, g.screenH = w, h
		if err := g.drv.Resize(w, h); err != nil {
			g.logger.Warn("Failed to resize field.", zap.Error(err))
		}
	}
	return w, h
}

// background runs fn once at a time, off the ebiten goroutine.
func (g *Game) background(name string, fn func() error) {
	if !g.busy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer g.busy.Store(false)
		if err := fn(); err != nil {
			g.logger.Warn("Background action failed.", zap.String("action", name), zap.Error(err))
			g.setNotice(fmt.Sprintf("%s failed: %v", name, err))
		}
	}()
}

func (g *Game) openImage() error {
	path, err := g.picker()
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	g.logger.Info("Loading image.", zap.String("path", path))
	g.setNotice("Loading " + filepath.Base(path))
	return g.drv.SetSource(path)
}

func (g *Game) saveSnapshot() {
	path, err := saveSnapshot(g.drv, g.saveDir)
	if err != nil {
		g.logger.Warn("Failed to save snapshot.", zap.Error(err))
		g.setNotice("save failed: " + err.Error())
		return
	}
	g.logger.Info("Snapshot saved.", zap.String("path", path))
	g.setNotice("Saved " + path)
}

func (g *Game) critique() error {
	snap, ok := g.drv.Snapshot()
	if !ok {
		return errors.New("no frame yet")
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, snap.Image); err != nil {
		return err
	}
	g.setNotice("Consulting the critic...")
	summary, err := g.critic(g.ctx, snap, buf.Bytes())
	if err != nil {
		return err
	}
	g.setNotice(summary)
	return nil
}

func (g *Game) setNotice(s string) {
	g.mu.Lock()
	g.notice = s
	g.mu.Unlock()
}

func (g *Game) currentNotice() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.notice
}

// pickImage shows the native open dialog.
func pickImage() (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title("Open Image"),
		zenity.FileFilters{{
			Name:     "Images",
			Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.bmp", "*.tif", "*.tiff"},
		}},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return "", nil
	}
	return path, err
}

// saveSnapshot writes the last frame to dir and returns its path.
func saveSnapshot(drv Driver, dir string) (string, error) {
	snap, ok := drv.Snapshot()
	if !ok {
		return "", errors.New("no frame has been drawn yet")
	}
	path := filepath.Join(dir, fmt.Sprintf("flux-%06d-%s.png", snap.Frame, snap.ID[:8]))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := render.EncodePNG(f, snap.Image); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
