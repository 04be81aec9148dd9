// internal/driver/driver_test.go
package driver

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/field"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/sampler"
)

// -- Test Helpers --

// fakeSampler returns a uniform map per source. Sources listed in gates
// block until their gate is closed or the context ends.
type fakeSampler struct {
	mu     sync.Mutex
	values map[string]float32
	gates  map[string]chan struct{}
	fail   map[string]error
	calls  []string
}

func newFakeSampler() *fakeSampler {
	return &fakeSampler{
		values: map[string]float32{},
		gates:  map[string]chan struct{}{},
		fail:   map[string]error{},
	}
}

func (f *fakeSampler) gate(src string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[src] = ch
	return ch
}

func (f *fakeSampler) Sample(ctx context.Context, src string, sx, sy int) (*sampler.BrightnessMap, error) {
	f.mu.Lock()
	f.calls = append(f.calls, src)
	gate := f.gates[src]
	failErr := f.fail[src]
	v, ok := f.values[src]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &sampler.ImageLoadError{Source: src, Cause: ctx.Err()}
		}
	}
	if failErr != nil {
		return nil, &sampler.ImageLoadError{Source: src, Cause: failErr}
	}
	if !ok {
		v = 0.5
	}
	data := make([]float32, sx*sy)
	for i := range data {
		data[i] = v
	}
	src1 := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src1.Set(0, 0, color.White)
	return &sampler.BrightnessMap{Data: data, Width: sx, Height: sy, Source: src1}, nil
}

func testSim() config.SimulationConfig {
	sim := config.DefaultSimulation()
	sim.Resolution = 16
	return sim
}

func newTestDriver(t *testing.T, smp FieldSampler, src pointer.Source) *Driver {
	t.Helper()
	d, err := New(zaptest.NewLogger(t), smp, src, testSim())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func waitReady(t *testing.T, d *Driver) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.WaitReady(ctx))
}

var viewport = Request{Source: "ok", Width: 64, Height: 48}

// -- Test Cases --

func TestNew_ValidatesDependencies(t *testing.T) {
	logger := zap.NewNop()
	smp := newFakeSampler()
	tr := pointer.NewTracker()

	_, err := New(nil, smp, tr, testSim())
	assert.Error(t, err)
	_, err = New(logger, nil, tr, testSim())
	assert.Error(t, err)
	_, err = New(logger, smp, nil, testSim())
	assert.Error(t, err)

	bad := testSim()
	bad.LineColor = "not-a-colour"
	_, err = New(logger, smp, tr, bad)
	assert.Error(t, err)
}

func TestDriver_SingleColumn(t *testing.T) {
	sim := testSim()
	sim.Resolution = 1
	d, err := New(zaptest.NewLogger(t), newFakeSampler(), pointer.NewTracker(), sim)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)

	g := d.Grid()
	assert.Equal(t, 1, g.Cols)
	assert.Equal(t, 1, g.Rows)
	assert.Equal(t, 64.0, g.GapX, "a single column spans the full width")
	assert.Equal(t, 1, d.Advance(1))
}

func TestDriver_RebuildThenTick(t *testing.T) {
	d := newTestDriver(t, newFakeSampler(), pointer.NewTracker())

	assert.False(t, d.Tick(), "no grid yet")
	_, ok := d.Snapshot()
	assert.False(t, ok)

	gen, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	waitReady(t, d)

	st := d.Status()
	assert.True(t, st.Ready)
	assert.False(t, st.Fallback)
	assert.Empty(t, st.Message)
	assert.Equal(t, "ok", st.Source)

	g := d.Grid()
	assert.Equal(t, 16, g.Cols)
	assert.Equal(t, 12, g.Rows, "rows follow the viewport aspect")

	assert.Equal(t, 3, d.Advance(3))
	assert.Equal(t, uint64(3), d.Status().Frames)

	snap, ok := d.Snapshot()
	require.True(t, ok)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, uint64(3), snap.Frame)
	assert.InDelta(t, 3*field.TimeStep, snap.Time, 1e-12)
	assert.Equal(t, image.Rect(0, 0, 64, 48), snap.Image.Rect)
	require.NotNil(t, snap.Plan)
	assert.Len(t, snap.Plan.Rows, 12)
}

func TestDriver_SnapshotIsACopy(t *testing.T) {
	d := newTestDriver(t, newFakeSampler(), pointer.NewTracker())
	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)
	require.True(t, d.Tick())

	a, _ := d.Snapshot()
	for i := range a.Image.Pix {
		a.Image.Pix[i] = 0xAB
	}
	b, _ := d.Snapshot()
	assert.NotEqual(t, a.Image.Pix, b.Image.Pix)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestDriver_TickIsNoopWhileRebuilding(t *testing.T) {
	smp := newFakeSampler()
	gate := smp.gate("slow")
	d := newTestDriver(t, smp, pointer.NewTracker())

	_, err := d.Rebuild(context.Background(), Request{Source: "slow", Width: 64, Height: 48})
	require.NoError(t, err)
	assert.False(t, d.Tick())
	assert.False(t, d.Status().Ready)

	close(gate)
	waitReady(t, d)
	assert.True(t, d.Tick())
}

func TestDriver_LastRequestWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	smp := newFakeSampler()
	smp.values["a"] = 0.1
	smp.values["b"] = 0.9
	gate := smp.gate("a")
	core, logs := observer.New(zap.DebugLevel)

	d, err := New(zap.New(core), smp, pointer.NewTracker(), testSim())
	require.NoError(t, err)

	gen1, err := d.Rebuild(context.Background(), Request{Source: "a", Width: 64, Height: 48})
	require.NoError(t, err)
	gen2, err := d.Rebuild(context.Background(), Request{Source: "b", Width: 64, Height: 48})
	require.NoError(t, err)
	assert.Greater(t, gen2, gen1)

	waitReady(t, d)
	st := d.Status()
	assert.Equal(t, gen2, st.Generation)
	assert.Equal(t, "b", st.Source)
	assert.False(t, st.Fallback, "the superseded failure must not leak into status")
	assert.InDelta(t, 0.9, d.Grid().At(0, 0).Z, 1e-6)

	close(gate)
	require.NoError(t, d.Close())
	assert.Equal(t, 1, logs.FilterMessage("Discarding superseded grid.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Grid applied.").Len())
}

func TestDriver_FallbackOnSamplerFailure(t *testing.T) {
	smp := newFakeSampler()
	smp.fail["missing.png"] = errors.New("HTTP 404")
	d := newTestDriver(t, smp, pointer.NewTracker())

	_, err := d.Rebuild(context.Background(), Request{Source: "missing.png", Width: 64, Height: 48})
	require.NoError(t, err)
	waitReady(t, d)

	st := d.Status()
	assert.True(t, st.Ready)
	assert.True(t, st.Fallback)
	assert.True(t, strings.HasPrefix(st.Message, "Source unavailable: "), st.Message)
	assert.True(t, strings.HasSuffix(st.Message, ". Using synthesis."), st.Message)
	assert.Contains(t, st.Message, "HTTP 404")

	g := d.Grid()
	assert.Equal(t, 0.0, g.At(0, 0).Z, "corners of the synthetic field are dark")
	assert.Greater(t, g.At(8, 6).Z, 0.9, "centre is bright")
	assert.True(t, d.Tick(), "the fallback field animates")

	// A later good source clears the fallback.
	_, err = d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)
	assert.False(t, d.Status().Fallback)
	assert.Empty(t, d.Status().Message)
}

func TestDriver_UpdateConfig(t *testing.T) {
	d := newTestDriver(t, newFakeSampler(), pointer.NewTracker())
	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)
	gen := d.Status().Generation

	t.Run("tuning applies without a rebuild", func(t *testing.T) {
		sim := d.Simulation()
		sim.Amplitude = 40
		require.NoError(t, d.UpdateConfig(sim))
		assert.Equal(t, gen, d.Status().Generation)
		assert.Equal(t, 40.0, d.Simulation().Amplitude)
		assert.True(t, d.Tick())
	})

	t.Run("resolution change rebuilds", func(t *testing.T) {
		sim := d.Simulation()
		sim.Resolution = 8
		require.NoError(t, d.UpdateConfig(sim))
		waitReady(t, d)
		assert.Equal(t, gen+1, d.Status().Generation)
		assert.Equal(t, 8, d.Grid().Cols)
		assert.Equal(t, 6, d.Grid().Rows)
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		sim := d.Simulation()
		sim.BackgroundColor = "#zz"
		assert.Error(t, d.UpdateConfig(sim))
		assert.Equal(t, "#050505", d.Simulation().BackgroundColor)
	})
}

func TestDriver_Resize(t *testing.T) {
	d := newTestDriver(t, newFakeSampler(), pointer.NewTracker())
	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)
	gen := d.Status().Generation

	require.NoError(t, d.Resize(64, 48))
	assert.Equal(t, gen, d.Status().Generation, "same size is a no-op")

	require.NoError(t, d.Resize(128, 32))
	waitReady(t, d)
	assert.Equal(t, gen+1, d.Status().Generation)
	assert.Equal(t, 128.0, d.Grid().Width)
	assert.Equal(t, 4, d.Grid().Rows)

	require.True(t, d.Tick())
	snap, _ := d.Snapshot()
	assert.Equal(t, image.Rect(0, 0, 128, 32), snap.Image.Rect)

	_, err = d.Rebuild(context.Background(), Request{Source: "ok", Width: 0, Height: 10})
	assert.ErrorIs(t, err, field.ErrDimensions)
}

func TestDriver_SetSource(t *testing.T) {
	smp := newFakeSampler()
	smp.values["next"] = 0.25
	d := newTestDriver(t, smp, pointer.NewTracker())
	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)

	require.NoError(t, d.SetSource("next"))
	waitReady(t, d)
	assert.Equal(t, "next", d.Status().Source)
	assert.Equal(t, 16, d.Grid().Cols)
	assert.InDelta(t, 0.25, d.Grid().At(3, 3).Z, 1e-6)
}

func TestDriver_PointerDrivesPlan(t *testing.T) {
	tr := pointer.NewTracker()
	d := newTestDriver(t, newFakeSampler(), tr)
	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)

	require.True(t, d.Tick())
	calm, _ := d.Snapshot()
	assert.Nil(t, calm.Plan.Glow, "initial pointer is off-canvas")
	assert.Nil(t, calm.Plan.Spectral)

	tr.Move(32, 24)
	require.True(t, d.Tick())
	hot, _ := d.Snapshot()
	require.NotNil(t, hot.Plan.Glow)
	require.NotNil(t, hot.Plan.Spectral)
	active := 0
	for _, row := range hot.Plan.Rows {
		if row.Active {
			active++
		}
	}
	assert.Greater(t, active, 0)

	tr.Leave()
	require.True(t, d.Tick())
	gone, _ := d.Snapshot()
	assert.Nil(t, gone.Plan.Glow)
}

func TestDriver_RunWithManualPacer(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := New(zap.NewNop(), newFakeSampler(), pointer.NewTracker(), testSim())
	require.NoError(t, err)
	defer d.Close()
	_, err = d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	waitReady(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	pacer := NewManualPacer()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, pacer) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Step(ctx))
	}
	require.Eventually(t, func() bool { return d.Status().Frames == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDriver_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	smp := newFakeSampler()
	smp.gate("stuck")
	d, err := New(zap.NewNop(), smp, pointer.NewTracker(), testSim())
	require.NoError(t, err)

	_, err = d.Rebuild(context.Background(), Request{Source: "stuck", Width: 64, Height: 48})
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the outstanding rebuild")
	}

	assert.False(t, d.Tick())
	_, err = d.Rebuild(context.Background(), viewport)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.WaitReady(context.Background()), ErrClosed)
	assert.NoError(t, d.Close(), "second Close is a no-op")

	err = d.Run(context.Background(), NoPacer{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDriver_RebuildTimeout(t *testing.T) {
	smp := newFakeSampler()
	smp.gate("hang")
	d, err := New(zap.NewNop(), smp, pointer.NewTracker(), testSim(), WithRebuildTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Rebuild(context.Background(), Request{Source: "hang", Width: 64, Height: 48})
	require.NoError(t, err)
	waitReady(t, d)

	st := d.Status()
	assert.True(t, st.Fallback)
	assert.Contains(t, st.Message, context.DeadlineExceeded.Error())
}

func TestDriver_ViewAndViewport(t *testing.T) {
	d := newTestDriver(t, newFakeSampler(), pointer.NewTracker())
	assert.False(t, d.View(func(*image.RGBA, uint64) {}), "no frame before the first tick")

	_, err := d.Rebuild(context.Background(), viewport)
	require.NoError(t, err)
	w, h := d.Viewport()
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)

	waitReady(t, d)
	require.True(t, d.Tick())

	var seen uint64
	ok := d.View(func(img *image.RGBA, frame uint64) {
		seen = frame
		assert.Equal(t, image.Rect(0, 0, 64, 48), img.Rect)
	})
	assert.True(t, ok)
	assert.Equal(t, uint64(1), seen)
}
