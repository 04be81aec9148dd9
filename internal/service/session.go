// File: internal/service/session.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/flux-cli/internal/driver"
)

// FrameSink receives each completed frame of a headless session.
type FrameSink func(ctx context.Context, snap driver.Snapshot) error

// SessionOptions controls a headless session.
type SessionOptions struct {
	// Frames is the number of frames to produce. Zero runs until ctx ends.
	Frames int
	// Pacer releases ticks. Nil ticks as fast as possible.
	Pacer driver.Pacer
	// Sink, if set, receives a snapshot of every produced frame.
	Sink FrameSink
}

// Start issues the initial rebuild and waits for the grid.
func (c *Components) Start(ctx context.Context) error {
	if _, err := c.Driver.Rebuild(ctx, c.InitialRequest()); err != nil {
		return fmt.Errorf("failed to start initial rebuild: %w", err)
	}
	if err := c.Driver.WaitReady(ctx); err != nil {
		return fmt.Errorf("grid never became ready: %w", err)
	}
	if st := c.Driver.Status(); st.Fallback {
		c.logger.Warn(st.Message)
	}
	return nil
}

// RunSession drives the frame loop alongside the pointer feed until the
// requested frames are produced or ctx ends. It returns the number of frames
// produced.
func (c *Components) RunSession(ctx context.Context, opts SessionOptions) (int, error) {
	pacer := opts.Pacer
	if pacer == nil {
		pacer = driver.NoPacer{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if c.Feed != nil {
		g.Go(func() error { return c.Feed.Run(gctx) })
	}

	produced := 0
	g.Go(func() error {
		// The feed stops with the loop.
		defer cancel()
		for opts.Frames <= 0 || produced < opts.Frames {
			if err := pacer.Wait(gctx); err != nil {
				return nil
			}
			if !c.Driver.Tick() {
				// A rebuild is in flight, e.g. after a config reload.
				if err := c.Driver.WaitReady(gctx); err != nil {
					if errors.Is(err, driver.ErrClosed) {
						return err
					}
					return nil
				}
				continue
			}
			produced++
			if opts.Sink == nil {
				continue
			}
			snap, ok := c.Driver.Snapshot()
			if !ok {
				continue
			}
			if err := opts.Sink(gctx, snap); err != nil {
				return fmt.Errorf("frame sink failed at frame %d: %w", snap.Frame, err)
			}
		}
		c.logger.Debug("Session complete.", zap.Int("frames", produced))
		return nil
	})

	err := g.Wait()
	return produced, err
}
