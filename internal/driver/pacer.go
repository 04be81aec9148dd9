// internal/driver/pacer.go
package driver

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer gates the frame loop. Wait blocks until the next frame is due or ctx
// is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer releases frames at a fixed rate.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer paces at fps frames per second. Non-positive values mean 60.
func NewRatePacer(fps int) *RatePacer {
	if fps <= 0 {
		fps = 60
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(fps), 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// ManualPacer releases one frame per Step call.
type ManualPacer struct {
	ch chan struct{}
}

// NewManualPacer returns an unbuffered manual pacer.
func NewManualPacer() *ManualPacer {
	return &ManualPacer{ch: make(chan struct{})}
}

// Step releases one frame, blocking until the loop takes it or ctx is done.
func (p *ManualPacer) Step(ctx context.Context) error {
	select {
	case p.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ManualPacer) Wait(ctx context.Context) error {
	select {
	case <-p.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Wait(ctx context.Context) error {
	return ctx.Err()
}
