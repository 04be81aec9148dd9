// File: internal/service/components.go
package service

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/api/schemas"
	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/critique"
	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/network"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/sampler"
)

// Components holds every initialized service a command needs. It
// centralizes their lifecycle so commands only call Shutdown.
type Components struct {
	Config     config.Interface
	HTTPClient *network.Client
	Sampler    *sampler.Sampler
	Tracker    *pointer.Tracker
	// Script is set for headless runs with a synthetic pointer.
	Script *pointer.Script
	// Feed is set when driver.pointer_feed names a file to follow.
	Feed   *pointer.TailFeed
	Driver *driver.Driver

	// Critic and its collaborators exist only when requested.
	Critic     *critique.Service
	LLM        schemas.LLMClient
	Store      schemas.CritiqueStore
	closeStore func()

	logger *zap.Logger
}

// Shutdown releases components in reverse order of construction. It is
// safe on a partially built set.
func (c *Components) Shutdown() {
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Beginning components shutdown sequence.")

	// 1. Stop the frame loop and any outstanding rebuild.
	if c.Driver != nil {
		if err := c.Driver.Close(); err != nil {
			logger.Warn("Error closing driver.", zap.Error(err))
		}
	}

	// 2. The critic's client.
	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			logger.Warn("Error closing LLM client.", zap.Error(err))
		}
	}

	// 3. The archive pool.
	if c.closeStore != nil {
		c.closeStore()
		logger.Debug("Database connection pool closed.")
	}

	// 4. Pooled image connections.
	if c.HTTPClient != nil {
		c.HTTPClient.Close()
	}

	logger.Info("All components shut down successfully.")
}

// InitialRequest is the first rebuild: the configured source on the
// configured viewport at the configured resolution.
func (c *Components) InitialRequest() driver.Request {
	vp := c.Config.Viewport()
	return driver.Request{
		Source: c.Config.Source().Image,
		Cols:   c.Config.Simulation().Resolution,
		Width:  vp.Width,
		Height: vp.Height,
	}
}
