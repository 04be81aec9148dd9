// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/critique"
	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/network"
	"github.com/xkilldash9x/flux-cli/internal/pointer"
	"github.com/xkilldash9x/flux-cli/internal/sampler"
)

// Options selects which optional components Create builds.
type Options struct {
	// Interactive hosts feed the tracker from real input; headless runs use
	// the scripted pointer unless a feed file is configured.
	Interactive bool
	// Critic builds the LLM client, the critique service and, when
	// database.url is set, the archive.
	Critic bool
	// PollFeed follows the pointer feed by stat polling.
	PollFeed bool
}

// ComponentFactory creates the set of components a command needs. The
// abstraction keeps command logic testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles dependency injection and initialization. On failure every
// component built so far is shut down.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, opts Options, logger *zap.Logger) (*Components, error) {
	components := &Components{Config: cfg, logger: logger}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. HTTP client for remote images.
	components.HTTPClient = network.NewClient(network.ClientConfigFrom(cfg.Network(), logger))
	logger.Debug("HTTP client initialized.")

	// 2. Sampler.
	components.Sampler = sampler.New(components.HTTPClient, logger)

	// 3. Pointer.
	components.Tracker = pointer.NewTracker()
	var src pointer.Source = components.Tracker
	drvCfg := cfg.Driver()
	switch {
	case drvCfg.PointerFeed != "":
		components.Feed = pointer.NewTailFeed(logger, drvCfg.PointerFeed, components.Tracker).WithPolling(opts.PollFeed)
	case !opts.Interactive:
		script, err := NewScript(cfg)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Script = script
		src = script
	}
	logger.Debug("Pointer source initialized.", zap.String("mode", drvCfg.Pointer), zap.Bool("feed", components.Feed != nil))

	// 4. Frame driver.
	drv, err := driver.New(logger, components.Sampler, src, cfg.Simulation(),
		driver.WithRebuildTimeout(drvCfg.RebuildTimeout))
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize frame driver: %w", err)
		return nil, initializationErr
	}
	components.Driver = drv
	logger.Debug("Frame driver initialized.")

	if !opts.Critic {
		logger.Info("All components initialized successfully.")
		return components, nil
	}

	// 5. LLM client.
	llm, err := InitializeLLMClient(ctx, cfg, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.LLM = llm

	// 6. Optional archive.
	serviceOpts := []critique.Option{critique.WithModelName(cfg.Critic().Model)}
	if cfg.Database().URL != "" {
		st, closeStore, err := InitializeStore(ctx, cfg.Database(), logger)
		if err != nil {
			initializationErr = err
			return nil, initializationErr
		}
		components.Store = st
		components.closeStore = closeStore
		serviceOpts = append(serviceOpts, critique.WithStore(st))
	}

	// 7. Critique service.
	critic, err := critique.NewService(logger, llm, serviceOpts...)
	if err != nil {
		initializationErr = fmt.Errorf("failed to initialize critique service: %w", err)
		return nil, initializationErr
	}
	components.Critic = critic

	logger.Info("All components initialized successfully.")
	return components, nil
}
