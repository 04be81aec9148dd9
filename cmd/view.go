// File: cmd/view.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/critique"
	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/observability"
	"github.com/xkilldash9x/flux-cli/internal/service"
	"github.com/xkilldash9x/flux-cli/internal/window"
)

const windowTitle = "FLUX"

// viewOptions holds the flags of the view command.
type viewOptions struct {
	SaveDir  string
	NoCritic bool
}

func newViewCmd(factory service.ComponentFactory) *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open an interactive window; the mouse drives the field",
		Long: `View opens a window that ticks the field once per display refresh.

Keys:
  O      open another image
  S      save the current frame as PNG
  C      ask the critic about the current frame (needs an API key)
  H      toggle the status overlay
  Esc/Q  quit

Edits to the simulation section of the config file apply live.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			comps, err := factory.Create(ctx, cfg, service.Options{
				Interactive: true,
				Critic:      !opts.NoCritic && cfg.Critic().APIKey != "",
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer comps.Shutdown()

			if v := getViperFromContext(ctx); v != nil {
				service.WatchConfig(v, comps.Driver, logger)
			}
			return runView(ctx, cfg, comps, logger, opts)
		},
	}

	cmd.Flags().StringVar(&opts.SaveDir, "save-dir", ".", "directory for PNG snapshots")
	cmd.Flags().BoolVar(&opts.NoCritic, "no-critic", false, "disable the C key even when an API key is set")
	return cmd
}

func runView(ctx context.Context, cfg config.Interface, comps *service.Components, logger *zap.Logger, opts viewOptions) error {
	if err := comps.Start(ctx); err != nil {
		return err
	}

	winOpts := []window.Option{window.WithSaveDir(opts.SaveDir)}
	if comps.Critic != nil {
		winOpts = append(winOpts, window.WithCritic(windowCritic(comps.Critic, comps.Driver)))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The window owns the main goroutine; the feed, if any, follows alongside.
	var g errgroup.Group
	if comps.Feed != nil {
		g.Go(func() error { return comps.Feed.Run(ctx) })
	}

	logger.Info("Opening window.", zap.String("source", cfg.Source().Image), zap.Bool("critic", comps.Critic != nil))
	runErr := window.New(ctx, logger, comps.Driver, comps.Tracker, winOpts...).Run(windowTitle)
	cancel()
	return errors.Join(runErr, g.Wait())
}

// statusReader reports the source currently on screen.
type statusReader interface {
	Status() driver.Status
}

// windowCritic adapts the critique service to the window's one-line notice.
// The source is read at review time since the window can open other images.
func windowCritic(svc *critique.Service, drv statusReader) window.CritiqueFunc {
	return func(ctx context.Context, snap driver.Snapshot, png []byte) (string, error) {
		rec, err := svc.Review(ctx, critique.Request{PNG: png, SnapshotID: snap.ID, Source: drv.Status().Source})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s", rec.Critique.Title, rec.Critique.Mood), nil
	}
}
