// File: cmd/render.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/observability"
	"github.com/xkilldash9x/flux-cli/internal/render"
	"github.com/xkilldash9x/flux-cli/internal/service"
)

// renderOptions holds the flags of the render command.
type renderOptions struct {
	Frames int
	Output string
	SVG    string
}

func newRenderCmd(factory service.ComponentFactory) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the field after N frames to a PNG (and optionally SVG)",
		Long: `Render builds the grid from the source image, advances it with the scripted
pointer from driver.pointer and writes the final frame. Use "-" as the output
to write the PNG to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runRender(ctx, cfg, factory, observability.GetLogger(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 120, "frames to advance before writing")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "flux.png", "PNG output path, or - for stdout")
	cmd.Flags().StringVar(&opts.SVG, "svg", "", "also write a vector snapshot to this path")
	return cmd
}

func runRender(ctx context.Context, cfg config.Interface, factory service.ComponentFactory, logger *zap.Logger, opts renderOptions, out io.Writer) error {
	if opts.Frames < 1 {
		return fmt.Errorf("--frames must be at least 1 (got %d)", opts.Frames)
	}

	comps, err := factory.Create(ctx, cfg, service.Options{}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer comps.Shutdown()

	snap, err := renderFrames(ctx, comps, opts.Frames)
	if err != nil {
		return err
	}

	if err := writeOutput(opts.Output, out, func(w io.Writer) error {
		return render.EncodePNG(w, snap.Image)
	}); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	if opts.SVG != "" {
		backlight := !comps.Driver.Status().Fallback
		if err := writeOutput(opts.SVG, out, func(w io.Writer) error {
			return render.EncodeSVG(w, snap.Plan, backlight)
		}); err != nil {
			return fmt.Errorf("failed to write SVG: %w", err)
		}
	}

	logger.Info("Frame rendered.",
		zap.Uint64("frame", snap.Frame),
		zap.String("output", opts.Output),
		zap.String("svg", opts.SVG),
	)
	if opts.Output != "-" {
		fmt.Fprintf(out, "Rendered frame %d to %s\n", snap.Frame, opts.Output)
	}
	return nil
}

// renderFrames starts the driver, advances it and returns the last frame.
func renderFrames(ctx context.Context, comps *service.Components, frames int) (driver.Snapshot, error) {
	if err := comps.Start(ctx); err != nil {
		return driver.Snapshot{}, err
	}
	if _, err := comps.RunSession(ctx, service.SessionOptions{Frames: frames}); err != nil {
		return driver.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return driver.Snapshot{}, err
	}
	snap, ok := comps.Driver.Snapshot()
	if !ok {
		return driver.Snapshot{}, errors.New("no frame was rendered")
	}
	return snap, nil
}

// writeOutput creates path (with ~ expanded) and hands it to write. The path
// "-" writes to stdout instead.
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	f, err := os.Create(expanded)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
