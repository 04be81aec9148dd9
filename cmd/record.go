// File: cmd/record.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/driver"
	"github.com/xkilldash9x/flux-cli/internal/observability"
	"github.com/xkilldash9x/flux-cli/internal/record"
	"github.com/xkilldash9x/flux-cli/internal/service"
)

func newRecordCmd(factory service.ComponentFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the animated field to a Motion-JPEG AVI",
		Long: `Record runs the frame loop at driver.fps for record.duration and writes
every frame to an AVI file. Interrupting the command keeps the frames
captured so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runRecord(ctx, cfg, factory, observability.GetLogger(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("output", "o", "", "AVI output path (default from record.output)")
	cmd.Flags().DurationP("duration", "d", 0, "recording length (default from record.duration)")
	cmd.Flags().Int("fps", 0, "frames per second (default from driver.fps)")
	cmd.Flags().Int("quality", 0, "JPEG quality 1-100 (default from record.jpeg_quality)")
	bindKey(cmd.Flags(), "output", "record.output")
	bindKey(cmd.Flags(), "duration", "record.duration")
	bindKey(cmd.Flags(), "fps", "driver.fps")
	bindKey(cmd.Flags(), "quality", "record.jpeg_quality")
	return cmd
}

func runRecord(ctx context.Context, cfg config.Interface, factory service.ComponentFactory, logger *zap.Logger, out io.Writer) error {
	rc := cfg.Record()
	fps := cfg.Driver().FPS
	frames := int(rc.Duration.Seconds() * float64(fps))
	if frames < 1 {
		return fmt.Errorf("record.duration %s is shorter than one frame at %d fps", rc.Duration, fps)
	}

	comps, err := factory.Create(ctx, cfg, service.Options{}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer comps.Shutdown()

	if err := comps.Start(ctx); err != nil {
		return err
	}

	vp := cfg.Viewport()
	rec, err := record.New(logger, record.Config{
		Path:    rc.Output,
		Width:   vp.Width,
		Height:  vp.Height,
		FPS:     fps,
		Quality: rc.JPEGQuality,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	_, runErr := comps.RunSession(ctx, service.SessionOptions{
		Frames: frames,
		Pacer:  driver.NewRatePacer(fps),
		Sink: func(_ context.Context, snap driver.Snapshot) error {
			return rec.AddFrame(snap.Image)
		},
	})
	// The AVI index is written on Close, so close even after an interrupt.
	if err := errors.Join(runErr, rec.Close()); err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}

	logger.Info("Recording complete.", zap.Int("frames", rec.Frames()), zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(out, "Recorded %d frames to %s\n", rec.Frames(), rec.Path())
	return ctx.Err()
}
