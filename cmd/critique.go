// File: cmd/critique.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flux-cli/internal/config"
	"github.com/xkilldash9x/flux-cli/internal/critique"
	"github.com/xkilldash9x/flux-cli/internal/observability"
	"github.com/xkilldash9x/flux-cli/internal/render"
	"github.com/xkilldash9x/flux-cli/internal/service"
)

// critiqueOptions holds the flags of the critique command.
type critiqueOptions struct {
	Frames  int
	History int
}

func newCritiqueCmd(factory service.ComponentFactory) *cobra.Command {
	var opts critiqueOptions

	cmd := &cobra.Command{
		Use:   "critique",
		Short: "Render a frame and ask the critic what it sees",
		Long: `Critique renders a frame the same way as render, sends it to the configured
Gemini model and prints the reply as a card. When database.url is set the
critique is archived; --history lists the archive instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runCritique(ctx, cfg, factory, observability.GetLogger(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 120, "frames to advance before the critique")
	cmd.Flags().IntVar(&opts.History, "history", 0, "print the N most recent archived critiques and exit")
	return cmd
}

func runCritique(ctx context.Context, cfg config.Interface, factory service.ComponentFactory, logger *zap.Logger, opts critiqueOptions, out io.Writer) error {
	if opts.Frames < 1 {
		return fmt.Errorf("--frames must be at least 1 (got %d)", opts.Frames)
	}

	comps, err := factory.Create(ctx, cfg, service.Options{Critic: true}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer comps.Shutdown()
	if comps.Critic == nil {
		return errors.New("critic is not configured")
	}

	if opts.History > 0 {
		return printHistory(ctx, comps.Critic, opts.History, out)
	}

	snap, err := renderFrames(ctx, comps, opts.Frames)
	if err != nil {
		return err
	}
	var png bytes.Buffer
	if err := render.EncodePNG(&png, snap.Image); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	rec, err := comps.Critic.Review(ctx, critique.Request{
		PNG:        png.Bytes(),
		SnapshotID: snap.ID,
		Source:     comps.Driver.Status().Source,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderCard(rec))
	return nil
}

func printHistory(ctx context.Context, critic *critique.Service, limit int, out io.Writer) error {
	recs, err := critic.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No archived critiques.")
		return nil
	}
	for _, rec := range recs {
		fmt.Fprintln(out, renderCard(rec))
	}
	return nil
}
