package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"image-jobs/internal/client"
	"image-jobs/internal/poller"

	"github.com/spf13/cobra"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		opts   client.SubmitOptions
		output string
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Submit an image, wait for processing and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			opts.FileName = filepath.Base(path)
			if output == "" {
				output = processedName(path)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api := ctx.client()
			id, err := api.Submit(runCtx, content, opts)
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", id)

			out := cmd.OutOrStdout()
			p := poller.New(api, api, poller.Config{
				Interval:    ctx.interval,
				MaxAttempts: ctx.maxAttempts,
				OnProgress: func(pr poller.Progress) {
					if pr.Err != nil {
						fmt.Fprintf(out, "  [%d/%d] status query failed: %v\n", pr.Attempt, pr.MaxAttempts, pr.Err)
						return
					}
					fmt.Fprintf(out, "  [%d/%d] %s\n", pr.Attempt, pr.MaxAttempts, pr.Status)
				},
			}, ctx.logger())

			outcome, err := p.Run(runCtx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, outcome.Message())

			switch {
			case outcome.State == poller.StateCancelled:
				return context.Canceled
			case outcome.Err != nil:
				return outcome.Err
			}

			if err := os.WriteFile(output, outcome.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(out, "Saved %s (%d bytes)\n", output, len(outcome.Data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Grayscale, "grayscale", false, "Convert to grayscale")
	cmd.Flags().BoolVar(&opts.Invert, "invert", false, "Invert colors")
	cmd.Flags().BoolVar(&opts.Blur, "blur", false, "Apply a box blur")
	cmd.Flags().BoolVar(&opts.Resize, "resize", false, "Fit within 1024 pixels")
	cmd.Flags().StringVar(&opts.Watermark, "watermark", "", "Watermark text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the result (default <name>_processed<ext>)")

	return cmd
}

func processedName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_processed" + ext
}
