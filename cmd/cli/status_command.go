package main

import (
	"errors"
	"fmt"

	"image-jobs/internal/client"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := ctx.client().JobStatus(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, client.ErrJobNotFound) {
					return fmt.Errorf("job %s not found", args[0])
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:    %s\n", job.ID)
			fmt.Fprintf(out, "Status: %s\n", job.Status)
			if job.ResultKey != "" {
				fmt.Fprintf(out, "Result: %s\n", job.ResultKey)
			}
			if job.Error != "" {
				fmt.Fprintf(out, "Error:  %s\n", job.Error)
			}
			return nil
		},
	}
}
