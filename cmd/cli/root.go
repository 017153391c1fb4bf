package main

import (
	"os"
	"strings"
	"time"

	"image-jobs/internal/client"
	"image-jobs/internal/poller"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const defaultAPIURL = "http://localhost:8080"

type commandContext struct {
	apiURL      string
	interval    time.Duration
	maxAttempts int
	verbose     bool
}

func (c *commandContext) client() *client.Client {
	return client.New(strings.TrimSpace(c.apiURL), nil)
}

func (c *commandContext) logger() *zerolog.Logger {
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
	return &logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	apiDefault := os.Getenv("IMAGE_JOBS_API")
	if apiDefault == "" {
		apiDefault = defaultAPIURL
	}

	rootCmd := &cobra.Command{
		Use:           "image-jobs",
		Short:         "Submit images for processing and fetch the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.apiURL, "api", apiDefault, "Base URL of the image-jobs API")
	rootCmd.PersistentFlags().DurationVar(&ctx.interval, "interval", poller.DefaultInterval, "Delay between status queries")
	rootCmd.PersistentFlags().IntVar(&ctx.maxAttempts, "max-attempts", poller.DefaultMaxAttempts, "Status queries before giving up")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log every polling step")

	rootCmd.AddCommand(newProcessCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newDownloadCommand(ctx))

	return rootCmd
}
