package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewHarvestCommand creates the harvest command
func NewHarvestCommand(opts *RootOptions) *cobra.Command {
	var cursor string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one harvesting pass and print its report",
		Long: `Run one harvesting pass against the change feed and print the report as JSON.

Without --cursor the pass starts at the feed's current position, so it only
sees changes made while it runs. Pass the endCursor of a previous report to
continue from where that pass stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if cursor != "" {
				a.harvester.Tracker().AdvanceTo(cursor)
			}

			rep, runErr := a.harvester.Run(ctx)
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "change cursor to start from")
	return cmd
}
