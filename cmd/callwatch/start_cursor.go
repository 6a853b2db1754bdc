package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewStartCursorCommand creates the start-cursor command
func NewStartCursorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start-cursor",
		Short: "Print the change feed's current start cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			token, err := a.feed.StartCursor(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
