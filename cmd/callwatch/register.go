package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/erauner12/callwatch/internal/harvest"
	"github.com/spf13/cobra"
)

// NewRegisterCommand creates the register command
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a Drive push channel pointed at this service",
		Long: `Create a Drive push channel and print the registration as JSON.

The channel starts at the feed's current position. This process does not keep
the cursor; start the server with --cursor set to the printed startCursor, or
call POST /v1/watch on the running server instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if address == "" {
				address = opts.cfg.CallbackAddress()
			}
			reg, err := a.harvester.Register(ctx, harvest.RegisterRequest{
				Address: address,
				Token:   opts.cfg.WebhookToken,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reg)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "callback URL (default: PUBLIC_BASE_URL + /v1/drive/notifications)")
	return cmd
}
