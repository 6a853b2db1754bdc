package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erauner12/callwatch/internal/auth"
	"github.com/erauner12/callwatch/internal/httpapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var cursor string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server that receives Drive push notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cursor)
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "resume from this change cursor instead of the feed's current position")
	return cmd
}

func runServe(opts *RootOptions, cursor string) error {
	cfg := opts.cfg
	ctx := context.Background()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cursor != "" {
		a.harvester.Tracker().AdvanceTo(cursor)
		log.Info().Str("cursor", cursor).Msg("cursor seeded from flag")
	}

	srv := &httpapi.Server{
		Config:    cfg,
		Harvester: a.harvester,
		Journal:   a.journal,
		Version:   version,
	}

	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.Operator.HS256Secret,
		DevMode:     cfg.Operator.DevMode,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(jwtCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("rootFolderId", cfg.RootFolderID).
			Str("dispatchUrl", cfg.EffectiveDispatchURL()).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
