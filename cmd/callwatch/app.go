package main

import (
	"context"
	"fmt"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/erauner12/callwatch/internal/db"
	"github.com/erauner12/callwatch/internal/dispatch"
	"github.com/erauner12/callwatch/internal/feed"
	"github.com/erauner12/callwatch/internal/harvest"
	"github.com/erauner12/callwatch/internal/journal"
	"github.com/rs/zerolog/log"
)

// app is the wired engine shared by every command
type app struct {
	cfg       *config.Config
	feed      *feed.Drive
	journal   journal.Journal
	harvester *harvest.Harvester

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	drv, err := feed.NewDrive(ctx, feed.DriveOptions{
		CredentialsFile: cfg.Drive.CredentialsFile,
		Impersonate:     cfg.Drive.Impersonate,
		AllDrives:       cfg.Drive.AllDrives,
	})
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	a.feed = drv

	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		pg, err := journal.NewPostgres(ctx, pool)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.journal = pg
		log.Info().Msg("delivery journal: postgres")
	} else {
		a.journal = journal.NewMemory(cfg.Dispatch.JournalSize)
		log.Info().Int("capacity", cfg.Dispatch.JournalSize).Msg("delivery journal: in-memory")
	}

	dispatcher := dispatch.NewClient(dispatch.Options{
		Endpoint:  cfg.EffectiveDispatchURL(),
		Timeout:   cfg.Dispatch.Timeout,
		BodyLimit: cfg.Dispatch.BodyLogLength,
		Journal:   a.journal,
	})

	a.harvester = harvest.New(harvest.Options{
		Feed:         drv,
		Dispatcher:   dispatcher,
		RootFolderID: cfg.RootFolderID,
		PageSize:     cfg.Drive.PageSize,
		CacheSize:    cfg.Drive.AncestryCacheSize,
	})

	if err := cfg.RequireHarvest(); err != nil {
		log.Warn().Err(err).Msg("harvesting is not configured; passes will be refused")
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
