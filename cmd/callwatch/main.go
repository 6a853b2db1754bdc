package main

import (
	"os"
	"time"

	"github.com/erauner12/callwatch/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// setupLogging configures the global zerolog logger from cfg
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.With().Str("service", "callwatch").Logger()

	// Pretty logging for local dev
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	// log.Ctx falls back to the global logger for contexts that carry none
	zerolog.DefaultContextLogger = &log.Logger

	if err != nil {
		log.Warn().Str("logLevel", cfg.LogLevel).Msg("unknown log level, using info")
	}
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
