package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/app"
	"github.com/Alias1177/RiskAgent/internal/config"
	"github.com/Alias1177/RiskAgent/internal/monitor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.LogLevel)

	if cfg.TwelveAPIKey == "" {
		log.Fatal().Msg("TWELVE_API_KEY not set in environment")
	}

	journal, closeJournal, err := app.OpenJournal(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize journal")
	}
	defer closeJournal()

	notifier, err := app.NewNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := monitor.New(
		monitor.Config{Interval: cfg.MonitorInterval, CandleCount: cfg.CandleCount},
		journal,
		app.NewCandleProvider(cfg),
		app.NewTradeManager(cfg),
		notifier,
	)
	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Monitor stopped")
	}
}
