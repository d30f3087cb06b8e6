package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/app"
	"github.com/Alias1177/RiskAgent/internal/config"
	"github.com/Alias1177/RiskAgent/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	app.SetupLogging(cfg.LogLevel)

	journal, closeJournal, err := app.OpenJournal(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize journal")
	}
	defer closeJournal()

	// A nil provider must stay an untyped nil interface
	var candles market.CandleProvider
	if cfg.TwelveAPIKey != "" {
		candles = app.NewCandleProvider(cfg)
	} else {
		log.Warn().Msg("TWELVE_API_KEY not set, requests must include candles")
	}

	srv := server.New(
		server.Config{Addr: cfg.HTTPAddr, CandleCount: cfg.CandleCount},
		app.NewRiskManager(cfg),
		app.NewTradeManager(cfg),
		journal,
		candles,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
