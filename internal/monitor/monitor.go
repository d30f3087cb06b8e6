// Package monitor periodically re-evaluates journaled open trades and reports
// every non-HOLD recommendation.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/database"
	"github.com/Alias1177/RiskAgent/internal/model"
	"github.com/Alias1177/RiskAgent/internal/notify"
)

// TradeEvaluator recommends an action for an open position
type TradeEvaluator interface {
	EvaluateWithCandles(trade model.OpenTradeContext, candles []model.Candle) model.TradeManagementDecision
}

// Config holds monitor settings
type Config struct {
	Interval    time.Duration
	CandleCount int
}

// Monitor checks open trades on every tick
type Monitor struct {
	config   Config
	journal  database.Journal
	candles  market.CandleProvider
	trades   TradeEvaluator
	notifier notify.Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

// Stats summarizes one scan
type Stats struct {
	Checked  int
	Actions  int
	Failures int
}

// New creates a monitor
func New(cfg Config, journal database.Journal, candles market.CandleProvider, trades TradeEvaluator, notifier notify.Notifier) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = 100
	}
	return &Monitor{
		config:   cfg,
		journal:  journal,
		candles:  candles,
		trades:   trades,
		notifier: notifier,
		now:      time.Now,
		logger:   log.With().Str("component", "trade_monitor").Logger(),
	}
}

// Run scans immediately and then on every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", m.config.Interval).Msg("Trade monitor started")
	for {
		if _, err := m.Scan(ctx); err != nil {
			m.logger.Error().Err(err).Msg("Scan failed")
		}

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Trade monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan evaluates every open trade once. A failing trade is logged and skipped.
func (m *Monitor) Scan(ctx context.Context) (Stats, error) {
	var stats Stats

	trades, err := m.journal.ListOpenTrades(ctx)
	if err != nil {
		return stats, err
	}

	for _, rec := range trades {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Checked++

		acted, err := m.check(ctx, rec)
		if err != nil {
			stats.Failures++
			m.logger.Error().Err(err).Str("trade_id", rec.ID).Str("symbol", rec.Symbol).Msg("Trade check failed")
			continue
		}
		if acted {
			stats.Actions++
		}
	}

	m.logger.Debug().
		Int("checked", stats.Checked).
		Int("actions", stats.Actions).
		Int("failures", stats.Failures).
		Msg("Scan completed")
	return stats, nil
}

func (m *Monitor) check(ctx context.Context, rec database.TradeRecord) (bool, error) {
	candles, err := m.candles.GetCandles(ctx, rec.Symbol, rec.Timeframe, m.config.CandleCount)
	if err != nil {
		return false, err
	}

	trade := rec.Context(m.now())
	decision := m.trades.EvaluateWithCandles(trade, candles)
	if decision.Action == model.ActionHold {
		return false, nil
	}

	if err := m.journal.ApplyDecision(ctx, rec.ID, decision); err != nil {
		return false, err
	}
	if len(candles) > 0 {
		trade.CurrentPrice = candles[len(candles)-1].Close
	}
	if err := m.notifier.NotifyDecision(ctx, trade, decision); err != nil {
		// The journal already reflects the decision
		m.logger.Warn().Err(err).Str("trade_id", rec.ID).Msg("Notification failed")
	}

	m.logger.Info().
		Str("trade_id", rec.ID).
		Str("action", string(decision.Action)).
		Float64("pnl_percent", decision.PnLPercent).
		Msg("Trade decision applied")
	return true, nil
}
