package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/app"
	"github.com/Alias1177/RiskAgent/internal/config"
	"github.com/Alias1177/RiskAgent/internal/model"
	"github.com/Alias1177/RiskAgent/internal/trading/risk"
)

func main() {
	direction := flag.String("direction", "BUY", "trade direction: BUY/SELL (LONG/SHORT accepted)")
	entry := flag.Float64("entry", 0, "entry price, 0 uses the last close")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	sendNotification := flag.Bool("notify", false, "send the plan to Telegram")
	flag.Parse()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	app.SetupLogging(cfg.LogLevel)
	log.Info().Msg("Starting risk analyzer")

	// 3. Print configuration
	printConfig(cfg)

	dir, err := model.ParseDirection(*direction)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid direction")
	}

	// 4. Fetch market data
	client := app.NewCandleProvider(cfg)
	candles, err := client.GetCandles(ctx, cfg.Symbol, cfg.Interval, cfg.CandleCount)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch candles")
	}

	// 5. Evaluate
	manager := app.NewRiskManager(cfg)
	result, err := manager.Evaluate(ctx, risk.Request{
		Symbol:         cfg.Symbol,
		Timeframe:      cfg.Interval,
		Direction:      dir,
		EntryPrice:     *entry,
		AccountBalance: cfg.AccountBalance,
		RiskPercentage: cfg.RiskPercentage,
		Candles:        candles,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Risk evaluation failed")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Encoding result failed")
		}
	} else {
		printMarketAnalysis(candles, result)
		printPlan(result)
	}

	// 6. Journal and notify
	journal, closeJournal, err := app.OpenJournal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Journal unavailable, evaluation not saved")
	} else {
		defer closeJournal()
		if err := journal.SaveEvaluation(ctx, result); err != nil {
			log.Error().Err(err).Msg("Saving evaluation failed")
		}
	}

	if *sendNotification {
		notifier, err := app.NewNotifier(cfg)
		if err != nil {
			log.Error().Err(err).Msg("Notifier unavailable")
			return
		}
		if err := notifier.NotifyEvaluation(ctx, result); err != nil {
			log.Error().Err(err).Msg("Notification failed")
		}
	}
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Str("Symbol", cfg.Symbol).
		Str("Interval", cfg.Interval).
		Int("CandleCount", cfg.CandleCount).
		Int("ATRPeriod", cfg.ATRPeriod).
		Int("ADXPeriod", cfg.ADXPeriod).
		Int("RSIPeriod", cfg.RSIPeriod).
		Float64("AccountBalance", cfg.AccountBalance).
		Float64("RiskPercentage", cfg.RiskPercentage).
		Float64("MaxLeverage", cfg.MaxLeverage).
		Bool("AdvisorEnabled", cfg.AdvisorEnabled).
		Msg("Configuration loaded")
}

// printMarketAnalysis outputs the indicators and regime behind the plan
func printMarketAnalysis(candles []model.Candle, r *model.RiskManagementResult) {
	fmt.Println("\n===== MARKET ANALYSIS =====")

	latest := candles[len(candles)-1]
	fmt.Printf("Current Price: %.5f (O: %.5f, H: %.5f, L: %.5f, C: %.5f)\n",
		latest.Close, latest.Open, latest.High, latest.Low, latest.Close)

	ind := r.Indicators
	fmt.Printf("\nKey Indicators:\n")
	fmt.Printf("ATR: %.4f%% | ADX: %.2f | RSI: %.2f | MACD: %s\n", ind.ATR*100, ind.ADX, ind.RSI, ind.MACDSignal)
	fmt.Printf("Bollinger: %s | Volume: %s\n", ind.BollingerPosition, ind.VolumeProfile)

	reg := r.Regime
	fmt.Printf("\nMarket Regime: %s / %s (confidence %.2f, strength %d)\n",
		reg.PrimaryRegime, reg.SubRegime, reg.Confidence, reg.RegimeStrength)
	fmt.Printf("Direction: %s | Volatility: %s | Momentum: %d | Style: %s\n",
		reg.TrendDirection, reg.VolatilityRank, reg.MomentumStrength, reg.Style.Name)

	if anomaly := market.DetectMarketAnomalies(candles); anomaly.IsAnomaly {
		fmt.Printf("\nANOMALY DETECTED: %s (Score: %.2f)\n", anomaly.AnomalyType, anomaly.AnomalyScore)
		fmt.Printf("Details: %s\n", anomaly.Details)
	}

	if len(reg.KeyLevels.Support) > 0 {
		fmt.Printf("\nNearest Support Levels: %s\n", joinLevels(reg.KeyLevels.Support))
	}
	if len(reg.KeyLevels.Resistance) > 0 {
		fmt.Printf("Nearest Resistance Levels: %s\n", joinLevels(reg.KeyLevels.Resistance))
	}
}

// printPlan outputs the scenarios and the selected plan
func printPlan(r *model.RiskManagementResult) {
	fmt.Println("\n===== SCENARIOS =====")
	for i, s := range r.Scenarios {
		marker := " "
		if i == r.SelectedIndex {
			marker = "*"
		}
		fmt.Printf("%s %d. %-16s SL %.5f  TP %.5f  R:R %.2f  conf %.2f\n",
			marker, i, s.Type, s.StopLoss, s.TakeProfit, s.RiskRewardRatio, s.Confidence)
	}

	fmt.Println("\n===== PLAN =====")
	fmt.Printf("%s %s @ %.5f\n", r.Direction, r.Symbol, r.EntryPrice)
	fmt.Printf("Stop Loss: %.5f | Take Profit: %.5f | R:R %.2f\n", r.StopLoss, r.TakeProfit, r.RiskRewardRatio)
	fmt.Printf("Position Size: %.4f | Max Risk: %.2f | Confidence: %.2f\n", r.PositionSize, r.MaxRiskAmount, r.Confidence)
	fmt.Printf("Reasoning: %s\n", r.Reasoning)
	if len(r.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range r.Warnings {
			fmt.Printf("- %s\n", w)
		}
	}
	fmt.Println()
}

func joinLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.5f", l)
	}
	return strings.Join(parts, ", ")
}
