package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/database"
	"github.com/Alias1177/RiskAgent/internal/model"
	"github.com/Alias1177/RiskAgent/internal/trading/management"
)

type priceProvider struct {
	prices map[string]float64
	err    error
}

func (p priceProvider) GetCandles(_ context.Context, symbol, _ string, count int) ([]model.Candle, error) {
	if p.err != nil {
		return nil, p.err
	}
	price, ok := p.prices[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, count)
	for i := range candles {
		candles[i] = model.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price + 0.0001, Low: price - 0.0001, Close: price, Volume: 100,
		}
	}
	return candles, nil
}

type recordingNotifier struct {
	decisions []model.TradeManagementDecision
	err       error
}

func (n *recordingNotifier) NotifyEvaluation(context.Context, *model.RiskManagementResult) error {
	return nil
}

func (n *recordingNotifier) NotifyDecision(_ context.Context, _ model.OpenTradeContext, d model.TradeManagementDecision) error {
	n.decisions = append(n.decisions, d)
	return n.err
}

func setup(t *testing.T, prices map[string]float64) (*Monitor, *database.MemoryJournal, *recordingNotifier) {
	t.Helper()
	journal := database.NewMemoryJournal()
	opened := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	trades := []database.TradeRecord{
		// +2.1% of the account: breakeven
		{ID: "winner", Symbol: "EUR/USD", Timeframe: "1h", Direction: model.Buy, EntryPrice: 1.0800, StopLoss: 1.0780, TakeProfit: 1.0880, PositionSize: 70000, AccountBalance: 10000, OpenedAt: opened},
		// flat: hold
		{ID: "flat", Symbol: "GBP/USD", Timeframe: "1h", Direction: model.Sell, EntryPrice: 1.2500, StopLoss: 1.2550, PositionSize: 10000, AccountBalance: 10000, OpenedAt: opened},
	}
	for _, tr := range trades {
		if err := journal.OpenTrade(context.Background(), tr); err != nil {
			t.Fatal(err)
		}
	}

	notifier := &recordingNotifier{}
	m := New(Config{Interval: time.Minute, CandleCount: 40}, journal, priceProvider{prices: prices}, management.NewManager(technical.DefaultParams()), notifier)
	m.now = func() time.Time { return opened.Add(2 * time.Hour) }
	return m, journal, notifier
}

func TestScan(t *testing.T) {
	m, journal, notifier := setup(t, map[string]float64{"EUR/USD": 1.0830, "GBP/USD": 1.2500})

	stats, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if stats != (Stats{Checked: 2, Actions: 1}) {
		t.Errorf("Stats = %+v", stats)
	}
	if len(notifier.decisions) != 1 || notifier.decisions[0].Action != model.ActionAdjustStop {
		t.Fatalf("notified %+v", notifier.decisions)
	}

	open, _ := journal.ListOpenTrades(context.Background())
	for _, tr := range open {
		if tr.ID == "winner" && tr.StopLoss != 1.0800 {
			t.Errorf("winner stop = %v, want breakeven 1.08", tr.StopLoss)
		}
	}

	// Stop is at breakeven now; nothing new to report
	stats, _ = m.Scan(context.Background())
	if stats.Actions != 0 || len(notifier.decisions) != 1 {
		t.Errorf("second scan acted again: %+v", stats)
	}
}

func TestScanSkipsFailingTrades(t *testing.T) {
	m, _, notifier := setup(t, map[string]float64{"EUR/USD": 1.0830})

	stats, err := m.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if stats.Failures != 1 || stats.Actions != 1 {
		t.Errorf("Stats = %+v", stats)
	}
	if len(notifier.decisions) != 1 {
		t.Errorf("notified %d decisions", len(notifier.decisions))
	}
}

func TestScanNotificationFailureKeepsDecision(t *testing.T) {
	m, journal, notifier := setup(t, map[string]float64{"EUR/USD": 1.0830, "GBP/USD": 1.2500})
	notifier.err = errors.New("telegram down")

	stats, err := m.Scan(context.Background())
	if err != nil || stats.Actions != 1 {
		t.Fatalf("Scan() = %+v, %v", stats, err)
	}
	if n := len(journal.Decisions("winner")); n != 1 {
		t.Errorf("journal recorded %d decisions, want 1", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _, _ := setup(t, map[string]float64{"EUR/USD": 1.0800, "GBP/USD": 1.2500})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
