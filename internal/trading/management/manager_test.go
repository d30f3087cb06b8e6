package management

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestEvaluateRules(t *testing.T) {
	trending := model.IndicatorSet{ATR: 0.0005}

	tests := []struct {
		name       string
		trade      model.OpenTradeContext
		action     model.TradeAction
		newStop    *float64
		closePct   *float64
		confidence float64
		urgency    model.Urgency
	}{
		{
			name: "Перевод в безубыток",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0830, CurrentStopLoss: 1.0780, CurrentTakeProfit: 1.0880,
				PositionSize: 70000, Direction: model.Buy, AccountBalance: 10000, TimeInTrade: time.Hour,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(1.0800),
			confidence: 0.85,
			urgency:    model.UrgencyMedium,
		},
		{
			name: "sell breakeven",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0770, CurrentStopLoss: 1.0820,
				PositionSize: 70000, Direction: model.Sell, AccountBalance: 10000,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(1.0800),
			confidence: 0.85,
			urgency:    model.UrgencyMedium,
		},
		{
			name: "missing stop gets breakeven",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0770,
				PositionSize: 70000, Direction: model.Sell, AccountBalance: 10000,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(1.0800),
			confidence: 0.85,
			urgency:    model.UrgencyMedium,
		},
		{
			name: "partial close once at breakeven",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0850, CurrentStopLoss: 1.0800,
				PositionSize: 100000, Direction: model.Buy, AccountBalance: 10000,
			},
			action:     model.ActionPartialClose,
			closePct:   ptr(50),
			confidence: 0.8,
			urgency:    model.UrgencyMedium,
		},
		{
			name: "Закрытие убыточной сделки",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0820, CurrentStopLoss: 1.0850,
				PositionSize: 100000, Direction: model.Sell, AccountBalance: 10000, TimeInTrade: 9 * time.Hour,
			},
			action:     model.ActionFullClose,
			closePct:   ptr(100),
			confidence: 0.9,
			urgency:    model.UrgencyHigh,
		},
		{
			name: "losing but young trade holds",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0820, CurrentStopLoss: 1.0850,
				PositionSize: 100000, Direction: model.Sell, AccountBalance: 10000, TimeInTrade: 7 * time.Hour,
			},
			action:     model.ActionHold,
			confidence: 0.6,
			urgency:    model.UrgencyLow,
		},
		{
			name: "trailing stop in strong trend",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0815, CurrentStopLoss: 1.0800,
				PositionSize: 100000, Direction: model.Buy, AccountBalance: 10000,
				MarketConditions: model.RegimeTrending, TrendStrength: 8, TechnicalIndicators: trending,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(1.0815 - 1.0815*0.0005*1.5),
			confidence: 0.75,
			urgency:    model.UrgencyLow,
		},
		{
			name: "trail never loosens the stop",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0815, CurrentStopLoss: 1.0810,
				PositionSize: 100000, Direction: model.Buy, AccountBalance: 10000,
				MarketConditions: model.RegimeTrending, TrendStrength: 8, TechnicalIndicators: trending,
			},
			action:     model.ActionHold,
			confidence: 0.6,
			urgency:    model.UrgencyLow,
		},
		{
			name: "trend strength of 7 is not enough",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0815, CurrentStopLoss: 1.0800,
				PositionSize: 100000, Direction: model.Buy, AccountBalance: 10000,
				MarketConditions: model.RegimeTrending, TrendStrength: 7, TechnicalIndicators: trending,
			},
			action:     model.ActionHold,
			confidence: 0.6,
			urgency:    model.UrgencyLow,
		},
		{
			name: "trail with default ATR",
			trade: model.OpenTradeContext{
				EntryPrice: 1.0800, CurrentPrice: 1.0815, CurrentStopLoss: 1.0400,
				PositionSize: 100000, Direction: model.Buy, AccountBalance: 10000,
				MarketConditions: model.RegimeTrending, TrendStrength: 9,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(1.0815 - 1.0815*technical.DefaultATR*1.5),
			confidence: 0.75,
			urgency:    model.UrgencyLow,
		},
		{
			name: "unknown balance uses price move",
			trade: model.OpenTradeContext{
				EntryPrice: 100, CurrentPrice: 103, CurrentStopLoss: 98,
				PositionSize: 10, Direction: model.Buy,
			},
			action:     model.ActionAdjustStop,
			newStop:    ptr(100),
			confidence: 0.85,
			urgency:    model.UrgencyMedium,
		},
	}

	m := NewManager(technical.DefaultParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Evaluate(tt.trade)
			if got.Action != tt.action {
				t.Fatalf("Action = %s, want %s (pnl %.3f%%, %s)", got.Action, tt.action, got.PnLPercent, got.Reasoning)
			}
			if got.Confidence != tt.confidence || got.Urgency != tt.urgency {
				t.Errorf("Confidence/Urgency = %v/%v, want %v/%v", got.Confidence, got.Urgency, tt.confidence, tt.urgency)
			}
			checkPtr(t, "NewStopLoss", got.NewStopLoss, tt.newStop)
			checkPtr(t, "ClosePercentage", got.ClosePercentage, tt.closePct)
			if got.Reasoning == "" {
				t.Error("Reasoning should not be empty")
			}
		})
	}
}

func TestEvaluatePnLAndRiskAssessment(t *testing.T) {
	m := NewManager(technical.DefaultParams())
	got := m.Evaluate(model.OpenTradeContext{
		EntryPrice: 1.0800, CurrentPrice: 1.0830, CurrentStopLoss: 1.0780, CurrentTakeProfit: 1.0880,
		PositionSize: 70000, Direction: model.Buy, AccountBalance: 10000,
	})

	if !approx(got.PnLPercent, 2.1) {
		t.Errorf("PnLPercent = %v, want 2.1", got.PnLPercent)
	}
	if !approx(got.RiskAssessment.CurrentRisk, 1.4) {
		t.Errorf("CurrentRisk = %v, want 1.4", got.RiskAssessment.CurrentRisk)
	}
	if !approx(got.RiskAssessment.ProjectedRisk, 0) {
		t.Errorf("ProjectedRisk = %v, want 0 at breakeven", got.RiskAssessment.ProjectedRisk)
	}
	// 50 pips left to target, 30 pips back to the new stop
	if !approx(got.RiskAssessment.RiskReward, 0.005/0.003) {
		t.Errorf("RiskReward = %v, want %v", got.RiskAssessment.RiskReward, 0.005/0.003)
	}

	closed := m.Evaluate(model.OpenTradeContext{
		EntryPrice: 1.0800, CurrentPrice: 1.0820, CurrentStopLoss: 1.0850,
		PositionSize: 100000, Direction: model.Sell, AccountBalance: 10000, TimeInTrade: 10 * time.Hour,
	})
	if closed.RiskAssessment.ProjectedRisk != 0 {
		t.Errorf("ProjectedRisk after full close = %v, want 0", closed.RiskAssessment.ProjectedRisk)
	}
	if !approx(closed.RiskAssessment.CurrentRisk, 5) {
		t.Errorf("CurrentRisk = %v, want 5", closed.RiskAssessment.CurrentRisk)
	}
}

func TestEvaluateInvalidContext(t *testing.T) {
	tests := []struct {
		name  string
		trade model.OpenTradeContext
	}{
		{"zero entry", model.OpenTradeContext{CurrentPrice: 1.08, PositionSize: 1000, Direction: model.Buy}},
		{"no direction", model.OpenTradeContext{EntryPrice: 1.08, CurrentPrice: 1.09, PositionSize: 1000}},
		{"NaN price", model.OpenTradeContext{EntryPrice: 1.08, CurrentPrice: math.NaN(), PositionSize: 1000, Direction: model.Buy}},
		{"zero size", model.OpenTradeContext{EntryPrice: 1.08, CurrentPrice: 1.09, Direction: model.Sell}},
	}

	m := NewManager(technical.DefaultParams())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Evaluate(tt.trade)
			if got.Action != model.ActionHold || got.Confidence != ConservativeConfidence {
				t.Errorf("Evaluate() = %s/%v, want HOLD/%v", got.Action, got.Confidence, ConservativeConfidence)
			}
			if got.NewStopLoss != nil || got.ClosePercentage != nil {
				t.Errorf("conservative decision must not carry adjustments: %+v", got)
			}
		})
	}
}

func TestEvaluateWithCandles(t *testing.T) {
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, 40)
	for i := range candles {
		price := 1.0800 + 0.0001*float64(i)
		candles[i] = model.Candle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      price, High: price + 0.0002, Low: price - 0.0002, Close: price, Volume: 500,
		}
	}

	trade := model.OpenTradeContext{
		EntryPrice: 1.0800, CurrentStopLoss: 1.0790,
		PositionSize: 10000, Direction: model.Buy, AccountBalance: 10000,
	}

	m := NewManager(technical.DefaultParams())
	got := m.EvaluateWithCandles(trade, candles)

	last := candles[len(candles)-1].Close
	want := (last - 1.0800) * 10000 / 10000 * 100
	if !approx(got.PnLPercent, want) {
		t.Errorf("PnLPercent = %v, want %v from last close", got.PnLPercent, want)
	}
	if got.Confidence <= ConservativeConfidence {
		t.Errorf("expected a regular decision, got %+v", got)
	}
}

func ptr(v float64) *float64 {
	return &v
}

func checkPtr(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want != nil && !approx(*got, *want):
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}
