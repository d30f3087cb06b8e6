// Package management evaluates open positions and recommends stop, target and
// size adjustments. It only recommends; callers apply the changes.
package management

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

const (
	breakevenTrigger    = 2.0 // P&L %
	partialCloseTrigger = 4.0
	partialClosePercent = 50.0
	lossCutTrigger      = -1.0
	maxLosingTime       = 8 * time.Hour
	trailTrigger        = 1.0
	trailMinStrength    = 7.0
	trailATRMultiplier  = 1.5
)

// ConservativeConfidence is used when the context cannot be evaluated
const ConservativeConfidence = 0.3

var errInvalidContext = errors.New("invalid trade context")

// Manager applies the open-trade rules. It is stateless; every call starts fresh.
type Manager struct {
	params technical.Params
	logger zerolog.Logger
}

// NewManager creates a trade manager
func NewManager(params technical.Params) *Manager {
	return &Manager{
		params: params,
		logger: log.With().Str("component", "trade_manager").Logger(),
	}
}

// Evaluate returns the first matching recommendation for an open trade.
// Invalid input yields a conservative HOLD instead of an error.
func (m *Manager) Evaluate(trade model.OpenTradeContext) model.TradeManagementDecision {
	decision, err := evaluate(trade)
	if err != nil {
		m.logger.Warn().Err(err).Str("trade_id", trade.ID).Msg("Trade evaluation failed, holding")
		return model.TradeManagementDecision{
			Action:     model.ActionHold,
			Confidence: ConservativeConfidence,
			Urgency:    model.UrgencyLow,
			Reasoning:  err.Error(),
		}
	}

	m.logger.Debug().
		Str("trade_id", trade.ID).
		Str("action", string(decision.Action)).
		Float64("pnl_percent", decision.PnLPercent).
		Msg("Trade evaluated")
	return decision
}

// EvaluateWithCandles fills missing price, indicators and regime from candles, then evaluates
func (m *Manager) EvaluateWithCandles(trade model.OpenTradeContext, candles []model.Candle) model.TradeManagementDecision {
	if len(candles) > 0 {
		regime, indicators := market.ClassifyCandles(candles, m.params)
		if trade.CurrentPrice == 0 {
			trade.CurrentPrice = candles[len(candles)-1].Close
		}
		if trade.TechnicalIndicators == (model.IndicatorSet{}) {
			trade.TechnicalIndicators = indicators
		}
		if trade.MarketConditions == "" {
			trade.MarketConditions = regime.PrimaryRegime
		}
		if trade.TrendStrength == 0 {
			trade.TrendStrength = float64(regime.RegimeStrength)
		}
	}
	return m.Evaluate(trade)
}

func validate(t model.OpenTradeContext) error {
	for _, v := range []float64{t.EntryPrice, t.CurrentPrice, t.CurrentStopLoss, t.CurrentTakeProfit, t.PositionSize, t.AccountBalance, t.TrendStrength} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", errInvalidContext)
		}
	}
	if t.EntryPrice <= 0 || t.CurrentPrice <= 0 {
		return fmt.Errorf("%w: prices must be positive", errInvalidContext)
	}
	if t.PositionSize <= 0 {
		return fmt.Errorf("%w: position size must be positive", errInvalidContext)
	}
	if t.Direction != model.Buy && t.Direction != model.Sell {
		return fmt.Errorf("%w: direction %q", errInvalidContext, t.Direction)
	}
	return nil
}

// PnLPercent is the open P&L as a percent of the account, or of the entry price when
// the balance is unknown
func PnLPercent(t model.OpenTradeContext) float64 {
	move := (t.CurrentPrice - t.EntryPrice) * t.Direction.Sign()
	if t.AccountBalance <= 0 {
		return move / t.EntryPrice * 100
	}
	return move * t.PositionSize / t.AccountBalance * 100
}

func evaluate(t model.OpenTradeContext) (model.TradeManagementDecision, error) {
	if err := validate(t); err != nil {
		return model.TradeManagementDecision{}, err
	}

	sign := t.Direction.Sign()
	pnl := PnLPercent(t)

	d := model.TradeManagementDecision{PnLPercent: pnl}
	newStop := t.CurrentStopLoss
	remaining := t.PositionSize

	// A missing stop (0) is never better than breakeven
	stopBehindEntry := t.CurrentStopLoss == 0 || sign*(t.CurrentStopLoss-t.EntryPrice) < 0

	switch {
	case pnl > breakevenTrigger && stopBehindEntry:
		newStop = t.EntryPrice
		d.Action = model.ActionAdjustStop
		d.NewStopLoss = &newStop
		d.Confidence = 0.85
		d.Urgency = model.UrgencyMedium
		d.Reasoning = fmt.Sprintf("P&L %.2f%% above %.1f%%, moving stop to breakeven", pnl, breakevenTrigger)

	case pnl > partialCloseTrigger:
		pct := partialClosePercent
		remaining = t.PositionSize * (1 - pct/100)
		d.Action = model.ActionPartialClose
		d.ClosePercentage = &pct
		d.Confidence = 0.8
		d.Urgency = model.UrgencyMedium
		d.Reasoning = fmt.Sprintf("P&L %.2f%% above %.1f%%, taking partial profit", pnl, partialCloseTrigger)

	case pnl < lossCutTrigger && t.TimeInTrade > maxLosingTime:
		pct := 100.0
		remaining = 0
		d.Action = model.ActionFullClose
		d.ClosePercentage = &pct
		d.Confidence = 0.9
		d.Urgency = model.UrgencyHigh
		d.Reasoning = fmt.Sprintf("losing %.2f%% after %s, closing", pnl, t.TimeInTrade.Round(time.Minute))

	case t.MarketConditions == model.RegimeTrending && t.TrendStrength > trailMinStrength && pnl > trailTrigger:
		atr := t.TechnicalIndicators.ATR
		if atr <= 0 {
			atr = technical.DefaultATR
		}
		trail := t.CurrentPrice - sign*t.CurrentPrice*atr*trailATRMultiplier
		if t.CurrentStopLoss == 0 || sign*(trail-t.CurrentStopLoss) > 0 {
			newStop = trail
			d.Action = model.ActionAdjustStop
			d.NewStopLoss = &newStop
			d.Confidence = 0.75
			d.Urgency = model.UrgencyLow
			d.Reasoning = fmt.Sprintf("strong trend, trailing stop %.1f ATR behind price", trailATRMultiplier)
			break
		}
		d = hold(d)

	default:
		d = hold(d)
	}

	d.RiskAssessment = assess(t, newStop, remaining)
	return d, nil
}

func hold(d model.TradeManagementDecision) model.TradeManagementDecision {
	d.Action = model.ActionHold
	d.Confidence = 0.6
	d.Urgency = model.UrgencyLow
	d.Reasoning = "no rule triggered, holding"
	return d
}

// assess measures the loss at the stop relative to entry, before and after the decision
func assess(t model.OpenTradeContext, newStop, remaining float64) model.RiskAssessment {
	sign := t.Direction.Sign()
	riskAt := func(stop, size float64) float64 {
		if stop == 0 || size == 0 {
			return 0
		}
		loss := (t.EntryPrice - stop) * sign
		if t.AccountBalance <= 0 {
			return loss / t.EntryPrice * 100
		}
		return loss * size / t.AccountBalance * 100
	}

	ra := model.RiskAssessment{
		CurrentRisk:   riskAt(t.CurrentStopLoss, t.PositionSize),
		ProjectedRisk: riskAt(newStop, remaining),
	}

	if t.CurrentTakeProfit > 0 && newStop > 0 {
		risk := math.Abs(t.CurrentPrice - newStop)
		if risk > 0 {
			ra.RiskReward = math.Abs(t.CurrentTakeProfit-t.CurrentPrice) / risk
		}
	}
	return ra
}
