package model

import (
	"encoding/json"
	"time"
)

// TradeAction is what the trade manager recommends for an open position
type TradeAction string

const (
	ActionHold         TradeAction = "HOLD"
	ActionAdjustStop   TradeAction = "ADJUST_STOP"
	ActionAdjustTarget TradeAction = "ADJUST_TARGET"
	ActionPartialClose TradeAction = "PARTIAL_CLOSE"
	ActionFullClose    TradeAction = "FULL_CLOSE"
	ActionScaleIn      TradeAction = "SCALE_IN"
)

// Urgency tells the executor how quickly to act
type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyImmediate Urgency = "IMMEDIATE"
)

// OpenTradeContext is the live state of a position supplied by the caller
type OpenTradeContext struct {
	ID                  string        `json:"id,omitempty"`
	Symbol              string        `json:"symbol,omitempty"`
	EntryPrice          float64       `json:"entry_price"`
	CurrentPrice        float64       `json:"current_price"`
	CurrentStopLoss     float64       `json:"current_stop_loss"`
	CurrentTakeProfit   float64       `json:"current_take_profit"`
	PositionSize        float64       `json:"position_size"`
	Direction           Direction     `json:"direction"`
	TimeInTrade         time.Duration `json:"-"` // time_in_trade_seconds on the wire
	AccountBalance      float64       `json:"account_balance"`
	MarketConditions    Regime        `json:"market_conditions"`
	TrendStrength       float64       `json:"trend_strength"` // 0-10
	TechnicalIndicators IndicatorSet  `json:"technical_indicators"`
}

type openTradeFields OpenTradeContext

// MarshalJSON writes TimeInTrade as seconds
func (t OpenTradeContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		openTradeFields
		TimeInTradeSeconds float64 `json:"time_in_trade_seconds"`
	}{openTradeFields(t), t.TimeInTrade.Seconds()})
}

// UnmarshalJSON reads TimeInTrade from time_in_trade_seconds
func (t *OpenTradeContext) UnmarshalJSON(data []byte) error {
	aux := struct {
		*openTradeFields
		TimeInTradeSeconds float64 `json:"time_in_trade_seconds"`
	}{openTradeFields: (*openTradeFields)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.TimeInTrade = time.Duration(aux.TimeInTradeSeconds * float64(time.Second))
	return nil
}

// RiskAssessment is recomputed with every decision for auditability.
// CurrentRisk and ProjectedRisk are the loss at the stop as a percent of the account;
// negative values mean the stop locks in profit.
type RiskAssessment struct {
	CurrentRisk   float64 `json:"current_risk"`
	ProjectedRisk float64 `json:"projected_risk"`
	RiskReward    float64 `json:"risk_reward"`
}

// TradeManagementDecision is produced fresh on each evaluation
type TradeManagementDecision struct {
	Action          TradeAction    `json:"action"`
	NewStopLoss     *float64       `json:"new_stop_loss,omitempty"`
	NewTakeProfit   *float64       `json:"new_take_profit,omitempty"`
	ClosePercentage *float64       `json:"close_percentage,omitempty"`
	Confidence      float64        `json:"confidence"`
	Urgency         Urgency        `json:"urgency"`
	RiskAssessment  RiskAssessment `json:"risk_assessment"`
	PnLPercent      float64        `json:"pnl_percent"`
	Reasoning       string         `json:"reasoning"`
}
