package model

import (
	"fmt"
	"strings"
	"time"
)

// Direction is the side of a trade
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection accepts BUY/SELL and the LONG/SHORT, UP/DOWN aliases
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG", "UP":
		return Buy, nil
	case "SELL", "SHORT", "DOWN":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Sign is +1 for BUY and -1 for SELL
func (d Direction) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// RiskScenario is one stop-loss/take-profit proposal
type RiskScenario struct {
	Type            string   `json:"type"`
	StopLoss        float64  `json:"stop_loss"`
	TakeProfit      float64  `json:"take_profit"`
	RiskRewardRatio float64  `json:"risk_reward_ratio"`
	Reasoning       string   `json:"reasoning"`
	Confidence      float64  `json:"confidence"`
	Warnings        []string `json:"warnings,omitempty"`
}

// RiskManagementResult is the final output of a risk evaluation
type RiskManagementResult struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Timeframe       string    `json:"timeframe"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	PositionSize    float64   `json:"position_size"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`
	MaxRiskAmount   float64   `json:"max_risk_amount"`
	Confidence      float64   `json:"confidence"`
	Warnings        []string  `json:"warnings"`
	Reasoning       string    `json:"reasoning"`

	Scenarios     []RiskScenario       `json:"scenarios"`
	SelectedIndex int                  `json:"selected_index"`
	Regime        RegimeClassification `json:"regime"`
	Indicators    IndicatorSet         `json:"indicators"`
	AdvisorUsed   bool                 `json:"advisor_used"`
	FallbackUsed  bool                 `json:"fallback_used"`
	CreatedAt     time.Time            `json:"created_at"`
}
