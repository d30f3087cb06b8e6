// Package advisor ranks risk scenarios with an optional external oracle.
// Every implementation is untrusted: callers must validate the ranking and
// fall back to a deterministic choice on any error.
package advisor

import (
	"context"
	"errors"

	"github.com/Alias1177/RiskAgent/internal/model"
)

var (
	// ErrUnavailable means no ranking could be obtained (disabled, timeout, network)
	ErrUnavailable = errors.New("advisor unavailable")
	// ErrMalformedResponse means the oracle answered with something unparseable
	ErrMalformedResponse = errors.New("malformed advisor response")
)

// Request is the context handed to the oracle
type Request struct {
	Symbol          string                `json:"symbol"`
	Timeframe       string                `json:"timeframe"`
	EntryPrice      float64               `json:"entry_price"`
	Direction       model.Direction       `json:"direction"`
	AccountBalance  float64               `json:"account_balance"`
	RiskPercentage  float64               `json:"risk_percentage"`
	ATR             float64               `json:"atr"`
	MarketStructure model.MarketStructure `json:"market_structure"`
	Regime          model.Regime          `json:"regime"`
	Scenarios       []model.RiskScenario  `json:"scenarios"`
}

// Ranking is the oracle's answer. Indices are zero-based into Request.Scenarios.
type Ranking struct {
	Ranking              []int  `json:"ranking"`
	BestScenario         int    `json:"bestScenario"`
	Reasoning            string `json:"reasoning"`
	TimeframeAppropriate bool   `json:"timeframeAppropriate"`
}

// Ranker orders scenarios by preference
type Ranker interface {
	Rank(ctx context.Context, req Request) (*Ranking, error)
}

// Null is the default ranker; it always defers to the deterministic fallback
type Null struct{}

// Rank implements Ranker
func (Null) Rank(context.Context, Request) (*Ranking, error) {
	return nil, ErrUnavailable
}
