package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// ErrInvalidNumeric is the only error the sizing step surfaces; callers fall back to FallbackLevels
var ErrInvalidNumeric = errors.New("invalid numeric input for position sizing")

// MaxRiskPercentage caps the share of the account risked on one trade
const MaxRiskPercentage = 5.0

// SizingConfig holds the safety parameters of the sizer
type SizingConfig struct {
	MinStopFraction float64 // floor for the stop distance as a fraction of entry
	MaxLeverage     float64 // notional cap as a multiple of balance
}

// DefaultSizingConfig returns conservative retail-forex limits
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{MinStopFraction: 0.0001, MaxLeverage: 30}
}

// SizingInput is one sizing request
type SizingInput struct {
	AccountBalance float64
	RiskPercentage float64 // percent of the balance, 2 means 2%
	EntryPrice     float64
	StopLoss       float64
}

// PositionSizingResult holds position sizing calculation results
type PositionSizingResult struct {
	PositionSize float64  `json:"position_size"`
	RawSize      float64  `json:"raw_size"`
	RiskAmount   float64  `json:"risk_amount"`
	StopDistance float64  `json:"stop_distance"`
	Warnings     []string `json:"warnings,omitempty"`
}

// assetTier is the absolute unit cap and lot step for an instrument price range
type assetTier struct {
	minPrice float64
	maxUnits float64
	lotStep  string
}

var assetTiers = []assetTier{
	{minPrice: 10000, maxUnits: 1, lotStep: "0.0001"},
	{minPrice: 1000, maxUnits: 10, lotStep: "0.001"},
	{minPrice: 100, maxUnits: 100, lotStep: "0.01"},
	{minPrice: 10, maxUnits: 1000, lotStep: "0.1"},
	{minPrice: 0, maxUnits: 50000, lotStep: "1"},
}

func tierFor(price float64) assetTier {
	for _, tier := range assetTiers {
		if price >= tier.minPrice {
			return tier
		}
	}
	return assetTiers[len(assetTiers)-1]
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CalculatePositionSize determines the appropriate position size based on risk parameters.
// Size = riskAmount / max(stopDistance, entry×minStopFraction), then capped by the asset
// tier and the leverage limit and rounded down to the tier lot step.
func CalculatePositionSize(in SizingInput, cfg SizingConfig) (*PositionSizingResult, error) {
	if !finite(in.AccountBalance, in.RiskPercentage, in.EntryPrice, in.StopLoss) {
		return nil, fmt.Errorf("%w: non-finite input", ErrInvalidNumeric)
	}
	if in.AccountBalance <= 0 || in.RiskPercentage <= 0 || in.EntryPrice <= 0 {
		return nil, fmt.Errorf("%w: balance, risk and entry must be positive", ErrInvalidNumeric)
	}

	stopDistance := math.Abs(in.EntryPrice - in.StopLoss)
	if stopDistance == 0 {
		return nil, fmt.Errorf("%w: zero stop distance", ErrInvalidNumeric)
	}

	result := &PositionSizingResult{StopDistance: stopDistance}

	riskPct := in.RiskPercentage
	if riskPct > MaxRiskPercentage {
		result.Warnings = append(result.Warnings, fmt.Sprintf("risk %.2f%% capped at %.0f%%", riskPct, MaxRiskPercentage))
		riskPct = MaxRiskPercentage
	}
	result.RiskAmount = in.AccountBalance * riskPct / 100

	minStop := in.EntryPrice * cfg.MinStopFraction
	effectiveStop := math.Max(stopDistance, minStop)
	if effectiveStop > stopDistance {
		result.Warnings = append(result.Warnings, "stop closer than minimum distance, sized on the minimum")
	}

	size := result.RiskAmount / effectiveStop
	result.RawSize = size

	tier := tierFor(in.EntryPrice)
	if size > tier.maxUnits {
		result.Warnings = append(result.Warnings, fmt.Sprintf("size %.2f capped at asset tier maximum %.0f", size, tier.maxUnits))
		size = tier.maxUnits
	}
	if cfg.MaxLeverage > 0 {
		maxByLeverage := in.AccountBalance * cfg.MaxLeverage / in.EntryPrice
		if size > maxByLeverage {
			result.Warnings = append(result.Warnings, fmt.Sprintf("size capped by %.0fx leverage", cfg.MaxLeverage))
			size = maxByLeverage
		}
	}

	step := decimal.RequireFromString(tier.lotStep)
	rounded, _ := decimal.NewFromFloat(size).Div(step).Floor().Mul(step).Float64()

	if !finite(rounded) || rounded <= 0 {
		return nil, fmt.Errorf("%w: position size %v below minimum lot %s", ErrInvalidNumeric, size, tier.lotStep)
	}

	result.PositionSize = rounded
	return result, nil
}

// fallbackStopPercent is the fixed stop distance per timeframe, as a percent of entry
var fallbackStopPercent = map[string]float64{
	"1m":  0.2,
	"5m":  0.3,
	"15m": 0.5,
	"1h":  0.8,
	"4h":  1.5,
	"1d":  2.5,
}

// FallbackLevels returns fixed-percentage stop and a 2:1 target for when normal sizing fails
func FallbackLevels(entry float64, direction model.Direction, timeframe string) (float64, float64) {
	tf, ok := NormalizeTimeframe(timeframe)
	if !ok {
		tf = DefaultTimeframe
	}
	distance := entry * fallbackStopPercent[tf] / 100
	return levelsFromDistance(entry, direction, distance, 2.0)
}
