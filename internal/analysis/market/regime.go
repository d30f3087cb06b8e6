package market

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

const (
	trendADXThreshold  = 25.0
	strongADXThreshold = 40.0
	highVolatility     = 0.03
	veryHighVolatility = 0.05
	lowVolatility      = 0.01
)

var errInvalidInput = errors.New("invalid classifier input")

// Input is everything the classifier looks at
type Input struct {
	Indicators model.IndicatorSet
	Structure  model.MarketStructure
	LastClose  float64
	AvgPrice   float64
	KeyLevels  model.KeyLevels
}

// DefaultRegime is returned whenever classification cannot be trusted
func DefaultRegime() model.RegimeClassification {
	return model.RegimeClassification{
		PrimaryRegime:    model.RegimeRanging,
		SubRegime:        "TIGHT_RANGE",
		Confidence:       0.5,
		RegimeStrength:   5,
		TrendDirection:   model.SignalNeutral,
		VolatilityRank:   model.VolatilityNormal,
		MomentumStrength: 5,
		KeyLevels:        model.KeyLevels{},
		Style:            StyleFor(model.RegimeRanging, 5),
	}
}

// ClassifyMarketRegime labels the regime from indicators and structure.
// It never fails: bad input yields DefaultRegime.
func ClassifyMarketRegime(in Input) model.RegimeClassification {
	regime, err := classify(in)
	if err != nil {
		return DefaultRegime()
	}
	return regime
}

// ClassifyCandles computes indicators, structure and levels, then classifies
func ClassifyCandles(candles []model.Candle, params technical.Params) (model.RegimeClassification, model.IndicatorSet) {
	indicators := technical.CalculateAllIndicators(candles, params)
	if len(candles) == 0 {
		return DefaultRegime(), indicators
	}

	window := candles
	if len(window) > StructureWindow {
		window = window[len(window)-StructureWindow:]
	}
	var sum float64
	for _, c := range window {
		sum += c.Close
	}

	in := Input{
		Indicators: indicators,
		Structure:  AnalyzeStructure(candles, StructureWindow),
		LastClose:  candles[len(candles)-1].Close,
		AvgPrice:   sum / float64(len(window)),
		KeyLevels:  technical.IdentifySupportResistance(candles),
	}
	return ClassifyMarketRegime(in), indicators
}

func classify(in Input) (model.RegimeClassification, error) {
	ind := in.Indicators
	checks := []struct {
		name  string
		value float64
	}{
		{"atr", ind.ATR},
		{"adx", ind.ADX},
		{"rsi", ind.RSI},
		{"last_close", in.LastClose},
		{"avg_price", in.AvgPrice},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return model.RegimeClassification{}, fmt.Errorf("%w: %s is %v", errInvalidInput, c.name, c.value)
		}
	}

	regime := model.RegimeClassification{
		PrimaryRegime:    model.RegimeRanging,
		SubRegime:        "TIGHT_RANGE",
		Confidence:       0.6,
		RegimeStrength:   5,
		TrendDirection:   model.SignalNeutral,
		VolatilityRank:   model.VolatilityNormal,
		MomentumStrength: 5,
		KeyLevels:        in.KeyLevels,
	}

	s := in.Structure
	strength := int(math.Min(10, math.Floor(ind.ADX/5)))

	// 1. Trend
	if ind.ADX > trendADXThreshold && s.HigherHighs && s.HigherLows {
		regime.PrimaryRegime = model.RegimeTrending
		regime.TrendDirection = model.SignalBullish
		regime.SubRegime = "WEAK_UPTREND"
		if ind.ADX > strongADXThreshold {
			regime.SubRegime = "STRONG_UPTREND"
		}
		regime.Confidence = 0.8
		regime.RegimeStrength = strength
		regime.MomentumStrength = strength
	} else if ind.ADX > trendADXThreshold && s.LowerHighs && s.LowerLows {
		regime.PrimaryRegime = model.RegimeTrending
		regime.TrendDirection = model.SignalBearish
		regime.SubRegime = "WEAK_DOWNTREND"
		if ind.ADX > strongADXThreshold {
			regime.SubRegime = "STRONG_DOWNTREND"
		}
		regime.Confidence = 0.8
		regime.RegimeStrength = strength
		regime.MomentumStrength = strength
	}

	// 2. Volatility overlay, ATR relative to the average price of the window
	volatility := ind.ATR
	if in.AvgPrice > 0 && in.LastClose > 0 {
		volatility = ind.ATR * in.LastClose / in.AvgPrice
	}
	if volatility > highVolatility {
		regime.VolatilityRank = model.VolatilityHigh
		if volatility > veryHighVolatility {
			regime.VolatilityRank = model.VolatilityVeryHigh
		}
		if regime.PrimaryRegime == model.RegimeRanging {
			regime.PrimaryRegime = model.RegimeVolatile
			regime.SubRegime = "HIGH_VOLATILITY"
			regime.Confidence = 0.7
		}
	} else if volatility < lowVolatility {
		regime.VolatilityRank = model.VolatilityLow
	}

	// 3. Breakout overlay wins over everything above
	if s.StructureBroken && ind.VolumeProfile == model.VolumeIncreasing {
		switch ind.BollingerPosition {
		case model.BandUpper:
			regime.PrimaryRegime = model.RegimeBreakout
			regime.SubRegime = "BULLISH_BREAKOUT"
			regime.TrendDirection = model.SignalBullish
			regime.Confidence = 0.75
			regime.MomentumStrength = 8
		case model.BandLower:
			regime.PrimaryRegime = model.RegimeBreakout
			regime.SubRegime = "BEARISH_BREAKOUT"
			regime.TrendDirection = model.SignalBearish
			regime.Confidence = 0.75
			regime.MomentumStrength = 8
		}
	}

	regime.Style = StyleFor(regime.PrimaryRegime, regime.RegimeStrength)
	return regime, nil
}

// StyleFor maps a regime to its fixed trading policy
func StyleFor(regime model.Regime, strength int) model.TradingStyle {
	switch regime {
	case model.RegimeTrending:
		return model.TradingStyle{Name: "TREND_FOLLOWING", EntrySignal: strength, ExitSignal: 6, RiskAdjustment: 0.8, PositionSizeAdjustment: 1.2}
	case model.RegimeBreakout:
		return model.TradingStyle{Name: "BREAKOUT", EntrySignal: 8, ExitSignal: 7, RiskAdjustment: 1.5, PositionSizeAdjustment: 0.8}
	case model.RegimeVolatile:
		return model.TradingStyle{Name: "MOMENTUM", EntrySignal: 6, ExitSignal: 8, RiskAdjustment: 1.8, PositionSizeAdjustment: 0.6}
	default:
		return model.TradingStyle{Name: "MEAN_REVERSION", EntrySignal: 7, ExitSignal: 6, RiskAdjustment: 1.0, PositionSizeAdjustment: 1.0}
	}
}
