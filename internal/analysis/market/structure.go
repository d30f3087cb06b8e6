package market

import (
	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

// StructureWindow is the trailing window used for swing-point structure
const StructureWindow = 20

// AnalyzeStructure compares the last two swing highs and lows in the trailing window
func AnalyzeStructure(candles []model.Candle, window int) model.MarketStructure {
	var structure model.MarketStructure
	if len(candles) == 0 {
		return structure
	}

	if window > 0 && len(candles) > window {
		candles = candles[len(candles)-window:]
	}

	highs := technical.FindSwingHighs(candles)
	lows := technical.FindSwingLows(candles)

	if n := len(highs); n >= 2 {
		structure.HigherHighs = highs[n-1].Price > highs[n-2].Price
		structure.LowerHighs = highs[n-1].Price < highs[n-2].Price
	}
	if n := len(lows); n >= 2 {
		structure.HigherLows = lows[n-1].Price > lows[n-2].Price
		structure.LowerLows = lows[n-1].Price < lows[n-2].Price
	}

	// Close beyond the latest swing extreme breaks the structure
	last := candles[len(candles)-1].Close
	if len(highs) > 0 && last > highs[len(highs)-1].Price {
		structure.StructureBroken = true
	}
	if len(lows) > 0 && last < lows[len(lows)-1].Price {
		structure.StructureBroken = true
	}

	return structure
}
