package technical

import (
	"math"
	"sort"

	"github.com/Alias1177/RiskAgent/internal/model"
)

const (
	swingRadius = 2
	// Relative clustering tolerance, roughly 2 pips on EUR/USD
	levelTolerance = 0.0002
	maxLevels      = 3
)

// FindSwingHighs returns bars whose high strictly exceeds the two bars on each side
func FindSwingHighs(candles []model.Candle) []model.SwingPoint {
	highs := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High
	}
	return findSwings(highs, func(a, b float64) bool { return a > b })
}

// FindSwingLows returns bars whose low is strictly below the two bars on each side
func FindSwingLows(candles []model.Candle) []model.SwingPoint {
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
	}
	return findSwings(lows, func(a, b float64) bool { return a < b })
}

func findSwings(values []float64, beats func(a, b float64) bool) []model.SwingPoint {
	var points []model.SwingPoint
	for i := swingRadius; i < len(values)-swingRadius; i++ {
		isSwing := true
		for k := 1; k <= swingRadius; k++ {
			if !beats(values[i], values[i-k]) || !beats(values[i], values[i+k]) {
				isSwing = false
				break
			}
		}
		if isSwing {
			points = append(points, model.SwingPoint{Index: i, Price: values[i]})
		}
	}
	return points
}

// IdentifySupportResistance finds swing levels below and above the last close, nearest first
func IdentifySupportResistance(candles []model.Candle) model.KeyLevels {
	if len(candles) < swingRadius*2+1 {
		return model.KeyLevels{}
	}

	currentPrice := candles[len(candles)-1].Close
	tolerance := currentPrice * levelTolerance
	if tolerance <= 0 {
		return model.KeyLevels{}
	}

	// Round to nearby level for clustering
	clustered := make(map[float64]struct{})
	for _, p := range FindSwingLows(candles) {
		clustered[math.Round(p.Price/tolerance)*tolerance] = struct{}{}
	}
	for _, p := range FindSwingHighs(candles) {
		clustered[math.Round(p.Price/tolerance)*tolerance] = struct{}{}
	}

	var levels model.KeyLevels
	for price := range clustered {
		if price < currentPrice {
			levels.Support = append(levels.Support, price)
		} else if price > currentPrice {
			levels.Resistance = append(levels.Resistance, price)
		}
	}

	// Support descending and resistance ascending, so the nearest level comes first
	sort.Sort(sort.Reverse(sort.Float64Slice(levels.Support)))
	sort.Float64s(levels.Resistance)

	if len(levels.Support) > maxLevels {
		levels.Support = levels.Support[:maxLevels]
	}
	if len(levels.Resistance) > maxLevels {
		levels.Resistance = levels.Resistance[:maxLevels]
	}

	return levels
}
