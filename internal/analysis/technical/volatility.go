package technical

import (
	"math"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// Neutral values returned when the window is too short
const (
	DefaultATR = 0.02
	DefaultADX = 20.0
	DefaultRSI = 50.0
)

const (
	bollingerPeriod  = 20
	bollingerStdDev  = 2.0
	squeezeThreshold = 0.01
	defaultVolRatio  = 1.0
)

// trueRange is the greatest of high-low, |high-prevClose| and |low-prevClose|
func trueRange(c model.Candle, prevClose float64) float64 {
	highLow := c.High - c.Low
	highPrevClose := math.Abs(c.High - prevClose)
	lowPrevClose := math.Abs(c.Low - prevClose)
	return math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
}

// CalculateATR returns the mean true range of the last period bars divided by the last close.
// The result is a fraction of price; callers multiply by price to get a distance.
func CalculateATR(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return DefaultATR
	}

	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1].Close)
	}

	last := candles[len(candles)-1].Close
	if last <= 0 {
		return DefaultATR
	}

	atr := sum / float64(period) / last
	if math.IsNaN(atr) || math.IsInf(atr, 0) {
		return DefaultATR
	}
	return atr
}

// CalculateBollingerPosition classifies the last close against SMA(20) ± 2σ
func CalculateBollingerPosition(candles []model.Candle) model.BandPosition {
	if len(candles) < bollingerPeriod {
		return model.BandMiddle
	}

	window := candles[len(candles)-bollingerPeriod:]
	var sum float64
	for _, c := range window {
		sum += c.Close
	}
	middle := sum / bollingerPeriod

	var variance float64
	for _, c := range window {
		variance += math.Pow(c.Close-middle, 2)
	}
	sd := math.Sqrt(variance / bollingerPeriod)

	upper := middle + sd*bollingerStdDev
	lower := middle - sd*bollingerStdDev
	last := window[len(window)-1].Close

	switch {
	case last > upper:
		return model.BandUpper
	case last < lower:
		return model.BandLower
	case middle > 0 && sd/middle < squeezeThreshold:
		return model.BandSqueeze
	default:
		return model.BandMiddle
	}
}

// CalculateVolatilityRatio calculates the ratio between short-term and long-term volatility
func CalculateVolatilityRatio(candles []model.Candle, shortPeriod, longPeriod int) float64 {
	if len(candles) < longPeriod+1 {
		return defaultVolRatio
	}

	atrShort := CalculateATR(candles, shortPeriod)
	atrLong := CalculateATR(candles, longPeriod)

	if atrLong == 0 {
		return defaultVolRatio
	}

	return atrShort / atrLong
}
