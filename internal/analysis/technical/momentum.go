package technical

import (
	"math"

	"github.com/Alias1177/RiskAgent/internal/model"
)

const (
	macdFastWindow = 12
	macdSlowWindow = 26
)

// CalculateRSI calculates the Relative Strength Index from plain average gain and loss
func CalculateRSI(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return DefaultRSI
	}

	var gains, losses float64
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		return 100.0
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CalculateADX is a simplified trend-strength measure: net directional movement over
// total directional movement, times 100. It is not Wilder's smoothed ADX; the
// regime thresholds (25, 40) are calibrated to this form.
func CalculateADX(candles []model.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return DefaultADX
	}

	var plusDM, minusDM float64
	for i := len(candles) - period; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM += upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM += downMove
		}
	}

	total := plusDM + minusDM
	if total == 0 {
		return 0
	}
	return math.Abs(plusDM-minusDM) / total * 100
}

// CalculateMACDSign compares the 12-close mean with the 26-close mean (no EMA)
func CalculateMACDSign(candles []model.Candle) model.Signal {
	if len(candles) < macdSlowWindow {
		return model.SignalNeutral
	}

	closes := model.Closes(candles)
	fast := mean(closes[len(closes)-macdFastWindow:])
	slow := mean(closes[len(closes)-macdSlowWindow:])

	switch diff := fast - slow; {
	case diff > 0:
		return model.SignalBullish
	case diff < 0:
		return model.SignalBearish
	default:
		return model.SignalNeutral
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, value := range values {
		sum += value
	}

	return sum / float64(len(values))
}
