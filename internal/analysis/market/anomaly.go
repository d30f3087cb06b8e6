package market

import (
	"fmt"
	"math"

	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

// DetectMarketAnomalies flags unusual last-bar conditions that should widen stops or shrink size.
// Results are advisory and end up as warnings on the risk result.
func DetectMarketAnomalies(candles []model.Candle) model.AnomalyDetection {
	anomaly := model.AnomalyDetection{}
	if len(candles) < 20 {
		return anomaly
	}

	current := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	// ATR is a fraction of price, convert to price units
	atr10 := technical.CalculateATR(candles, 10) * current.Close
	if atr10 <= 0 {
		return anomaly
	}

	flag := func(kind string, score float64, details string, flags ...string) {
		if anomaly.IsAnomaly {
			anomaly.AnomalyScore = math.Min(anomaly.AnomalyScore+0.15, 1.0)
			anomaly.AnomalyType += "_WITH_" + kind
			anomaly.RecommendedFlags = append(anomaly.RecommendedFlags, flags...)
			return
		}
		anomaly.IsAnomaly = true
		anomaly.AnomalyType = kind
		anomaly.AnomalyScore = math.Min(score, 1.0)
		anomaly.Details = details
		anomaly.RecommendedFlags = append(anomaly.RecommendedFlags, flags...)
	}

	// 1. Price spike
	move := math.Abs(current.Close-prev.Close) / atr10
	if move > 3.0 {
		flag("PRICE_SPIKE", move/3.0,
			fmt.Sprintf("Price moved %.1f times the normal range", move),
			"REDUCE_POSITION_SIZE", "USE_WIDER_STOPS")
	}

	// 2. Gap against the previous close
	var gap float64
	if current.Low > prev.Close {
		gap = current.Low - prev.Close
	} else if current.High < prev.Close {
		gap = prev.Close - current.High
	}
	if gap/atr10 > 1.0 {
		flag("GAP", gap/atr10/2.0,
			fmt.Sprintf("Price gapped %.1f times the average range", gap/atr10),
			"EXPECT_VOLATILE_TRADING")
	}

	// 3. Volume spike, skipped for feeds without volume
	if current.Volume > 0 {
		var total float64
		for i := len(candles) - 11; i < len(candles)-1; i++ {
			total += candles[i].Volume
		}
		if avg := total / 10; avg > 0 && current.Volume/avg > 3.0 {
			flag("VOLUME_SPIKE", current.Volume/avg/5.0,
				fmt.Sprintf("Volume %.1f times the average", current.Volume/avg),
				"WAIT_FOR_CONFIRMATION")
		}
	}

	// 4. Rapid move over 5 bars
	base := candles[len(candles)-6].Close
	if base > 0 {
		change := (current.Close - base) / base
		if math.Abs(change) > 0.05 {
			flag("RAPID_PRICE_MOVE", math.Abs(change)/0.1,
				fmt.Sprintf("Rapid %.1f%% price move", change*100),
				"EXPECT_PULLBACK")
		}
	}

	if anomaly.IsAnomaly {
		anomaly.RecommendedFlags = append(anomaly.RecommendedFlags, "USE_CAUTION")
	}
	return anomaly
}
