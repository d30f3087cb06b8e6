package risk

import (
	"fmt"
	"math"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// Scenario type labels
const (
	ScenarioATRTight          = "ATR_TIGHT"
	ScenarioATRWide           = "ATR_WIDE"
	ScenarioSupportResistance = "SUPPORT_RESISTANCE"
	ScenarioVolatility        = "VOLATILITY_ADJUSTED"
	ScenarioMarketStructure   = "MARKET_STRUCTURE"
)

// minATR replaces a missing or non-positive ATR so every scenario keeps a usable distance
const minATR = 0.001

// ScenarioInput is everything the generator needs for one entry
type ScenarioInput struct {
	EntryPrice       float64
	Direction        model.Direction
	ATR              float64 // fraction of price
	Levels           model.KeyLevels
	RecentVolatility float64 // short/long ATR ratio × 100
	Regime           model.Regime
}

// structureParams is the ATR multiplier and reward:risk per regime
var structureParams = map[model.Regime][2]float64{
	model.RegimeTrending: {1.0, 3.0},
	model.RegimeRanging:  {0.6, 1.8},
	model.RegimeBreakout: {1.5, 2.5},
}

// GenerateScenarios returns exactly five independent stop/target proposals.
// The output depends only on the input.
func GenerateScenarios(in ScenarioInput) []model.RiskScenario {
	atr := in.ATR
	var common []string
	if atr <= 0 || math.IsNaN(atr) || math.IsInf(atr, 0) {
		common = append(common, fmt.Sprintf("invalid ATR %v, using %.3f", in.ATR, minATR))
		atr = minATR
	}
	unit := in.EntryPrice * atr

	scenarios := []model.RiskScenario{
		atrScenario(in, ScenarioATRTight, unit, 0.8, 2.5, 0.7),
		atrScenario(in, ScenarioATRWide, unit, 1.2, 2.5, 0.75),
		levelScenario(in, unit),
		volatilityScenario(in, unit),
		structureScenario(in, unit),
	}

	for i := range scenarios {
		scenarios[i].RiskRewardRatio = RiskReward(in.EntryPrice, scenarios[i].StopLoss, scenarios[i].TakeProfit)
		if len(common) > 0 {
			scenarios[i].Warnings = append(append([]string{}, common...), scenarios[i].Warnings...)
		}
	}
	return scenarios
}

// RiskReward is |target-entry| / |entry-stop|, 0 for a zero stop distance
func RiskReward(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}

// levelsFromDistance places stop and target around entry on the correct sides
func levelsFromDistance(entry float64, dir model.Direction, stopDistance, rr float64) (float64, float64) {
	sign := dir.Sign()
	return entry - sign*stopDistance, entry + sign*stopDistance*rr
}

func atrScenario(in ScenarioInput, kind string, unit, multiplier, rr, confidence float64) model.RiskScenario {
	stop, target := levelsFromDistance(in.EntryPrice, in.Direction, unit*multiplier, rr)
	return model.RiskScenario{
		Type:       kind,
		StopLoss:   stop,
		TakeProfit: target,
		Reasoning:  fmt.Sprintf("ATR x%.1f stop with %.1f:1 reward to risk", multiplier, rr),
		Confidence: confidence,
	}
}

func levelScenario(in ScenarioInput, unit float64) model.RiskScenario {
	entry := in.EntryPrice
	sign := in.Direction.Sign()
	buffer := unit * 0.2

	var below, above []float64
	for _, level := range in.Levels.All() {
		if level < entry {
			below = append(below, level)
		} else if level > entry {
			above = append(above, level)
		}
	}
	nearestBelow, hasBelow := nearest(below, entry)
	nearestAbove, hasAbove := nearest(above, entry)

	// Stop sits beyond the level on the loss side, target at the level on the profit side
	stopLevel, hasStop := nearestBelow, hasBelow
	targetLevel, hasTarget := nearestAbove, hasAbove
	if in.Direction == model.Sell {
		stopLevel, hasStop = nearestAbove, hasAbove
		targetLevel, hasTarget = nearestBelow, hasBelow
	}

	scenario := model.RiskScenario{
		Type:       ScenarioSupportResistance,
		Confidence: 0.8,
		Reasoning:  "stop beyond nearest level with ATR buffer, target at next level",
	}

	if hasStop {
		scenario.StopLoss = stopLevel - sign*buffer
	} else {
		scenario.StopLoss = entry - sign*unit
		scenario.Warnings = append(scenario.Warnings, "no level on the stop side, ATR x1.0 stop used")
		scenario.Confidence = 0.6
	}

	if hasTarget {
		scenario.TakeProfit = targetLevel
	} else {
		scenario.TakeProfit = entry + sign*unit*2.0
		scenario.Warnings = append(scenario.Warnings, "no level on the target side, ATR x2.0 target used")
		scenario.Confidence = 0.6
	}

	return scenario
}

func nearest(levels []float64, price float64) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	best := levels[0]
	for _, l := range levels[1:] {
		if math.Abs(l-price) < math.Abs(best-price) {
			best = l
		}
	}
	return best, true
}

func volatilityScenario(in ScenarioInput, unit float64) model.RiskScenario {
	factor := in.RecentVolatility / 100
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		factor = 1.0
	}
	factor = math.Max(0.5, math.Min(2.0, factor))

	stop, target := levelsFromDistance(in.EntryPrice, in.Direction, unit*factor, 2.2)
	return model.RiskScenario{
		Type:       ScenarioVolatility,
		StopLoss:   stop,
		TakeProfit: target,
		Reasoning:  fmt.Sprintf("ATR scaled by recent volatility factor %.2f, 2.2:1", factor),
		Confidence: 0.7,
	}
}

func structureScenario(in ScenarioInput, unit float64) model.RiskScenario {
	params, ok := structureParams[in.Regime]
	if !ok {
		params = [2]float64{1.0, 2.5}
	}

	stop, target := levelsFromDistance(in.EntryPrice, in.Direction, unit*params[0], params[1])
	regime := string(in.Regime)
	if regime == "" {
		regime = "UNKNOWN"
	}
	return model.RiskScenario{
		Type:       ScenarioMarketStructure,
		StopLoss:   stop,
		TakeProfit: target,
		Reasoning:  fmt.Sprintf("%s regime: ATR x%.1f stop, %.1f:1", regime, params[0], params[1]),
		Confidence: 0.75,
	}
}
