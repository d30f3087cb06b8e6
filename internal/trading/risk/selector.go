package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/RiskAgent/internal/advisor"
	"github.com/Alias1177/RiskAgent/internal/model"
)

// SelectionContext carries what the selector needs to validate a scenario
type SelectionContext struct {
	Symbol     string
	Timeframe  string
	EntryPrice float64
}

// Selection is the chosen scenario plus what happened while choosing it
type Selection struct {
	Scenario    model.RiskScenario
	Index       int
	Warnings    []string
	AdvisorUsed bool
	Reasoning   string
}

var errNoScenarios = errors.New("no scenarios")

// SelectScenario picks the advisor's best scenario when its ranking is usable and
// scenario 0 otherwise, then checks it against the timeframe bounds. It never fails
// for a non-empty scenario list.
func SelectScenario(scenarios []model.RiskScenario, ranking *advisor.Ranking, rankErr error, sc SelectionContext) (Selection, error) {
	if len(scenarios) == 0 {
		return Selection{}, errNoScenarios
	}

	var sel Selection
	if err := validateRanking(ranking, rankErr, len(scenarios)); err != nil {
		sel.Index = 0
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("advisor fallback: using scenario %s (%v)", scenarios[0].Type, err))
		sel.Reasoning = "deterministic fallback to first scenario"
	} else {
		sel.Index = ranking.BestScenario
		sel.AdvisorUsed = true
		sel.Reasoning = ranking.Reasoning
		if !ranking.TimeframeAppropriate {
			sel.Warnings = append(sel.Warnings, "advisor flagged the setup as inappropriate for the timeframe")
		}
	}

	// Copy so that clamping never touches the generated scenario list
	chosen := scenarios[sel.Index]
	chosen.Warnings = append([]string(nil), chosen.Warnings...)

	bounds, known := BoundsFor(sc.Timeframe)
	if !known {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("unknown timeframe %q, using %s bounds", sc.Timeframe, DefaultTimeframe))
	}

	pip := PipSize(sc.Symbol, sc.EntryPrice)
	stopPips := math.Abs(sc.EntryPrice-chosen.StopLoss) / pip
	targetPips := math.Abs(chosen.TakeProfit-sc.EntryPrice) / pip
	if stopPips > bounds.MaxStopPips {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("stop distance %.1f pips exceeds %.0f", stopPips, bounds.MaxStopPips))
	}
	if targetPips > bounds.MaxTargetPips {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("target distance %.1f pips exceeds %.0f", targetPips, bounds.MaxTargetPips))
	}

	// The ratio is capped but take profit is left as is, so the two can disagree afterwards
	if chosen.RiskRewardRatio > bounds.MaxRR {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("risk:reward %.2f capped at %.1f, take profit unchanged", chosen.RiskRewardRatio, bounds.MaxRR))
		chosen.RiskRewardRatio = bounds.MaxRR
	} else if chosen.RiskRewardRatio < bounds.MinRR {
		sel.Warnings = append(sel.Warnings, fmt.Sprintf("risk:reward %.2f below minimum %.1f", chosen.RiskRewardRatio, bounds.MinRR))
	}

	sel.Scenario = chosen
	return sel, nil
}

func validateRanking(ranking *advisor.Ranking, rankErr error, n int) error {
	if rankErr != nil {
		return rankErr
	}
	if ranking == nil {
		return advisor.ErrUnavailable
	}
	if ranking.BestScenario < 0 || ranking.BestScenario >= n {
		return fmt.Errorf("%w: best scenario %d out of range", advisor.ErrMalformedResponse, ranking.BestScenario)
	}
	if len(ranking.Ranking) == 0 || ranking.Ranking[0] != ranking.BestScenario {
		return fmt.Errorf("%w: ranking disagrees with best scenario", advisor.ErrMalformedResponse)
	}
	for _, idx := range ranking.Ranking {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: ranking index %d out of range", advisor.ErrMalformedResponse, idx)
		}
	}
	return nil
}
