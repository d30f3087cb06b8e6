package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Completer is the text-completion backend, implemented by the OpenAI client
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// LLMRanker asks a language model to rank scenarios and parses its JSON answer
type LLMRanker struct {
	completer Completer
	logger    zerolog.Logger
}

// NewLLMRanker creates a ranker on top of a completion backend
func NewLLMRanker(completer Completer) *LLMRanker {
	return &LLMRanker{
		completer: completer,
		logger:    log.With().Str("component", "llm_ranker").Logger(),
	}
}

// Rank implements Ranker
func (r *LLMRanker) Rank(ctx context.Context, req Request) (*Ranking, error) {
	text, err := r.completer.GenerateCompletion(ctx, BuildPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ranking, err := ParseRanking(text)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("Could not parse advisor response")
		return nil, err
	}

	r.logger.Debug().
		Int("best", ranking.BestScenario).
		Ints("ranking", ranking.Ranking).
		Str("symbol", req.Symbol).
		Msg("Advisor ranking received")
	return ranking, nil
}

// BuildPrompt renders the ranking request
func BuildPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a risk manager. Rank the stop-loss/take-profit scenarios for a %s %s trade on the %s timeframe.\n",
		req.Direction, req.Symbol, req.Timeframe)
	fmt.Fprintf(&sb, "Entry: %.5f, account balance: %.2f, risk per trade: %.2f%%, ATR (fraction of price): %.5f, regime: %s\n",
		req.EntryPrice, req.AccountBalance, req.RiskPercentage, req.ATR, req.Regime)
	fmt.Fprintf(&sb, "Structure: higher highs=%t, higher lows=%t, lower highs=%t, lower lows=%t, broken=%t\n\n",
		req.MarketStructure.HigherHighs, req.MarketStructure.HigherLows,
		req.MarketStructure.LowerHighs, req.MarketStructure.LowerLows,
		req.MarketStructure.StructureBroken)

	sb.WriteString("Scenarios:\n")
	for i, s := range req.Scenarios {
		fmt.Fprintf(&sb, "%d. %s: stop %.5f, target %.5f, R:R %.2f, confidence %.2f (%s)\n",
			i, s.Type, s.StopLoss, s.TakeProfit, s.RiskRewardRatio, s.Confidence, s.Reasoning)
	}

	sb.WriteString(`
Answer with JSON only, indices are zero-based:
{"ranking": [best, ..., worst], "bestScenario": <index>, "reasoning": "<one sentence>", "timeframeAppropriate": true|false}
`)
	return sb.String()
}

type rawRanking struct {
	Ranking              []int  `json:"ranking"`
	BestScenario         *int   `json:"bestScenario"`
	Reasoning            string `json:"reasoning"`
	TimeframeAppropriate *bool  `json:"timeframeAppropriate"`
}

// ParseRanking extracts the JSON object from a model answer, tolerating code fences and prose around it.
// Ranking and bestScenario are required; timeframeAppropriate defaults to true.
func ParseRanking(text string) (*Ranking, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var raw rawRanking
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(raw.Ranking) == 0 {
		return nil, fmt.Errorf("%w: missing ranking", ErrMalformedResponse)
	}
	if raw.BestScenario == nil {
		return nil, fmt.Errorf("%w: missing bestScenario", ErrMalformedResponse)
	}

	ranking := &Ranking{
		Ranking:              raw.Ranking,
		BestScenario:         *raw.BestScenario,
		Reasoning:            raw.Reasoning,
		TimeframeAppropriate: true,
	}
	if raw.TimeframeAppropriate != nil {
		ranking.TimeframeAppropriate = *raw.TimeframeAppropriate
	}
	return ranking, nil
}
