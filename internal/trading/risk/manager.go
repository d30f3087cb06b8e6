package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/advisor"
	"github.com/Alias1177/RiskAgent/internal/analysis/market"
	"github.com/Alias1177/RiskAgent/internal/analysis/technical"
	"github.com/Alias1177/RiskAgent/internal/model"
)

// ErrInvalidRequest is returned for requests that cannot be evaluated at all
var ErrInvalidRequest = errors.New("invalid risk request")

// FallbackConfidence marks results produced by fixed-percentage sizing
const FallbackConfidence = 0.3

// Request is one risk evaluation
type Request struct {
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	Direction      model.Direction `json:"direction"`
	EntryPrice     float64         `json:"entry_price"` // 0 means the last close
	AccountBalance float64         `json:"account_balance"`
	RiskPercentage float64         `json:"risk_percentage"`
	Candles        []model.Candle  `json:"candles"`
}

// Config holds the pipeline settings
type Config struct {
	Indicators     technical.Params
	Sizing         SizingConfig
	AdvisorTimeout time.Duration
}

// DefaultConfig returns the standard pipeline settings
func DefaultConfig() Config {
	return Config{
		Indicators:     technical.DefaultParams(),
		Sizing:         DefaultSizingConfig(),
		AdvisorTimeout: 5 * time.Second,
	}
}

// Manager runs indicators → regime → scenarios → selection → sizing.
// It holds no mutable state and is safe for concurrent use.
type Manager struct {
	ranker advisor.Ranker
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a risk manager; a nil ranker means the deterministic fallback is always used
func NewManager(ranker advisor.Ranker, cfg Config) *Manager {
	if ranker == nil {
		ranker = advisor.Null{}
	}
	if cfg.AdvisorTimeout <= 0 {
		cfg.AdvisorTimeout = 5 * time.Second
	}
	return &Manager{
		ranker: ranker,
		cfg:    cfg,
		now:    time.Now,
		logger: log.With().Str("component", "risk_manager").Logger(),
	}
}

func (r *Request) validate() error {
	if len(r.Candles) == 0 {
		return fmt.Errorf("%w: no candles", ErrInvalidRequest)
	}
	if err := model.ValidateCandles(r.Candles); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if r.Direction != model.Buy && r.Direction != model.Sell {
		return fmt.Errorf("%w: direction %q", ErrInvalidRequest, r.Direction)
	}
	if !finite(r.AccountBalance, r.RiskPercentage, r.EntryPrice) || r.AccountBalance <= 0 || r.RiskPercentage <= 0 {
		return fmt.Errorf("%w: balance and risk percentage must be positive", ErrInvalidRequest)
	}
	if r.EntryPrice < 0 {
		return fmt.Errorf("%w: negative entry price", ErrInvalidRequest)
	}
	return nil
}

// Evaluate produces stop loss, take profit and position size for one entry.
// Scenario generation always completes before the advisor is consulted; an advisor
// failure or timeout only changes which scenario is picked.
func (m *Manager) Evaluate(ctx context.Context, req Request) (*model.RiskManagementResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	candles := req.Candles
	entry := req.EntryPrice
	if entry == 0 {
		entry = candles[len(candles)-1].Close
	}

	regime, indicators := market.ClassifyCandles(candles, m.cfg.Indicators)
	structure := market.AnalyzeStructure(candles, market.StructureWindow)
	recentVolatility := technical.CalculateVolatilityRatio(candles, 5, 20) * 100

	scenarios := GenerateScenarios(ScenarioInput{
		EntryPrice:       entry,
		Direction:        req.Direction,
		ATR:              indicators.ATR,
		Levels:           regime.KeyLevels,
		RecentVolatility: recentVolatility,
		Regime:           regime.PrimaryRegime,
	})

	ranking, rankErr := m.rank(ctx, advisor.Request{
		Symbol:          req.Symbol,
		Timeframe:       req.Timeframe,
		EntryPrice:      entry,
		Direction:       req.Direction,
		AccountBalance:  req.AccountBalance,
		RiskPercentage:  req.RiskPercentage,
		ATR:             indicators.ATR,
		MarketStructure: structure,
		Regime:          regime.PrimaryRegime,
		Scenarios:       scenarios,
	})

	sel, err := SelectScenario(scenarios, ranking, rankErr, SelectionContext{
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		EntryPrice: entry,
	})
	if err != nil {
		return nil, fmt.Errorf("select scenario: %w", err)
	}

	result := &model.RiskManagementResult{
		ID:              uuid.NewString(),
		Symbol:          req.Symbol,
		Timeframe:       req.Timeframe,
		Direction:       req.Direction,
		EntryPrice:      entry,
		StopLoss:        sel.Scenario.StopLoss,
		TakeProfit:      sel.Scenario.TakeProfit,
		RiskRewardRatio: sel.Scenario.RiskRewardRatio,
		Confidence:      sel.Scenario.Confidence,
		Reasoning:       sel.Scenario.Reasoning,
		Scenarios:       scenarios,
		SelectedIndex:   sel.Index,
		Regime:          regime,
		Indicators:      indicators,
		AdvisorUsed:     sel.AdvisorUsed,
		CreatedAt:       m.now().UTC(),
	}
	result.Warnings = append(result.Warnings, sel.Warnings...)
	result.Warnings = append(result.Warnings, sel.Scenario.Warnings...)
	if sel.AdvisorUsed && sel.Reasoning != "" {
		result.Reasoning = sel.Reasoning
	}

	if anomaly := market.DetectMarketAnomalies(candles); anomaly.IsAnomaly {
		result.Warnings = append(result.Warnings, fmt.Sprintf("market anomaly %s: %s", anomaly.AnomalyType, anomaly.Details))
	}

	if err := m.size(result, req); err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("id", result.ID).
		Str("symbol", req.Symbol).
		Str("direction", string(req.Direction)).
		Str("regime", string(regime.PrimaryRegime)).
		Int("scenario", result.SelectedIndex).
		Float64("stop_loss", result.StopLoss).
		Float64("take_profit", result.TakeProfit).
		Float64("position_size", result.PositionSize).
		Bool("advisor_used", result.AdvisorUsed).
		Bool("fallback_used", result.FallbackUsed).
		Msg("Risk evaluation complete")

	return result, nil
}

// rank calls the advisor under its own deadline
func (m *Manager) rank(ctx context.Context, req advisor.Request) (*advisor.Ranking, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AdvisorTimeout)
	defer cancel()

	ranking, err := m.ranker.Rank(ctx, req)
	if err != nil && !errors.Is(err, advisor.ErrUnavailable) {
		m.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("Advisor ranking rejected")
	}
	return ranking, err
}

// size sets the position size on result. When sizing fails on numeric grounds or the
// sized result breaks the level ordering, fixed-percentage fallback levels are used.
func (m *Manager) size(result *model.RiskManagementResult, req Request) error {
	sizing, err := CalculatePositionSize(SizingInput{
		AccountBalance: req.AccountBalance,
		RiskPercentage: req.RiskPercentage,
		EntryPrice:     result.EntryPrice,
		StopLoss:       result.StopLoss,
	}, m.cfg.Sizing)
	if err == nil {
		result.PositionSize = sizing.PositionSize
		result.MaxRiskAmount = sizing.RiskAmount
		if verr := Validate(result); verr != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidNumeric, verr)
		}
	}
	if err == nil {
		result.Warnings = append(result.Warnings, sizing.Warnings...)
		return nil
	}
	if !errors.Is(err, ErrInvalidNumeric) {
		return err
	}
	m.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("Position sizing failed, using fallback levels")

	sizing, err = m.applyFallback(result, req)
	if err != nil {
		return err
	}
	result.PositionSize = sizing.PositionSize
	result.MaxRiskAmount = sizing.RiskAmount
	result.Warnings = append(result.Warnings, sizing.Warnings...)

	if err := Validate(result); err != nil {
		return fmt.Errorf("%w: fallback result: %v", ErrInvalidNumeric, err)
	}
	return nil
}

func (m *Manager) applyFallback(result *model.RiskManagementResult, req Request) (*PositionSizingResult, error) {
	stop, target := FallbackLevels(result.EntryPrice, req.Direction, req.Timeframe)

	sizing, err := CalculatePositionSize(SizingInput{
		AccountBalance: req.AccountBalance,
		RiskPercentage: req.RiskPercentage,
		EntryPrice:     result.EntryPrice,
		StopLoss:       stop,
	}, m.cfg.Sizing)
	if err != nil {
		return nil, fmt.Errorf("fallback sizing: %w", err)
	}

	result.StopLoss = stop
	result.TakeProfit = target
	result.RiskRewardRatio = RiskReward(result.EntryPrice, stop, target)
	result.Confidence = FallbackConfidence
	result.Reasoning = "fallback used"
	result.FallbackUsed = true
	result.Warnings = append(result.Warnings, "position sizing failed, fixed-percentage fallback used")
	return sizing, nil
}

// Validate reports whether a result satisfies the price ordering and size invariants
func Validate(result *model.RiskManagementResult) error {
	if result == nil {
		return errors.New("nil result")
	}
	sign := result.Direction.Sign()
	if sign*(result.EntryPrice-result.StopLoss) <= 0 || sign*(result.TakeProfit-result.EntryPrice) <= 0 {
		return fmt.Errorf("levels out of order for %s: stop %.5f entry %.5f target %.5f",
			result.Direction, result.StopLoss, result.EntryPrice, result.TakeProfit)
	}
	if result.PositionSize <= 0 || math.IsNaN(result.PositionSize) || math.IsInf(result.PositionSize, 0) {
		return fmt.Errorf("invalid position size %v", result.PositionSize)
	}
	return nil
}
