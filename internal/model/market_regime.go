package model

// Regime is the primary market state label
type Regime string

const (
	RegimeTrending      Regime = "TRENDING"
	RegimeRanging       Regime = "RANGING"
	RegimeBreakout      Regime = "BREAKOUT"
	RegimeVolatile      Regime = "VOLATILE"
	RegimeConsolidation Regime = "CONSOLIDATION"
)

// VolatilityRank buckets ATR relative to price
type VolatilityRank string

const (
	VolatilityVeryLow  VolatilityRank = "VERY_LOW"
	VolatilityLow      VolatilityRank = "LOW"
	VolatilityNormal   VolatilityRank = "NORMAL"
	VolatilityHigh     VolatilityRank = "HIGH"
	VolatilityVeryHigh VolatilityRank = "VERY_HIGH"
)

// MarketStructure is derived from swing-point sequences over a trailing window
type MarketStructure struct {
	HigherHighs     bool `json:"higher_highs"`
	HigherLows      bool `json:"higher_lows"`
	LowerHighs      bool `json:"lower_highs"`
	LowerLows       bool `json:"lower_lows"`
	StructureBroken bool `json:"structure_broken"`
}

// TradingStyle is the fixed policy attached to each regime
type TradingStyle struct {
	Name                   string  `json:"name"` // TREND_FOLLOWING, BREAKOUT, MOMENTUM, MEAN_REVERSION
	EntrySignal            int     `json:"entry_signal"`
	ExitSignal             int     `json:"exit_signal"`
	RiskAdjustment         float64 `json:"risk_adjustment"`
	PositionSizeAdjustment float64 `json:"position_size_adjustment"`
}

// RegimeClassification represents the current market conditions
type RegimeClassification struct {
	PrimaryRegime    Regime         `json:"primary_regime"`
	SubRegime        string         `json:"sub_regime"`
	Confidence       float64        `json:"confidence"`      // 0-1
	RegimeStrength   int            `json:"regime_strength"` // 0-10
	TrendDirection   Signal         `json:"trend_direction"`
	VolatilityRank   VolatilityRank `json:"volatility_rank"`
	MomentumStrength int            `json:"momentum_strength"`
	KeyLevels        KeyLevels      `json:"key_levels"`
	Style            TradingStyle   `json:"trading_style"`
}
