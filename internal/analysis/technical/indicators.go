package technical

import "github.com/Alias1177/RiskAgent/internal/model"

// Params holds indicator lookback periods
type Params struct {
	ATRPeriod int
	ADXPeriod int
	RSIPeriod int
}

// DefaultParams returns the 14-bar periods used across the agents
func DefaultParams() Params {
	return Params{ATRPeriod: 14, ADXPeriod: 14, RSIPeriod: 14}
}

// CalculateAllIndicators computes an IndicatorSet for a set of candles.
// Short histories degrade each field to its neutral default.
func CalculateAllIndicators(candles []model.Candle, params Params) model.IndicatorSet {
	return model.IndicatorSet{
		ATR:               CalculateATR(candles, params.ATRPeriod),
		ADX:               CalculateADX(candles, params.ADXPeriod),
		RSI:               CalculateRSI(candles, params.RSIPeriod),
		MACDSignal:        CalculateMACDSign(candles),
		BollingerPosition: CalculateBollingerPosition(candles),
		VolumeProfile:     CalculateVolumeProfile(candles),
	}
}
