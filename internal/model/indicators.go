package model

// Signal is a directional label shared by MACD, regime trend and levels
type Signal string

const (
	SignalBullish Signal = "BULLISH"
	SignalBearish Signal = "BEARISH"
	SignalNeutral Signal = "NEUTRAL"
)

// BandPosition is where the last close sits against the Bollinger bands
type BandPosition string

const (
	BandUpper   BandPosition = "UPPER"
	BandMiddle  BandPosition = "MIDDLE"
	BandLower   BandPosition = "LOWER"
	BandSqueeze BandPosition = "SQUEEZE"
)

// VolumeTrend compares recent volume with the preceding bars
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "INCREASING"
	VolumeDecreasing VolumeTrend = "DECREASING"
	VolumeStable     VolumeTrend = "STABLE"
)

// IndicatorSet is an immutable snapshot computed from a trailing window of candles.
// ATR is expressed as a fraction of the last close, not in price units.
type IndicatorSet struct {
	ATR               float64      `json:"atr"`
	ADX               float64      `json:"adx"`
	RSI               float64      `json:"rsi"`
	MACDSignal        Signal       `json:"macd_signal"`
	BollingerPosition BandPosition `json:"bollinger_position"`
	VolumeProfile     VolumeTrend  `json:"volume_profile"`
}

// SwingPoint is a local extreme in a price series
type SwingPoint struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
}

// KeyLevels holds support and resistance prices, nearest first
type KeyLevels struct {
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`
}

// All returns support and resistance as one slice
func (k KeyLevels) All() []float64 {
	levels := make([]float64, 0, len(k.Support)+len(k.Resistance))
	levels = append(levels, k.Support...)
	return append(levels, k.Resistance...)
}
