package risk

import (
	"strings"
)

// TimeframeBounds are the sanity limits applied after a scenario is selected
type TimeframeBounds struct {
	MaxStopPips   float64 `json:"max_stop_pips"`
	MaxTargetPips float64 `json:"max_target_pips"`
	MinRR         float64 `json:"min_rr"`
	MaxRR         float64 `json:"max_rr"`
}

// DefaultTimeframe is used when the requested timeframe is unknown
const DefaultTimeframe = "1h"

var timeframeBounds = map[string]TimeframeBounds{
	"1m":  {MaxStopPips: 10, MaxTargetPips: 30, MinRR: 1.2, MaxRR: 3},
	"5m":  {MaxStopPips: 20, MaxTargetPips: 60, MinRR: 1.5, MaxRR: 4},
	"15m": {MaxStopPips: 30, MaxTargetPips: 90, MinRR: 1.8, MaxRR: 5},
	"1h":  {MaxStopPips: 50, MaxTargetPips: 150, MinRR: 2.0, MaxRR: 6},
	"4h":  {MaxStopPips: 100, MaxTargetPips: 300, MinRR: 2.5, MaxRR: 8},
	"1d":  {MaxStopPips: 200, MaxTargetPips: 600, MinRR: 3.0, MaxRR: 10},
}

var timeframeAliases = map[string]string{
	"1m": "1m", "1min": "1m", "m1": "1m",
	"5m": "5m", "5min": "5m", "m5": "5m",
	"15m": "15m", "15min": "15m", "m15": "15m",
	"1h": "1h", "60min": "1h", "1hour": "1h", "h1": "1h",
	"4h": "4h", "240min": "4h", "h4": "4h",
	"1d": "1d", "1day": "1d", "d1": "1d", "daily": "1d",
}

// NormalizeTimeframe maps exchange-style intervals (1min, 1day, ...) to the short form.
// The second result is false for unknown timeframes.
func NormalizeTimeframe(tf string) (string, bool) {
	short, ok := timeframeAliases[strings.ToLower(strings.TrimSpace(tf))]
	return short, ok
}

// BoundsFor returns the limits for a timeframe, falling back to 1h
func BoundsFor(tf string) (TimeframeBounds, bool) {
	short, ok := NormalizeTimeframe(tf)
	if !ok {
		return timeframeBounds[DefaultTimeframe], false
	}
	return timeframeBounds[short], true
}

// PipSize returns the smallest standard increment for a symbol trading at price
func PipSize(symbol string, price float64) float64 {
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	switch {
	case price < 50:
		return 0.0001
	case price < 1000:
		return 0.01
	default:
		return 1
	}
}
