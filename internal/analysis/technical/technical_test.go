package technical

import (
	"math"
	"testing"
	"time"

	"github.com/Alias1177/RiskAgent/internal/model"
)

var baseTime = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func generateTestCandles(n int, generator func(int) model.Candle) []model.Candle {
	candles := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = generator(i)
		candles[i].Timestamp = baseTime.Add(time.Duration(i) * time.Minute)
	}
	return candles
}

func flatCandle(price, halfRange float64) model.Candle {
	return model.Candle{Open: price, High: price + halfRange, Low: price - halfRange, Close: price, Volume: 1000}
}

func closeCandle(price float64) model.Candle {
	return flatCandle(price, 0.5)
}

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestCalculateATR(t *testing.T) {
	tests := []struct {
		name     string
		candles  []model.Candle
		period   int
		expected float64
	}{
		{
			name:     "Недостаточно данных",
			candles:  generateTestCandles(5, func(i int) model.Candle { return flatCandle(100, 1) }),
			period:   14,
			expected: DefaultATR,
		},
		{
			name:     "flat range of 1 at price 100",
			candles:  generateTestCandles(20, func(i int) model.Candle { return flatCandle(100, 0.5) }),
			period:   14,
			expected: 0.01,
		},
		{
			name: "gap counts toward true range",
			candles: generateTestCandles(3, func(i int) model.Candle {
				// Each bar opens 2 above the previous close with a range of 1
				return flatCandle(100+float64(i)*2, 0.5)
			}),
			period: 2,
			// TR = |high - prevClose| = 2.5 for both bars, last close 104
			expected: 2.5 / 104,
		},
		{
			name:     "non-positive period",
			candles:  generateTestCandles(20, func(i int) model.Candle { return flatCandle(100, 0.5) }),
			period:   0,
			expected: DefaultATR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateATR(tt.candles, tt.period)
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("CalculateATR() = %v, want %v", got, tt.expected)
			}
			if got < 0 {
				t.Errorf("CalculateATR() returned negative value %v", got)
			}
		})
	}
}

func TestCalculateRSI(t *testing.T) {
	tests := []struct {
		name     string
		candles  []model.Candle
		period   int
		expected float64
	}{
		{
			name:     "single candle",
			candles:  generateTestCandles(1, func(i int) model.Candle { return closeCandle(100) }),
			period:   14,
			expected: DefaultRSI,
		},
		{
			name:     "window of 1",
			candles:  generateTestCandles(30, func(i int) model.Candle { return closeCandle(100 + float64(i)) }),
			period:   1,
			expected: 100,
		},
		{
			name:     "Только рост",
			candles:  generateTestCandles(30, func(i int) model.Candle { return closeCandle(100 + float64(i)) }),
			period:   14,
			expected: 100,
		},
		{
			name:     "alternating moves balance out",
			candles:  generateTestCandles(15, func(i int) model.Candle { return closeCandle(100 + float64(i%2)) }),
			period:   14,
			expected: 50,
		},
		{
			name:     "only losses",
			candles:  generateTestCandles(30, func(i int) model.Candle { return closeCandle(200 - float64(i)) }),
			period:   14,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateRSI(tt.candles, tt.period)
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("CalculateRSI() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateADX(t *testing.T) {
	tests := []struct {
		name     string
		candles  []model.Candle
		expected float64
	}{
		{
			name:     "insufficient data",
			candles:  generateTestCandles(10, func(i int) model.Candle { return closeCandle(100) }),
			expected: DefaultADX,
		},
		{
			name:     "flat market has no directional movement",
			candles:  generateTestCandles(20, func(i int) model.Candle { return closeCandle(100) }),
			expected: 0,
		},
		{
			name:     "steady uptrend",
			candles:  generateTestCandles(20, func(i int) model.Candle { return closeCandle(100 + float64(i)) }),
			expected: 100,
		},
		{
			name:     "steady downtrend",
			candles:  generateTestCandles(20, func(i int) model.Candle { return closeCandle(200 - float64(i)) }),
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateADX(tt.candles, 14)
			if !almostEqual(got, tt.expected, 1e-9) {
				t.Errorf("CalculateADX() = %v, want %v", got, tt.expected)
			}
			if got < 0 || got > 100 {
				t.Errorf("CalculateADX() = %v out of [0,100]", got)
			}
		})
	}
}

func TestCalculateMACDSign(t *testing.T) {
	tests := []struct {
		name     string
		candles  []model.Candle
		expected model.Signal
	}{
		{
			name:     "25 candles is not enough",
			candles:  generateTestCandles(25, func(i int) model.Candle { return closeCandle(100 + float64(i)) }),
			expected: model.SignalNeutral,
		},
		{
			name:     "rising closes",
			candles:  generateTestCandles(40, func(i int) model.Candle { return closeCandle(100 + float64(i)) }),
			expected: model.SignalBullish,
		},
		{
			name:     "falling closes",
			candles:  generateTestCandles(40, func(i int) model.Candle { return closeCandle(200 - float64(i)) }),
			expected: model.SignalBearish,
		},
		{
			name:     "flat closes",
			candles:  generateTestCandles(40, func(i int) model.Candle { return closeCandle(100) }),
			expected: model.SignalNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateMACDSign(tt.candles); got != tt.expected {
				t.Errorf("CalculateMACDSign() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateBollingerPosition(t *testing.T) {
	withLast := func(last float64) []model.Candle {
		return generateTestCandles(20, func(i int) model.Candle {
			if i == 19 {
				return closeCandle(last)
			}
			return closeCandle(100)
		})
	}

	tests := []struct {
		name     string
		candles  []model.Candle
		expected model.BandPosition
	}{
		{
			name:     "short history",
			candles:  generateTestCandles(19, func(i int) model.Candle { return closeCandle(100) }),
			expected: model.BandMiddle,
		},
		{
			name:     "close spikes above upper band",
			candles:  withLast(110),
			expected: model.BandUpper,
		},
		{
			name:     "close drops below lower band",
			candles:  withLast(90),
			expected: model.BandLower,
		},
		{
			name:     "narrow bands",
			candles:  generateTestCandles(20, func(i int) model.Candle { return closeCandle(100 + float64(i%2)*0.1) }),
			expected: model.BandSqueeze,
		},
		{
			name:     "wide bands with close inside",
			candles:  generateTestCandles(20, func(i int) model.Candle { return closeCandle(100 + float64(i%2)*4) }),
			expected: model.BandMiddle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateBollingerPosition(tt.candles); got != tt.expected {
				t.Errorf("CalculateBollingerPosition() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculateVolumeProfile(t *testing.T) {
	withVolumes := func(previous, recent float64) []model.Candle {
		return generateTestCandles(6, func(i int) model.Candle {
			c := closeCandle(100)
			c.Volume = previous
			if i >= 3 {
				c.Volume = recent
			}
			return c
		})
	}

	tests := []struct {
		name     string
		candles  []model.Candle
		expected model.VolumeTrend
	}{
		{"five candles", generateTestCandles(5, func(i int) model.Candle { return closeCandle(100) }), model.VolumeStable},
		{"volume up 20%", withVolumes(1000, 1200), model.VolumeIncreasing},
		{"volume down 20%", withVolumes(1000, 800), model.VolumeDecreasing},
		{"volume up 5%", withVolumes(1000, 1050), model.VolumeStable},
		{"Нет данных об объеме", withVolumes(0, 0), model.VolumeStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateVolumeProfile(tt.candles); got != tt.expected {
				t.Errorf("CalculateVolumeProfile() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFindSwingPoints(t *testing.T) {
	highs := []float64{1, 2, 5, 2, 1, 2, 3, 2, 1}
	candles := generateTestCandles(len(highs), func(i int) model.Candle {
		return model.Candle{Open: highs[i] - 0.5, High: highs[i], Low: highs[i] - 1, Close: highs[i] - 0.5}
	})

	swingHighs := FindSwingHighs(candles)
	if len(swingHighs) != 2 {
		t.Fatalf("FindSwingHighs() returned %d points, want 2", len(swingHighs))
	}
	if swingHighs[0].Index != 2 || swingHighs[1].Index != 6 {
		t.Errorf("FindSwingHighs() indices = %d,%d, want 2,6", swingHighs[0].Index, swingHighs[1].Index)
	}

	// Lows mirror highs here, so the valley at index 4 is the only swing low
	swingLows := FindSwingLows(candles)
	if len(swingLows) != 1 || swingLows[0].Index != 4 {
		t.Errorf("FindSwingLows() = %+v, want single point at index 4", swingLows)
	}

	plateau := []float64{1, 2, 5, 5, 2, 1}
	flat := generateTestCandles(len(plateau), func(i int) model.Candle {
		return model.Candle{Open: plateau[i], High: plateau[i], Low: plateau[i] - 1, Close: plateau[i]}
	})
	if got := FindSwingHighs(flat); len(got) != 0 {
		t.Errorf("equal neighbours should not form a swing, got %+v", got)
	}
}

func TestIdentifySupportResistance(t *testing.T) {
	bars := [][2]float64{
		{1.1010, 1.0990},
		{1.1020, 1.0980},
		{1.1050, 1.0950},
		{1.1020, 1.0980},
		{1.1010, 1.0990},
		{1.1010, 1.0990},
		{1.1010, 1.0990},
	}
	candles := generateTestCandles(len(bars), func(i int) model.Candle {
		return model.Candle{Open: 1.1000, High: bars[i][0], Low: bars[i][1], Close: 1.1000}
	})

	levels := IdentifySupportResistance(candles)
	tolerance := 1.1 * levelTolerance

	if len(levels.Resistance) != 1 || !almostEqual(levels.Resistance[0], 1.1050, tolerance) {
		t.Errorf("Resistance = %v, want [~1.1050]", levels.Resistance)
	}
	if len(levels.Support) != 1 || !almostEqual(levels.Support[0], 1.0950, tolerance) {
		t.Errorf("Support = %v, want [~1.0950]", levels.Support)
	}

	if got := IdentifySupportResistance(candles[:4]); len(got.All()) != 0 {
		t.Errorf("short history should yield no levels, got %+v", got)
	}
}

func TestIdentifySupportResistanceOrdering(t *testing.T) {
	// Zig-zag with progressively deeper waves around 100
	candles := generateTestCandles(80, func(i int) model.Candle {
		amp := 1 + float64(i/8)
		price := 100 + amp*math.Sin(float64(i)*math.Pi/4)
		return flatCandle(price, 0.2)
	})
	last := candles[len(candles)-1].Close

	levels := IdentifySupportResistance(candles)
	if len(levels.Support) > maxLevels || len(levels.Resistance) > maxLevels {
		t.Fatalf("too many levels: %+v", levels)
	}
	for i, s := range levels.Support {
		if s >= last {
			t.Errorf("support %v not below last close %v", s, last)
		}
		if i > 0 && s > levels.Support[i-1] {
			t.Errorf("support not nearest-first: %v", levels.Support)
		}
	}
	for i, r := range levels.Resistance {
		if r <= last {
			t.Errorf("resistance %v not above last close %v", r, last)
		}
		if i > 0 && r < levels.Resistance[i-1] {
			t.Errorf("resistance not nearest-first: %v", levels.Resistance)
		}
	}

	again := IdentifySupportResistance(candles)
	if len(again.Support) != len(levels.Support) || len(again.Resistance) != len(levels.Resistance) {
		t.Fatalf("repeated call returned different levels")
	}
	for i := range again.Support {
		if again.Support[i] != levels.Support[i] {
			t.Errorf("repeated call differs: %v vs %v", again.Support, levels.Support)
		}
	}
}

func TestCalculateVolatilityRatio(t *testing.T) {
	if got := CalculateVolatilityRatio(nil, 5, 20); got != 1.0 {
		t.Errorf("empty input: got %v, want 1.0", got)
	}

	// Last 5 bars have twice the range of the rest
	candles := generateTestCandles(30, func(i int) model.Candle {
		if i >= 25 {
			return flatCandle(100, 1)
		}
		return flatCandle(100, 0.5)
	})
	got := CalculateVolatilityRatio(candles, 5, 20)
	// short ATR = 2/100, long ATR = (5*2 + 15*1)/20/100
	expected := 0.02 / (25.0 / 20.0 / 100)
	if !almostEqual(got, expected, 1e-9) {
		t.Errorf("CalculateVolatilityRatio() = %v, want %v", got, expected)
	}
}

func TestCalculateAllIndicators(t *testing.T) {
	short := CalculateAllIndicators(generateTestCandles(2, func(i int) model.Candle { return closeCandle(100) }), DefaultParams())
	want := model.IndicatorSet{
		ATR:               DefaultATR,
		ADX:               DefaultADX,
		RSI:               DefaultRSI,
		MACDSignal:        model.SignalNeutral,
		BollingerPosition: model.BandMiddle,
		VolumeProfile:     model.VolumeStable,
	}
	if short != want {
		t.Errorf("CalculateAllIndicators() on short data = %+v, want %+v", short, want)
	}

	trend := generateTestCandles(60, func(i int) model.Candle { return closeCandle(100 + float64(i)) })
	set := CalculateAllIndicators(trend, DefaultParams())
	if set.RSI != 100 || set.ADX != 100 || set.MACDSignal != model.SignalBullish {
		t.Errorf("unexpected indicators for steady uptrend: %+v", set)
	}
	if set.ATR <= 0 {
		t.Errorf("ATR must be positive, got %v", set.ATR)
	}
}
