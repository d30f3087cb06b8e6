package technical

import "github.com/Alias1177/RiskAgent/internal/model"

const (
	volumeWindow    = 3
	volumeThreshold = 0.10
)

// CalculateVolumeProfile compares the mean of the last 3 volumes to the 3 before them
func CalculateVolumeProfile(candles []model.Candle) model.VolumeTrend {
	if len(candles) < volumeWindow*2 {
		return model.VolumeStable
	}

	var recent, previous float64
	for i := len(candles) - volumeWindow; i < len(candles); i++ {
		recent += candles[i].Volume
	}
	for i := len(candles) - volumeWindow*2; i < len(candles)-volumeWindow; i++ {
		previous += candles[i].Volume
	}
	recent /= volumeWindow
	previous /= volumeWindow

	// No volume data (common for forex feeds)
	if previous <= 0 {
		return model.VolumeStable
	}

	change := (recent - previous) / previous
	switch {
	case change > volumeThreshold:
		return model.VolumeIncreasing
	case change < -volumeThreshold:
		return model.VolumeDecreasing
	default:
		return model.VolumeStable
	}
}
