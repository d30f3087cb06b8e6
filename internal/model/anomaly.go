package model

// AnomalyDetection contains information about market anomalies
type AnomalyDetection struct {
	IsAnomaly        bool     `json:"is_anomaly"`
	AnomalyType      string   `json:"anomaly_type,omitempty"` // PRICE_SPIKE, GAP, VOLUME_SPIKE, RAPID_PRICE_MOVE
	AnomalyScore     float64  `json:"anomaly_score"`          // 0-1 score
	Details          string   `json:"details,omitempty"`
	RecommendedFlags []string `json:"recommended_flags,omitempty"`
}
