package models

import (
	"time"

	"InvestCore/internal/ml"
)

// Direction labels for the classification output.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// DirectionFromScore maps a classifier score to a label. The 0.5 boundary
// belongs to "up".
func DirectionFromScore(score float64) string {
	if score >= 0.5 {
		return DirectionUp
	}
	return DirectionDown
}

// DirectionTarget maps a label to its 0/1 training target.
func DirectionTarget(direction string) float64 {
	if direction == DirectionUp {
		return 1
	}
	return 0
}

// ModelBundle is the immutable, versioned triple of scaler, volatility
// regressor and direction classifier for one instrument. Bundles are never
// mutated after publish; the registry swaps whole pointers.
type ModelBundle struct {
	Instrument string                   `json:"instrument"`
	Version    int                      `json:"version"`
	Scaler     *ml.StandardScaler       `json:"scaler"`
	Volatility *ml.RidgeRegressor       `json:"volatility"`
	Direction  *ml.LogisticClassifier   `json:"direction"`
	TrainedAt  time.Time                `json:"trained_at"`
	Samples    int                      `json:"samples"`
}

// PredictionResult is derived deterministically from one FeatureVector and
// the active bundle.
type PredictionResult struct {
	Instrument     string  `json:"instrument"`
	Volatility     float64 `json:"volatility"`
	Direction      string  `json:"direction"`
	DirectionScore float64 `json:"direction_score"`
	ModelVersion   int     `json:"model_version"`
}
