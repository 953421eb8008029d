package models

import (
	"fmt"
	"time"
)

// Feedback labels a human can attach to a served prediction.
const (
	LabelConfirm = "confirm"
	LabelDeny    = "deny"
)

// FeedbackRecord is one durable, human-labeled observation. Features are
// stored as normalized at capture time; records are append-only.
type FeedbackRecord struct {
	Instrument       string    `json:"instrument"`
	Features         []float64 `json:"features"` // FeatureNames order, scaled
	TargetVolatility float64   `json:"target_volatility"`
	TargetDirection  float64   `json:"target_direction"` // 0 or 1
	Timestamp        time.Time `json:"timestamp"`
}

// GroundTruthDirection derives the 0/1 training target from the human label.
// "confirm" agrees with the prediction, "deny" inverts it. The rule reflects
// the human's stated agreement, never the market outcome.
func GroundTruthDirection(label, predictedDirection string) (float64, error) {
	predicted := DirectionTarget(predictedDirection)
	switch label {
	case LabelConfirm:
		return predicted, nil
	case LabelDeny:
		return 1 - predicted, nil
	default:
		return 0, fmt.Errorf("%w: label must be %q or %q, got %q", ErrInvalidInput, LabelConfirm, LabelDeny, label)
	}
}

// ReferenceRow is one row of the immutable per-instrument reference dataset
// produced at initial training time. Same schema as FeedbackRecord.
type ReferenceRow struct {
	Features         []float64
	TargetVolatility float64
	TargetDirection  float64
}
