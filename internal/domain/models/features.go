package models

import (
	"fmt"
	"math"
)

// FeatureCount is the fixed width of every feature vector.
const FeatureCount = 10

// FeatureNames lists the columns of the feature schema, in storage order.
var FeatureNames = [FeatureCount]string{
	"open", "high", "low", "close", "volume",
	"rsi", "atr", "volume_change", "sma_20", "ema_50",
}

// FeatureVector is the fixed 10-field numeric input describing the current
// market and technical state of one instrument.
type FeatureVector struct {
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
	RSI          float64 `json:"rsi"`
	ATR          float64 `json:"atr"`
	VolumeChange float64 `json:"volume_change"`
	SMA20        float64 `json:"sma_20"`
	EMA50        float64 `json:"ema_50"`
}

// Values returns the vector as a slice in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.Open, v.High, v.Low, v.Close, v.Volume,
		v.RSI, v.ATR, v.VolumeChange, v.SMA20, v.EMA50,
	}
}

// FeaturesFromValues builds a vector from a slice in FeatureNames order.
func FeaturesFromValues(vals []float64) (FeatureVector, error) {
	if len(vals) != FeatureCount {
		return FeatureVector{}, fmt.Errorf("%w: expected %d features, got %d", ErrInvalidInput, FeatureCount, len(vals))
	}
	return FeatureVector{
		Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		RSI: vals[5], ATR: vals[6], VolumeChange: vals[7], SMA20: vals[8], EMA50: vals[9],
	}, nil
}

// Validate rejects non-finite values. Missing fields are caught at the
// binding layer; NaN or Inf sneaking through any other path is caught here.
func (v FeatureVector) Validate() error {
	for i, val := range v.Values() {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%w: feature %s is not finite", ErrInvalidInput, FeatureNames[i])
		}
	}
	return nil
}
