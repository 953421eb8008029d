package models

// Feature fields are pointers so that an absent field fails validation
// instead of silently becoming zero.
type FeaturePayload struct {
	Open         *float64 `json:"open" validate:"required"`
	High         *float64 `json:"high" validate:"required"`
	Low          *float64 `json:"low" validate:"required"`
	Close        *float64 `json:"close" validate:"required"`
	Volume       *float64 `json:"volume" validate:"required"`
	RSI          *float64 `json:"rsi" validate:"required"`
	ATR          *float64 `json:"atr" validate:"required"`
	VolumeChange *float64 `json:"volume_change" validate:"required"`
	SMA20        *float64 `json:"sma_20" validate:"required"`
	EMA50        *float64 `json:"ema_50" validate:"required"`
}

// Vector converts the payload into a FeatureVector, rejecting non-finite
// values.
func (p FeaturePayload) Vector() (FeatureVector, error) {
	v := FeatureVector{
		Open: *p.Open, High: *p.High, Low: *p.Low, Close: *p.Close, Volume: *p.Volume,
		RSI: *p.RSI, ATR: *p.ATR, VolumeChange: *p.VolumeChange, SMA20: *p.SMA20, EMA50: *p.EMA50,
	}
	if err := v.Validate(); err != nil {
		return FeatureVector{}, err
	}
	return v, nil
}

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Instrument string `json:"instrument" validate:"required"`
	FeaturePayload
}

// PredictResponse wraps the served prediction.
type PredictResponse struct {
	Instrument string           `json:"instrument"`
	Prediction PredictionResult `json:"prediction"`
}

// NotifyRequest is the body of POST /api/notify. It schedules a
// human-in-the-loop message carrying confirm/deny callback links.
type NotifyRequest struct {
	Instrument     string           `json:"instrument" validate:"required"`
	Prediction     PredictionResult `json:"prediction"`
	Features       FeaturePayload   `json:"features"`
	RecipientEmail string           `json:"recipient_email" validate:"required,email"`
	RecipientName  string           `json:"recipient_name" validate:"required"`
}

// DriftRequest is the body of POST /api/drift, pushed by the drift monitor.
type DriftRequest struct {
	Instrument string   `json:"instrument" validate:"required"`
	Score      *float64 `json:"score" validate:"required,gte=0,lte=1"`
}

// ModelInfo is the public view of the active bundle for one instrument.
type ModelInfo struct {
	Instrument string `json:"instrument"`
	Version    int    `json:"version"`
	TrainedAt  string `json:"trained_at"`
	Samples    int    `json:"samples"`
}
