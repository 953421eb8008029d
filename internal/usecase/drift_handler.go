package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"InvestCore/internal/retrain"
	applogger "InvestCore/pkg/logger"
)

// DriftSignalHandler consumes drift-score messages pushed by the external
// drift monitor onto Kafka and feeds them to the retrain trigger.
type DriftSignalHandler struct {
	topic     string
	trigger   *retrain.Trigger
	supported func(instrument string) bool
	logger    *applogger.Logger
}

func NewDriftSignalHandler(topic string, trigger *retrain.Trigger, supported func(string) bool, logger *applogger.Logger) *DriftSignalHandler {
	return &DriftSignalHandler{
		topic:     topic,
		trigger:   trigger,
		supported: supported,
		logger:    logger.With("drift_signal"),
	}
}

func (h *DriftSignalHandler) Topic() string { return h.topic }

type driftMessage struct {
	Instrument string  `json:"instrument"`
	Score      float64 `json:"score"`
}

// Handle parses one drift message. Malformed or out-of-range messages are
// dropped without retry; they carry no recoverable work.
func (h *DriftSignalHandler) Handle(ctx context.Context, value []byte) error {
	var msg driftMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		h.logger.Warn("malformed drift message", applogger.Error(err))
		return nil
	}
	if !h.supported(msg.Instrument) {
		h.logger.Warn("drift message for unknown instrument",
			applogger.String("instrument", msg.Instrument))
		return nil
	}
	if math.IsNaN(msg.Score) || msg.Score < 0 || msg.Score > 1 {
		h.logger.Warn("drift score out of range",
			applogger.String("instrument", msg.Instrument),
			applogger.Float64("score", msg.Score))
		return nil
	}

	if _, err := h.trigger.OnDriftScore(ctx, msg.Instrument, msg.Score); err != nil {
		return fmt.Errorf("drift trigger: %w", err)
	}
	return nil
}
