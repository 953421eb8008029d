package usecase

import (
	"context"
	"testing"

	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/retrain"
	applogger "InvestCore/pkg/logger"
)

func driftFixture(t *testing.T) (*DriftSignalHandler, *sinkQueue) {
	t.Helper()
	q := &sinkQueue{}
	trigger := retrain.NewTrigger(
		retrain.TriggerConfig{FeedbackThreshold: 10, DriftThreshold: 0.3},
		q, retrain.NewTracker(), domrepo.NopMetrics{}, applogger.Nop(),
	)
	supported := func(s string) bool { return s == "BTCUSDT" || s == "ETHUSDT" }
	return NewDriftSignalHandler("drift.scores", trigger, supported, applogger.Nop()), q
}

func TestDriftHandlerEnqueuesAboveThreshold(t *testing.T) {
	h, q := driftFixture(t)
	if h.Topic() != "drift.scores" {
		t.Fatalf("topic = %s", h.Topic())
	}

	if err := h.Handle(context.Background(), []byte(`{"instrument":"BTCUSDT","score":0.45}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if q.len() != 1 {
		t.Fatalf("queued jobs = %d, want 1", q.len())
	}
}

func TestDriftHandlerIgnoresBelowThreshold(t *testing.T) {
	h, q := driftFixture(t)
	if err := h.Handle(context.Background(), []byte(`{"instrument":"BTCUSDT","score":0.2}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if q.len() != 0 {
		t.Fatalf("low score must not enqueue, got %d jobs", q.len())
	}
}

func TestDriftHandlerDropsBadMessages(t *testing.T) {
	h, q := driftFixture(t)
	ctx := context.Background()

	// none of these are retryable; all drop silently
	for _, msg := range []string{
		`not json`,
		`{"instrument":"DOGEUSDT","score":0.9}`,
		`{"instrument":"BTCUSDT","score":1.5}`,
		`{"instrument":"BTCUSDT","score":-0.1}`,
	} {
		if err := h.Handle(ctx, []byte(msg)); err != nil {
			t.Fatalf("%s: %v", msg, err)
		}
	}
	if q.len() != 0 {
		t.Fatalf("bad messages must not enqueue, got %d jobs", q.len())
	}
}
