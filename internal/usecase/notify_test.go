package usecase

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"InvestCore/internal/domain/models"
	applogger "InvestCore/pkg/logger"
)

type captureDispatcher struct {
	mu   sync.Mutex
	sent []models.Notification
	done chan struct{}
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{done: make(chan struct{}, 8)}
}

func (d *captureDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	d.mu.Lock()
	d.sent = append(d.sent, n)
	d.mu.Unlock()
	d.done <- struct{}{}
	return nil
}

func payload(open float64) models.FeaturePayload {
	v := func(x float64) *float64 { return &x }
	return models.FeaturePayload{
		Open: v(open), High: v(2), Low: v(0.5), Close: v(1.5), Volume: v(1000),
		RSI: v(55), ATR: v(0.8), VolumeChange: v(0.1), SMA20: v(1.4), EMA50: v(1.3),
	}
}

func TestScheduleBuildsCallbackLinks(t *testing.T) {
	d := newCaptureDispatcher()
	svc := NewNotifyService(d, "http://host:8080", time.Second, applogger.Nop())

	req := models.NotifyRequest{
		Instrument: "BTCUSDT",
		Prediction: models.PredictionResult{
			Instrument: "BTCUSDT", Volatility: 0.25, Direction: models.DirectionUp,
			DirectionScore: 0.8, ModelVersion: 2,
		},
		Features:       payload(1.25),
		RecipientEmail: "trader@example.com",
		RecipientName:  "Trader",
	}

	n, err := svc.Schedule(req)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	confirm, err := url.Parse(n.ConfirmURL)
	if err != nil {
		t.Fatalf("parse confirm url: %v", err)
	}
	if confirm.Path != "/api/feedback" {
		t.Fatalf("confirm path = %s", confirm.Path)
	}
	q := confirm.Query()
	if q.Get("instrument") != "BTCUSDT" || q.Get("label") != models.LabelConfirm {
		t.Fatalf("confirm query mismatch: %v", q)
	}
	if q.Get("direction") != models.DirectionUp {
		t.Fatalf("direction = %s", q.Get("direction"))
	}
	if got, _ := strconv.ParseFloat(q.Get("volatility"), 64); got != 0.25 {
		t.Fatalf("volatility = %v", got)
	}
	// all ten features round-trip through the link
	for _, name := range models.FeatureNames {
		if q.Get(name) == "" {
			t.Fatalf("feature %s missing from callback", name)
		}
	}
	if got, _ := strconv.ParseFloat(q.Get("open"), 64); got != 1.25 {
		t.Fatalf("open = %v, want 1.25", got)
	}

	deny, err := url.Parse(n.DenyURL)
	if err != nil {
		t.Fatalf("parse deny url: %v", err)
	}
	if deny.Query().Get("label") != models.LabelDeny {
		t.Fatalf("deny label = %s", deny.Query().Get("label"))
	}

	// dispatch happens in the background
	select {
	case <-d.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher never called")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) != 1 || d.sent[0].RecipientEmail != "trader@example.com" {
		t.Fatalf("unexpected dispatches %+v", d.sent)
	}
}

func TestScheduleRejectsNonFiniteFeatures(t *testing.T) {
	d := newCaptureDispatcher()
	svc := NewNotifyService(d, "http://host:8080", time.Second, applogger.Nop())

	bad := payload(1)
	nan := 0.0
	nan = nan / nan
	bad.Close = &nan

	req := models.NotifyRequest{
		Instrument:     "BTCUSDT",
		Features:       bad,
		RecipientEmail: "trader@example.com",
		RecipientName:  "Trader",
	}
	if _, err := svc.Schedule(req); err == nil {
		t.Fatalf("expected error for NaN feature")
	}
}
