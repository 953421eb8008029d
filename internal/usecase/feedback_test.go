package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/registry"
	internalrepo "InvestCore/internal/repository"
	"InvestCore/internal/retrain"
	applogger "InvestCore/pkg/logger"
	"InvestCore/pkg/queue"
)

// sinkQueue swallows enqueued payloads.
type sinkQueue struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (q *sinkQueue) Enqueue(_ context.Context, p []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, p)
	return nil
}
func (q *sinkQueue) Start(queue.Handler) error  { return nil }
func (q *sinkQueue) Stop(context.Context) error { return nil }

func (q *sinkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.payloads)
}

func feedbackFixture(t *testing.T, threshold int64) (*FeedbackService, domrepo.FeedbackStore, *sinkQueue) {
	t.Helper()
	store, err := internalrepo.NewFileFeedbackStore(t.TempDir(), applogger.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := registry.New(applogger.Nop())
	if err := reg.Publish("BTCUSDT", identityBundle("BTCUSDT", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	q := &sinkQueue{}
	trigger := retrain.NewTrigger(
		retrain.TriggerConfig{FeedbackThreshold: threshold, DriftThreshold: 0.3},
		q, retrain.NewTracker(), domrepo.NopMetrics{}, applogger.Nop(),
	)
	svc := NewFeedbackService(reg, store, trigger, nil, domrepo.NopMetrics{}, applogger.Nop())
	return svc, store, q
}

func submission(label, predictedDirection string) FeedbackSubmission {
	return FeedbackSubmission{
		Instrument:          "BTCUSDT",
		Label:               label,
		PredictedVolatility: 0.12,
		PredictedDirection:  predictedDirection,
		Features:            featureVector(1),
	}
}

func TestIngestGroundTruthRule(t *testing.T) {
	cases := []struct {
		label     string
		predicted string
		want      float64
	}{
		{models.LabelConfirm, models.DirectionUp, 1},
		{models.LabelConfirm, models.DirectionDown, 0},
		{models.LabelDeny, models.DirectionUp, 0},
		{models.LabelDeny, models.DirectionDown, 1},
	}
	for _, tc := range cases {
		svc, _, _ := feedbackFixture(t, 100)
		rec, _, err := svc.Ingest(context.Background(), submission(tc.label, tc.predicted))
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.label, tc.predicted, err)
		}
		if rec.TargetDirection != tc.want {
			t.Fatalf("%s/%s: target = %v, want %v", tc.label, tc.predicted, rec.TargetDirection, tc.want)
		}
		if rec.TargetVolatility != 0.12 {
			t.Fatalf("%s/%s: volatility = %v", tc.label, tc.predicted, rec.TargetVolatility)
		}
	}
}

func TestIngestRejectsInvalidInput(t *testing.T) {
	svc, store, _ := feedbackFixture(t, 100)
	ctx := context.Background()

	sub := submission("maybe", models.DirectionUp)
	if _, _, err := svc.Ingest(ctx, sub); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad label, got %v", err)
	}

	sub = submission(models.LabelConfirm, "sideways")
	if _, _, err := svc.Ingest(ctx, sub); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad direction, got %v", err)
	}

	sub = submission(models.LabelConfirm, models.DirectionUp)
	sub.Features.Close = math.NaN()
	if _, _, err := svc.Ingest(ctx, sub); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for NaN feature, got %v", err)
	}

	// nothing was appended
	if n, _ := store.Count(ctx, "BTCUSDT"); n != 0 {
		t.Fatalf("rejected submissions must not append, count=%d", n)
	}
}

func TestIngestRequiresActiveBundle(t *testing.T) {
	svc, _, _ := feedbackFixture(t, 100)
	sub := submission(models.LabelConfirm, models.DirectionUp)
	sub.Instrument = "ETHUSDT" // no bundle published
	if _, _, err := svc.Ingest(context.Background(), sub); !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestIngestEnqueuesAtThreshold(t *testing.T) {
	svc, store, q := feedbackFixture(t, 5)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, enqueued, err := svc.Ingest(ctx, submission(models.LabelConfirm, models.DirectionUp))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		// fires at the first crossing; the second crossing at 10 is dropped
		// because the first job still holds the in-flight slot
		want := i == 5
		if enqueued != want {
			t.Fatalf("ingest %d: enqueued=%v, want %v", i, enqueued, want)
		}
	}
	if n, _ := store.Count(ctx, "BTCUSDT"); n != 12 {
		t.Fatalf("count = %d, want 12", n)
	}
	if q.len() != 1 {
		t.Fatalf("queued jobs = %d, want 1", q.len())
	}
}

// gateStore delays Append returns until every expected writer has finished
// its durable write, forcing the worst interleaving for the threshold rule.
type gateStore struct {
	domrepo.FeedbackStore
	gate *sync.WaitGroup
}

func (s *gateStore) Append(ctx context.Context, rec models.FeedbackRecord) (int64, error) {
	n, err := s.FeedbackStore.Append(ctx, rec)
	if err != nil {
		return n, err
	}
	s.gate.Done()
	s.gate.Wait()
	return n, nil
}

// Two ingests land around a multiple of K at the same time; the crossing
// must enqueue exactly one job even when both appends complete before
// either evaluates the threshold.
func TestConcurrentIngestsFireThresholdOnce(t *testing.T) {
	store, err := internalrepo.NewFileFeedbackStore(t.TempDir(), applogger.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	reg := registry.New(applogger.Nop())
	if err := reg.Publish("BTCUSDT", identityBundle("BTCUSDT", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	q := &sinkQueue{}
	trigger := retrain.NewTrigger(
		retrain.TriggerConfig{FeedbackThreshold: 2, DriftThreshold: 0.3},
		q, retrain.NewTracker(), domrepo.NopMetrics{}, applogger.Nop(),
	)

	ctx := context.Background()
	seed := NewFeedbackService(reg, store, trigger, nil, domrepo.NopMetrics{}, applogger.Nop())
	if _, _, err := seed.Ingest(ctx, submission(models.LabelConfirm, models.DirectionUp)); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}

	var gate sync.WaitGroup
	gate.Add(2)
	svc := NewFeedbackService(reg, &gateStore{FeedbackStore: store, gate: &gate},
		trigger, nil, domrepo.NopMetrics{}, applogger.Nop())

	var enqueues int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, enqueued, err := svc.Ingest(ctx, submission(models.LabelConfirm, models.DirectionUp))
			if err != nil {
				t.Errorf("ingest: %v", err)
				return
			}
			if enqueued {
				atomic.AddInt32(&enqueues, 1)
			}
		}()
	}
	wg.Wait()

	// counts 2 and 3; only the writer that landed on 2 fires
	if enqueues != 1 {
		t.Fatalf("threshold crossing enqueued %d jobs, want exactly 1", enqueues)
	}
	if q.len() != 1 {
		t.Fatalf("queued jobs = %d, want 1", q.len())
	}
}

// Full loop: feedback crosses the threshold, the worker retrains from the
// durable log and publishes the next version while serving keeps working.
func TestFeedbackToRetrainLoop(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := internalrepo.WriteReferenceCSV(dir, "BTCUSDT", loopReferenceRows(40)); err != nil {
		t.Fatalf("write reference: %v", err)
	}
	store, err := internalrepo.NewFileFeedbackStore(dir, applogger.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	reg := registry.New(applogger.Nop())
	if err := reg.Publish("BTCUSDT", identityBundle("BTCUSDT", 1)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	tracker := retrain.NewTracker()
	q := queue.NewMemoryQueue(8, 1, applogger.Nop())
	worker := retrain.NewWorker(
		retrain.WorkerConfig{MinSamples: 30},
		reg, store, internalrepo.NewFileReferenceStore(dir), tracker,
		domrepo.NopMetrics{}, applogger.Nop(),
	)
	if err := q.Start(worker.Handle); err != nil {
		t.Fatalf("queue start: %v", err)
	}
	defer q.Stop(ctx)

	trigger := retrain.NewTrigger(
		retrain.TriggerConfig{FeedbackThreshold: 10, DriftThreshold: 0.3},
		q, tracker, domrepo.NopMetrics{}, applogger.Nop(),
	)
	feedback := NewFeedbackService(reg, store, trigger, nil, domrepo.NopMetrics{}, applogger.Nop())
	predictor := NewPredictionService(reg, domrepo.NopMetrics{}, applogger.Nop())

	var sawEnqueue bool
	for i := 1; i <= 10; i++ {
		// predictions stay available throughout
		if _, err := predictor.Predict(ctx, "BTCUSDT", featureVector(1)); err != nil {
			t.Fatalf("predict during ingest %d: %v", i, err)
		}
		_, enqueued, err := feedback.Ingest(ctx, submission(models.LabelConfirm, models.DirectionUp))
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if enqueued {
			sawEnqueue = true
		}
	}
	if !sawEnqueue {
		t.Fatalf("threshold crossing did not enqueue a job")
	}

	deadline := time.Now().Add(5 * time.Second)
	for reg.Version("BTCUSDT") != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("retrained bundle never published, version=%d", reg.Version("BTCUSDT"))
		}
		time.Sleep(10 * time.Millisecond)
	}

	res, err := predictor.Predict(ctx, "BTCUSDT", featureVector(1))
	if err != nil {
		t.Fatalf("predict after retrain: %v", err)
	}
	if res.ModelVersion != 2 {
		t.Fatalf("serving version = %d, want 2", res.ModelVersion)
	}
}

func loopReferenceRows(n int) []models.ReferenceRow {
	rows := make([]models.ReferenceRow, n)
	for i := range rows {
		features := make([]float64, models.FeatureCount)
		for j := range features {
			features[j] = math.Cos(float64(i+j)) * float64(j+1)
		}
		rows[i] = models.ReferenceRow{
			Features:         features,
			TargetVolatility: 0.005 * float64(i%9),
			TargetDirection:  float64(i % 2),
		}
	}
	return rows
}
