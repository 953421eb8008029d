package retrain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/ml"
	"InvestCore/internal/registry"
	applogger "InvestCore/pkg/logger"
)

const ridgeLambda = 1.0

// WorkerConfig bounds a retrain run.
type WorkerConfig struct {
	// MinSamples is the smallest combined row count a bundle may be fit on.
	MinSamples int

	// JobTimeout caps one retrain run; there is no cancellation mid-run
	// beyond this context deadline.
	JobTimeout time.Duration
}

// Worker consumes retrain jobs from the queue and turns them into published
// bundles. The tracker slot acquired at enqueue time is the per-instrument
// mutex: it stays held for the whole run and is released on the terminal
// state, so different instruments retrain in parallel while one instrument
// never runs twice.
type Worker struct {
	cfg       WorkerConfig
	registry  *registry.Registry
	feedback  domrepo.FeedbackStore
	reference domrepo.ReferenceStore
	tracker   *Tracker
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewWorker(
	cfg WorkerConfig,
	reg *registry.Registry,
	feedback domrepo.FeedbackStore,
	reference domrepo.ReferenceStore,
	tracker *Tracker,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *Worker {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Worker{
		cfg:       cfg,
		registry:  reg,
		feedback:  feedback,
		reference: reference,
		tracker:   tracker,
		metrics:   metrics,
		logger:    logger.With("retrain_worker"),
	}
}

// Handle is the queue.Handler entrypoint: one payload, one job lifecycle.
func (w *Worker) Handle(ctx context.Context, payload []byte) error {
	var job models.RetrainJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("unmarshal job: %w", err)
	}
	defer w.tracker.Release(job.Instrument)

	job.State = models.JobRunning
	w.logger.Info("job running",
		applogger.String("job", job.ID),
		applogger.String("instrument", job.Instrument),
		applogger.String("reason", string(job.Reason)),
	)

	runCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	err := w.run(runCtx, job.Instrument)
	w.metrics.RecordLatency("retrain", time.Since(start).Seconds())

	if err != nil {
		job.State = models.JobFailed
		w.metrics.RecordRetrain(job.Instrument, string(job.Reason), "failed")
		w.logger.Error("job failed",
			applogger.String("job", job.ID),
			applogger.String("instrument", job.Instrument),
			applogger.Error(err),
		)
		return err
	}

	job.State = models.JobPublished
	w.metrics.RecordRetrain(job.Instrument, string(job.Reason), "published")
	w.metrics.RecordModelVersion(job.Instrument, w.registry.Version(job.Instrument))
	w.logger.Info("job published",
		applogger.String("job", job.ID),
		applogger.String("instrument", job.Instrument),
		applogger.Duration("took", time.Since(start)),
	)
	return nil
}

// run executes steps 1-6: load, combine, validate, fit, package, publish.
// Any error leaves the registry untouched.
func (w *Worker) run(ctx context.Context, instrument string) error {
	ref, err := w.reference.Load(ctx, instrument)
	if err != nil {
		return fmt.Errorf("%w: load reference: %v", models.ErrRetrain, err)
	}
	fb, err := w.feedback.All(ctx, instrument)
	if err != nil {
		return fmt.Errorf("%w: load feedback: %v", models.ErrRetrain, err)
	}

	x, yVol, yDir := combine(ref, fb)
	if len(x) < w.cfg.MinSamples {
		return fmt.Errorf("%w: %d samples, need at least %d", models.ErrRetrain, len(x), w.cfg.MinSamples)
	}

	scaler, err := ml.FitScaler(x)
	if err != nil {
		return fmt.Errorf("%w: fit scaler: %v", models.ErrRetrain, err)
	}
	scaled, err := scaler.TransformAll(x)
	if err != nil {
		return fmt.Errorf("%w: transform: %v", models.ErrRetrain, err)
	}
	vol, err := ml.FitRidge(scaled, yVol, ridgeLambda)
	if err != nil {
		return fmt.Errorf("%w: fit volatility model: %v", models.ErrRetrain, err)
	}
	dir, err := ml.FitLogistic(scaled, yDir)
	if err != nil {
		return fmt.Errorf("%w: fit direction model: %v", models.ErrRetrain, err)
	}

	bundle := &models.ModelBundle{
		Instrument: instrument,
		Version:    w.registry.Version(instrument) + 1,
		Scaler:     scaler,
		Volatility: vol,
		Direction:  dir,
		TrainedAt:  time.Now().UTC(),
		Samples:    len(x),
	}
	if err := w.registry.Publish(instrument, bundle); err != nil {
		return fmt.Errorf("%w: publish: %v", models.ErrRetrain, err)
	}
	return nil
}

// combine concatenates reference and feedback rows, dropping rows with
// missing or non-finite values.
func combine(ref []models.ReferenceRow, fb []models.FeedbackRecord) (x [][]float64, yVol, yDir []float64) {
	x = make([][]float64, 0, len(ref)+len(fb))
	yVol = make([]float64, 0, len(ref)+len(fb))
	yDir = make([]float64, 0, len(ref)+len(fb))

	for _, r := range ref {
		if !validRow(r.Features, r.TargetVolatility, r.TargetDirection) {
			continue
		}
		x = append(x, r.Features)
		yVol = append(yVol, r.TargetVolatility)
		yDir = append(yDir, r.TargetDirection)
	}
	for _, r := range fb {
		if !validRow(r.Features, r.TargetVolatility, r.TargetDirection) {
			continue
		}
		x = append(x, r.Features)
		yVol = append(yVol, r.TargetVolatility)
		yDir = append(yDir, r.TargetDirection)
	}
	return x, yVol, yDir
}

func validRow(features []float64, vol, dir float64) bool {
	if len(features) != models.FeatureCount {
		return false
	}
	for _, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return false
	}
	return dir == 0 || dir == 1
}
