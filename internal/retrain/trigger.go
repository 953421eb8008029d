package retrain

import (
	"context"
	"encoding/json"
	"fmt"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	applogger "InvestCore/pkg/logger"
	"InvestCore/pkg/queue"
)

// TriggerConfig holds the scheduling thresholds.
type TriggerConfig struct {
	// FeedbackThreshold K schedules a job whenever the feedback count for an
	// instrument reaches a multiple of K.
	FeedbackThreshold int64

	// DriftThreshold schedules a job when an external drift score exceeds it.
	DriftThreshold float64
}

// Trigger decides when a retrain job is scheduled. All three paths
// (threshold, drift, manual) share the same in-flight deduplication: a
// trigger arriving while a job is queued or running is dropped.
type Trigger struct {
	cfg     TriggerConfig
	queue   queue.Queue
	tracker *Tracker
	metrics domrepo.Metrics
	logger  *applogger.Logger
}

func NewTrigger(
	cfg TriggerConfig,
	q queue.Queue,
	tracker *Tracker,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *Trigger {
	return &Trigger{
		cfg:     cfg,
		queue:   q,
		tracker: tracker,
		metrics: metrics,
		logger:  logger.With("retrain_trigger"),
	}
}

// OnAppend evaluates the threshold rule against the post-append count the
// store returned for that write. Each append carries its own count, so
// concurrent writers cannot both skip past a multiple of K. Returns true
// when a job was enqueued.
func (t *Trigger) OnAppend(ctx context.Context, instrument string, count int64) (bool, error) {
	if count == 0 || count%t.cfg.FeedbackThreshold != 0 {
		return false, nil
	}
	return t.enqueue(ctx, instrument, models.ReasonThreshold)
}

// OnDriftScore evaluates an external drift signal in [0,1].
func (t *Trigger) OnDriftScore(ctx context.Context, instrument string, score float64) (bool, error) {
	t.metrics.RecordDriftScore(instrument, score)
	if score <= t.cfg.DriftThreshold {
		return false, nil
	}
	t.logger.Info("drift threshold exceeded",
		applogger.String("instrument", instrument),
		applogger.Float64("score", score),
	)
	return t.enqueue(ctx, instrument, models.ReasonDrift)
}

// Manual schedules an operator-requested job under the same dedup rule.
func (t *Trigger) Manual(ctx context.Context, instrument string) (bool, error) {
	return t.enqueue(ctx, instrument, models.ReasonManual)
}

func (t *Trigger) enqueue(ctx context.Context, instrument string, reason models.TriggerReason) (bool, error) {
	if !t.tracker.TryAcquire(instrument) {
		// in-flight job wins; missed triggers are not queued
		t.logger.Info("trigger dropped, job in flight",
			applogger.String("instrument", instrument),
			applogger.String("reason", string(reason)),
		)
		t.metrics.RecordRetrain(instrument, string(reason), "dropped")
		return false, nil
	}

	job := models.NewRetrainJob(instrument, reason)
	payload, err := json.Marshal(job)
	if err != nil {
		t.tracker.Release(instrument)
		return false, fmt.Errorf("marshal job: %w", err)
	}
	if err := t.queue.Enqueue(ctx, payload); err != nil {
		t.tracker.Release(instrument)
		return false, fmt.Errorf("enqueue job: %w", err)
	}

	t.logger.Info("retrain job enqueued",
		applogger.String("job", job.ID),
		applogger.String("instrument", instrument),
		applogger.String("reason", string(reason)),
	)
	return true, nil
}
