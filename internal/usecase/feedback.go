package usecase

import (
	"context"
	"fmt"
	"time"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/registry"
	"InvestCore/internal/retrain"
	applogger "InvestCore/pkg/logger"
)

const exportTimeout = 3 * time.Second

// FeedbackSubmission is one decoded feedback callback: the human's label on
// a previously served prediction, plus the raw features it was made from.
type FeedbackSubmission struct {
	Instrument          string
	Label               string
	PredictedVolatility float64
	PredictedDirection  string
	Features            models.FeatureVector
}

// FeedbackService closes the human-in-the-loop: it derives the ground-truth
// direction, normalizes the features with the capture-time scaler, appends
// the durable record and lets the trigger evaluate the threshold rule.
type FeedbackService struct {
	registry *registry.Registry
	store    domrepo.FeedbackStore
	trigger  *retrain.Trigger
	exporter domrepo.FeedbackExporter // optional
	metrics  domrepo.Metrics
	logger   *applogger.Logger
}

func NewFeedbackService(
	reg *registry.Registry,
	store domrepo.FeedbackStore,
	trigger *retrain.Trigger,
	exporter domrepo.FeedbackExporter,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *FeedbackService {
	return &FeedbackService{
		registry: reg,
		store:    store,
		trigger:  trigger,
		exporter: exporter,
		metrics:  metrics,
		logger:   logger.With("feedback"),
	}
}

// Ingest appends one labeled observation. Returns the stored record and
// whether a retrain job was enqueued by the threshold rule.
func (s *FeedbackService) Ingest(ctx context.Context, sub FeedbackSubmission) (models.FeedbackRecord, bool, error) {
	if err := sub.Features.Validate(); err != nil {
		return models.FeedbackRecord{}, false, err
	}
	if sub.PredictedDirection != models.DirectionUp && sub.PredictedDirection != models.DirectionDown {
		return models.FeedbackRecord{}, false, fmt.Errorf("%w: direction must be %q or %q",
			models.ErrInvalidInput, models.DirectionUp, models.DirectionDown)
	}

	target, err := models.GroundTruthDirection(sub.Label, sub.PredictedDirection)
	if err != nil {
		return models.FeedbackRecord{}, false, err
	}

	bundle, err := s.registry.GetActive(sub.Instrument)
	if err != nil {
		return models.FeedbackRecord{}, false, err
	}
	scaled, err := bundle.Scaler.Transform(sub.Features.Values())
	if err != nil {
		return models.FeedbackRecord{}, false, fmt.Errorf("scale features: %w", err)
	}

	rec := models.FeedbackRecord{
		Instrument:       sub.Instrument,
		Features:         scaled,
		TargetVolatility: sub.PredictedVolatility,
		TargetDirection:  target,
		Timestamp:        time.Now().UTC(),
	}

	count, err := s.store.Append(ctx, rec)
	if err != nil {
		// a lost row would desynchronize the threshold counter; surface it
		s.metrics.RecordError("store_write")
		return models.FeedbackRecord{}, false, err
	}
	s.metrics.RecordFeedback(sub.Instrument, sub.Label, count)

	s.export(rec)

	enqueued, err := s.trigger.OnAppend(ctx, sub.Instrument, count)
	if err != nil {
		// the append is durable; a trigger hiccup degrades to no-op
		s.logger.Error("trigger evaluation failed",
			applogger.String("instrument", sub.Instrument),
			applogger.Error(err),
		)
		return rec, false, nil
	}
	return rec, enqueued, nil
}

// export forwards the row to the drift monitor's topic, best effort.
func (s *FeedbackService) export(rec models.FeedbackRecord) {
	if s.exporter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	if err := s.exporter.Export(ctx, rec); err != nil {
		s.metrics.RecordError("export")
		s.logger.Warn("feedback export failed",
			applogger.String("instrument", rec.Instrument),
			applogger.Error(err),
		)
	}
}
