package usecase

import (
	"context"
	"fmt"
	"time"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/registry"
	applogger "InvestCore/pkg/logger"
)

// PredictionService serves predictions from the active bundle. Each call
// reads one atomic bundle snapshot and performs a pure computation, so
// predictions never block each other or a concurrent publish.
type PredictionService struct {
	registry *registry.Registry
	metrics  domrepo.Metrics
	logger   *applogger.Logger
}

func NewPredictionService(reg *registry.Registry, metrics domrepo.Metrics, logger *applogger.Logger) *PredictionService {
	return &PredictionService{
		registry: reg,
		metrics:  metrics,
		logger:   logger.With("prediction"),
	}
}

// Predict validates the vector, normalizes it through the active bundle's
// scaler and applies both models. Deterministic for a fixed bundle.
func (s *PredictionService) Predict(_ context.Context, instrument string, v models.FeatureVector) (models.PredictionResult, error) {
	start := time.Now()

	if err := v.Validate(); err != nil {
		return models.PredictionResult{}, err
	}

	bundle, err := s.registry.GetActive(instrument)
	if err != nil {
		return models.PredictionResult{}, err
	}

	scaled, err := bundle.Scaler.Transform(v.Values())
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("scale input: %w", err)
	}
	vol, err := bundle.Volatility.Predict(scaled)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("volatility model: %w", err)
	}
	score, err := bundle.Direction.Score(scaled)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("direction model: %w", err)
	}

	result := models.PredictionResult{
		Instrument:     instrument,
		Volatility:     vol,
		Direction:      models.DirectionFromScore(score),
		DirectionScore: score,
		ModelVersion:   bundle.Version,
	}

	s.metrics.RecordPrediction(instrument, result.Direction)
	s.metrics.RecordLatency("predict", time.Since(start).Seconds())
	return result, nil
}

// ModelInfo exposes the active bundle's metadata.
func (s *PredictionService) ModelInfo(instrument string) (models.ModelInfo, error) {
	bundle, err := s.registry.GetActive(instrument)
	if err != nil {
		return models.ModelInfo{}, err
	}
	return models.ModelInfo{
		Instrument: bundle.Instrument,
		Version:    bundle.Version,
		TrainedAt:  bundle.TrainedAt.Format(time.RFC3339),
		Samples:    bundle.Samples,
	}, nil
}
