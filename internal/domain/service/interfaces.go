package service

import (
	"context"

	"InvestCore/internal/domain/models"
)

// DriftScorer is the external drift-monitoring capability. A score is in
// [0,1]; any failure to obtain one means "no drift signal this cycle".
type DriftScorer interface {
	Score(ctx context.Context, instrument string) (float64, error)
}

// NotificationDispatcher delivers human-in-the-loop messages. The core only
// builds the payload and callback URLs; composition and delivery are the
// dispatcher's problem.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}
