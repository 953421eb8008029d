package usecase

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"InvestCore/internal/domain/models"
	domsvc "InvestCore/internal/domain/service"
	applogger "InvestCore/pkg/logger"
)

// NotifyService builds human-in-the-loop notifications and hands them to
// the external dispatcher asynchronously. The serving path never waits on
// delivery.
type NotifyService struct {
	dispatcher    domsvc.NotificationDispatcher
	publicBaseURL string
	timeout       time.Duration
	logger        *applogger.Logger
}

func NewNotifyService(
	dispatcher domsvc.NotificationDispatcher,
	publicBaseURL string,
	timeout time.Duration,
	logger *applogger.Logger,
) *NotifyService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotifyService{
		dispatcher:    dispatcher,
		publicBaseURL: publicBaseURL,
		timeout:       timeout,
		logger:        logger.With("notify"),
	}
}

// Schedule validates the request and dispatches in the background. An
// unreachable dispatcher degrades this cycle to a logged no-op.
func (s *NotifyService) Schedule(req models.NotifyRequest) (models.Notification, error) {
	features, err := req.Features.Vector()
	if err != nil {
		return models.Notification{}, err
	}

	n := models.Notification{
		Instrument:     req.Instrument,
		Prediction:     req.Prediction,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		ConfirmURL:     s.CallbackURL(models.LabelConfirm, req.Instrument, req.Prediction, features),
		DenyURL:        s.CallbackURL(models.LabelDeny, req.Instrument, req.Prediction, features),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.logger.Error("dispatch failed",
				applogger.String("instrument", n.Instrument),
				applogger.String("recipient", n.RecipientEmail),
				applogger.Error(err),
			)
			return
		}
		s.logger.Info("notification dispatched",
			applogger.String("instrument", n.Instrument),
			applogger.String("recipient", n.RecipientEmail),
		)
	}()

	return n, nil
}

// CallbackURL encodes one feedback link: label, prediction and the 10 raw
// feature values, so the callback can rebuild the full record without
// server-side state.
func (s *NotifyService) CallbackURL(label, instrument string, pred models.PredictionResult, features models.FeatureVector) string {
	q := url.Values{}
	q.Set("instrument", instrument)
	q.Set("label", label)
	q.Set("volatility", strconv.FormatFloat(pred.Volatility, 'g', -1, 64))
	q.Set("direction", pred.Direction)
	for i, v := range features.Values() {
		q.Set(models.FeatureNames[i], strconv.FormatFloat(v, 'g', -1, 64))
	}
	return s.publicBaseURL + "/api/feedback?" + q.Encode()
}
