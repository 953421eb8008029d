package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"InvestCore/internal/domain/models"
	"InvestCore/internal/usecase"
	xlogger "InvestCore/pkg/logger"
)

func unknownInstrument(instrument string) error {
	return fmt.Errorf("%w: %q", models.ErrUnknownInstrument, instrument)
}

// Feedback handles the confirm/deny links opened from a notification email.
// The response is plain text because a human reads it in a browser tab.
func (h *CoreHandler) Feedback(c echo.Context) error {
	sub, err := parseFeedbackQuery(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid feedback link: "+err.Error()+"\n")
	}
	if !h.supported(sub.Instrument) {
		return c.String(http.StatusNotFound, "Unknown instrument "+sub.Instrument+"\n")
	}

	_, enqueued, err := h.feedback.Ingest(c.Request().Context(), sub)
	if err != nil {
		appErr := domainError(err)
		h.logger.Error("feedback ingest error",
			xlogger.String("instrument", sub.Instrument),
			xlogger.Error(err),
		)
		if appErr.Status == http.StatusBadRequest {
			return c.String(http.StatusBadRequest, "Invalid feedback link: "+err.Error()+"\n")
		}
		return c.String(appErr.Status, "Could not record your feedback, please try again later.\n")
	}

	msg := fmt.Sprintf("Thank you! Your feedback for %s was recorded.\n", sub.Instrument)
	if enqueued {
		msg += "The model will be retrained with the latest feedback.\n"
	}
	return c.String(http.StatusOK, msg)
}

func parseFeedbackQuery(c echo.Context) (usecase.FeedbackSubmission, error) {
	var sub usecase.FeedbackSubmission

	sub.Instrument = c.QueryParam("instrument")
	if sub.Instrument == "" {
		return sub, fmt.Errorf("instrument is required")
	}

	sub.Label = c.QueryParam("label")
	if sub.Label != models.LabelConfirm && sub.Label != models.LabelDeny {
		return sub, fmt.Errorf("label must be %q or %q", models.LabelConfirm, models.LabelDeny)
	}

	sub.PredictedDirection = c.QueryParam("direction")
	if sub.PredictedDirection != models.DirectionUp && sub.PredictedDirection != models.DirectionDown {
		return sub, fmt.Errorf("direction must be %q or %q", models.DirectionUp, models.DirectionDown)
	}

	vol, err := strconv.ParseFloat(c.QueryParam("volatility"), 64)
	if err != nil || math.IsNaN(vol) || math.IsInf(vol, 0) {
		return sub, fmt.Errorf("volatility is not a finite number")
	}
	sub.PredictedVolatility = vol

	vals := make([]float64, 0, models.FeatureCount)
	for _, name := range models.FeatureNames {
		raw := c.QueryParam(name)
		if raw == "" {
			return sub, fmt.Errorf("feature %s is missing", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sub, fmt.Errorf("feature %s is not a number", name)
		}
		vals = append(vals, v)
	}
	features, err := models.FeaturesFromValues(vals)
	if err != nil {
		return sub, err
	}
	sub.Features = features
	return sub, nil
}
