package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/retrain"
	"InvestCore/internal/usecase"
	xhttp "InvestCore/pkg/http"
	xlogger "InvestCore/pkg/logger"
)

// CoreHandler wires the prediction, feedback and retrain endpoints onto Echo.
type CoreHandler struct {
	predictor *usecase.PredictionService
	feedback  *usecase.FeedbackService
	notify    *usecase.NotifyService
	trigger   *retrain.Trigger
	store     domrepo.FeedbackStore
	supported func(instrument string) bool
	logger    *xlogger.Logger
}

func NewCoreHandler(
	predictor *usecase.PredictionService,
	feedback *usecase.FeedbackService,
	notify *usecase.NotifyService,
	trigger *retrain.Trigger,
	store domrepo.FeedbackStore,
	supported func(string) bool,
	logger *xlogger.Logger,
) *CoreHandler {
	return &CoreHandler{
		predictor: predictor,
		feedback:  feedback,
		notify:    notify,
		trigger:   trigger,
		store:     store,
		supported: supported,
		logger:    logger.With("api"),
	}
}

func (h *CoreHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.POST("/notify", h.Notify)
	g.GET("/feedback", h.Feedback)
	g.POST("/retrain/:instrument", h.Retrain)
	g.POST("/drift", h.Drift)
	g.GET("/models/:instrument", h.ModelInfo)
	e.GET("/healthz", h.Health)
}

// domainError maps sentinel domain errors onto stable API error codes.
func domainError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrUnknownInstrument):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.InvalidInputError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrModelUnavailable):
		return xhttp.ModelUnavailableError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrStoreWrite):
		return xhttp.StoreWriteError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}

func (h *CoreHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.supported(req.Instrument) {
		return xhttp.AppErrorResponse(c, domainError(unknownInstrument(req.Instrument)))
	}
	features, err := req.Vector()
	if err != nil {
		return xhttp.AppErrorResponse(c, domainError(err))
	}

	res, err := h.predictor.Predict(c.Request().Context(), req.Instrument, features)
	if err != nil {
		h.logger.Error("predict error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, models.PredictResponse{
		Instrument: req.Instrument,
		Prediction: res,
	})
}

func (h *CoreHandler) Notify(c echo.Context) error {
	req := &models.NotifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.supported(req.Instrument) {
		return xhttp.AppErrorResponse(c, domainError(unknownInstrument(req.Instrument)))
	}

	n, err := h.notify.Schedule(*req)
	if err != nil {
		h.logger.Error("notify error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.AcceptedResponse(c, echo.Map{
		"instrument":  n.Instrument,
		"recipient":   n.RecipientEmail,
		"confirm_url": n.ConfirmURL,
		"deny_url":    n.DenyURL,
	})
}

func (h *CoreHandler) Retrain(c echo.Context) error {
	instrument := c.Param("instrument")
	if !h.supported(instrument) {
		return xhttp.AppErrorResponse(c, domainError(unknownInstrument(instrument)))
	}

	enqueued, err := h.trigger.Manual(c.Request().Context(), instrument)
	if err != nil {
		h.logger.Error("manual retrain error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.AcceptedResponse(c, echo.Map{
		"instrument": instrument,
		"enqueued":   enqueued,
	})
}

func (h *CoreHandler) Drift(c echo.Context) error {
	req := &models.DriftRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.supported(req.Instrument) {
		return xhttp.AppErrorResponse(c, domainError(unknownInstrument(req.Instrument)))
	}

	enqueued, err := h.trigger.OnDriftScore(c.Request().Context(), req.Instrument, *req.Score)
	if err != nil {
		h.logger.Error("drift trigger error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, echo.Map{
		"instrument": req.Instrument,
		"score":      *req.Score,
		"enqueued":   enqueued,
	})
}

func (h *CoreHandler) ModelInfo(c echo.Context) error {
	instrument := c.Param("instrument")
	if !h.supported(instrument) {
		return xhttp.AppErrorResponse(c, domainError(unknownInstrument(instrument)))
	}

	info, err := h.predictor.ModelInfo(instrument)
	if err != nil {
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *CoreHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Error("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
	}
	return xhttp.SuccessResponse(c, echo.Map{"status": "ok"})
}
