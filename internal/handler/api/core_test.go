package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"InvestCore/internal/domain/models"
	domrepo "InvestCore/internal/domain/repository"
	"InvestCore/internal/ml"
	"InvestCore/internal/registry"
	internalrepo "InvestCore/internal/repository"
	"InvestCore/internal/retrain"
	"InvestCore/internal/usecase"
	applogger "InvestCore/pkg/logger"
	"InvestCore/pkg/queue"
)

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

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, models.Notification) error { return nil }

func testBundle(instrument string) *models.ModelBundle {
	mean := make([]float64, models.FeatureCount)
	std := make([]float64, models.FeatureCount)
	volW := make([]float64, models.FeatureCount)
	dirW := make([]float64, models.FeatureCount)
	for i := range std {
		std[i] = 1
	}
	volW[0] = 1
	dirW[0] = 3
	return &models.ModelBundle{
		Instrument: instrument,
		Version:    1,
		Scaler:     &ml.StandardScaler{Mean: mean, Std: std},
		Volatility: &ml.RidgeRegressor{Weights: volW, Intercept: 0.1, Lambda: 1},
		Direction:  &ml.LogisticClassifier{Weights: dirW},
		TrainedAt:  time.Now().UTC(),
		Samples:    40,
	}
}

type fixture struct {
	echo  *echo.Echo
	store domrepo.FeedbackStore
	queue *sinkQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := applogger.Nop()

	store, err := internalrepo.NewFileFeedbackStore(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := registry.New(logger)
	if err := reg.Publish("BTCUSDT", testBundle("BTCUSDT")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	q := &sinkQueue{}
	trigger := retrain.NewTrigger(
		retrain.TriggerConfig{FeedbackThreshold: 10, DriftThreshold: 0.3},
		q, retrain.NewTracker(), domrepo.NopMetrics{}, logger,
	)
	predictor := usecase.NewPredictionService(reg, domrepo.NopMetrics{}, logger)
	feedback := usecase.NewFeedbackService(reg, store, trigger, nil, domrepo.NopMetrics{}, logger)
	notify := usecase.NewNotifyService(nopDispatcher{}, "http://host:8080", time.Second, logger)

	supported := func(s string) bool { return s == "BTCUSDT" || s == "ETHUSDT" }
	h := NewCoreHandler(predictor, feedback, notify, trigger, store, supported, logger)

	e := echo.New()
	h.RegisterRoutes(e)
	return &fixture{echo: e, store: store, queue: q}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

const validFeatures = `"open":1,"high":2,"low":0.5,"close":1.5,"volume":1000,` +
	`"rsi":55,"atr":0.8,"volume_change":0.1,"sma_20":1.4,"ema_50":1.3`

func TestPredictEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/predict", `{"instrument":"BTCUSDT",`+validFeatures+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"direction":"up"`) {
		t.Fatalf("expected up direction, body = %s", body)
	}
	if !strings.Contains(body, `"model_version":1`) {
		t.Fatalf("expected model version, body = %s", body)
	}
}

func TestPredictMissingFeature(t *testing.T) {
	f := newFixture(t)
	// no "close" field
	rec := f.do(http.MethodPost, "/api/predict",
		`{"instrument":"BTCUSDT","open":1,"high":2,"low":0.5,"volume":1000,"rsi":55,"atr":0.8,"volume_change":0.1,"sma_20":1.4,"ema_50":1.3}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
}

func TestPredictUnknownInstrument(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/predict", `{"instrument":"DOGEUSDT",`+validFeatures+`}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body = %s", rec.Code, rec.Body.String())
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	f := newFixture(t)
	// ETHUSDT is supported but has no published bundle
	rec := f.do(http.MethodPost, "/api/predict", `{"instrument":"ETHUSDT",`+validFeatures+`}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ERR_MODEL_UNAVAILABLE") {
		t.Fatalf("expected error code, body = %s", rec.Body.String())
	}
}

func feedbackQuery(label string) string {
	q := url.Values{}
	q.Set("instrument", "BTCUSDT")
	q.Set("label", label)
	q.Set("volatility", "0.2")
	q.Set("direction", models.DirectionUp)
	for i, name := range models.FeatureNames {
		q.Set(name, strconv.Itoa(i+1))
	}
	return q.Encode()
}

func TestFeedbackCallback(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/feedback?"+feedbackQuery(models.LabelConfirm), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Thank you") {
		t.Fatalf("expected human ack, body = %s", rec.Body.String())
	}

	n, _ := f.store.Count(context.Background(), "BTCUSDT")
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestFeedbackCallbackBadLabel(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/feedback?"+feedbackQuery("maybe"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
	}
	if n, _ := f.store.Count(context.Background(), "BTCUSDT"); n != 0 {
		t.Fatalf("bad callback must not append")
	}
}

func TestFeedbackCallbackRejectsNonFiniteVolatility(t *testing.T) {
	f := newFixture(t)
	for _, vol := range []string{"NaN", "Inf", "-Inf"} {
		q := strings.Replace(feedbackQuery(models.LabelConfirm), "volatility=0.2", "volatility="+vol, 1)
		rec := f.do(http.MethodGet, "/api/feedback?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("volatility=%s: status = %d, want 400", vol, rec.Code)
		}
	}
	if n, _ := f.store.Count(context.Background(), "BTCUSDT"); n != 0 {
		t.Fatalf("non-finite volatility must not append, count=%d", n)
	}
}

func TestFeedbackCallbackUnknownInstrument(t *testing.T) {
	f := newFixture(t)
	q := strings.Replace(feedbackQuery(models.LabelConfirm), "BTCUSDT", "DOGEUSDT", 1)
	rec := f.do(http.MethodGet, "/api/feedback?"+q, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestManualRetrainEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/retrain/BTCUSDT", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"enqueued":true`) {
		t.Fatalf("expected enqueued job, body = %s", rec.Body.String())
	}

	// the slot is held, a second request is accepted but dropped
	rec = f.do(http.MethodPost, "/api/retrain/BTCUSDT", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"enqueued":false`) {
		t.Fatalf("expected dropped trigger, body = %s", rec.Body.String())
	}

	rec = f.do(http.MethodPost, "/api/retrain/DOGEUSDT", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDriftEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/drift", `{"instrument":"BTCUSDT","score":0.45}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"enqueued":true`) {
		t.Fatalf("expected enqueued job, body = %s", rec.Body.String())
	}

	rec = f.do(http.MethodPost, "/api/drift", `{"instrument":"ETHUSDT","score":0.1}`)
	if !strings.Contains(rec.Body.String(), `"enqueued":false`) {
		t.Fatalf("low score must not enqueue, body = %s", rec.Body.String())
	}

	// score out of range fails validation
	rec = f.do(http.MethodPost, "/api/drift", `{"instrument":"BTCUSDT","score":1.5}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/models/BTCUSDT", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"version":1`) {
		t.Fatalf("expected version, body = %s", rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/models/ETHUSDT", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestNotifyEndpoint(t *testing.T) {
	f := newFixture(t)

	body := `{"instrument":"BTCUSDT","prediction":{"instrument":"BTCUSDT","volatility":0.2,"direction":"up","direction_score":0.8,"model_version":1},` +
		`"features":{` + validFeatures + `},"recipient_email":"trader@example.com","recipient_name":"Trader"}`
	rec := f.do(http.MethodPost, "/api/notify", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "confirm_url") {
		t.Fatalf("expected callback links, body = %s", rec.Body.String())
	}

	// missing recipient fails validation
	rec = f.do(http.MethodPost, "/api/notify",
		`{"instrument":"BTCUSDT","features":{`+validFeatures+`},"recipient_name":"Trader"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
