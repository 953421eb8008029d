package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes the service's Prometheus instruments.
type Recorder struct {
	predictions   *prometheus.CounterVec
	feedback      *prometheus.CounterVec
	retrainJobs   *prometheus.CounterVec
	modelVersion  *prometheus.GaugeVec
	driftScore    *prometheus.GaugeVec
	feedbackCount *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
}

// New creates a Recorder registered on the default registry.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investcore_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"instrument", "direction"},
		),
		feedback: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investcore_feedback_total",
				Help: "Total number of feedback records appended",
			},
			[]string{"instrument", "label"},
		),
		retrainJobs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investcore_retrain_jobs_total",
				Help: "Total number of retrain jobs by trigger reason and result",
			},
			[]string{"instrument", "reason", "result"},
		),
		modelVersion: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "investcore_active_model_version",
				Help: "Version of the active model bundle",
			},
			[]string{"instrument"},
		),
		driftScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "investcore_drift_score",
				Help: "Last drift score observed per instrument",
			},
			[]string{"instrument"},
		),
		feedbackCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "investcore_feedback_rows",
				Help: "Durably appended feedback rows per instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "investcore_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "investcore_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"kind"},
		),
	}
}

func (r *Recorder) RecordPrediction(instrument, direction string) {
	r.predictions.WithLabelValues(instrument, direction).Inc()
}

func (r *Recorder) RecordFeedback(instrument, label string, total int64) {
	r.feedback.WithLabelValues(instrument, label).Inc()
	r.feedbackCount.WithLabelValues(instrument).Set(float64(total))
}

func (r *Recorder) RecordRetrain(instrument, reason, result string) {
	r.retrainJobs.WithLabelValues(instrument, reason, result).Inc()
}

func (r *Recorder) RecordModelVersion(instrument string, version int) {
	r.modelVersion.WithLabelValues(instrument).Set(float64(version))
}

func (r *Recorder) RecordDriftScore(instrument string, score float64) {
	r.driftScore.WithLabelValues(instrument).Set(score)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
