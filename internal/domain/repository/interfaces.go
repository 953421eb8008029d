package repository

import (
	"context"

	"InvestCore/internal/domain/models"
)

// FeedbackStore is the durable, append-only feedback log. Implementations
// must serialize appends and keep Count exact: a write that returned success
// is always reflected by the next Count.
type FeedbackStore interface {
	// Append durably writes one record and returns the post-append count for
	// the record's instrument, taken under the same lock as the write. Two
	// concurrent appends therefore observe distinct counts, which is what
	// keeps the threshold rule exact.
	Append(ctx context.Context, rec models.FeedbackRecord) (int64, error)

	// Count returns the number of durably appended records for the
	// instrument. Monotonically non-decreasing.
	Count(ctx context.Context, instrument string) (int64, error)

	// All returns the full feedback log for the instrument.
	All(ctx context.Context, instrument string) ([]models.FeedbackRecord, error)

	// Health reports whether the backing store is reachable.
	Health(ctx context.Context) error

	Close() error
}

// ReferenceStore loads the immutable per-instrument reference dataset
// produced at initial training time.
type ReferenceStore interface {
	Load(ctx context.Context, instrument string) ([]models.ReferenceRow, error)
}

// FeedbackExporter forwards appended rows to downstream consumers (the drift
// monitor reads them as the production distribution). Best effort: failures
// degrade the cycle, never the append.
type FeedbackExporter interface {
	Export(ctx context.Context, rec models.FeedbackRecord) error
	Close() error
}

// Metrics abstracts the Prometheus recorder so use cases stay testable.
type Metrics interface {
	RecordPrediction(instrument, direction string)
	RecordFeedback(instrument, label string, total int64)
	RecordRetrain(instrument, reason, result string)
	RecordModelVersion(instrument string, version int)
	RecordDriftScore(instrument string, score float64)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}

// NopMetrics discards all observations. Used in tests and as a default.
type NopMetrics struct{}

func (NopMetrics) RecordPrediction(string, string)       {}
func (NopMetrics) RecordFeedback(string, string, int64)  {}
func (NopMetrics) RecordRetrain(string, string, string)  {}
func (NopMetrics) RecordModelVersion(string, int)        {}
func (NopMetrics) RecordDriftScore(string, float64)      {}
func (NopMetrics) RecordLatency(string, float64)         {}
func (NopMetrics) RecordError(string)                    {}
