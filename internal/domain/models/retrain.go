package models

import (
	"fmt"
	"time"
)

// TriggerReason says why a retrain job was scheduled.
type TriggerReason string

const (
	ReasonThreshold TriggerReason = "threshold"
	ReasonDrift     TriggerReason = "drift"
	ReasonManual    TriggerReason = "manual"
)

// JobState tracks the retrain job lifecycle:
// Queued -> Running -> Published | Failed. Terminal states are not retried;
// the next independent trigger starts a fresh job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobPublished JobState = "published"
	JobFailed    JobState = "failed"
)

// RetrainJob is one unit of refit-and-republish work for one instrument.
type RetrainJob struct {
	ID         string        `json:"id"`
	Instrument string        `json:"instrument"`
	Reason     TriggerReason `json:"reason"`
	State      JobState      `json:"state"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// NewRetrainJob builds a queued job with a unique id.
func NewRetrainJob(instrument string, reason TriggerReason) RetrainJob {
	now := time.Now()
	return RetrainJob{
		ID:         fmt.Sprintf("%s-%s-%d", instrument, reason, now.UnixNano()),
		Instrument: instrument,
		Reason:     reason,
		State:      JobQueued,
		EnqueuedAt: now,
	}
}
