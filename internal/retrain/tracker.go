package retrain

import "sync"

// Tracker enforces at most one in-flight retrain job per instrument. A slot
// is acquired when the job is enqueued and released when it reaches a
// terminal state, so triggers arriving in between are dropped, not queued.
type Tracker struct {
	mu       sync.Mutex
	inflight map[string]bool
}

func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[string]bool)}
}

// TryAcquire claims the instrument's slot. Returns false if a job is
// already in flight.
func (t *Tracker) TryAcquire(instrument string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inflight[instrument] {
		return false
	}
	t.inflight[instrument] = true
	return true
}

// Release frees the instrument's slot.
func (t *Tracker) Release(instrument string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, instrument)
}

// InFlight reports whether a job is currently queued or running.
func (t *Tracker) InFlight(instrument string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight[instrument]
}
