package queue

import (
	"context"
	"fmt"
	"sync"

	applogger "InvestCore/pkg/logger"
)

// MemoryQueue is the in-process queue backend: a bounded channel drained by
// a fixed worker pool.
type MemoryQueue struct {
	ch      chan []byte
	workers int
	logger  *applogger.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMemoryQueue creates an in-process queue.
func NewMemoryQueue(capacity, workers int, logger *applogger.Logger) *MemoryQueue {
	if capacity <= 0 {
		capacity = 64
	}
	if workers <= 0 {
		workers = 1
	}
	return &MemoryQueue{
		ch:      make(chan []byte, capacity),
		workers: workers,
		logger:  logger.With("memory_queue"),
	}
}

// Enqueue schedules a payload, failing fast when the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, payload []byte) error {
	select {
	case q.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full (%d)", cap(q.ch))
	}
}

// Start launches the worker pool.
func (q *MemoryQueue) Start(handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("queue already running")
	}
	q.started = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for {
				select {
				case payload := <-q.ch:
					if err := handler(ctx, payload); err != nil {
						q.logger.Error("job failed",
							applogger.Int("worker", id),
							applogger.Error(err),
						)
					}
				case <-ctx.Done():
					return
				}
			}
		}(i)
	}

	q.logger.Info("queue started", applogger.Int("workers", q.workers))
	return nil
}

// Stop cancels workers and waits for in-flight jobs.
func (q *MemoryQueue) Stop(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil
	}
	q.cancel()
	q.wg.Wait()
	q.started = false
	return nil
}
