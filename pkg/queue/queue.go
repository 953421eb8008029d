package queue

import "context"

// Handler processes one dequeued payload.
type Handler func(ctx context.Context, payload []byte) error

// Queue is the job transport between trigger and worker. Implementations
// deliver each enqueued payload to the handler at least once, in enqueue
// order per producer.
type Queue interface {
	// Enqueue schedules a payload. It must not block on slow consumers
	// beyond the configured capacity.
	Enqueue(ctx context.Context, payload []byte) error

	// Start launches the consumer side with the given handler.
	Start(handler Handler) error

	// Stop drains workers and releases resources.
	Stop(ctx context.Context) error
}
