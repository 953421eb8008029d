package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "InvestCore/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "investcore:retrain:jobs"

// RedisQueue is the Redis-backed queue: LPUSH on enqueue, blocking BRPOP on
// the consumer side. Useful when trigger and worker run in separate
// processes.
type RedisQueue struct {
	client  *redis.Client
	key     string
	workers int
	logger  *applogger.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKey sets a custom Redis list key.
func WithKey(key string) RedisQueueOption {
	return func(q *RedisQueue) {
		q.key = key
	}
}

// WithWorkers sets the consumer worker count.
func WithWorkers(n int) RedisQueueOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// NewRedisQueue creates a Redis-backed queue.
func NewRedisQueue(client *redis.Client, logger *applogger.Logger, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{
		client:  client,
		key:     defaultKey,
		workers: 1,
		logger:  logger.With("redis_queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue pushes the payload onto the list.
func (q *RedisQueue) Enqueue(ctx context.Context, payload []byte) error {
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// Start verifies connectivity and launches the worker pool.
func (q *RedisQueue) Start(handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	q.started = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i, handler)
	}

	q.logger.Info("queue started",
		applogger.Int("workers", q.workers),
		applogger.String("key", q.key),
	)
	return nil
}

func (q *RedisQueue) worker(ctx context.Context, id int, handler Handler) {
	defer q.wg.Done()
	for {
		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue // poll timeout, list empty
			}
			q.logger.Error("brpop", applogger.Int("worker", id), applogger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if len(res) != 2 {
			continue
		}
		if err := handler(ctx, []byte(res[1])); err != nil {
			q.logger.Error("job failed", applogger.Int("worker", id), applogger.Error(err))
		}
	}
}

// Stop cancels workers and waits for in-flight jobs.
func (q *RedisQueue) Stop(context.Context) error {
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
