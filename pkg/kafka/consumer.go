package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	applogger "InvestCore/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, value []byte) error
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	MinBytes   int
	MaxBytes   int
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerRetry configures handler retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// Consumer reads one topic and feeds a registered handler. Handler errors
// are retried with growing backoff, then the message is dropped — a drift
// signal is advisory, losing one is a degraded cycle, not a failure.
type Consumer struct {
	cfg     *ConsumerConfig
	reader  *kafka.Reader
	handler MessageHandler
	logger  *applogger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(logger *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		MinBytes:   1,
		MaxBytes:   1 << 20,
		RetryMax:   3,
		BackoffMin: 200 * time.Millisecond,
		BackoffMax: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("group id is required")
	}

	return &Consumer{cfg: cfg, logger: logger.With("kafka_consumer")}, nil
}

// RegisterHandler sets the message handler; its Topic() decides what is read.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	c.handler = h
}

// Start begins consuming in the background.
func (c *Consumer) Start() error {
	if c.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    c.handler.Topic(),
		MinBytes: c.cfg.MinBytes,
		MaxBytes: c.cfg.MaxBytes,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(ctx)

	c.logger.Info("consumer started", applogger.String("topic", c.handler.Topic()))
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("read message", applogger.Error(err))
			continue
		}

		c.handle(ctx, msg.Value)
	}
}

func (c *Consumer) handle(ctx context.Context, value []byte) {
	backoff := c.cfg.BackoffMin
	for attempt := 0; ; attempt++ {
		err := c.handler.Handle(ctx, value)
		if err == nil {
			return
		}
		if attempt >= c.cfg.RetryMax {
			c.logger.Warn("message dropped after retries",
				applogger.Int("attempts", attempt+1),
				applogger.Error(err),
			)
			return
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}
}

// Stop shuts the consumer down and waits for the read loop.
func (c *Consumer) Stop(context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.wg.Wait()
	return err
}
