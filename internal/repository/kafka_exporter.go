package repository

import (
	"context"
	"fmt"

	"InvestCore/internal/domain/models"
	pkgkafka "InvestCore/pkg/kafka"
)

// KafkaExporter publishes appended feedback rows to the production-features
// topic the drift monitor consumes. Rows are keyed by instrument.
type KafkaExporter struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaExporter(producer *pkgkafka.Producer, topic string) *KafkaExporter {
	return &KafkaExporter{producer: producer, topic: topic}
}

func (e *KafkaExporter) Export(ctx context.Context, rec models.FeedbackRecord) error {
	if err := e.producer.Publish(ctx, e.topic, []byte(rec.Instrument), rec); err != nil {
		return fmt.Errorf("export feedback row: %w", err)
	}
	return nil
}

func (e *KafkaExporter) Close() error {
	return e.producer.Close()
}
