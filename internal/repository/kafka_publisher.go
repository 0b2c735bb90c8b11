package repository

import (
	"context"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
)

// MessageProducer is the subset of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher emits prediction events keyed by product.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

func NewKafkaPublisher(producer MessageProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.PredictionEvent) error {
	key := ev.ProductID
	if key == "" {
		key = ev.ProductName
	}
	return p.producer.Publish(ctx, p.topic, []byte(key), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *models.PredictionEvent) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

var (
	_ domrepo.PredictionPublisher = (*KafkaPublisher)(nil)
	_ domrepo.PredictionPublisher = NoopPublisher{}
)
