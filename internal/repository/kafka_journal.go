package repository

import (
	"context"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	pkgkafka "StockDesk/pkg/kafka"
)

// KafkaPublisher implements TradePublisher for Kafka. Events are keyed by ticker.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.TradePublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.TradeEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.Ticker), e)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{Key: []byte(e.Ticker), Value: e}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared with the log collector and closed by the app.
func (p *KafkaPublisher) Close() error {
	return nil
}
