package repository

import (
	"context"

	"SentiTrade/internal/domain/models"
	domrepo "SentiTrade/internal/domain/repository"
	pkgkafka "SentiTrade/pkg/kafka"
)

// KafkaSignalPublisher emits signal lifecycle events, keyed by asset so that
// one asset's transitions stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	if ev == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.topic, []byte(ev.Asset), ev)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
