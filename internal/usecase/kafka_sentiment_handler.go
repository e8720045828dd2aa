package usecase

import (
	"context"
	"encoding/json"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	pkgkafka "SentiTrade/pkg/kafka"
)

// KafkaSentimentHandler consumes sentiment samples from Kafka.
type KafkaSentimentHandler struct {
	topic   string
	proc    *IngestProcessor
	metrics drepo.Metrics
}

func NewKafkaSentimentHandler(topic string, proc *IngestProcessor, metrics drepo.Metrics) *KafkaSentimentHandler {
	return &KafkaSentimentHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaSentimentHandler) Topic() string { return h.topic }

// incoming message schema: {asset, t, score, trusted_sources, source}
func (h *KafkaSentimentHandler) Handle(ctx context.Context, b []byte) error {
	var m models.SentimentSample
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Timestamp > 1e11 { // ms
		m.Timestamp = m.Timestamp / 1000
	}
	return h.proc.ProcessSentiment(ctx, &m)
}

var _ pkgkafka.MessageHandler = (*KafkaSentimentHandler)(nil)
