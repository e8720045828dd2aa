package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	pkgkafka "SentiTrade/pkg/kafka"
)

// KafkaTicksHandler consumes price ticks from Kafka and feeds the processor.
type KafkaTicksHandler struct {
	topic   string
	proc    *IngestProcessor
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, proc *IngestProcessor, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {asset, t, p, v}
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Asset string  `json:"asset"`
		T     int64   `json:"t"`
		P     float64 `json:"p"`
		V     float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())

	return h.proc.ProcessTick(ctx, &models.Tick{
		Asset:     m.Asset,
		Timestamp: m.T,
		Price:     m.P,
		Volume:    m.V,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
