package usecase

import (
	"context"
	"fmt"
	"time"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
)

// IngestProcessor routes normalized ticks and sentiment samples to storage
// and into the signal generator's rolling windows.
type IngestProcessor struct {
	writer  drepo.TickWriter
	gen     *SignalGenerator
	metrics drepo.Metrics
	batchSz int
	batchTO time.Duration
}

// NewIngestProcessor creates a new IngestProcessor instance.
func NewIngestProcessor(
	writer drepo.TickWriter,
	gen *SignalGenerator,
	metrics drepo.Metrics,
	batchSz int,
	batchTO time.Duration,
) *IngestProcessor {
	return &IngestProcessor{
		writer:  writer,
		gen:     gen,
		metrics: metrics,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// ProcessTick stores a single tick and feeds the generator window.
func (p *IngestProcessor) ProcessTick(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	start := time.Now()

	if p.gen != nil {
		p.gen.ObserveTick(t)
	}
	if p.writer != nil {
		if err := p.writer.StoreTicks(ctx, []*models.Tick{t}); err != nil {
			p.metrics.RecordError("tick_store")
			return fmt.Errorf("store tick: %w", err)
		}
	}

	p.metrics.RecordSampleIngested("tick", t.Asset)
	p.metrics.RecordLatency("tick_process", time.Since(start).Seconds())
	return nil
}

// ProcessTickBatch stores multiple ticks in one write.
func (p *IngestProcessor) ProcessTickBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()

	if p.gen != nil {
		for _, t := range ticks {
			p.gen.ObserveTick(t)
		}
	}
	if p.writer != nil {
		if err := p.writer.StoreTicks(ctx, ticks); err != nil {
			p.metrics.RecordError("tick_store_batch")
			return fmt.Errorf("store tick batch: %w", err)
		}
	}

	for _, t := range ticks {
		p.metrics.RecordSampleIngested("tick", t.Asset)
	}
	p.metrics.RecordLatency("tick_process_batch", time.Since(start).Seconds())
	return nil
}

// ProcessSentiment stores a sentiment sample and feeds the generator window.
func (p *IngestProcessor) ProcessSentiment(ctx context.Context, s *models.SentimentSample) error {
	if s == nil {
		return fmt.Errorf("sentiment sample is nil")
	}
	start := time.Now()

	if p.gen != nil {
		p.gen.ObserveSentiment(s)
	}
	if p.writer != nil {
		if err := p.writer.StoreSentiment(ctx, []*models.SentimentSample{s}); err != nil {
			p.metrics.RecordError("sentiment_store")
			return fmt.Errorf("store sentiment: %w", err)
		}
	}

	p.metrics.RecordSampleIngested("sentiment", s.Asset)
	p.metrics.RecordLatency("sentiment_process", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *IngestProcessor) Close() {
	if p.writer != nil {
		_ = p.writer.Close()
	}
	if p.gen != nil {
		p.gen.Close()
	}
}
