package usecase

import (
	"context"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
	mid "SentiTrade/internal/middleware"
)

// SentimentCollector collects sentiment samples from the live feed and
// pushes them through the realtime pipeline into the ingest processor.
type SentimentCollector struct {
	stream  drepo.SentimentStream
	proc    *IngestProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewSentimentCollector creates a new SentimentCollector instance.
func NewSentimentCollector(stream drepo.SentimentStream, proc *IngestProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *SentimentCollector {
	return &SentimentCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the feed is connected.
func (c *SentimentCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SentimentCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	sCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, sCh, errCh)
	return nil
}

func (c *SentimentCollector) consume(ctx context.Context, sCh <-chan *models.SentimentSample, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case s := <-sCh:
			if s == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, s)
			} else {
				_ = c.proc.ProcessSentiment(ctx, s)
			}
			c.metrics.RecordLastSentiment(s.Asset, s.Score)
		}
	}
}

func (c *SentimentCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying IngestProcessor for lifecycle management.
func (c *SentimentCollector) Processor() *IngestProcessor { return c.proc }

// Shutdown stops pipeline and closes the feed.
func (c *SentimentCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
