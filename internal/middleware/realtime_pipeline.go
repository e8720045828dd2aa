package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SentiTrade/internal/domain/models"
	drepo "SentiTrade/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	ProcessSentiment(ctx context.Context, s *models.SentimentSample) error
}

// RealtimePipeline sits between the WebSocket feed and the ingest processor.
// It validates, filters/throttles, optionally transforms, and buffers when downstream is unavailable.
type RealtimePipeline struct {
	proc     Proc
	metrics  drepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.SentimentSample
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-asset last accepted time
	// simple format transform hook (optional)
	transform func(*models.SentimentSample) *models.SentimentSample
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max samples per second per asset.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to modify the sample format.
func WithTransform(fn func(*models.SentimentSample) *models.SentimentSample) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics drepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per asset
		bufSize:  1000, // default buffer
		bufCh:    make(chan *models.SentimentSample, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.SentimentSample, p.bufSize)
	}
	// metrics hooks using domain metrics if available
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(asset string) { p.metrics.RecordError("pipeline_throttle_" + asset) }
	return p
}

// Start launches background flushing of buffered samples.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case s := <-p.bufCh:
				if s == nil {
					continue
				}
				if err := p.proc.ProcessSentiment(ctx, s); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- s:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the sample downstream, buffering on errors.
func (p *RealtimePipeline) Process(ctx context.Context, s *models.SentimentSample) error {
	start := time.Now()
	if err := validateSample(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		s = p.transform(s)
		if err := validateSample(s); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(s.Asset, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(s.Asset)
		}
		return nil
	}

	if err := p.proc.ProcessSentiment(ctx, s); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- s:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateSample(s *models.SentimentSample) error {
	if s == nil {
		return fmt.Errorf("sample nil")
	}
	if s.Asset == "" {
		return fmt.Errorf("asset empty")
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("score out of range")
	}
	if s.TrustedSources < 0 {
		return fmt.Errorf("negative trusted sources")
	}
	return nil
}

func (p *RealtimePipeline) allow(asset string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[asset]
	if last.IsZero() {
		p.lastSeen[asset] = now
		return true
	}
	// compute elapsed samples per second window
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[asset] = now
	return true
}
