package kafka

import (
	"context"
	"time"

	"SentiTrade/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Hooks can mutate context, message, and payload.
// Returning a non-nil error from BeforeHandle will skip handler execution
// and trigger error processing (OnError, DLQ, and offset commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is a default hook that does nothing and is fully panic-safe.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
}

type ctxKey string

const ctxStartTime ctxKey = "kafka_hook_start_time"

// LoggingHook records per-message handling latency and failures. A trace_id
// header, when present, is carried into the log lines.
type LoggingHook struct {
	l *logger.Logger
}

// NewLoggingHook creates a hook that logs through the given logger.
func NewLoggingHook(l *logger.Logger) *LoggingHook {
	return &LoggingHook{l: l}
}

func (h *LoggingHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return context.WithValue(ctx, ctxStartTime, time.Now()), km, data, nil
}

func (h *LoggingHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if err != nil || h.l == nil {
		return
	}
	fields := []logger.Field{
		logger.String("topic", topic),
		logger.Int("bytes", len(data)),
	}
	if start, ok := ctx.Value(ctxStartTime).(time.Time); ok {
		fields = append(fields, logger.Duration("took", time.Since(start)))
	}
	if id := traceID(km); id != "" {
		fields = append(fields, logger.String("trace_id", id))
	}
	h.l.Debug("kafka message handled", fields...)
}

func (h *LoggingHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.l == nil {
		return
	}
	fields := []logger.Field{
		logger.String("topic", topic),
		logger.Error(err),
	}
	if id := traceID(km); id != "" {
		fields = append(fields, logger.String("trace_id", id))
	}
	h.l.Warn("kafka message failed", fields...)
}

func traceID(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "trace_id" && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return ""
}
