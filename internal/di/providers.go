package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SentiTrade/internal/domain/repository"
	domsvc "SentiTrade/internal/domain/service"
	"SentiTrade/internal/handler/api"
	mid "SentiTrade/internal/middleware"
	internalrepo "SentiTrade/internal/repository"
	icache "SentiTrade/internal/service/cache"
	"SentiTrade/internal/service/feed"
	"SentiTrade/internal/service/whale"
	"SentiTrade/internal/usecase"
	pkgcache "SentiTrade/pkg/cache"
	pkgch "SentiTrade/pkg/clickhouse"
	"SentiTrade/pkg/config"
	pkgkafka "SentiTrade/pkg/kafka"
	applogger "SentiTrade/pkg/logger"
	"SentiTrade/pkg/metrics"
	"SentiTrade/pkg/queue"
	"SentiTrade/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SchemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickWriter creates the raw tick/sentiment writer.
func ProvideTickWriter(chClient *pkgch.Client) repository.TickWriter {
	return internalrepo.NewClickHouseTickWriter(chClient)
}

// ProvideSignalPublisher creates the Kafka signal event publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideSeriesStore creates the ClickHouse history reader.
func ProvideSeriesStore(chClient *pkgch.Client, l *applogger.Logger) repository.SeriesStore {
	store := internalrepo.NewCHSeriesStore(chClient)
	store.SetLogger(l)
	return store
}

// ProvideSignalStore creates the ClickHouse signal store.
func ProvideSignalStore(chClient *pkgch.Client) repository.SignalStore {
	return internalrepo.NewCHSignalStore(chClient)
}

// ProvideWhaleSource creates the whale-flow client, or nil when disabled.
func ProvideWhaleSource(cfg *config.Config) domsvc.WhaleSource {
	if !cfg.Whale.Enabled || cfg.Whale.BaseURL == "" {
		return nil
	}
	return whale.New(cfg.Whale.BaseURL, cfg.Whale.Timeout)
}

// ProvideSignalGenerator creates the per-asset signal state machine.
func ProvideSignalGenerator(
	cfg *config.Config,
	l *applogger.Logger,
	whaleSrc domsvc.WhaleSource,
	store repository.SignalStore,
	pub repository.Publisher,
	m repository.Metrics,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(cfg, l, whaleSrc, store, pub, m)
}

// ProvideEvaluationLoop creates the periodic evaluation driver.
func ProvideEvaluationLoop(cfg *config.Config, l *applogger.Logger, gen *usecase.SignalGenerator) *usecase.EvaluationLoop {
	return usecase.NewEvaluationLoop(gen, l, cfg.Feed.Assets, cfg.Engine.EvaluationInterval)
}

// ProvideIngestProcessor creates the ingest use case.
func ProvideIngestProcessor(
	writer repository.TickWriter,
	gen *usecase.SignalGenerator,
	m repository.Metrics,
) *usecase.IngestProcessor {
	return usecase.NewIngestProcessor(writer, gen, m, 500, 2*time.Second)
}

// ProvideSentimentStream creates the sentiment WebSocket feed.
func ProvideSentimentStream(cfg *config.Config, l *applogger.Logger) repository.SentimentStream {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Assets,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		l,
	)
}

// ProvideSentimentCollector creates the collector with its realtime pipeline.
func ProvideSentimentCollector(
	stream repository.SentimentStream,
	proc *usecase.IngestProcessor,
	m repository.Metrics,
) *usecase.SentimentCollector {
	pipe := mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewSentimentCollector(stream, proc, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.NewLoggingHook(l))
	return consumer, nil
}

// ProvideKafkaHandlers builds one handler per ingest topic.
func ProvideKafkaHandlers(cfg *config.Config, proc *usecase.IngestProcessor, m repository.Metrics) []pkgkafka.MessageHandler {
	return []pkgkafka.MessageHandler{
		usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, proc, m),
		usecase.NewKafkaSentimentHandler(cfg.Kafka.SentimentTopic, proc, m),
	}
}

// ProvideRedisCache creates the Redis cache, or nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled || cfg.Redis.Addr == "" {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("sentitrade"),
	)
}

// ProvideCacheService picks layered cache when Redis is available.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideJobQueue creates the Redis-backed backtest job queue, or nil when
// Redis is disabled (long backtests then run synchronously).
func ProvideJobQueue(l *applogger.Logger, cfg *config.Config, rc *pkgcache.RedisCache) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Backtest.Workers,
		QueueSize:  1000,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
}

// ProvideBacktestRunner creates the backtest orchestrator and registers its
// queue job.
func ProvideBacktestRunner(
	cfg *config.Config,
	l *applogger.Logger,
	store repository.SeriesStore,
	cacheSvc pkgcache.Service,
	jobQueue *queue.RedisQueue,
	m repository.Metrics,
) *usecase.BacktestRunner {
	var qs queue.QueueService
	if jobQueue != nil {
		qs = jobQueue
	}
	runner := usecase.NewBacktestRunner(cfg, l, store, cacheSvc, qs, m)
	if jobQueue != nil {
		jobQueue.RegisterJob(usecase.NewBacktestJob(runner))
	}
	return runner
}

// ProvideCandlesUseCase creates the candles read use case.
func ProvideCandlesUseCase(store repository.SeriesStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideEchoHandler creates the Echo HTTP surface.
func ProvideEchoHandler(
	l *applogger.Logger,
	gen *usecase.SignalGenerator,
	runner *usecase.BacktestRunner,
	store repository.SignalStore,
	candles *usecase.CandlesUseCase,
	chClient *pkgch.Client,
	cfg *config.Config,
) *api.SignalsEchoHandler {
	h := api.NewSignalsEchoHandler(l, gen, runner, store, candles)
	h.SetHealthCheck(chClient.Health)

	legacy := api.NewSignalsHandler(gen, store)
	if cfg.Redis.Enabled && cfg.Redis.Addr != "" {
		legacy.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		legacy.SetCache(icache.NewTTLCache())
	}
	legacy.SetLogger(l)
	h.SetLegacy(legacy)
	return h
}

// kafkaLogSink adapts the Kafka producer to the log collector's publisher.
type kafkaLogSink struct {
	p *pkgkafka.Producer
}

func (s *kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SentimentCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	gen *usecase.SignalGenerator,
	evalLoop *usecase.EvaluationLoop,
	jobQueue *queue.RedisQueue,
	echoHandler *api.SignalsEchoHandler,
	producer *pkgkafka.Producer,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "sentitrade.logs",
			Publisher:      &kafkaLogSink{p: producer},
		})
	}
	app := server.New(cfg, l, collector, consumer, handlers, chClient, gen, evalLoop, jobQueue)
	app.SetHTTPHandler(echoHandler)
	if collector != nil {
		app.IngestProc = collector.Processor()
	}
	return app
}
