package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SentiTrade/internal/usecase"
	pkgch "SentiTrade/pkg/clickhouse"
	"SentiTrade/pkg/config"
	xhttp "SentiTrade/pkg/http"
	pkgkafka "SentiTrade/pkg/kafka"
	applogger "SentiTrade/pkg/logger"
	"SentiTrade/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	collector   *usecase.SentimentCollector
	consumer    *pkgkafka.Consumer
	handlers    []pkgkafka.MessageHandler
	chClient    *pkgch.Client
	gen         *usecase.SignalGenerator
	evalLoop    *usecase.EvaluationLoop
	jobQueue    *queue.RedisQueue
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	IngestProc  *usecase.IngestProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.SentimentCollector,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	gen *usecase.SignalGenerator,
	evalLoop *usecase.EvaluationLoop,
	jobQueue *queue.RedisQueue,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		collector: collector,
		consumer:  consumer,
		handlers:  handlers,
		chClient:  chClient,
		gen:       gen,
		evalLoop:  evalLoop,
		jobQueue:  jobQueue,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.l
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start sentiment feed collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("sentiment collector started", applogger.Strings("assets", a.cfg.Feed.Assets))
	}

	// Start Kafka consumer with registered topic handlers
	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			l.Info("kafka handler registered", applogger.String("topic", h.Topic()))
		}
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
	}

	// Start the periodic evaluation loop
	if a.evalLoop != nil {
		a.evalLoop.Start(ctx)
		l.Info("evaluation loop started",
			applogger.Duration("interval", a.cfg.Engine.EvaluationInterval),
			applogger.Strings("assets", a.cfg.Feed.Assets),
		)
	}

	// Start backtest job workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("job queue start error", applogger.Error(err))
		} else {
			l.Info("backtest workers started", applogger.Int("workers", a.cfg.Backtest.Workers))
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Drain backtest workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop the evaluation loop before tearing down its collaborators
	if a.evalLoop != nil {
		a.evalLoop.Stop()
	}

	// Stop signal TTL timers
	if a.gen != nil {
		a.gen.Close()
	}

	// Close ingest resources (writer + generator windows)
	if a.IngestProc != nil {
		a.IngestProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Flush any buffered log collection before exit
	l.RemoveCollector()

	l.Info("shutdown complete")
	return nil
}
