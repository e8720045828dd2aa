//go:build wireinject
// +build wireinject

package di

import (
	"SentiTrade/pkg/config"
	"SentiTrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideJobQueue,

		// Repositories
		ProvideTickWriter,
		ProvideSignalPublisher,
		ProvideSeriesStore,
		ProvideSignalStore,
		ProvideWhaleSource,
		ProvideSentimentStream,

		// Use cases
		ProvideSignalGenerator,
		ProvideEvaluationLoop,
		ProvideIngestProcessor,
		ProvideSentimentCollector,
		ProvideKafkaHandlers,
		ProvideBacktestRunner,
		ProvideCandlesUseCase,

		// HTTP
		ProvideEchoHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
