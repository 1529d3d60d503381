//go:build wireinject
// +build wireinject

package di

import (
	"VolSignals/pkg/config"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideClickHouseClient,
	ProvideRedisCache,
)

var engineSet = wire.NewSet(
	ProvideMetrics,
	ProvideKafkaProducer,
	ProvideBook,
	ProvideRingSink,
	ProvideAuditSink,
	ProvidePaperVenue,
	ProvideStrategyParams,
	ProvideTickProcessor,
)

// InitializeApp wires the live engine.
func InitializeApp(cfg *config.Config, l *applogger.Logger) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		engineSet,
		ProvideVenue,
		ProvideTickIngestor,
		ProvideTickGuard,
		ProvideKafkaConsumer,
		ProvideKafkaTicksHandler,
		ProvideStreamRunner,
		ProvideHealthChecks,
		ProvideStatusHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeBacktest wires a backtest over historical series on the paper venue.
func InitializeBacktest(cfg *config.Config, l *applogger.Logger) (*server.BacktestJob, func(), error) {
	wire.Build(
		infraSet,
		engineSet,
		ProvideSeriesCache,
		ProvideBacktestVenue,
		ProvideSources,
		ProvideCSVLoader,
		ProvideCachedLoader,
		ProvideSeriesLoader,
		ProvideBacktest,
		ProvideBacktestJob,
	)
	return nil, nil, nil
}

// InitializeLoadJob wires the CSV to ClickHouse import.
func InitializeLoadJob(cfg *config.Config, l *applogger.Logger) (*server.LoadJob, func(), error) {
	wire.Build(
		infraSet,
		ProvideSeriesCache,
		ProvideSources,
		ProvideCSVLoader,
		ProvideSeriesStore,
		ProvideCachedLoader,
		ProvideLoadJob,
	)
	return nil, nil, nil
}
