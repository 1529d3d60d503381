package di

import (
	"context"
	"fmt"
	"time"

	"VolSignals/internal/domain/models"
	"VolSignals/internal/domain/repository"
	"VolSignals/internal/handler/api"
	"VolSignals/internal/middleware"
	internalrepo "VolSignals/internal/repository"
	svcmetrics "VolSignals/internal/service/metrics"
	"VolSignals/internal/service/wsfeed"
	"VolSignals/internal/services/execution"
	"VolSignals/internal/services/regime"
	"VolSignals/internal/services/series"
	"VolSignals/internal/usecase"
	"VolSignals/pkg/cache"
	pkgch "VolSignals/pkg/clickhouse"
	"VolSignals/pkg/config"
	xhttp "VolSignals/pkg/http"
	pkgkafka "VolSignals/pkg/kafka"
	applogger "VolSignals/pkg/logger"
	"VolSignals/pkg/metrics"
	"VolSignals/pkg/server"
)

// Sources names every series a run needs: both signals and the instrument.
type Sources []string

func ProvideSources(cfg *config.Config) Sources {
	return Sources{cfg.Strategy.ShortSignal, cfg.Strategy.LongSignal, cfg.Strategy.Instrument}
}

func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects and creates the schema. It returns nil
// when no host is configured.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.ClickHouse.Host == "" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxConnections, cfg.ClickHouse.MaxConnections/2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	schema := append(internalrepo.SeriesSchema(), internalrepo.AuditSchema()...)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer returns nil when nothing publishes to Kafka. When the
// log digest is enabled it is attached to the producer here.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Audit.Kafka && !cfg.Log.Digest.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.Digest.Enabled {
		l.AttachDigest(&applogger.DigestConfig{
			Interval:   cfg.Log.Digest.Interval,
			MaxEntries: cfg.Log.Digest.MaxEntries,
			Topic:      cfg.Log.Digest.Topic,
			Publisher:  producer,
		})
	}

	return producer, func() {
		l.DetachDigest()
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideRedisCache returns nil unless the series cache is enabled.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) (*cache.RedisCache, func(), error) {
	if !cfg.Data.Cache {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideSeriesCache fronts Redis with an in-process LRU when configured.
func ProvideSeriesCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return nil
	}
	if cfg.Redis.L1Size > 0 {
		return cache.NewLayeredCache(rc, cfg.Redis.L1Size, cfg.Redis.L1TTL)
	}
	return rc
}

func ProvideCSVLoader(cfg *config.Config, l *applogger.Logger) *internalrepo.CSVSeriesLoader {
	return internalrepo.NewCSVSeriesLoader(cfg.Data.Dir, l)
}

func ProvideSeriesStore(ch *pkgch.Client, l *applogger.Logger) (*internalrepo.CHSeriesStore, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: clickhouse.host is required to import series", models.ErrConfig)
	}
	return internalrepo.NewCHSeriesStore(ch, l), nil
}

// ProvideCachedLoader wraps the ClickHouse store with the series cache, or
// returns nil when caching is off.
func ProvideCachedLoader(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) *internalrepo.CachedSeriesLoader {
	if c == nil || ch == nil {
		return nil
	}
	return internalrepo.NewCachedSeriesLoader(internalrepo.NewCHSeriesStore(ch, l), c, cfg.Data.CacheTTL, l)
}

// ProvideSeriesLoader picks the historical source: CSV files, or ClickHouse
// optionally behind the series cache.
func ProvideSeriesLoader(cfg *config.Config, csv *internalrepo.CSVSeriesLoader, ch *pkgch.Client, cached *internalrepo.CachedSeriesLoader, l *applogger.Logger) repository.SeriesLoader {
	if cfg.Data.Source != "clickhouse" {
		return csv
	}
	if cached != nil {
		return cached
	}
	return internalrepo.NewCHSeriesStore(ch, l)
}

func ProvideBook(cfg *config.Config) *series.Book {
	return series.NewBook(
		series.WithSignalLookback(cfg.Strategy.SignalLookbackDays),
		series.WithPriceLookback(cfg.Strategy.PriceLookbackDays),
	)
}

func ProvideRingSink(cfg *config.Config) *internalrepo.RingSink {
	return internalrepo.NewRingSink(cfg.Audit.RingSize)
}

// ProvideAuditSink fans audit events out to the log, the in-memory ring and
// whichever of Kafka and ClickHouse are enabled.
func ProvideAuditSink(cfg *config.Config, l *applogger.Logger, ring *internalrepo.RingSink, producer *pkgkafka.Producer, ch *pkgch.Client) repository.AuditSink {
	sinks := []repository.AuditSink{ring}
	if cfg.Audit.Log {
		sinks = append(sinks, internalrepo.NewLogSink(l))
	}
	if cfg.Audit.Kafka && producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaAuditPublisher(producer, cfg.Audit.Topic, l))
	}
	if cfg.Audit.ClickHouse && ch != nil {
		sinks = append(sinks, internalrepo.NewCHAuditStore(ch, l))
	}
	return internalrepo.NewFanoutSink(sinks...)
}

func ProvidePaperVenue(cfg *config.Config) *internalrepo.PaperVenue {
	return internalrepo.NewPaperVenue(cfg.Backtest.StartCash)
}

// ProvideVenue returns the broker gateway venue when configured, else the
// paper venue.
func ProvideVenue(cfg *config.Config, paper *internalrepo.PaperVenue, l *applogger.Logger) repository.Venue {
	if cfg.Venue.Type != "http" {
		return paper
	}
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Venue.Timeout))
	return internalrepo.NewHTTPVenue(client, internalrepo.HTTPVenueConfig{
		BaseURL:     cfg.Venue.BaseURL,
		APIKey:      cfg.Venue.APIKey,
		RatePerSec:  cfg.Venue.RatePerSec,
		Burst:       cfg.Venue.Burst,
		MaxFailures: cfg.Venue.MaxFailures,
		OpenTimeout: cfg.Venue.OpenTimeout,
	}, svcmetrics.NewVenueMetrics(nil), l)
}

// ProvideBacktestVenue always fills on paper; backtests never reach a broker.
func ProvideBacktestVenue(paper *internalrepo.PaperVenue) repository.Venue {
	return paper
}

func ProvideStrategyParams(cfg *config.Config) usecase.StrategyParams {
	s := cfg.Strategy
	return usecase.StrategyParams{
		Instrument:  s.Instrument,
		ShortSignal: s.ShortSignal,
		LongSignal:  s.LongSignal,
		Regime: regime.Params{
			WindowSize:      s.WindowSize,
			Slack:           s.Slack,
			PersistenceBars: s.PersistenceBars,
			ShockMultiplier: s.ShockMultiplier,
		},
		Execution: execution.Params{
			CooldownBars:            s.CooldownBars,
			SignalStdThreshold:      s.SignalStdThreshold,
			PositionSize:            s.PositionSize,
			StopLossMultiplier:      s.StopLossMultiplier,
			ExitMeanRevertThreshold: s.ExitMeanRevertThreshold,
			StopVolPeriod:           s.StopVolPeriod,
			StopVolSeed:             s.StopVolSeed,
		},
		SummaryEvery: s.SummaryEvery,
	}
}

func ProvideTickProcessor(
	params usecase.StrategyParams,
	book *series.Book,
	venue repository.Venue,
	audit repository.AuditSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(params, book, book, venue, audit, m, l)
}

func ProvideBacktest(cfg *config.Config, proc *usecase.TickProcessor, l *applogger.Logger) (*usecase.Backtest, error) {
	start, err := cfg.Backtest.StartDate()
	if err != nil {
		return nil, fmt.Errorf("backtest start: %w", err)
	}
	end, err := cfg.Backtest.EndDate()
	if err != nil {
		return nil, fmt.Errorf("backtest end: %w", err)
	}
	// backtest.end is a calendar date; the schedule end is an instant, so the
	// whole end date is covered in both daily and hourly mode.
	return usecase.NewBacktest(proc, usecase.BacktestSchedule{
		Start:       start,
		End:         end.Add(24*time.Hour - time.Nanosecond),
		TickHour:    cfg.Backtest.TickHour,
		Hourly:      cfg.Backtest.Interval == "hourly",
		SkipWeekend: cfg.Backtest.SkipWeekend,
	}, l), nil
}

func ProvideBacktestJob(book *series.Book, loader repository.SeriesLoader, sources Sources, bt *usecase.Backtest, l *applogger.Logger) *server.BacktestJob {
	return server.NewBacktestJob(book, loader, sources, bt, l)
}

// ProvideLoadJob imports CSV files into ClickHouse and drops stale cache
// entries.
func ProvideLoadJob(csv *internalrepo.CSVSeriesLoader, store *internalrepo.CHSeriesStore, cached *internalrepo.CachedSeriesLoader, sources Sources, l *applogger.Logger) *server.LoadJob {
	var inv server.SeriesInvalidator
	if cached != nil {
		inv = cached
	}
	return server.NewLoadJob(csv, store, inv, sources, l)
}

func ProvideTickIngestor(book *series.Book, proc *usecase.TickProcessor, m repository.Metrics) *usecase.TickIngestor {
	return usecase.NewTickIngestor(book, proc, m)
}

// ProvideKafkaConsumer builds the tick consumer with a single worker so
// ticks reach the processor in order. Nil unless the feed is Kafka.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Feed.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(1),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideTickGuard puts validation and stale-tick filtering in front of the
// ingestor for every live feed.
func ProvideTickGuard(cfg *config.Config, ing *usecase.TickIngestor, m repository.Metrics) usecase.Ingester {
	return middleware.NewTickGuard(ing, m, middleware.WithMinInterval(cfg.Feed.MinTickInterval))
}

func ProvideKafkaTicksHandler(cfg *config.Config, ing usecase.Ingester, m repository.Metrics) pkgkafka.MessageHandler {
	return usecase.NewKafkaTicksHandler(cfg.Feed.Topic, ing, m)
}

// ProvideStreamRunner is nil unless the feed is a WebSocket.
func ProvideStreamRunner(cfg *config.Config, ing usecase.Ingester, m repository.Metrics, l *applogger.Logger) *usecase.StreamRunner {
	if cfg.Feed.Type != "websocket" {
		return nil
	}
	stream := wsfeed.New(cfg.Feed.APIKey, cfg.Feed.WebSocketURL, []string{cfg.Strategy.Instrument}, cfg.Feed.PingInterval, l)
	return usecase.NewStreamRunner(stream, ing, m, l, cfg.Feed.ReconnectDelay)
}

// ProvideHealthChecks probes the optional infrastructure clients.
func ProvideHealthChecks(ch *pkgch.Client, rc *cache.RedisCache) map[string]api.HealthCheck {
	checks := make(map[string]api.HealthCheck)
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Client().Ping(ctx).Err() }
	}
	return checks
}

func ProvideStatusHandler(l *applogger.Logger, proc *usecase.TickProcessor, ring *internalrepo.RingSink, checks map[string]api.HealthCheck) *api.StatusEchoHandler {
	return api.NewStatusEchoHandler(l, proc, ring, checks)
}

// ProvideHTTPServer returns nil when the status server is disabled.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, status *api.StatusEchoHandler) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, []xhttp.Handler{status},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, nil),
	)
}

func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	proc *usecase.TickProcessor,
	consumer *pkgkafka.Consumer,
	ticks pkgkafka.MessageHandler,
	stream *usecase.StreamRunner,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, l, proc, consumer, ticks, stream, httpServer)
}
