package di

import (
	"context"
	"fmt"
	"time"

	"StockDesk/internal/domain/repository"
	mid "StockDesk/internal/middleware"
	internalrepo "StockDesk/internal/repository"
	"StockDesk/internal/service/finnhub"
	"StockDesk/internal/service/ratelimit"
	"StockDesk/internal/service/stockapi"
	"StockDesk/internal/usecase"
	"StockDesk/pkg/cache"
	pkgch "StockDesk/pkg/clickhouse"
	"StockDesk/pkg/config"
	"StockDesk/pkg/fanout"
	xhttp "StockDesk/pkg/http"
	pkgkafka "StockDesk/pkg/kafka"
	applogger "StockDesk/pkg/logger"
	"StockDesk/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

const schemaTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry,
// which is what /metrics serves.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideSessions() *fanout.Sessions {
	return fanout.NewSessions()
}

// ProvideStockAPI creates the client of the app's own backend. It always owns the account.
func ProvideStockAPI(cfg *config.Config) *stockapi.Client {
	return stockapi.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
}

func ProvideAccountStore(api *stockapi.Client) repository.AccountStore {
	return api
}

// ProvideCache creates the market data cache. Driver none yields nil.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	c := cfg.Cache
	switch c.Driver {
	case "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(c.MemoryMaxSize),
			cache.WithMemoryCleanup(c.MemoryCleanup),
		), nil
	}

	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(c.Redis.Addr),
		cache.WithRedisPassword(c.Redis.Password),
		cache.WithRedisDB(c.Redis.DB),
		cache.WithRedisPool(c.Redis.PoolSize, c.Redis.PoolSize/4, cfg.Upstream.Timeout),
		cache.WithRedisPrefix(c.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if c.Driver == "redis" {
		return remote, nil
	}
	return cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(c.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(c.MemoryTTL),
	), nil
}

// ProvideMarketData picks the upstream provider and puts the cache in front of it.
func ProvideMarketData(cfg *config.Config, api *stockapi.Client, c cache.Service, m *metrics.Recorder) repository.MarketData {
	var source repository.MarketData = api
	if cfg.Upstream.Provider == "finnhub" {
		source = finnhub.New(cfg.Upstream.FinnhubURL, cfg.Upstream.FinnhubKey, cfg.Upstream.Timeout)
	}
	if c == nil {
		return source
	}
	return internalrepo.NewCachedMarketData(source, c, internalrepo.CacheTTLs(cfg.Cache.TTL), m)
}

// ProvideKafkaProducer creates a Kafka producer when the journal or the log
// collector needs one, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.NeedsKafka() {
		return nil, nil
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
		pkgkafka.WithProducerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client and the journal table
// when the journal store is in use, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.NeedsClickHouse() {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithDSN(cfg.ClickHouse.DSN),
		pkgch.WithMaxConnections(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithConnMaxLifetime(cfg.ClickHouse.ConnMaxLifetime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.JournalSchema(cfg.Journal.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideJournalStore returns the ClickHouse journal, or a nil interface without a client.
func ProvideJournalStore(cfg *config.Config, ch *pkgch.Client) repository.JournalStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseJournal(ch.DB(), cfg.Journal.Table)
}

// ProvideTradePublisher returns the Kafka journal publisher, or a nil interface
// unless the journal backend is kafka.
func ProvideTradePublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.TradePublisher {
	if producer == nil || cfg.Journal.Backend != usecase.JournalKafka {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Journal.Topic)
}

func ProvideJournalProcessor(
	cfg *config.Config,
	pub repository.TradePublisher,
	store repository.JournalStore,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.JournalProcessor {
	return usecase.NewJournalProcessor(pub, store, m, l, cfg.Journal.Backend)
}

// ProvideJournalPipeline buffers journal events between trades and the backend.
func ProvideJournalPipeline(cfg *config.Config, proc *usecase.JournalProcessor, m *metrics.Recorder, l *applogger.Logger) *mid.JournalPipeline {
	p := cfg.Journal.Pipeline
	return mid.NewJournalPipeline(proc, m,
		mid.WithBufferSize(p.BufferSize),
		mid.WithRetryBackoff(p.BackoffMin, p.BackoffMax),
		mid.WithLogger(l),
	)
}

// ProvideKafkaConsumer creates the journal consumer when kafka events are to be
// stored in ClickHouse, nil otherwise.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Journal.Backend != usecase.JournalKafka || !cfg.Journal.Consume {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideTradeEventHandler stores consumed journal events; nil without a store.
func ProvideTradeEventHandler(cfg *config.Config, store repository.JournalStore, m *metrics.Recorder) *usecase.TradeEventHandler {
	if store == nil {
		return nil
	}
	return usecase.NewTradeEventHandler(cfg.Journal.Topic, store, m)
}

func ProvideDetailUseCase(
	cfg *config.Config,
	market repository.MarketData,
	account repository.AccountStore,
	sessions *fanout.Sessions,
	l *applogger.Logger,
	m *metrics.Recorder,
) (*usecase.DetailUseCase, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return usecase.NewDetailUseCase(market, account, sessions, l, m, usecase.DetailConfig{
		NewsLimit: cfg.Market.NewsLimit,
		Location:  loc,
	}), nil
}

// ProvideLimiter returns the per-client limiter, nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond)
}

// ProvideHTTPServer creates the Echo server with h's routes registered.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.HTTP.Host),
		xhttp.WithPort(cfg.HTTP.Port),
		xhttp.WithTimeouts(cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.ShutdownTimeout),
		xhttp.WithCORS(cfg.HTTP.CORS),
		xhttp.WithLogger(l),
		xhttp.WithSlowThreshold(cfg.HTTP.SlowThreshold),
	)
}
