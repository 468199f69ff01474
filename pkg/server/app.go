package server

import (
	"context"
	"time"

	"StockDesk/internal/middleware"
	"StockDesk/internal/service/ratelimit"
	"StockDesk/internal/usecase"
	"StockDesk/pkg/cache"
	pkgch "StockDesk/pkg/clickhouse"
	"StockDesk/pkg/config"
	xhttp "StockDesk/pkg/http"
	pkgkafka "StockDesk/pkg/kafka"
	applogger "StockDesk/pkg/logger"
)

const limiterSweepInterval = time.Minute

// Views are the screen loaders, exposed for one-shot CLI snapshots.
type Views struct {
	Detail    *usecase.DetailUseCase
	Portfolio *usecase.PortfolioUseCase
	Watchlist *usecase.WatchlistUseCase
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	pipeline   *middleware.JournalPipeline
	journal    *usecase.JournalProcessor
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	cache      cache.Service
	limiter    *ratelimit.Limiter
	views      Views
}

// Deps groups the optional infrastructure; nil members are skipped.
type Deps struct {
	Consumer *pkgkafka.Consumer
	Handler  *usecase.TradeEventHandler
	Producer *pkgkafka.Producer
	CH       *pkgch.Client
	Cache    cache.Service
	Limiter  *ratelimit.Limiter
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	pipeline *middleware.JournalPipeline,
	journal *usecase.JournalProcessor,
	views Views,
	deps Deps,
) *App {
	a := &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		pipeline:   pipeline,
		journal:    journal,
		consumer:   deps.Consumer,
		producer:   deps.Producer,
		chClient:   deps.CH,
		cache:      deps.Cache,
		limiter:    deps.Limiter,
		views:      views,
	}
	if deps.Handler != nil {
		a.kh = deps.Handler
	}
	return a
}

func (a *App) Views() Views { return a.views }

// Run starts background workers and the HTTP server, then blocks until ctx
// is cancelled and shuts everything down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.attachCollector()

	if a.pipeline != nil {
		a.pipeline.Start(runCtx)
		a.log.Info("journal pipeline started", applogger.String("backend", a.journal.Backend()))
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(runCtx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return a.shutdown(err)
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.limiter != nil {
		go a.sweepLimiter(runCtx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return a.shutdown(err)
	}

	<-runCtx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(nil)
}

// Close releases infrastructure without running the server. Used after snapshots.
func (a *App) Close() {
	a.closeInfra()
}

func (a *App) attachCollector() {
	if !a.cfg.Log.Collector.Enabled || a.producer == nil {
		return
	}
	a.log.AttachCollector(&applogger.CollectionConfig{
		FlushInterval:  a.cfg.Log.Collector.FlushInterval,
		CountThreshold: a.cfg.Log.Collector.CountThreshold,
		Topic:          a.cfg.Log.Collector.Topic,
		Publisher:      a.producer,
	})
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(limiterSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services. cause is returned unchanged.
func (a *App) shutdown(cause error) error {
	a.log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// stop taking requests first so no trade reaches a stopped pipeline
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.pipeline != nil {
		if err := a.pipeline.Stop(ctx); err != nil {
			a.log.Warn("journal pipeline stop error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.closeInfra()
	a.log.Info("shutdown complete")
	return cause
}

func (a *App) closeInfra() {
	if a.journal != nil {
		a.journal.Close()
	}

	// the collector publishes through the producer, so detach it before closing
	a.log.DetachCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
}
