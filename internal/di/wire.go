//go:build wireinject
// +build wireinject

package di

import (
	"StockDesk/internal/domain/repository"
	"StockDesk/internal/handler/api"
	mid "StockDesk/internal/middleware"
	"StockDesk/internal/usecase"
	"StockDesk/pkg/config"
	"StockDesk/pkg/fanout"
	xhttp "StockDesk/pkg/http"
	"StockDesk/pkg/metrics"
	"StockDesk/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
	wire.Bind(new(fanout.Observer), new(*metrics.Recorder)),
	ProvideSessions,
	ProvideCache,
	ProvideKafkaProducer,
	ProvideClickHouseClient,
	ProvideKafkaConsumer,
	ProvideLimiter,
)

var repositorySet = wire.NewSet(
	ProvideStockAPI,
	ProvideAccountStore,
	ProvideMarketData,
	ProvideJournalStore,
	ProvideTradePublisher,
)

var journalSet = wire.NewSet(
	ProvideJournalProcessor,
	ProvideJournalPipeline,
	ProvideTradeEventHandler,
	wire.Bind(new(usecase.TradeRecorder), new(*mid.JournalPipeline)),
)

var usecaseSet = wire.NewSet(
	ProvideDetailUseCase,
	usecase.NewPortfolioUseCase,
	usecase.NewWatchlistUseCase,
	usecase.NewTradeUseCase,
	usecase.NewSearchUseCase,
)

var httpSet = wire.NewSet(
	api.NewStockHandler,
	wire.Bind(new(api.DetailLoader), new(*usecase.DetailUseCase)),
	wire.Bind(new(api.PortfolioLoader), new(*usecase.PortfolioUseCase)),
	wire.Bind(new(api.WatchlistService), new(*usecase.WatchlistUseCase)),
	wire.Bind(new(api.TradeExecutor), new(*usecase.TradeUseCase)),
	wire.Bind(new(api.SymbolSearcher), new(*usecase.SearchUseCase)),
	wire.Bind(new(api.JournalReader), new(*usecase.JournalProcessor)),
	wire.Bind(new(xhttp.Handler), new(*api.StockHandler)),
	ProvideHTTPServer,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		repositorySet,
		journalSet,
		usecaseSet,
		httpSet,
		wire.Struct(new(server.Views), "*"),
		wire.Struct(new(server.Deps), "*"),
		server.New,
	)
	return &server.App{}, nil
}
