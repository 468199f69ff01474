package repository

import (
	"context"
	"time"

	"StockDesk/internal/domain/models"
)

// MarketData is read-only market information for one ticker.
type MarketData interface {
	Profile(ctx context.Context, ticker string) (models.CompanyProfile, error)
	Quote(ctx context.Context, ticker string) (models.StockQuote, error)
	Peers(ctx context.Context, ticker string) ([]string, error)
	InsiderSentiment(ctx context.Context, ticker string) (models.SentimentResponse, error)
	News(ctx context.Context, ticker string) ([]models.NewsArticle, error)
	Hourly(ctx context.Context, ticker, from, to string) ([]models.Bar, error)
	History(ctx context.Context, ticker string) ([]models.Bar, error)
	Recommendations(ctx context.Context, ticker string) ([]models.RecoResult, error)
	Earnings(ctx context.Context, ticker string) ([]models.EarningsData, error)
	Search(ctx context.Context, query string) (models.AutocompleteResponse, error)
}

// AccountStore is the server-managed balance, portfolio and watchlist.
type AccountStore interface {
	Balance(ctx context.Context) (float64, error)
	SetBalance(ctx context.Context, balance float64) error
	Portfolio(ctx context.Context) ([]models.PortfolioStock, error)
	UpsertHolding(ctx context.Context, h models.HoldingUpdate) error
	RemoveHolding(ctx context.Context, ticker string) error
	Watchlist(ctx context.Context) ([]models.WatchlistStock, error)
	AddWatch(ctx context.Context, e models.WatchlistEntry) error
	RemoveWatch(ctx context.Context, ticker string) error
}

// TradePublisher hands executed trades to the journal.
type TradePublisher interface {
	Publish(ctx context.Context, e *models.TradeEvent) error
	PublishBatch(ctx context.Context, events []*models.TradeEvent) error
	Close() error
}

// JournalStore persists and queries executed trades.
type JournalStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, e *models.TradeEvent) error
	StoreBatch(ctx context.Context, events []*models.TradeEvent) error
	Query(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeEvent, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordTrade(action string, ok bool)
	RecordJournal(backend string, ok bool)
	RecordCache(endpoint string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
