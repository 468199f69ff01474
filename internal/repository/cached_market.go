package repository

import (
	"context"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	"StockDesk/pkg/cache"
)

// CacheTTLs holds per-endpoint lifetimes. A non-positive TTL disables caching for that endpoint.
type CacheTTLs struct {
	Profile         time.Duration
	Quote           time.Duration
	Peers           time.Duration
	Insider         time.Duration
	News            time.Duration
	Hourly          time.Duration
	History         time.Duration
	Recommendations time.Duration
	Earnings        time.Duration
	Search          time.Duration
}

// CachedMarketData is a read-through cache in front of a MarketData provider.
// Errors are never cached.
type CachedMarketData struct {
	next    domrepo.MarketData
	cache   cache.Service
	ttl     CacheTTLs
	metrics domrepo.Metrics
}

var _ domrepo.MarketData = (*CachedMarketData)(nil)

func NewCachedMarketData(next domrepo.MarketData, c cache.Service, ttl CacheTTLs, m domrepo.Metrics) *CachedMarketData {
	return &CachedMarketData{next: next, cache: c, ttl: ttl, metrics: m}
}

func read[T any](ctx context.Context, c *CachedMarketData, endpoint string, ttl time.Duration, key string, load cache.Loader[T]) (T, error) {
	if ttl <= 0 {
		return load(ctx)
	}
	v, hit, err := cache.GetOrLoad(ctx, c.cache, cache.GenerateKey(endpoint, key), ttl, load)
	if c.metrics != nil && err == nil {
		c.metrics.RecordCache(endpoint, hit)
	}
	return v, err
}

func (c *CachedMarketData) Profile(ctx context.Context, ticker string) (models.CompanyProfile, error) {
	return read(ctx, c, "profile", c.ttl.Profile, ticker, func(ctx context.Context) (models.CompanyProfile, error) {
		return c.next.Profile(ctx, ticker)
	})
}

func (c *CachedMarketData) Quote(ctx context.Context, ticker string) (models.StockQuote, error) {
	return read(ctx, c, "quote", c.ttl.Quote, ticker, func(ctx context.Context) (models.StockQuote, error) {
		return c.next.Quote(ctx, ticker)
	})
}

func (c *CachedMarketData) Peers(ctx context.Context, ticker string) ([]string, error) {
	return read(ctx, c, "peers", c.ttl.Peers, ticker, func(ctx context.Context) ([]string, error) {
		return c.next.Peers(ctx, ticker)
	})
}

func (c *CachedMarketData) InsiderSentiment(ctx context.Context, ticker string) (models.SentimentResponse, error) {
	return read(ctx, c, "insider", c.ttl.Insider, ticker, func(ctx context.Context) (models.SentimentResponse, error) {
		return c.next.InsiderSentiment(ctx, ticker)
	})
}

func (c *CachedMarketData) News(ctx context.Context, ticker string) ([]models.NewsArticle, error) {
	return read(ctx, c, "news", c.ttl.News, ticker, func(ctx context.Context) ([]models.NewsArticle, error) {
		return c.next.News(ctx, ticker)
	})
}

func (c *CachedMarketData) Hourly(ctx context.Context, ticker, from, to string) ([]models.Bar, error) {
	key := cache.GenerateKeyWithParams(ticker, from, to)
	return read(ctx, c, "hourly", c.ttl.Hourly, key, func(ctx context.Context) ([]models.Bar, error) {
		return c.next.Hourly(ctx, ticker, from, to)
	})
}

func (c *CachedMarketData) History(ctx context.Context, ticker string) ([]models.Bar, error) {
	return read(ctx, c, "history", c.ttl.History, ticker, func(ctx context.Context) ([]models.Bar, error) {
		return c.next.History(ctx, ticker)
	})
}

func (c *CachedMarketData) Recommendations(ctx context.Context, ticker string) ([]models.RecoResult, error) {
	return read(ctx, c, "recommendations", c.ttl.Recommendations, ticker, func(ctx context.Context) ([]models.RecoResult, error) {
		return c.next.Recommendations(ctx, ticker)
	})
}

func (c *CachedMarketData) Earnings(ctx context.Context, ticker string) ([]models.EarningsData, error) {
	return read(ctx, c, "earnings", c.ttl.Earnings, ticker, func(ctx context.Context) ([]models.EarningsData, error) {
		return c.next.Earnings(ctx, ticker)
	})
}

func (c *CachedMarketData) Search(ctx context.Context, query string) (models.AutocompleteResponse, error) {
	return read(ctx, c, "search", c.ttl.Search, cache.HashKey(query), func(ctx context.Context) (models.AutocompleteResponse, error) {
		return c.next.Search(ctx, query)
	})
}
