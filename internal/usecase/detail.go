package usecase

import (
	"context"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	"StockDesk/pkg/fanout"
	applogger "StockDesk/pkg/logger"
	"StockDesk/pkg/util"
)

const detailScreen = "detail"

// DetailConfig tunes the stock detail view.
type DetailConfig struct {
	NewsLimit int
	// Location is the market's time zone used for the hourly chart window.
	Location *time.Location
}

// DetailUseCase assembles the stock detail screen from independent endpoints.
type DetailUseCase struct {
	market  domrepo.MarketData
	account domrepo.AccountStore
	runner  viewRunner
	cfg     DetailConfig
	now     func() time.Time
}

func NewDetailUseCase(market domrepo.MarketData, account domrepo.AccountStore, sessions *fanout.Sessions, l *applogger.Logger, obs fanout.Observer, cfg DetailConfig) *DetailUseCase {
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 20
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DetailUseCase{
		market:  market,
		account: account,
		runner:  newViewRunner(sessions, l, obs),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Load runs the detail aggregation for ticker on behalf of owner.
func (u *DetailUseCase) Load(ctx context.Context, owner, ticker string, wait time.Duration) (*models.StockDetail, error) {
	ticker = util.NormalizeTicker(ticker)
	snap, err := u.runner.run(ctx, owner, detailScreen, wait, u.Tasks(ticker)...)
	if snap == nil {
		return nil, err
	}
	return AssembleDetail(ticker, snap), err
}

// Tasks lists the fetches of the detail screen.
func (u *DetailUseCase) Tasks(ticker string) []fanout.Task {
	from, to := util.HourlyWindow(u.now().In(u.cfg.Location))

	return []fanout.Task{
		fanout.Fetch("profile", func(ctx context.Context) (models.CompanyProfile, error) {
			return u.market.Profile(ctx, ticker)
		}, fanout.Required()),
		fanout.Fetch("quote", func(ctx context.Context) (models.StockQuote, error) {
			return u.market.Quote(ctx, ticker)
		}, fanout.Required()),
		fanout.Fetch("watchlist", func(ctx context.Context) ([]models.WatchlistStock, error) {
			return u.account.Watchlist(ctx)
		}),
		fanout.Fetch("portfolio", func(ctx context.Context) ([]models.PortfolioStock, error) {
			return u.account.Portfolio(ctx)
		}),
		fanout.Fetch("peers", func(ctx context.Context) ([]string, error) {
			peers, err := u.market.Peers(ctx, ticker)
			return util.UniqueStrings(peers), err
		}, fanout.Required()),
		fanout.Fetch("insider", func(ctx context.Context) (models.InsiderSummary, error) {
			s, err := u.market.InsiderSentiment(ctx, ticker)
			return s.Summarize(), err
		}),
		fanout.Fetch("news", func(ctx context.Context) ([]models.NewsArticle, error) {
			news, err := u.market.News(ctx, ticker)
			if err != nil {
				return nil, err
			}
			return cleanNews(news, u.cfg.NewsLimit), nil
		}, fanout.Required()),
		fanout.Fetch("balance", func(ctx context.Context) (float64, error) {
			return u.account.Balance(ctx)
		}),
		fanout.Fetch("hourly", func(ctx context.Context) ([]models.Bar, error) {
			return u.market.Hourly(ctx, ticker, from, to)
		}, fanout.Required()),
		fanout.Fetch("history", func(ctx context.Context) ([]models.Bar, error) {
			return u.market.History(ctx, ticker)
		}, fanout.Required()),
		fanout.Fetch("recommendations", func(ctx context.Context) ([]models.RecoResult, error) {
			return u.market.Recommendations(ctx, ticker)
		}, fanout.Required()),
		fanout.Fetch("earnings", func(ctx context.Context) ([]models.EarningsData, error) {
			return u.market.Earnings(ctx, ticker)
		}, fanout.Required()),
	}
}

// AssembleDetail builds the view from whatever the snapshot holds. Absent keys stay nil.
func AssembleDetail(ticker string, snap *fanout.Snapshot) *models.StockDetail {
	d := &models.StockDetail{Ticker: ticker, Status: models.StatusOf(snap)}

	if p, ok := fanout.Get[models.CompanyProfile](snap, "profile"); ok {
		d.Profile = &p
	}
	quote, hasQuote := fanout.Get[models.StockQuote](snap, "quote")
	if hasQuote {
		d.Quote = &quote
	}
	if list, ok := fanout.Get[[]models.WatchlistStock](snap, "watchlist"); ok {
		watching := models.Watching(list, ticker)
		d.Watching = &watching
	}
	if holdings, ok := fanout.Get[[]models.PortfolioStock](snap, "portfolio"); ok {
		h, held := models.FindHolding(holdings, ticker)
		d.InPortfolio = &held
		if held {
			if hasQuote {
				h = h.WithQuote(quote)
			}
			d.Position = &h
		}
	}
	d.Peers, _ = fanout.Get[[]string](snap, "peers")
	if s, ok := fanout.Get[models.InsiderSummary](snap, "insider"); ok {
		d.Insider = &s
	}
	d.News, _ = fanout.Get[[]models.NewsArticle](snap, "news")
	if b, ok := fanout.Get[float64](snap, "balance"); ok {
		d.Balance = &b
	}
	d.Hourly, _ = fanout.Get[[]models.Bar](snap, "hourly")
	d.History, _ = fanout.Get[[]models.Bar](snap, "history")
	d.Recommendations, _ = fanout.Get[[]models.RecoResult](snap, "recommendations")
	d.Earnings, _ = fanout.Get[[]models.EarningsData](snap, "earnings")
	return d
}

func cleanNews(news []models.NewsArticle, limit int) []models.NewsArticle {
	cleaned := make([]models.NewsArticle, len(news))
	for i, n := range news {
		n.Headline = util.StripHTML(n.Headline)
		n.Summary = util.StripHTML(n.Summary)
		cleaned[i] = n
	}
	return models.FilterNews(cleaned, limit)
}
