package usecase

import (
	"context"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	"StockDesk/pkg/fanout"
	applogger "StockDesk/pkg/logger"
)

const portfolioScreen = "portfolio"

// PortfolioUseCase assembles balance and holdings enriched with live quotes.
type PortfolioUseCase struct {
	market  domrepo.MarketData
	account domrepo.AccountStore
	runner  viewRunner
}

func NewPortfolioUseCase(market domrepo.MarketData, account domrepo.AccountStore, sessions *fanout.Sessions, l *applogger.Logger, obs fanout.Observer) *PortfolioUseCase {
	return &PortfolioUseCase{
		market:  market,
		account: account,
		runner:  newViewRunner(sessions, l, obs),
	}
}

func (u *PortfolioUseCase) Load(ctx context.Context, owner string, wait time.Duration) (*models.Portfolio, error) {
	snap, err := u.runner.run(ctx, owner, portfolioScreen, wait, u.Tasks()...)
	if snap == nil {
		return nil, err
	}
	return AssemblePortfolio(snap), err
}

// Tasks fetches balance and holdings, then one quote per holding.
func (u *PortfolioUseCase) Tasks() []fanout.Task {
	return []fanout.Task{
		fanout.Fetch("balance", func(ctx context.Context) (float64, error) {
			return u.account.Balance(ctx)
		}, fanout.Required()),
		fanout.Fetch("holdings", func(ctx context.Context) ([]models.PortfolioStock, error) {
			return u.account.Portfolio(ctx)
		}, fanout.Required(), fanout.Then(func(holdings []models.PortfolioStock) []fanout.Task {
			tickers := make([]string, 0, len(holdings))
			for _, h := range holdings {
				tickers = append(tickers, h.Ticker)
			}
			return quoteTasks(u.market, tickers)
		})),
	}
}

// AssemblePortfolio derives position fields from scratch for every holding that has a quote.
func AssemblePortfolio(snap *fanout.Snapshot) *models.Portfolio {
	p := &models.Portfolio{
		Holdings: []models.PortfolioStock{},
		Status:   models.StatusOf(snap),
	}

	holdings, hasHoldings := fanout.Get[[]models.PortfolioStock](snap, "holdings")
	var totalCost float64
	for _, h := range holdings {
		if q, ok := fanout.Get[models.StockQuote](snap, quoteKey(h.Ticker)); ok {
			h = h.WithQuote(q)
		}
		totalCost += h.TotalCost
		if h.MarketValue != nil {
			p.MarketValue += *h.MarketValue
		} else {
			p.MarketValue += h.TotalCost
		}
		p.Holdings = append(p.Holdings, h)
	}

	if balance, ok := fanout.Get[float64](snap, "balance"); ok {
		p.Balance = &balance
		if hasHoldings {
			netWorth := balance + totalCost
			totalValue := balance + p.MarketValue
			p.NetWorth = &netWorth
			p.TotalValue = &totalValue
		}
	}
	return p
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}

// quoteTasks returns one optional quote fetch per distinct ticker.
func quoteTasks(market domrepo.MarketData, tickers []string) []fanout.Task {
	seen := make(map[string]struct{}, len(tickers))
	tasks := make([]fanout.Task, 0, len(tickers))
	for _, t := range tickers {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		ticker := t
		tasks = append(tasks, fanout.Fetch(quoteKey(ticker), func(ctx context.Context) (models.StockQuote, error) {
			return market.Quote(ctx, ticker)
		}))
	}
	return tasks
}
