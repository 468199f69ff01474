package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
	"StockDesk/pkg/fanout"
	applogger "StockDesk/pkg/logger"
	"StockDesk/pkg/util"
)

const watchlistScreen = "watchlist"

// WatchlistUseCase assembles the watchlist with quotes and edits membership.
type WatchlistUseCase struct {
	market  domrepo.MarketData
	account domrepo.AccountStore
	runner  viewRunner
	log     *applogger.Logger
}

func NewWatchlistUseCase(market domrepo.MarketData, account domrepo.AccountStore, sessions *fanout.Sessions, l *applogger.Logger, obs fanout.Observer) *WatchlistUseCase {
	runner := newViewRunner(sessions, l, obs)
	return &WatchlistUseCase{
		market:  market,
		account: account,
		runner:  runner,
		log:     runner.log,
	}
}

func (u *WatchlistUseCase) Load(ctx context.Context, owner string, wait time.Duration) (*models.Watchlist, error) {
	snap, err := u.runner.run(ctx, owner, watchlistScreen, wait, u.Tasks()...)
	if snap == nil {
		return nil, err
	}
	return AssembleWatchlist(snap), err
}

func (u *WatchlistUseCase) Tasks() []fanout.Task {
	return []fanout.Task{
		fanout.Fetch("watchlist", func(ctx context.Context) ([]models.WatchlistStock, error) {
			return u.account.Watchlist(ctx)
		}, fanout.Required(), fanout.Then(func(list []models.WatchlistStock) []fanout.Task {
			tickers := make([]string, 0, len(list))
			for _, w := range list {
				tickers = append(tickers, w.Ticker)
			}
			return quoteTasks(u.market, tickers)
		})),
	}
}

func AssembleWatchlist(snap *fanout.Snapshot) *models.Watchlist {
	w := &models.Watchlist{
		Items:  []models.WatchlistStock{},
		Status: models.StatusOf(snap),
	}
	list, _ := fanout.Get[[]models.WatchlistStock](snap, "watchlist")
	for _, item := range list {
		if q, ok := fanout.Get[models.StockQuote](snap, quoteKey(item.Ticker)); ok {
			quote := q
			item.Quote = &quote
		}
		w.Items = append(w.Items, item)
	}
	return w
}

// Add puts ticker on the watchlist. Without a name the company name is looked up.
func (u *WatchlistUseCase) Add(ctx context.Context, ticker, name string) (models.WatchlistEntry, error) {
	entry := models.WatchlistEntry{
		Ticker: util.NormalizeTicker(ticker),
		Name:   strings.TrimSpace(name),
	}
	if entry.Name == "" {
		profile, err := u.market.Profile(ctx, entry.Ticker)
		if err != nil {
			return entry, fmt.Errorf("watchlist add %s: %w", entry.Ticker, err)
		}
		if profile.Name == "" {
			return entry, fmt.Errorf("watchlist add %s: %w", entry.Ticker, models.ErrUnknownTicker)
		}
		entry.Name = profile.Name
	}

	if err := u.account.AddWatch(ctx, entry); err != nil {
		return entry, fmt.Errorf("watchlist add %s: %w", entry.Ticker, err)
	}
	u.log.Info("watchlist entry added", applogger.String("ticker", entry.Ticker))
	return entry, nil
}

func (u *WatchlistUseCase) Remove(ctx context.Context, ticker string) error {
	ticker = util.NormalizeTicker(ticker)
	if err := u.account.RemoveWatch(ctx, ticker); err != nil {
		return fmt.Errorf("watchlist remove %s: %w", ticker, err)
	}
	u.log.Info("watchlist entry removed", applogger.String("ticker", ticker))
	return nil
}
