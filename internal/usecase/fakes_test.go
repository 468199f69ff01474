package usecase

import (
	"context"
	"errors"
	"sync"

	"StockDesk/internal/domain/models"
)

var errUpstream = errors.New("upstream unavailable")

// fakeMarket serves canned market data. Errors are looked up by "endpoint:TICKER"
// first, then by endpoint. A gate in block holds the first call of that endpoint.
type fakeMarket struct {
	mu       sync.Mutex
	profiles map[string]models.CompanyProfile
	quotes   map[string]models.StockQuote
	peers    []string
	insider  models.SentimentResponse
	news     []models.NewsArticle
	search   []models.SymbolMatch
	errs     map[string]error
	block    map[string]chan struct{}
	calls    map[string]int
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		profiles: map[string]models.CompanyProfile{
			"AAPL": {Ticker: "AAPL", Name: "Apple Inc"},
			"MSFT": {Ticker: "MSFT", Name: "Microsoft Corp"},
		},
		quotes: map[string]models.StockQuote{
			"AAPL": {C: 100, PC: 98},
			"MSFT": {C: 50, PC: 51},
		},
		errs:  map[string]error{},
		block: map[string]chan struct{}{},
		calls: map[string]int{},
	}
}

func (m *fakeMarket) fail(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
}

func (m *fakeMarket) hold(endpoint string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.block[endpoint] = gate
	return gate
}

func (m *fakeMarket) count(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[endpoint]
}

func (m *fakeMarket) call(ctx context.Context, endpoint, ticker string) error {
	m.mu.Lock()
	m.calls[endpoint]++
	gate, blocked := m.block[endpoint]
	delete(m.block, endpoint)
	err, ok := m.errs[endpoint+":"+ticker]
	if !ok {
		err = m.errs[endpoint]
	}
	m.mu.Unlock()

	if blocked {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *fakeMarket) Profile(ctx context.Context, ticker string) (models.CompanyProfile, error) {
	if err := m.call(ctx, "profile", ticker); err != nil {
		return models.CompanyProfile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[ticker], nil
}

func (m *fakeMarket) Quote(ctx context.Context, ticker string) (models.StockQuote, error) {
	if err := m.call(ctx, "quote", ticker); err != nil {
		return models.StockQuote{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes[ticker], nil
}

func (m *fakeMarket) Peers(ctx context.Context, ticker string) ([]string, error) {
	if err := m.call(ctx, "peers", ticker); err != nil {
		return nil, err
	}
	return m.peers, nil
}

func (m *fakeMarket) InsiderSentiment(ctx context.Context, ticker string) (models.SentimentResponse, error) {
	if err := m.call(ctx, "insider", ticker); err != nil {
		return models.SentimentResponse{}, err
	}
	return m.insider, nil
}

func (m *fakeMarket) News(ctx context.Context, ticker string) ([]models.NewsArticle, error) {
	if err := m.call(ctx, "news", ticker); err != nil {
		return nil, err
	}
	return m.news, nil
}

func (m *fakeMarket) Hourly(ctx context.Context, ticker, from, to string) ([]models.Bar, error) {
	if err := m.call(ctx, "hourly", ticker); err != nil {
		return nil, err
	}
	return []models.Bar{{C: 99, T: 1}, {C: 100, T: 2}}, nil
}

func (m *fakeMarket) History(ctx context.Context, ticker string) ([]models.Bar, error) {
	if err := m.call(ctx, "history", ticker); err != nil {
		return nil, err
	}
	return []models.Bar{{C: 90, T: 1}}, nil
}

func (m *fakeMarket) Recommendations(ctx context.Context, ticker string) ([]models.RecoResult, error) {
	if err := m.call(ctx, "recommendations", ticker); err != nil {
		return nil, err
	}
	return []models.RecoResult{{Buy: 10, Symbol: ticker}}, nil
}

func (m *fakeMarket) Earnings(ctx context.Context, ticker string) ([]models.EarningsData, error) {
	if err := m.call(ctx, "earnings", ticker); err != nil {
		return nil, err
	}
	return []models.EarningsData{{Actual: 1.2, Symbol: ticker}}, nil
}

func (m *fakeMarket) Search(ctx context.Context, query string) (models.AutocompleteResponse, error) {
	if err := m.call(ctx, "search", query); err != nil {
		return models.AutocompleteResponse{}, err
	}
	return models.AutocompleteResponse{Count: len(m.search), Result: m.search}, nil
}

// fakeAccount is an in-memory account. Errors are keyed by method name.
type fakeAccount struct {
	mu       sync.Mutex
	balance  float64
	holdings []models.PortfolioStock
	watch    []models.WatchlistStock
	errs     map[string]error
	writes   int
}

func newFakeAccount(balance float64) *fakeAccount {
	return &fakeAccount{balance: balance, errs: map[string]error{}}
}

func (a *fakeAccount) fail(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[method] = err
}

func (a *fakeAccount) Balance(context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["balance"]; err != nil {
		return 0, err
	}
	return a.balance, nil
}

func (a *fakeAccount) SetBalance(_ context.Context, balance float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["setBalance"]; err != nil {
		return err
	}
	a.writes++
	a.balance = balance
	return nil
}

func (a *fakeAccount) Portfolio(context.Context) ([]models.PortfolioStock, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["portfolio"]; err != nil {
		return nil, err
	}
	return append([]models.PortfolioStock{}, a.holdings...), nil
}

func (a *fakeAccount) UpsertHolding(_ context.Context, h models.HoldingUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["upsert"]; err != nil {
		return err
	}
	a.writes++
	row := models.PortfolioStock{Ticker: h.Ticker, Name: h.Name, TotalCost: h.TotalCost, Quantity: h.Quantity}
	for i, existing := range a.holdings {
		if existing.Ticker == h.Ticker {
			a.holdings[i] = row
			return nil
		}
	}
	a.holdings = append(a.holdings, row)
	return nil
}

func (a *fakeAccount) RemoveHolding(_ context.Context, ticker string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["remove"]; err != nil {
		return err
	}
	a.writes++
	out := a.holdings[:0]
	for _, h := range a.holdings {
		if h.Ticker != ticker {
			out = append(out, h)
		}
	}
	a.holdings = out
	return nil
}

func (a *fakeAccount) Watchlist(context.Context) ([]models.WatchlistStock, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["watchlist"]; err != nil {
		return nil, err
	}
	return append([]models.WatchlistStock{}, a.watch...), nil
}

func (a *fakeAccount) AddWatch(_ context.Context, e models.WatchlistEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.errs["addWatch"]; err != nil {
		return err
	}
	a.watch = append(a.watch, models.WatchlistStock{Ticker: e.Ticker, Name: e.Name})
	return nil
}

func (a *fakeAccount) RemoveWatch(_ context.Context, ticker string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.watch[:0]
	for _, w := range a.watch {
		if w.Ticker != ticker {
			out = append(out, w)
		}
	}
	a.watch = out
	return nil
}

func (a *fakeAccount) holding(ticker string) (models.PortfolioStock, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.FindHolding(a.holdings, ticker)
}
