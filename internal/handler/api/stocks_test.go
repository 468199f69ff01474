package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StockDesk/internal/domain/models"
	"StockDesk/internal/service/ratelimit"
	"StockDesk/pkg/fanout"
	xhttp "StockDesk/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDetail struct{ mock.Mock }

func (m *mockDetail) Load(ctx context.Context, owner, ticker string, wait time.Duration) (*models.StockDetail, error) {
	args := m.Called(ctx, owner, ticker, wait)
	d, _ := args.Get(0).(*models.StockDetail)
	return d, args.Error(1)
}

type mockPortfolio struct{ mock.Mock }

func (m *mockPortfolio) Load(ctx context.Context, owner string, wait time.Duration) (*models.Portfolio, error) {
	args := m.Called(ctx, owner, wait)
	p, _ := args.Get(0).(*models.Portfolio)
	return p, args.Error(1)
}

type mockWatchlist struct{ mock.Mock }

func (m *mockWatchlist) Load(ctx context.Context, owner string, wait time.Duration) (*models.Watchlist, error) {
	args := m.Called(ctx, owner, wait)
	w, _ := args.Get(0).(*models.Watchlist)
	return w, args.Error(1)
}

func (m *mockWatchlist) Add(ctx context.Context, ticker, name string) (models.WatchlistEntry, error) {
	args := m.Called(ctx, ticker, name)
	return args.Get(0).(models.WatchlistEntry), args.Error(1)
}

func (m *mockWatchlist) Remove(ctx context.Context, ticker string) error {
	return m.Called(ctx, ticker).Error(0)
}

type mockTrader struct{ mock.Mock }

func (m *mockTrader) Execute(ctx context.Context, order models.TradeOrder) (*models.TradeResult, error) {
	args := m.Called(ctx, order)
	r, _ := args.Get(0).(*models.TradeResult)
	return r, args.Error(1)
}

type mockSearch struct{ mock.Mock }

func (m *mockSearch) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	args := m.Called(ctx, query)
	out, _ := args.Get(0).([]models.SymbolMatch)
	return out, args.Error(1)
}

type mockJournal struct{ mock.Mock }

func (m *mockJournal) History(ctx context.Context, ticker string, from, to time.Time, limit int) ([]*models.TradeEvent, error) {
	args := m.Called(ctx, ticker, from, to, limit)
	out, _ := args.Get(0).([]*models.TradeEvent)
	return out, args.Error(1)
}

type mocks struct {
	detail    *mockDetail
	portfolio *mockPortfolio
	watchlist *mockWatchlist
	trader    *mockTrader
	search    *mockSearch
	journal   *mockJournal
}

func newTestAPI(limiter *ratelimit.Limiter) (*echo.Echo, *mocks) {
	m := &mocks{
		detail:    &mockDetail{},
		portfolio: &mockPortfolio{},
		watchlist: &mockWatchlist{},
		trader:    &mockTrader{},
		search:    &mockSearch{},
		journal:   &mockJournal{},
	}
	h := NewStockHandler(nil, m.detail, m.portfolio, m.watchlist, m.trader, m.search, m.journal, limiter)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, m
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string, headers ...string) envelope {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func appErrors(t *testing.T, env envelope) []xhttp.AppError {
	t.Helper()
	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	return errs
}

func TestDetailUsesClientIDAndWait(t *testing.T) {
	e, m := newTestAPI(nil)
	m.detail.On("Load", mock.Anything, "phone-1", "AAPL", 3*time.Second).
		Return(&models.StockDetail{Ticker: "AAPL", Status: models.LoadStatus{State: fanout.StateReady, Ready: true}}, nil)

	env := do(t, e, http.MethodGet, "/api/stocks/AAPL?wait=3s", "", "X-Client-ID", "phone-1")
	assert.Equal(t, http.StatusOK, env.Status)

	var d models.StockDetail
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "AAPL", d.Ticker)
	assert.True(t, d.Status.Ready)
	m.detail.AssertExpectations(t)
}

func TestDetailStillLoadingIsAccepted(t *testing.T) {
	e, m := newTestAPI(nil)
	m.detail.On("Load", mock.Anything, mock.Anything, "AAPL", 10*time.Second).
		Return(&models.StockDetail{Ticker: "AAPL", Status: models.LoadStatus{State: fanout.StateLoading, Pending: 2}}, nil)

	env := do(t, e, http.MethodGet, "/api/stocks/AAPL", "")
	assert.Equal(t, http.StatusAccepted, env.Status)
}

func TestDetailSupersededIsConflict(t *testing.T) {
	e, m := newTestAPI(nil)
	m.detail.On("Load", mock.Anything, mock.Anything, "AAPL", mock.Anything).
		Return(&models.StockDetail{}, fmt.Errorf("load: %w", fanout.ErrSuperseded))

	env := do(t, e, http.MethodGet, "/api/stocks/AAPL", "")
	assert.Equal(t, http.StatusConflict, env.Status)
	assert.Equal(t, "ERR_CONFLICT", appErrors(t, env)[0].Code)
}

func TestWaitIsValidatedAndCapped(t *testing.T) {
	e, m := newTestAPI(nil)
	m.portfolio.On("Load", mock.Anything, mock.Anything, maxWait).
		Return(&models.Portfolio{Status: models.LoadStatus{State: fanout.StateReady}}, nil)

	env := do(t, e, http.MethodGet, "/api/portfolio?wait=soon", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = do(t, e, http.MethodGet, "/api/portfolio?wait=5m", "")
	assert.Equal(t, http.StatusOK, env.Status)
	m.portfolio.AssertExpectations(t)
}

func TestTradeRejectionIsBadRequest(t *testing.T) {
	e, m := newTestAPI(nil)
	m.trader.On("Execute", mock.Anything, mock.MatchedBy(func(o models.TradeOrder) bool {
		return o.Ticker == "AAPL" && o.Action == models.TradeBuy && o.Quantity != nil && *o.Quantity == 50
	})).Return(nil, models.ErrInsufficientFunds)

	env := do(t, e, http.MethodPost, "/api/stocks/AAPL/trade", `{"action":"buy","quantity":50}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	errs := appErrors(t, env)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_TRADE_REJECTED", errs[0].Code)
	assert.Equal(t, "Not enough money to buy", errs[0].Message)
}

func TestTradeSuccess(t *testing.T) {
	e, m := newTestAPI(nil)
	m.trader.On("Execute", mock.Anything, mock.Anything).Return(&models.TradeResult{
		Action:  models.TradeSell,
		Ticker:  "AAPL",
		Message: "You have successfully sold 2 shares of Apple Inc",
	}, nil)

	env := do(t, e, http.MethodPost, "/api/stocks/AAPL/trade", `{"action":"sell","quantity":2}`)
	assert.Equal(t, http.StatusOK, env.Status)

	var res models.TradeResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "You have successfully sold 2 shares of Apple Inc", res.Message)
}

func TestTradeValidatesAction(t *testing.T) {
	e, m := newTestAPI(nil)

	env := do(t, e, http.MethodPost, "/api/stocks/AAPL/trade", `{"action":"short","quantity":2}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	m.trader.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestWatchlistEndpoints(t *testing.T) {
	e, m := newTestAPI(nil)
	m.watchlist.On("Add", mock.Anything, "TSLA", "").Return(models.WatchlistEntry{Ticker: "TSLA", Name: "Tesla Inc"}, nil)
	m.watchlist.On("Add", mock.Anything, "ZZZZ", "").Return(models.WatchlistEntry{}, fmt.Errorf("add: %w", models.ErrUnknownTicker))
	m.watchlist.On("Remove", mock.Anything, "TSLA").Return(nil)

	env := do(t, e, http.MethodPost, "/api/watchlist", `{"ticker":"TSLA"}`)
	assert.Equal(t, http.StatusCreated, env.Status)

	env = do(t, e, http.MethodPost, "/api/watchlist", `{"ticker":"ZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, env.Status)

	env = do(t, e, http.MethodPost, "/api/watchlist", `{}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)

	env = do(t, e, http.MethodDelete, "/api/watchlist/TSLA", "")
	assert.Equal(t, http.StatusOK, env.Status)
	m.watchlist.AssertExpectations(t)
}

func TestSearchListsMatches(t *testing.T) {
	e, m := newTestAPI(nil)
	m.search.On("Search", mock.Anything, "apple").Return([]models.SymbolMatch{{Symbol: "AAPL", DisplaySymbol: "AAPL"}}, nil)

	env := do(t, e, http.MethodGet, "/api/search?q=apple", "")
	assert.Equal(t, http.StatusOK, env.Status)

	var list xhttp.ListDataResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)

	env = do(t, e, http.MethodGet, "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestTradesHistory(t *testing.T) {
	e, m := newTestAPI(nil)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m.journal.On("History", mock.Anything, "AAPL", from, time.Time{}, 20).
		Return([]*models.TradeEvent{{ID: "e-1", Ticker: "AAPL"}}, nil)
	m.journal.On("History", mock.Anything, "", time.Time{}, time.Time{}, 100).
		Return(nil, models.ErrJournalDisabled)

	env := do(t, e, http.MethodGet, "/api/trades?ticker=AAPL&from=2024-03-01&limit=20", "")
	assert.Equal(t, http.StatusOK, env.Status)

	env = do(t, e, http.MethodGet, "/api/trades", "")
	assert.Equal(t, http.StatusServiceUnavailable, env.Status)

	env = do(t, e, http.MethodGet, "/api/trades?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
	m.journal.AssertExpectations(t)
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	e, m := newTestAPI(nil)
	upstream := &xhttp.FetchError{Kind: xhttp.KindTransport, URL: "http://upstream/api/balance", Err: fmt.Errorf("connection refused")}
	m.portfolio.On("Load", mock.Anything, mock.Anything, mock.Anything).Return(nil, upstream)

	env := do(t, e, http.MethodGet, "/api/portfolio", "")
	assert.Equal(t, http.StatusBadGateway, env.Status)
}

func TestRateLimitPerClient(t *testing.T) {
	e, m := newTestAPI(ratelimit.New(1, 0.001))
	m.search.On("Search", mock.Anything, "a").Return([]models.SymbolMatch{}, nil)

	env := do(t, e, http.MethodGet, "/api/search?q=a", "", "X-Client-ID", "one")
	assert.Equal(t, http.StatusOK, env.Status)

	env = do(t, e, http.MethodGet, "/api/search?q=a", "", "X-Client-ID", "one")
	assert.Equal(t, http.StatusTooManyRequests, env.Status)

	env = do(t, e, http.MethodGet, "/api/search?q=a", "", "X-Client-ID", "two")
	assert.Equal(t, http.StatusOK, env.Status)
}
