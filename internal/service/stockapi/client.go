package stockapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"StockDesk/internal/domain/models"
	drepo "StockDesk/internal/domain/repository"
	svcmetrics "StockDesk/internal/service/metrics"
	xhttp "StockDesk/pkg/http"
)

const provider = "stockapi"

// Client talks to the app's own REST backend. It serves both market data and
// the account (balance, portfolio, watchlist).
type Client struct {
	http *xhttp.Client
}

var (
	_ drepo.MarketData   = (*Client)(nil)
	_ drepo.AccountStore = (*Client)(nil)
)

// New creates a client for the API rooted at baseURL (e.g. "https://host/api/").
func New(baseURL string, timeout time.Duration) *Client {
	svcmetrics.Register()
	return &Client{http: xhttp.NewClient(xhttp.WithBaseURL(baseURL), xhttp.WithTimeout(timeout))}
}

// NewWithClient wraps an existing HTTP client; its base URL must point at the API root.
func NewWithClient(c *xhttp.Client) *Client {
	svcmetrics.Register()
	return &Client{http: c}
}

func (c *Client) get(ctx context.Context, endpoint, path string, dest interface{}) error {
	start := time.Now()
	err := c.http.Get(ctx, path, nil, dest)
	svcmetrics.ObserveUpstream(provider, endpoint, start, err)
	if err != nil {
		return fmt.Errorf("stockapi %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, endpoint, method, path string, body interface{}) error {
	start := time.Now()
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: method, URL: path, Body: body}, nil)
	svcmetrics.ObserveUpstream(provider, endpoint, start, err)
	if err != nil {
		return fmt.Errorf("stockapi %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) Profile(ctx context.Context, ticker string) (models.CompanyProfile, error) {
	var p models.CompanyProfile
	err := c.get(ctx, "profile", "profile/"+url.PathEscape(ticker), &p)
	return p, err
}

func (c *Client) Quote(ctx context.Context, ticker string) (models.StockQuote, error) {
	var q models.StockQuote
	err := c.get(ctx, "quote", "quote/"+url.PathEscape(ticker), &q)
	return q, err
}

func (c *Client) Peers(ctx context.Context, ticker string) ([]string, error) {
	var peers []string
	err := c.get(ctx, "peers", "peers/"+url.PathEscape(ticker), &peers)
	return peers, err
}

func (c *Client) InsiderSentiment(ctx context.Context, ticker string) (models.SentimentResponse, error) {
	var r models.SentimentResponse
	err := c.get(ctx, "insider-sentiment", "insider-sentiment/"+url.PathEscape(ticker), &r)
	return r, err
}

func (c *Client) News(ctx context.Context, ticker string) ([]models.NewsArticle, error) {
	var news []models.NewsArticle
	err := c.get(ctx, "news", "news/"+url.PathEscape(ticker), &news)
	return news, err
}

func (c *Client) Hourly(ctx context.Context, ticker, from, to string) ([]models.Bar, error) {
	var d models.TradingData
	err := c.get(ctx, "hourly", fmt.Sprintf("hourly/%s/%s/%s", url.PathEscape(ticker), from, to), &d)
	return d.Results, err
}

func (c *Client) History(ctx context.Context, ticker string) ([]models.Bar, error) {
	var d models.TradingData
	err := c.get(ctx, "history", "history/"+url.PathEscape(ticker), &d)
	return d.Results, err
}

func (c *Client) Recommendations(ctx context.Context, ticker string) ([]models.RecoResult, error) {
	var r []models.RecoResult
	err := c.get(ctx, "recommendation-trends", "recommendation-trends/"+url.PathEscape(ticker), &r)
	return r, err
}

func (c *Client) Earnings(ctx context.Context, ticker string) ([]models.EarningsData, error) {
	var e []models.EarningsData
	err := c.get(ctx, "earning", "earning/"+url.PathEscape(ticker), &e)
	return e, err
}

func (c *Client) Search(ctx context.Context, query string) (models.AutocompleteResponse, error) {
	var r models.AutocompleteResponse
	err := c.get(ctx, "autocomplete", "autocomplete/"+url.PathEscape(query), &r)
	return r, err
}

// Balance returns the cash balance; the endpoint answers with a bare JSON number.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var b float64
	err := c.get(ctx, "balance", "balance", &b)
	return b, err
}

func (c *Client) SetBalance(ctx context.Context, balance float64) error {
	return c.send(ctx, "balance", xhttp.MethodPost, "balance", map[string]float64{"balance": balance})
}

func (c *Client) Portfolio(ctx context.Context) ([]models.PortfolioStock, error) {
	var p []models.PortfolioStock
	err := c.get(ctx, "portfolio", "portfolio", &p)
	return p, err
}

// UpsertHolding creates or replaces the holding for h.Ticker.
func (c *Client) UpsertHolding(ctx context.Context, h models.HoldingUpdate) error {
	return c.send(ctx, "portfolio", xhttp.MethodPost, "portfolio", h)
}

func (c *Client) RemoveHolding(ctx context.Context, ticker string) error {
	return c.send(ctx, "portfolio", xhttp.MethodDelete, "portfolio/"+url.PathEscape(ticker), nil)
}

func (c *Client) Watchlist(ctx context.Context) ([]models.WatchlistStock, error) {
	var w []models.WatchlistStock
	err := c.get(ctx, "watchlist", "watchlist", &w)
	return w, err
}

func (c *Client) AddWatch(ctx context.Context, e models.WatchlistEntry) error {
	return c.send(ctx, "watchlist", xhttp.MethodPost, "watchlist", e)
}

func (c *Client) RemoveWatch(ctx context.Context, ticker string) error {
	return c.send(ctx, "watchlist", xhttp.MethodDelete, "watchlist/"+url.PathEscape(ticker), nil)
}
