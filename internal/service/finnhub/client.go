package finnhub

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"StockDesk/internal/domain/models"
	drepo "StockDesk/internal/domain/repository"
	svcmetrics "StockDesk/internal/service/metrics"
	xhttp "StockDesk/pkg/http"
	"StockDesk/pkg/util"
)

const (
	provider       = "finnhub"
	DefaultBaseURL = "https://finnhub.io/api/v1/"
)

// Client implements MarketData directly against the Finnhub REST API.
type Client struct {
	http        *xhttp.Client
	newsWindow  time.Duration
	historySpan time.Duration
	now         func() time.Time
}

var _ drepo.MarketData = (*Client)(nil)

// New creates a Finnhub client authenticated with apiKey.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	svcmetrics.Register()
	return &Client{
		http: xhttp.NewClient(
			xhttp.WithBaseURL(baseURL),
			xhttp.WithTimeout(timeout),
			xhttp.WithHeader("X-Finnhub-Token", apiKey),
		),
		newsWindow:  7 * 24 * time.Hour,
		historySpan: 2 * 365 * 24 * time.Hour,
		now:         time.Now,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query map[string][]string, dest interface{}) error {
	start := time.Now()
	err := c.http.Get(ctx, endpoint, query, dest)
	svcmetrics.ObserveUpstream(provider, endpoint, start, err)
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", endpoint, err)
	}
	return nil
}

func symbol(ticker string) map[string][]string {
	return map[string][]string{"symbol": {ticker}}
}

func (c *Client) Profile(ctx context.Context, ticker string) (models.CompanyProfile, error) {
	var p models.CompanyProfile
	err := c.get(ctx, "stock/profile2", symbol(ticker), &p)
	return p, err
}

func (c *Client) Quote(ctx context.Context, ticker string) (models.StockQuote, error) {
	var q models.StockQuote
	err := c.get(ctx, "quote", symbol(ticker), &q)
	return q, err
}

func (c *Client) Peers(ctx context.Context, ticker string) ([]string, error) {
	var peers []string
	err := c.get(ctx, "stock/peers", symbol(ticker), &peers)
	return peers, err
}

func (c *Client) InsiderSentiment(ctx context.Context, ticker string) (models.SentimentResponse, error) {
	q := symbol(ticker)
	q["from"] = []string{"2022-01-01"}
	q["to"] = []string{c.now().Format(util.DateLayout)}

	var r models.SentimentResponse
	err := c.get(ctx, "stock/insider-sentiment", q, &r)
	return r, err
}

func (c *Client) News(ctx context.Context, ticker string) ([]models.NewsArticle, error) {
	now := c.now()
	q := symbol(ticker)
	q["from"] = []string{now.Add(-c.newsWindow).Format(util.DateLayout)}
	q["to"] = []string{now.Format(util.DateLayout)}

	var news []models.NewsArticle
	err := c.get(ctx, "company-news", q, &news)
	return news, err
}

// Hourly returns 60-minute candles between two days, both inclusive.
func (c *Client) Hourly(ctx context.Context, ticker, from, to string) ([]models.Bar, error) {
	start, err := time.Parse(util.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("finnhub hourly: from: %w", err)
	}
	end, err := time.Parse(util.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("finnhub hourly: to: %w", err)
	}
	return c.candles(ctx, ticker, "60", start, end.Add(24*time.Hour-time.Second))
}

func (c *Client) History(ctx context.Context, ticker string) ([]models.Bar, error) {
	now := c.now()
	return c.candles(ctx, ticker, "D", now.Add(-c.historySpan), now)
}

// candleResponse is Finnhub's column-oriented candle payload.
type candleResponse struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	V []float64 `json:"v"`
	T []int64   `json:"t"`
	S string    `json:"s"`
}

func (r candleResponse) bars() ([]models.Bar, error) {
	if r.S == "no_data" {
		return []models.Bar{}, nil
	}
	if r.S != "ok" {
		return nil, &xhttp.FetchError{Kind: xhttp.KindDecode, Method: xhttp.MethodGet, URL: "stock/candle", Err: fmt.Errorf("candle status %q", r.S)}
	}
	n := len(r.T)
	if len(r.C) != n || len(r.H) != n || len(r.L) != n || len(r.O) != n || len(r.V) != n {
		return nil, &xhttp.FetchError{Kind: xhttp.KindDecode, Method: xhttp.MethodGet, URL: "stock/candle", Err: fmt.Errorf("ragged candle columns")}
	}

	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = models.Bar{
			O: r.O[i],
			H: r.H[i],
			L: r.L[i],
			C: r.C[i],
			V: r.V[i],
			T: r.T[i] * 1000,
		}
	}
	return bars, nil
}

func (c *Client) candles(ctx context.Context, ticker, resolution string, from, to time.Time) ([]models.Bar, error) {
	q := symbol(ticker)
	q["resolution"] = []string{resolution}
	q["from"] = []string{strconv.FormatInt(from.Unix(), 10)}
	q["to"] = []string{strconv.FormatInt(to.Unix(), 10)}

	var r candleResponse
	if err := c.get(ctx, "stock/candle", q, &r); err != nil {
		return nil, err
	}
	bars, err := r.bars()
	if err != nil {
		return nil, fmt.Errorf("finnhub stock/candle: %w", err)
	}
	return bars, nil
}

func (c *Client) Recommendations(ctx context.Context, ticker string) ([]models.RecoResult, error) {
	var r []models.RecoResult
	err := c.get(ctx, "stock/recommendation", symbol(ticker), &r)
	return r, err
}

func (c *Client) Earnings(ctx context.Context, ticker string) ([]models.EarningsData, error) {
	var e []models.EarningsData
	err := c.get(ctx, "stock/earnings", symbol(ticker), &e)
	return e, err
}

func (c *Client) Search(ctx context.Context, query string) (models.AutocompleteResponse, error) {
	var r models.AutocompleteResponse
	err := c.get(ctx, "search", map[string][]string{"q": {query}}, &r)
	return r, err
}
