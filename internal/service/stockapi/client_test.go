package stockapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"StockDesk/internal/domain/models"
	xhttp "StockDesk/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

type requestLog struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, r)
}

func (l *requestLog) at(i int) recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reqs[i]
}

func newTestServer(t *testing.T, routes map[string]string) (*Client, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})

		payload, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", 2*time.Second), seen
}

func TestMarketEndpoints(t *testing.T) {
	c, seen := newTestServer(t, map[string]string{
		"GET /api/quote/AAPL": `{"c":190.5,"d":1.2,"dp":0.63,"h":191,"l":188,"o":189,"pc":189.3,"t":1715000000}`,
		"GET /api/profile/AAPL": `{"name":"Apple Inc","ticker":"AAPL","exchange":"NASDAQ","marketCapitalization":2900000}`,
		"GET /api/peers/AAPL": `["AAPL","DELL","HPQ"]`,
		"GET /api/hourly/AAPL/2024-05-07/2024-05-08": `{"results":[{"v":10,"vw":1,"o":1,"c":2,"h":3,"l":0.5,"t":1715000000000,"n":4}]}`,
		"GET /api/insider-sentiment/AAPL": `{"symbol":"AAPL","data":[{"symbol":"AAPL","year":2024,"month":1,"change":5,"mspr":2}]}`,
		"GET /api/autocomplete/app": `{"count":1,"result":[{"description":"APPLE INC","displaySymbol":"AAPL","symbol":"AAPL","type":"Common Stock"}]}`,
	})
	ctx := context.Background()

	q, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.5, q.C)
	assert.Equal(t, int64(1715000000), q.T)

	p, err := c.Profile(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", p.Name)

	peers, err := c.Peers(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "DELL", "HPQ"}, peers)

	bars, err := c.Hourly(ctx, "AAPL", "2024-05-07", "2024-05-08")
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, int64(1715000000000), bars[0].T)

	s, err := c.InsiderSentiment(ctx, "AAPL")
	require.NoError(t, err)
	assert.Len(t, s.Data, 1)

	r, err := c.Search(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", r.Result[0].DisplaySymbol)

	assert.Equal(t, "/api/quote/AAPL", seen.at(0).path)
}

func TestAccountEndpoints(t *testing.T) {
	c, seen := newTestServer(t, map[string]string{
		"GET /api/balance": `25000.5`,
		"POST /api/balance": `{"ok":true}`,
		"GET /api/portfolio": `[{"_id":"1","ticker":"AAPL","quantity":3,"name":"Apple Inc","totalCost":570}]`,
		"POST /api/portfolio": `{}`,
		"DELETE /api/portfolio/AAPL": `{}`,
		"GET /api/watchlist": `[{"_id":"w1","ticker":"NVDA","name":"NVIDIA Corp"}]`,
		"POST /api/watchlist": `{}`,
		"DELETE /api/watchlist/NVDA": `{}`,
	})
	ctx := context.Background()

	b, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25000.5, b)

	require.NoError(t, c.SetBalance(ctx, 100))

	holdings, err := c.Portfolio(ctx)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "1", holdings[0].ID)
	assert.Nil(t, holdings[0].MarketValue)

	require.NoError(t, c.UpsertHolding(ctx, models.HoldingUpdate{Ticker: "AAPL", Name: "Apple Inc", TotalCost: 760, Quantity: 4}))
	require.NoError(t, c.RemoveHolding(ctx, "AAPL"))

	list, err := c.Watchlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", list[0].Ticker)

	require.NoError(t, c.AddWatch(ctx, models.WatchlistEntry{Ticker: "TSLA", Name: "Tesla Inc"}))
	require.NoError(t, c.RemoveWatch(ctx, "NVDA"))

	var balanceBody, upsertBody map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(seen.at(1).body), &balanceBody))
	assert.Equal(t, 100.0, balanceBody["balance"])
	require.NoError(t, json.Unmarshal([]byte(seen.at(3).body), &upsertBody))
	assert.Equal(t, "AAPL", upsertBody["ticker"])
	assert.Equal(t, 760.0, upsertBody["totalCost"])
	assert.Equal(t, 4.0, upsertBody["quantity"])
	assert.Equal(t, http.MethodDelete, seen.at(4).method)
}

func TestFailuresAreClassified(t *testing.T) {
	c, _ := newTestServer(t, map[string]string{
		"GET /api/quote/BAD": `{"c":"not-a-number"}`,
	})
	ctx := context.Background()

	_, err := c.Quote(ctx, "BAD")
	require.Error(t, err)
	assert.ErrorIs(t, err, xhttp.ErrDecode)
	assert.Equal(t, "decode", xhttp.KindOf(err))

	_, err = c.Quote(ctx, "MISSING")
	require.Error(t, err)
	assert.ErrorIs(t, err, xhttp.ErrTransport)
	assert.Equal(t, http.StatusNotFound, xhttp.StatusOf(err))
}

func TestUnreachableHostIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url+"/api/", time.Second)
	_, err := c.Balance(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, xhttp.ErrTransport)
}
