package models

// PortfolioStock is one holding. The pointer fields are derived from a live
// quote and stay nil when the quote is unavailable.
type PortfolioStock struct {
	ID        string  `json:"_id,omitempty"`
	Ticker    string  `json:"ticker"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name"`
	TotalCost float64 `json:"totalCost"`

	AvgCostPerShare  *float64    `json:"avgCostPerShare,omitempty"`
	MarketValue      *float64    `json:"marketValue,omitempty"`
	ChangeCost       *float64    `json:"changeCost,omitempty"`
	ChangePercentage *float64    `json:"changePercentage,omitempty"`
	Quote            *StockQuote `json:"quote,omitempty"`
}

// PositionMetrics are the per-holding numbers derived from cost basis and price.
type PositionMetrics struct {
	AvgCostPerShare  float64
	MarketValue      float64
	ChangeCost       float64
	ChangePercentage float64
}

// ComputePosition derives holding metrics from cost basis and the current price.
// ok is false when quantity is not positive; the percentage is only meaningful
// for a non-zero totalCost.
func ComputePosition(totalCost float64, quantity int, price float64) (m PositionMetrics, ok bool) {
	if quantity <= 0 {
		return m, false
	}
	qty := float64(quantity)
	m.AvgCostPerShare = totalCost / qty
	m.MarketValue = price * qty
	m.ChangeCost = (price - m.AvgCostPerShare) * qty
	if totalCost != 0 {
		m.ChangePercentage = 100 * m.ChangeCost / totalCost
	}
	return m, true
}

// WithQuote returns a copy of the holding with derived fields filled from q.
func (p PortfolioStock) WithQuote(q StockQuote) PortfolioStock {
	quote := q
	p.Quote = &quote

	m, ok := ComputePosition(p.TotalCost, p.Quantity, q.C)
	if !ok {
		return p
	}
	p.AvgCostPerShare = &m.AvgCostPerShare
	p.MarketValue = &m.MarketValue
	p.ChangeCost = &m.ChangeCost
	if p.TotalCost != 0 {
		p.ChangePercentage = &m.ChangePercentage
	}
	return p
}

// FindHolding returns the holding for ticker, if present.
func FindHolding(holdings []PortfolioStock, ticker string) (PortfolioStock, bool) {
	for _, h := range holdings {
		if h.Ticker == ticker {
			return h, true
		}
	}
	return PortfolioStock{}, false
}

type WatchlistStock struct {
	ID     string      `json:"_id,omitempty"`
	Ticker string      `json:"ticker"`
	Name   string      `json:"name"`
	Quote  *StockQuote `json:"quote,omitempty"`
}

// Watching reports whether ticker is on the watchlist.
func Watching(list []WatchlistStock, ticker string) bool {
	for _, w := range list {
		if w.Ticker == ticker {
			return true
		}
	}
	return false
}

// HoldingUpdate is the upsert body for a portfolio entry.
type HoldingUpdate struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	TotalCost float64 `json:"totalCost"`
	Quantity  int     `json:"quantity"`
}

type WatchlistEntry struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}
