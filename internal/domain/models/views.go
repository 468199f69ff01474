package models

import "StockDesk/pkg/fanout"

// LoadStatus is attached to every composite view.
type LoadStatus struct {
	State   fanout.State      `json:"state"`
	Ready   bool              `json:"ready"`
	Pending int               `json:"pending"`
	Missing []string          `json:"missing,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// StatusOf reads the load status off a snapshot.
func StatusOf(s *fanout.Snapshot) LoadStatus {
	return LoadStatus{
		State:   s.State,
		Ready:   s.Ready,
		Pending: s.Pending,
		Missing: s.Missing,
		Errors:  s.ErrorMessages(),
	}
}

// StockDetail is the stock detail page.
type StockDetail struct {
	Ticker          string          `json:"ticker"`
	Profile         *CompanyProfile `json:"profile,omitempty"`
	Quote           *StockQuote     `json:"quote,omitempty"`
	Watching        *bool           `json:"watching,omitempty"`
	InPortfolio     *bool           `json:"inPortfolio,omitempty"`
	Position        *PortfolioStock `json:"position,omitempty"`
	Peers           []string        `json:"peers,omitempty"`
	Insider         *InsiderSummary `json:"insider,omitempty"`
	News            []NewsArticle   `json:"news,omitempty"`
	Balance         *float64        `json:"balance,omitempty"`
	Hourly          []Bar           `json:"hourly,omitempty"`
	History         []Bar           `json:"history,omitempty"`
	Recommendations []RecoResult    `json:"recommendations,omitempty"`
	Earnings        []EarningsData  `json:"earnings,omitempty"`
	Status          LoadStatus      `json:"status"`
}

// Portfolio is the portfolio screen: cash, holdings and totals.
type Portfolio struct {
	Balance     *float64         `json:"balance,omitempty"`
	NetWorth    *float64         `json:"netWorth,omitempty"`
	MarketValue float64          `json:"marketValue"`
	TotalValue  *float64         `json:"totalValue,omitempty"`
	Holdings    []PortfolioStock `json:"holdings"`
	Status      LoadStatus       `json:"status"`
}

type Watchlist struct {
	Items  []WatchlistStock `json:"items"`
	Status LoadStatus       `json:"status"`
}
