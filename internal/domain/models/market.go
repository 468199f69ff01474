package models

import "strings"

// StockQuote is the latest quote for a ticker.
type StockQuote struct {
	C  float64 `json:"c"`  // current price
	D  float64 `json:"d"`  // change
	DP float64 `json:"dp"` // percent change
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"` // previous close
	T  int64   `json:"t"`
}

type CompanyProfile struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	EstimateCurrency     string  `json:"estimateCurrency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	Logo                 string  `json:"logo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	Phone                string  `json:"phone"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
	Ticker               string  `json:"ticker"`
	WebURL               string  `json:"weburl"`
}

type NewsArticle struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// Complete reports whether the article has everything the news list renders.
func (n NewsArticle) Complete() bool {
	return n.Source != "" && n.URL != "" && n.Headline != "" && n.Summary != "" && n.Image != ""
}

// FilterNews keeps complete articles, at most limit of them, in their original order.
func FilterNews(articles []NewsArticle, limit int) []NewsArticle {
	out := make([]NewsArticle, 0, min(len(articles), limit))
	for _, a := range articles {
		if len(out) >= limit {
			break
		}
		if a.Complete() {
			out = append(out, a)
		}
	}
	return out
}

type InsiderSentiment struct {
	Symbol string  `json:"symbol"`
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Change float64 `json:"change"`
	MSPR   float64 `json:"mspr"`
}

type SentimentResponse struct {
	Data   []InsiderSentiment `json:"data"`
	Symbol string             `json:"symbol"`
}

// InsiderSummary totals insider sentiment, split by sign.
type InsiderSummary struct {
	Symbol         string  `json:"symbol"`
	TotalMSPR      float64 `json:"totalMspr"`
	PositiveMSPR   float64 `json:"positiveMspr"`
	NegativeMSPR   float64 `json:"negativeMspr"`
	TotalChange    float64 `json:"totalChange"`
	PositiveChange float64 `json:"positiveChange"`
	NegativeChange float64 `json:"negativeChange"`
}

// Summarize folds the monthly rows into totals.
func (r SentimentResponse) Summarize() InsiderSummary {
	s := InsiderSummary{Symbol: r.Symbol}
	for _, row := range r.Data {
		s.TotalMSPR += row.MSPR
		s.TotalChange += row.Change
		if row.MSPR > 0 {
			s.PositiveMSPR += row.MSPR
		} else if row.MSPR < 0 {
			s.NegativeMSPR += row.MSPR
		}
		if row.Change > 0 {
			s.PositiveChange += row.Change
		} else if row.Change < 0 {
			s.NegativeChange += row.Change
		}
	}
	return s
}

// Bar is one OHLCV candle. T is unix milliseconds.
type Bar struct {
	V  float64 `json:"v"`
	VW float64 `json:"vw"`
	O  float64 `json:"o"`
	C  float64 `json:"c"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	T  int64   `json:"t"`
	N  int     `json:"n"`
}

type TradingData struct {
	Results []Bar `json:"results"`
}

type RecoResult struct {
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongBuy  int    `json:"strongBuy"`
	StrongSell int    `json:"strongSell"`
	Period     string `json:"period"`
	Symbol     string `json:"symbol"`
}

type EarningsData struct {
	Actual          float64 `json:"actual"`
	Estimate        float64 `json:"estimate"`
	Period          string  `json:"period"`
	Quarter         int     `json:"quarter"`
	Surprise        float64 `json:"surprise"`
	SurprisePercent float64 `json:"surprisePercent"`
	Symbol          string  `json:"symbol"`
	Year            int     `json:"year"`
}

type SymbolMatch struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

type AutocompleteResponse struct {
	Count  int           `json:"count"`
	Result []SymbolMatch `json:"result"`
}

// PrimaryListings drops matches on secondary exchanges (display symbols with a dot, e.g. "AAPL.MX").
func PrimaryListings(matches []SymbolMatch) []SymbolMatch {
	out := make([]SymbolMatch, 0, len(matches))
	for _, m := range matches {
		if strings.Contains(m.DisplaySymbol, ".") {
			continue
		}
		out = append(out, m)
	}
	return out
}
