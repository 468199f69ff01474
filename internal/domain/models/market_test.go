package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNews(t *testing.T) {
	full := func(i int) NewsArticle {
		return NewsArticle{
			ID:       int64(i),
			Source:   "Reuters",
			URL:      fmt.Sprintf("https://example.com/%d", i),
			Headline: "headline",
			Summary:  "summary",
			Image:    "https://example.com/i.png",
		}
	}

	var in []NewsArticle
	for i := 0; i < 30; i++ {
		a := full(i)
		if i%2 == 1 {
			a.Image = ""
		}
		in = append(in, a)
	}

	out := FilterNews(in, 20)
	assert.Len(t, out, 15)
	for _, a := range out {
		assert.True(t, a.Complete())
	}
	assert.Equal(t, int64(0), out[0].ID)

	assert.Len(t, FilterNews(in, 3), 3)
	assert.Empty(t, FilterNews(nil, 20))
}

func TestSentimentSummarize(t *testing.T) {
	r := SentimentResponse{
		Symbol: "AAPL",
		Data: []InsiderSentiment{
			{Change: 100, MSPR: 10},
			{Change: -40, MSPR: -2.5},
			{Change: 0, MSPR: 0},
			{Change: 5, MSPR: -1},
		},
	}

	s := r.Summarize()
	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, 65.0, s.TotalChange)
	assert.Equal(t, 105.0, s.PositiveChange)
	assert.Equal(t, -40.0, s.NegativeChange)
	assert.Equal(t, 6.5, s.TotalMSPR)
	assert.Equal(t, 10.0, s.PositiveMSPR)
	assert.Equal(t, -3.5, s.NegativeMSPR)
}

func TestPrimaryListings(t *testing.T) {
	in := []SymbolMatch{
		{DisplaySymbol: "AAPL"},
		{DisplaySymbol: "AAPL.MX"},
		{DisplaySymbol: "APC.DE"},
		{DisplaySymbol: "AAPB"},
	}
	out := PrimaryListings(in)
	assert.Equal(t, []SymbolMatch{{DisplaySymbol: "AAPL"}, {DisplaySymbol: "AAPB"}}, out)
}

func TestTradeRejection(t *testing.T) {
	err := fmt.Errorf("buy AAPL: %w", ErrInsufficientFunds)
	assert.True(t, IsTradeRejection(err))
	assert.Equal(t, "Not enough money to buy", ErrInsufficientFunds.Error())
	assert.False(t, IsTradeRejection(fmt.Errorf("timeout")))
}
