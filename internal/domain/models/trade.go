package models

import (
	"errors"
	"time"
)

type TradeAction string

const (
	TradeBuy  TradeAction = "buy"
	TradeSell TradeAction = "sell"
)

// TradeRejection is a trade rule violation. Its text is shown to the user as-is.
type TradeRejection string

func (r TradeRejection) Error() string { return string(r) }

const (
	ErrInsufficientFunds TradeRejection = "Not enough money to buy"
	ErrNotEnoughShares   TradeRejection = "Not enough shares to sell"
	ErrNonPositiveBuy    TradeRejection = "Cannot buy non-positive shares"
	ErrNonPositiveSell   TradeRejection = "Cannot sell non-positive shares"
	ErrInvalidAmount     TradeRejection = "Please enter a valid amount"
)

// IsTradeRejection reports whether err is a trade rule violation.
func IsTradeRejection(err error) bool {
	var r TradeRejection
	return errors.As(err, &r)
}

// TradeOrder is a validated buy or sell instruction.
type TradeOrder struct {
	Ticker   string
	Action   TradeAction
	Quantity *int
}

// TradeResult is returned after a trade went through.
type TradeResult struct {
	Action   TradeAction     `json:"action"`
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    float64         `json:"price"`
	Total    float64         `json:"total"`
	Balance  float64         `json:"balance"`
	Holding  *PortfolioStock `json:"holding,omitempty"`
	Message  string          `json:"message"`
}

// TradeEvent is the journal record of an executed trade.
type TradeEvent struct {
	ID           string      `json:"id"`
	Ticker       string      `json:"ticker"`
	Name         string      `json:"name"`
	Action       TradeAction `json:"action"`
	Quantity     int         `json:"quantity"`
	Price        float64     `json:"price"`
	Total        float64     `json:"total"`
	BalanceAfter float64     `json:"balanceAfter"`
	HeldAfter    int         `json:"heldAfter"`
	ExecutedAt   time.Time   `json:"executedAt"`
}
