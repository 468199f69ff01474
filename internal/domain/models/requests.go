package models

// Requests for the HTTP API.

type TickerRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,max=12"`
}

type DetailRequest struct {
	Ticker string `param:"ticker" validate:"required,max=12"`
	Wait   string `query:"wait" default:"10s"`
}

type ViewRequest struct {
	Wait string `query:"wait" default:"10s"`
}

type TradeRequest struct {
	Ticker   string `param:"ticker" validate:"required,max=12"`
	Action   string `json:"action" validate:"required,oneof=buy sell"`
	Quantity *int   `json:"quantity"`
}

type WatchRequest struct {
	Ticker string `json:"ticker" validate:"required,max=12"`
	Name   string `json:"name" validate:"max=200"`
}

type SearchRequest struct {
	Query string `query:"q" validate:"required,max=64"`
}

type TradesRequest struct {
	Ticker string `query:"ticker" validate:"max=12"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}
