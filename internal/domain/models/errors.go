package models

import "errors"

var (
	ErrUnknownTicker   = errors.New("unknown ticker")
	ErrJournalDisabled = errors.New("trade journal is not queryable with the configured backend")
	ErrNoQuote         = errors.New("no current price for ticker")
)
