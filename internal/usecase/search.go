package usecase

import (
	"context"
	"fmt"
	"strings"

	"StockDesk/internal/domain/models"
	domrepo "StockDesk/internal/domain/repository"
)

type SearchUseCase struct {
	market domrepo.MarketData
}

func NewSearchUseCase(market domrepo.MarketData) *SearchUseCase {
	return &SearchUseCase{market: market}
}

// Search returns autocomplete matches for query listed on a primary exchange.
func (u *SearchUseCase) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SymbolMatch{}, nil
	}
	resp, err := u.market.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return models.PrimaryListings(resp.Result), nil
}
