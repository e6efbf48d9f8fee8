package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

const gammaEventsPath = "/events"

// FetchMarkets obtiene los mercados activos de Gamma y los hidrata con el midpoint
// de sus books. Si un book no está disponible se conserva el precio de Gamma; los
// mercados que quedan sin precio para algún outcome se descartan.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	url := fmt.Sprintf("%s%s?active=true&closed=false&limit=%d",
		c.gammaBase, gammaEventsPath, c.marketLimit)

	var events []gammaEvent
	if err := c.get(ctx, c.gammaLimiter, url, &events); err != nil {
		return nil, fmt.Errorf("gamma.FetchMarkets: %w", err)
	}

	markets := mapEvents(events)
	if len(markets) == 0 {
		return nil, nil
	}

	var tokenIDs []string
	for _, m := range markets {
		tokenIDs = append(tokenIDs, m.TokenIDs...)
	}

	books, err := c.FetchOrderBooks(ctx, tokenIDs)
	if err != nil {
		// sin books usamos los precios de Gamma tal cual
		slog.Warn("gamma: book hydration failed, using gamma prices", "err", err)
		books = nil
	}

	hydrated := markets[:0]
	for _, m := range markets {
		if hydrateFromBooks(&m, books) {
			hydrated = append(hydrated, m)
		}
	}

	slog.Debug("gamma markets fetched",
		"events", len(events),
		"markets", len(markets),
		"hydrated", len(hydrated),
	)
	return hydrated, nil
}

// hydrateFromBooks sustituye cada precio por el midpoint del book del token.
// Devuelve false si algún outcome queda sin precio.
func hydrateFromBooks(m *domain.Market, books map[string]domain.OrderBook) bool {
	prices := make([]float64, len(m.TokenIDs))
	for i, tokenID := range m.TokenIDs {
		if book, ok := books[tokenID]; ok {
			if mid := book.Midpoint(); mid > 0 {
				prices[i] = mid
				continue
			}
		}
		if i >= len(m.OutcomePrices) {
			return false
		}
		prices[i] = m.OutcomePrices[i]
	}
	m.OutcomePrices = prices
	return m.Hydrated()
}
