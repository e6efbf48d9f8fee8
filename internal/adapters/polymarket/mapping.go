package polymarket

import (
	"sort"
	"strconv"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// mapEvents aplana los eventos de Gamma a domain.Market.
// Se descartan los mercados sin al menos dos tokens o con outcomes y tokens descuadrados.
func mapEvents(events []gammaEvent) []domain.Market {
	var markets []domain.Market
	for _, ev := range events {
		for _, gm := range ev.Markets {
			m, ok := mapGammaMarket(ev, gm)
			if !ok {
				continue
			}
			markets = append(markets, m)
		}
	}
	return markets
}

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
func mapGammaMarket(ev gammaEvent, gm gammaMarket) (domain.Market, bool) {
	if len(gm.ClobTokenIDs) < 2 || gm.Closed {
		return domain.Market{}, false
	}

	outcomes := []string(gm.Outcomes)
	if len(outcomes) != len(gm.ClobTokenIDs) {
		// sin nombres de outcome usables, numeramos
		outcomes = make([]string, len(gm.ClobTokenIDs))
		for i := range outcomes {
			outcomes[i] = "Outcome " + strconv.Itoa(i+1)
		}
	}

	id := gm.ID
	if id == "" {
		id = gm.ConditionID
	}
	slug := gm.Slug
	if slug == "" {
		slug = ev.Slug
	}

	m := domain.Market{
		ID:              id,
		Question:        gm.Question,
		Slug:            slug,
		Outcomes:        outcomes,
		TokenIDs:        append([]string(nil), gm.ClobTokenIDs...),
		Liquidity:       float64(gm.Liquidity),
		Volume24h:       float64(gm.Volume24h),
		TakerFeeBps:     float64(gm.TakerBaseFee),
		Active:          gm.Active,
		AcceptingOrders: gm.AcceptingOrders,
	}

	if prices, ok := parsePrices(gm.OutcomePrices, len(outcomes)); ok {
		m.OutcomePrices = prices
	}
	return m, true
}

// parsePrices convierte los precios de Gamma. Falla si falta alguno o no es numérico.
func parsePrices(raw []string, n int) ([]float64, bool) {
	if len(raw) != n {
		return nil, false
	}
	prices := make([]float64, n)
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 1 {
			return nil, false
		}
		prices[i] = v
	}
	return prices, true
}

// mapOrderBook convierte un book raw del CLOB.
func mapOrderBook(r orderBookResponse) domain.OrderBook {
	return domain.OrderBook{
		TokenID: r.AssetID,
		Bids:    mapBookEntries(r.Bids, false),
		Asks:    mapBookEntries(r.Asks, true),
	}
}

// mapOrderBooks convierte la respuesta batch de /books a un map tokenID→OrderBook.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	result := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		result[r.AssetID] = mapOrderBook(r)
	}
	return result
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
