package domain

import "math"

// Market representa un mercado de predicción con N outcomes (normalmente Yes/No).
// Es el snapshot que el data source entrega por ciclo; el core no lo modifica.
type Market struct {
	ID              string
	Question        string
	Slug            string
	Outcomes        []string  // "Yes" | "No" | ...
	OutcomePrices   []float64 // un precio por outcome, en [0,1]
	TokenIDs        []string  // un token del CLOB por outcome
	Liquidity       float64   // liquidez en USDC reportada por la API (0 = desconocida)
	Volume24h       float64
	TakerFeeBps     float64 // fee real del mercado (0 = usar default de config)
	Active          bool
	AcceptingOrders bool
}

// Hydrated devuelve true si el mercado tiene un precio y un token por outcome.
func (m Market) Hydrated() bool {
	n := len(m.Outcomes)
	return n >= 2 && len(m.OutcomePrices) == n && len(m.TokenIDs) == n
}

// PriceSum devuelve la suma de los precios de todos los outcomes del bundle.
func (m Market) PriceSum() float64 {
	var sum float64
	for _, p := range m.OutcomePrices {
		sum += p
	}
	return sum
}

// Deviation devuelve 1 - suma de precios. Positivo = bundle barato (arbitraje Buy).
func (m Market) Deviation() float64 {
	return 1 - m.PriceSum()
}

// Spread devuelve |suma - 1|.
func (m Market) Spread() float64 {
	return math.Abs(m.PriceSum() - 1)
}

// PriceOf devuelve el precio actual del token dado.
func (m Market) PriceOf(tokenID string) (float64, bool) {
	for i, id := range m.TokenIDs {
		if id == tokenID && i < len(m.OutcomePrices) {
			return m.OutcomePrices[i], true
		}
	}
	return 0, false
}

// EffectiveTakerBps devuelve el fee a usar: el del mercado si existe,
// o defaultBps si el mercado devuelve 0.
func (m Market) EffectiveTakerBps(defaultBps float64) float64 {
	if m.TakerFeeBps > 0 {
		return m.TakerFeeBps
	}
	return defaultBps
}

// IndexMarkets agrupa un snapshot por ID de mercado.
func IndexMarkets(markets []Market) map[string]Market {
	out := make(map[string]Market, len(markets))
	for _, m := range markets {
		out[m.ID] = m
	}
	return out
}
