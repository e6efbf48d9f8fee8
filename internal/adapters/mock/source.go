// Package mock is an offline market-data backend with two fixed markets and a fixed
// book. With a non-zero drift, prices random-walk between snapshots so that exits
// can trigger in dry runs.
package mock

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// Source implements ports.MarketDataSource without any network access.
type Source struct {
	mu      sync.Mutex
	markets []domain.Market
	rng     *rand.Rand
	drift   float64
}

// New returns a source seeded with seed. drift is the max absolute price move per
// outcome and snapshot; 0 keeps prices fixed.
func New(seed uint64, drift float64) *Source {
	return &Source{
		markets: seedMarkets(),
		rng:     rand.New(rand.NewPCG(seed, seed+1)),
		drift:   drift,
	}
}

func (s *Source) Name() string { return "mock" }

func (s *Source) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Market, len(s.markets))
	for i := range s.markets {
		if s.drift > 0 {
			prices := s.markets[i].OutcomePrices
			for j := range prices {
				move := (s.rng.Float64()*2 - 1) * s.drift
				prices[j] = math.Round(clamp(prices[j]+move, 0.01, 0.99)*10000) / 10000
			}
		}
		out[i] = clone(s.markets[i])
	}
	return out, nil
}

// FetchOrderBook returns the same two-level book for every token.
func (s *Source) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderBook{}, err
	}
	return domain.OrderBook{
		TokenID: tokenID,
		Bids: []domain.BookEntry{
			{Price: 0.39, Size: 100},
			{Price: 0.38, Size: 500},
		},
		Asks: []domain.BookEntry{
			{Price: 0.41, Size: 200},
			{Price: 0.42, Size: 300},
		},
	}, nil
}

func seedMarkets() []domain.Market {
	return []domain.Market{
		{
			ID:              "0x123",
			Question:        "Will ETH be above $4000 on Jan 1?",
			Slug:            "eth-jan-1",
			Outcomes:        []string{"Yes", "No"},
			OutcomePrices:   []float64{0.45, 0.55},
			TokenIDs:        []string{"t1", "t2"},
			Liquidity:       100000,
			Volume24h:       50000,
			TakerFeeBps:     200,
			Active:          true,
			AcceptingOrders: true,
		},
		{
			ID:              "0x456",
			Question:        "Will BTC be above $100k in 2024?",
			Slug:            "btc-2024",
			Outcomes:        []string{"Yes", "No"},
			OutcomePrices:   []float64{0.40, 0.40},
			TokenIDs:        []string{"t3", "t4"},
			Liquidity:       500000,
			Volume24h:       1000000,
			TakerFeeBps:     200,
			Active:          true,
			AcceptingOrders: true,
		},
	}
}

func clone(m domain.Market) domain.Market {
	m.Outcomes = append([]string(nil), m.Outcomes...)
	m.OutcomePrices = append([]float64(nil), m.OutcomePrices...)
	m.TokenIDs = append([]string(nil), m.TokenIDs...)
	return m
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
