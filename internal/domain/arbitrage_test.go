package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binaryMarket(id string, yes, no float64) Market {
	return Market{
		ID:            id,
		Outcomes:      []string{"Yes", "No"},
		OutcomePrices: []float64{yes, no},
		TokenIDs:      []string{id + "-yes", id + "-no"},
		Active:        true,
	}
}

// --- Detector ---

func TestDetector_Check_UnderpricedBundleIsBuy(t *testing.T) {
	d := Detector{Threshold: 0.02}

	sig, ok := d.Check(binaryMarket("0x456", 0.40, 0.40), 0.02)

	require.True(t, ok)
	assert.Equal(t, SideBuy, sig.Side)
	assert.InDelta(t, 0.20, sig.Spread, 1e-9)
	assert.InDelta(t, sig.Spread, sig.Edge, 1e-12)
	assert.InDelta(t, 0.80, sig.PriceSum, 1e-9)
	assert.Equal(t, "0x456", sig.MarketID)
}

func TestDetector_Check_OverpricedBundleIsSell(t *testing.T) {
	sig, ok := Detector{}.Check(binaryMarket("m", 0.60, 0.55), 0.02)

	require.True(t, ok)
	assert.Equal(t, SideSell, sig.Side)
	assert.InDelta(t, 0.15, sig.Spread, 1e-9)
}

func TestDetector_Check_SpreadAtThresholdIsNoSignal(t *testing.T) {
	// 0.50 + 0.48 = 0.98 → spread 0.02, por debajo de 0.03
	_, ok := Detector{}.Check(binaryMarket("m", 0.5, 0.48), 0.03)
	assert.False(t, ok)

	_, ok = Detector{}.Check(binaryMarket("m", 0.45, 0.55), 0.02)
	assert.False(t, ok)
}

func TestDetector_Check_CentTickBundleAtThresholdIsNoSignal(t *testing.T) {
	// la suma en float64 deja el spread un pelo por encima de 0.02
	for _, prices := range [][2]float64{{0.49, 0.49}, {0.51, 0.51}, {0.48, 0.50}} {
		_, ok := Detector{}.Check(binaryMarket("m", prices[0], prices[1]), 0.02)
		assert.False(t, ok, "prices %v", prices)
	}

	_, ok := Detector{}.Check(binaryMarket("m", 0.49, 0.48), 0.02)
	assert.True(t, ok, "0.03 sigue por encima de 0.02")
}

func TestDetector_Check_UnhydratedMarket(t *testing.T) {
	m := binaryMarket("m", 0.3, 0.3)
	m.TokenIDs = m.TokenIDs[:1]

	_, ok := Detector{}.Check(m, 0.02)
	assert.False(t, ok)
}

func TestDetector_SpreadProperty(t *testing.T) {
	cases := [][]float64{
		{0.40, 0.40},
		{0.70, 0.45},
		{0.10, 0.20, 0.30},
		{0.50, 0.50},
		{0.99, 0.02},
	}
	for _, prices := range cases {
		m := Market{
			ID:            "p",
			OutcomePrices: prices,
			Outcomes:      make([]string, len(prices)),
			TokenIDs:      make([]string, len(prices)),
		}
		var sum float64
		for _, p := range prices {
			sum += p
		}
		want := math.Abs(sum - 1)

		sig, ok := Detector{}.Check(m, 0.01)
		assert.Equal(t, want > 0.01, ok, "prices %v", prices)
		if ok {
			assert.InDelta(t, want, sig.Spread, 1e-12)
			assert.Equal(t, sum < 1, sig.Side == SideBuy)
		}
	}
}

func TestDetector_Scan_UsesConfiguredThreshold(t *testing.T) {
	d := Detector{Threshold: 0.05}
	markets := []Market{
		binaryMarket("a", 0.45, 0.55), // 0
		binaryMarket("b", 0.40, 0.50), // 0.10
		binaryMarket("c", 0.49, 0.48), // 0.03
		binaryMarket("d", 0.70, 0.40), // 0.10 sell
	}

	signals := d.Scan(markets)

	require.Len(t, signals, 2)
	assert.Equal(t, "b", signals[0].MarketID)
	assert.Equal(t, "d", signals[1].MarketID)
}

// --- WalkLevels ---

func TestWalkLevels_SizeWeightedAcrossLevels(t *testing.T) {
	asks := []BookEntry{{Price: 0.41, Size: 200}, {Price: 0.42, Size: 300}}

	filled, avg, used := WalkLevels(asks, 250)

	assert.InDelta(t, 250, filled, 1e-9)
	assert.InDelta(t, 0.412, avg, 1e-9)
	assert.Equal(t, 2, used)
}

func TestWalkLevels_PartialWhenBookExhausted(t *testing.T) {
	asks := []BookEntry{{Price: 0.41, Size: 200}, {Price: 0.42, Size: 300}}

	filled, avg, used := WalkLevels(asks, 1000)

	assert.InDelta(t, 500, filled, 1e-9)
	assert.InDelta(t, (200*0.41+300*0.42)/500, avg, 1e-9)
	assert.Equal(t, 2, used)
}

func TestWalkLevels_EmptyOrZero(t *testing.T) {
	filled, avg, used := WalkLevels(nil, 10)
	assert.Zero(t, filled)
	assert.Zero(t, avg)
	assert.Zero(t, used)

	filled, _, _ = WalkLevels([]BookEntry{{Price: 0.5, Size: 10}}, 0)
	assert.Zero(t, filled)
}

// --- Market / OrderBook ---

func TestMarket_PriceOfAndDeviation(t *testing.T) {
	m := binaryMarket("x", 0.35, 0.55)

	p, ok := m.PriceOf("x-no")
	require.True(t, ok)
	assert.InDelta(t, 0.55, p, 1e-12)

	_, ok = m.PriceOf("missing")
	assert.False(t, ok)

	assert.InDelta(t, 0.10, m.Deviation(), 1e-9)
	assert.InDelta(t, 0.10, m.Spread(), 1e-9)
	assert.Equal(t, 150.0, Market{TakerFeeBps: 150}.EffectiveTakerBps(200))
	assert.Equal(t, 200.0, Market{}.EffectiveTakerBps(200))
}

func TestOrderBook_MidpointAndLevels(t *testing.T) {
	ob := OrderBook{
		Bids: []BookEntry{{Price: 0.44, Size: 100}, {Price: 0.43, Size: 500}},
		Asks: []BookEntry{{Price: 0.46, Size: 200}},
	}

	assert.InDelta(t, 0.45, ob.Midpoint(), 1e-9)
	assert.InDelta(t, 0.02, ob.Spread(), 1e-9)
	assert.Len(t, ob.Levels(SideBuy), 1)
	assert.Len(t, ob.Levels(SideSell), 2)
	assert.InDelta(t, 0.44*100+0.43*500+0.46*200, ob.NotionalDepth(), 1e-9)

	askOnly := OrderBook{Asks: []BookEntry{{Price: 0.3, Size: 1}}}
	assert.InDelta(t, 0.3, askOnly.Midpoint(), 1e-12)
}
