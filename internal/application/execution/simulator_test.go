package execution_test

import (
	"testing"
	"time"

	"github.com/alejandrodnm/arbishark/internal/application/execution"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLevelBook() domain.OrderBook {
	return domain.OrderBook{
		TokenID: "t3",
		Bids: []domain.BookEntry{
			{Price: 0.39, Size: 100},
			{Price: 0.38, Size: 500},
		},
		Asks: []domain.BookEntry{
			{Price: 0.41, Size: 200},
			{Price: 0.42, Size: 300},
		},
	}
}

var noLatency = execution.LatencyModel{}

func TestSimulator_Execute_SizeWeightedFillWithoutLatency(t *testing.T) {
	sim := execution.NewSimulator(1)
	fees := domain.FeeSchedule{TakerBps: 200}

	res, ok := sim.Execute(twoLevelBook(), 250, domain.SideBuy, fees, noLatency)

	require.True(t, ok)
	assert.InDelta(t, 250, res.FilledSize, 1e-9)
	assert.InDelta(t, 0.412, res.AvgBookPrice, 1e-9)
	assert.InDelta(t, 0.412, res.ExecutionPrice, 1e-9)
	assert.Equal(t, 2, res.LevelsConsumed)
	assert.False(t, res.Partial())
	assert.Equal(t, "t3", res.TokenID)
}

func TestSimulator_Execute_FeeIsExactlyBpsOfNotional(t *testing.T) {
	sim := execution.NewSimulator(7)
	fees := domain.FeeSchedule{TakerBps: 200}
	lat := execution.LatencyModel{Delay: 50 * time.Millisecond, CostPerMs: 0.00001, AdverseStd: 0.001}

	res, ok := sim.Execute(twoLevelBook(), 120, domain.SideBuy, fees, lat)

	require.True(t, ok)
	notional := res.FilledSize * res.ExecutionPrice
	assert.InDelta(t, notional*200/10000, res.FeePaid, 1e-12)
	assert.InDelta(t, notional+res.FeePaid, res.TotalCost, 1e-12)
}

func TestSimulator_Execute_PartialFillNeverExceedsRequest(t *testing.T) {
	sim := execution.NewSimulator(3)

	for _, size := range []float64{1, 199.5, 200, 499, 500, 501, 10_000} {
		res, ok := sim.Execute(twoLevelBook(), size, domain.SideBuy, domain.FeeSchedule{}, noLatency)
		require.True(t, ok)
		assert.LessOrEqual(t, res.FilledSize, size)
	}

	res, ok := sim.Execute(twoLevelBook(), 800, domain.SideBuy, domain.FeeSchedule{}, noLatency)
	require.True(t, ok)
	assert.True(t, res.Partial())
	assert.InDelta(t, 500, res.FilledSize, 1e-9)
}

func TestSimulator_Execute_NoFill(t *testing.T) {
	sim := execution.NewSimulator(1)

	_, ok := sim.Execute(domain.OrderBook{TokenID: "empty"}, 10, domain.SideBuy, domain.FeeSchedule{}, noLatency)
	assert.False(t, ok)

	_, ok = sim.Execute(twoLevelBook(), 0, domain.SideBuy, domain.FeeSchedule{}, noLatency)
	assert.False(t, ok)

	zeroSize := domain.OrderBook{Asks: []domain.BookEntry{{Price: 0.4, Size: 0}}}
	_, ok = sim.Execute(zeroSize, 10, domain.SideBuy, domain.FeeSchedule{}, noLatency)
	assert.False(t, ok)
}

func TestSimulator_Execute_BaseLatencyCostIsAdverse(t *testing.T) {
	sim := execution.NewSimulator(1)
	lat := execution.LatencyModel{Delay: 50 * time.Millisecond, CostPerMs: 0.0001}

	buy, ok := sim.Execute(twoLevelBook(), 100, domain.SideBuy, domain.FeeSchedule{}, lat)
	require.True(t, ok)
	assert.InDelta(t, 0.005, buy.LatencyOffset, 1e-12)
	assert.InDelta(t, 0.415, buy.ExecutionPrice, 1e-9)

	sell, ok := sim.Execute(twoLevelBook(), 100, domain.SideSell, domain.FeeSchedule{}, lat)
	require.True(t, ok)
	assert.InDelta(t, 0.39, sell.AvgBookPrice, 1e-9)
	assert.InDelta(t, 0.385, sell.ExecutionPrice, 1e-9)
}

func TestSimulator_Execute_SeededDrawsAreReproducible(t *testing.T) {
	lat := execution.LatencyModel{AdverseStd: 0.01}
	a := execution.NewSimulator(42)
	b := execution.NewSimulator(42)

	var pricesA, pricesB []float64
	for i := 0; i < 5; i++ {
		ra, ok := a.Execute(twoLevelBook(), 50, domain.SideBuy, domain.FeeSchedule{}, lat)
		require.True(t, ok)
		rb, ok := b.Execute(twoLevelBook(), 50, domain.SideBuy, domain.FeeSchedule{}, lat)
		require.True(t, ok)
		pricesA = append(pricesA, ra.ExecutionPrice)
		pricesB = append(pricesB, rb.ExecutionPrice)
	}

	assert.Equal(t, pricesA, pricesB)
	// con std > 0 las cinco extracciones no deben ser todas iguales
	assert.NotEqual(t, pricesA[0], pricesA[1])
}

func TestSimulator_Execute_PriceClampedToUnitInterval(t *testing.T) {
	sim := execution.NewSimulator(1)
	book := domain.OrderBook{Asks: []domain.BookEntry{{Price: 0.999, Size: 10}}}
	lat := execution.LatencyModel{Delay: time.Second, CostPerMs: 0.01}

	res, ok := sim.Execute(book, 10, domain.SideBuy, domain.FeeSchedule{}, lat)

	require.True(t, ok)
	assert.Equal(t, 1.0, res.ExecutionPrice)
}
