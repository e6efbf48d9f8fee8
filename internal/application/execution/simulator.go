// Package execution simulates taker fills against an order book.
//
// A fill walks the book side level by level (slippage) and is then shifted by a
// latency cost plus a normally distributed adverse-selection draw, modeling the
// price drift between quote and fill.
package execution

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// LatencyModel describes the simulated delay between quote and fill.
type LatencyModel struct {
	Delay      time.Duration
	CostPerMs  float64 // deterministic price drift per millisecond of delay
	AdverseStd float64 // std-dev of the adverse-selection draw
}

// BaseCost is the deterministic part of the latency offset.
func (l LatencyModel) BaseCost() float64 {
	return float64(l.Delay.Milliseconds()) * l.CostPerMs
}

// Simulator computes fills. The random source is guarded so one Simulator can be
// shared, but draws are only reproducible when calls are sequential.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a simulator with a reproducible random source.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewLiveSimulator returns a simulator seeded from the clock.
func NewLiveSimulator() *Simulator {
	return NewSimulator(uint64(time.Now().UnixNano()))
}

// Execute simulates a taker order of requestedSize shares against book.
// It returns false when nothing can be filled: empty side, non-positive size, or
// a walk that consumed nothing. A thin book is a normal outcome, not an error.
func (s *Simulator) Execute(
	book domain.OrderBook,
	requestedSize float64,
	side domain.Side,
	fees domain.FeeSchedule,
	latency LatencyModel,
) (domain.ExecutionResult, bool) {
	levels := book.Levels(side)
	if len(levels) == 0 || requestedSize <= 0 {
		return domain.ExecutionResult{}, false
	}

	offset := latency.BaseCost() + s.adverseDraw(latency.AdverseStd)

	filled, avg, used := domain.WalkLevels(levels, requestedSize)
	if filled == 0 {
		return domain.ExecutionResult{}, false
	}

	price := avg + offset
	if side == domain.SideSell {
		price = avg - offset
	}
	price = clamp(price, 0, 1)

	notional := filled * price
	fee := notional * fees.TakerBps / 10000

	return domain.ExecutionResult{
		TokenID:        book.TokenID,
		Side:           side,
		RequestedSize:  requestedSize,
		FilledSize:     filled,
		AvgBookPrice:   avg,
		LatencyOffset:  offset,
		ExecutionPrice: price,
		FeePaid:        fee,
		TotalCost:      notional + fee,
		LevelsConsumed: used,
	}, true
}

// adverseDraw samples N(0, std). A zero std never touches the random source.
func (s *Simulator) adverseDraw(std float64) float64 {
	if std <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.NormFloat64() * std
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
