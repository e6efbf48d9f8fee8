package domain

// FeeSchedule holds the fee rates applied to simulated fills, in basis points.
type FeeSchedule struct {
	TakerBps float64
}

// TakerRate returns the taker fee as a fraction of notional.
func (f FeeSchedule) TakerRate() float64 {
	return f.TakerBps / 10000
}

// ExecutionResult is the outcome of one simulated taker fill.
// Downstream bookkeeping must always use FilledSize, never RequestedSize.
type ExecutionResult struct {
	TokenID        string
	Side           Side
	RequestedSize  float64
	FilledSize     float64
	AvgBookPrice   float64 // size-weighted price across consumed levels, before latency
	LatencyOffset  float64 // base latency cost + adverse selection draw
	ExecutionPrice float64
	FeePaid        float64
	TotalCost      float64 // FilledSize*ExecutionPrice + FeePaid
	LevelsConsumed int
}

// Partial reports whether the book ran out before the request was met.
func (r ExecutionResult) Partial() bool {
	return r.FilledSize < r.RequestedSize
}

// Slippage is the per-share cost of walking past the top of the book.
func (r ExecutionResult) Slippage(topOfBook float64) float64 {
	if topOfBook == 0 {
		return 0
	}
	if r.Side == SideSell {
		return topOfBook - r.AvgBookPrice
	}
	return r.AvgBookPrice - topOfBook
}
