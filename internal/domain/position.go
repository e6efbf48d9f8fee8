package domain

import "time"

// PositionStatus is the lifecycle state of a position. OPEN → CLOSED is the only transition.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason names the trigger that closed a position.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTimeout    ExitReason = "TIMEOUT"
)

// Position is one filled leg of a bundle.
type Position struct {
	ID          string
	MarketID    string
	TokenID     string
	Side        Side
	Size        float64 // filled shares
	EntryPrice  float64 // execution price including latency offset
	EntryCost   float64 // total cost paid including fee
	EntryTime   time.Time
	EntrySpread float64 // signed deviation (1 - sum) at entry
	FeeBps      float64 // taker fee charged at entry, reused on exit
	Status      PositionStatus
}

// Age returns how long the position has been open at now.
func (p Position) Age(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}

// ExitRecord is created exactly once when a position closes. PnL is never recomputed.
type ExitRecord struct {
	Position  Position
	Reason    ExitReason
	ExitPrice float64
	ExitFee   float64
	PnL       float64
	ClosedAt  time.Time
}

// Win reports whether the exit realized a strictly positive P&L.
func (e ExitRecord) Win() bool {
	return e.PnL > 0
}

// LedgerStats is a consistent copy of the ledger aggregates.
type LedgerStats struct {
	Open       []Position
	Closed     []ExitRecord
	TradeCount int
	Wins       int
	WinRate    float64 // fraction in [0,1]
	TotalPnL   float64
}
