package ports

import (
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// MetricsRecorder receives counters and gauges from the trading loop.
type MetricsRecorder interface {
	ObserveCycle(backend string, took time.Duration, err error)
	SignalDetected(side domain.Side)
	SignalSkipped(reason string)
	PositionOpened(cost float64)
	PositionClosed(reason domain.ExitReason, pnl float64)
	SetOpenPositions(n int)
	SetBudget(spent, remaining float64)
	SetHalted(halted bool)
}
