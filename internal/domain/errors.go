package domain

import "errors"

var (
	// ErrFetch marks a recoverable market or book fetch failure.
	ErrFetch = errors.New("market data fetch failed")
	// ErrNoFill is returned when the book side is empty or nothing could be filled.
	ErrNoFill = errors.New("no fill")
	// ErrInsufficientAllowance is returned when a cost does not fit in the daily budget.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrRiskHalt is returned while the risk gate is halted.
	ErrRiskHalt = errors.New("trading halted")
	// ErrRiskRejected is returned when a single trade breaks a size or liquidity limit.
	ErrRiskRejected = errors.New("trade rejected by risk limits")
	// ErrSellUnsupported marks signals on overpriced bundles, which are not traded.
	ErrSellUnsupported = errors.New("sell-side bundle arbitrage not supported")
	// ErrSafeMode is returned by cycles skipped while the engine cools down.
	ErrSafeMode = errors.New("engine in safe mode")
)
