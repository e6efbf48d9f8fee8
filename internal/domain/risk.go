package domain

import "time"

// RiskStatus is a read-only projection of the risk manager state.
type RiskStatus struct {
	Balance           float64 `json:"balance"`
	PeakBalance       float64 `json:"peak_balance"`
	Drawdown          float64 `json:"drawdown"`
	DailyLoss         float64 `json:"daily_loss"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	Volatility        float64 `json:"volatility"`
	RecentTrades      int     `json:"recent_trades"`
	CircuitBreaker    bool    `json:"circuit_breaker"`
	Halted            bool    `json:"halted"`
	HaltReason        string  `json:"halt_reason,omitempty"`
}

// BudgetSnapshot is a read-only projection of the spend guard state.
type BudgetSnapshot struct {
	PermissionID string    `json:"permission_id"`
	Active       bool      `json:"active"`
	DailyLimit   float64   `json:"daily_limit"`
	SpentToday   float64   `json:"spent_today"`
	Remaining    float64   `json:"remaining"`
	LastReset    time.Time `json:"last_reset"`
}

// FeedHealth describes how fresh a market-data backend's data is.
type FeedHealth struct {
	Latency     time.Duration
	BlockNumber uint64
	DataDelay   time.Duration
	Healthy     bool
}
