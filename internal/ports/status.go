package ports

import "github.com/alejandrodnm/arbishark/internal/domain"

// StatusReader answers snapshot queries for the dashboard. Implementations copy
// state under their own locks and never block on I/O.
type StatusReader interface {
	Stats() domain.DashboardStats
	Trades() []domain.TradeView
	Exits() []domain.ExitView
	Risk() domain.RiskStatus
	Budget() domain.BudgetSnapshot
}

// Controller exposes the operator actions the dashboard may take.
type Controller interface {
	GrantPermission(permissionID string, dailyLimit float64)
	RevokePermission()
	SetCircuitBreaker(active bool)
}
