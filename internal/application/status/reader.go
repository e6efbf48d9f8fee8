// Package status projects the trading components into the dashboard read model.
package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbishark/internal/application/guard"
	"github.com/alejandrodnm/arbishark/internal/application/ledger"
	"github.com/alejandrodnm/arbishark/internal/application/risk"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

const persistTimeout = 2 * time.Second

// Reader answers snapshot queries and forwards operator actions. Every method copies
// state from one component at a time; none of them blocks on I/O.
type Reader struct {
	ledger    *ledger.Ledger
	risk      *risk.Manager
	guard     *guard.SpendGuard
	connected func() bool
	breakers  ports.BreakerStore
}

// Option customizes a Reader.
type Option func(*Reader)

// WithBreakerStore persists operator circuit-breaker changes.
func WithBreakerStore(s ports.BreakerStore) Option {
	return func(r *Reader) { r.breakers = s }
}

// NewReader builds a reader. connected may be nil when no engine is running.
func NewReader(l *ledger.Ledger, r *risk.Manager, g *guard.SpendGuard, connected func() bool, opts ...Option) *Reader {
	if connected == nil {
		connected = func() bool { return false }
	}
	rd := &Reader{ledger: l, risk: r, guard: g, connected: connected}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// RestoreCircuitBreaker re-applies the breaker state saved before a restart.
func (r *Reader) RestoreCircuitBreaker(ctx context.Context) error {
	if r.breakers == nil {
		return nil
	}
	active, err := r.breakers.LoadCircuitBreaker(ctx)
	if err != nil {
		return err
	}
	if active {
		r.risk.SetCircuitBreaker(true)
		slog.Warn("circuit breaker restored from journal")
	}
	return nil
}

func (r *Reader) Stats() domain.DashboardStats {
	budget := r.guard.Snapshot()
	snap := r.ledger.Snapshot()
	return domain.DashboardStats{
		Connected:        r.connected(),
		PermissionActive: budget.Active,
		DailyLimit:       budget.DailyLimit,
		SpentToday:       budget.SpentToday,
		TotalTrades:      snap.TradeCount,
		WinRate:          snap.WinRate * 100,
		TotalPnL:         snap.TotalPnL,
		OpenPositions:    len(snap.Open),
	}
}

func (r *Reader) Trades() []domain.TradeView {
	open := r.ledger.Positions()
	out := make([]domain.TradeView, 0, len(open))
	for _, p := range open {
		out = append(out, domain.NewTradeView(p))
	}
	return out
}

func (r *Reader) Exits() []domain.ExitView {
	closed := r.ledger.Closed()
	out := make([]domain.ExitView, 0, len(closed))
	for _, e := range closed {
		out = append(out, domain.NewExitView(e))
	}
	return out
}

func (r *Reader) Risk() domain.RiskStatus {
	return r.risk.Status()
}

func (r *Reader) Budget() domain.BudgetSnapshot {
	return r.guard.Snapshot()
}

// GrantPermission installs a new daily permission.
func (r *Reader) GrantPermission(permissionID string, dailyLimit float64) {
	r.guard.Grant(permissionID, dailyLimit)
	slog.Info("permission granted", "id", permissionID, "daily_limit", dailyLimit)
}

// RevokePermission stops all new spending.
func (r *Reader) RevokePermission() {
	r.guard.Revoke()
	slog.Warn("permission revoked")
}

// SetCircuitBreaker sets the explicit risk halt.
func (r *Reader) SetCircuitBreaker(active bool) {
	r.risk.SetCircuitBreaker(active)
	slog.Warn("circuit breaker changed", "active", active)

	if r.breakers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.breakers.SaveCircuitBreaker(ctx, active); err != nil {
		slog.Warn("circuit breaker not persisted", "err", err)
	}
}
