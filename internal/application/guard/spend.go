// Package guard enforces the daily spending allowance.
//
// Amounts are kept as decimals so that spent_today grows by exactly the recorded
// amount and the limit comparison is free of float drift.
package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// SpendGuard owns the daily budget behind one RWMutex.
// It never resets itself; a scheduler outside the guard calls Reset.
type SpendGuard struct {
	mu           sync.RWMutex
	permissionID string
	active       bool
	limit        decimal.Decimal
	spent        decimal.Decimal
	lastReset    time.Time
}

// New returns an active guard with the given daily limit in USDC.
func New(permissionID string, dailyLimit float64) *SpendGuard {
	return &SpendGuard{
		permissionID: permissionID,
		active:       true,
		limit:        decimal.NewFromFloat(dailyLimit),
		lastReset:    time.Now().UTC(),
	}
}

// CanSpend reports whether amount fits in what is left of today's allowance.
func (g *SpendGuard) CanSpend(amount float64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fitsLocked(decimal.NewFromFloat(amount))
}

func (g *SpendGuard) fitsLocked(amount decimal.Decimal) bool {
	if !g.active || amount.IsNegative() {
		return false
	}
	return g.spent.Add(amount).LessThanOrEqual(g.limit)
}

// RecordSpend adds amount to spent_today. Call it only after a matching fill.
// It refuses amounts that would break the limit so the budget can never be overdrawn.
func (g *SpendGuard) RecordSpend(amount float64) error {
	d := decimal.NewFromFloat(amount)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.fitsLocked(d) {
		return fmt.Errorf("guard.RecordSpend: $%s on top of $%s exceeds $%s: %w",
			d.StringFixed(2), g.spent.StringFixed(2), g.limit.StringFixed(2),
			domain.ErrInsufficientAllowance)
	}
	g.spent = g.spent.Add(d)
	return nil
}

// Reset zeroes spent_today.
func (g *SpendGuard) Reset() {
	g.mu.Lock()
	g.spent = decimal.Zero
	g.lastReset = time.Now().UTC()
	g.mu.Unlock()
}

// Grant installs a new permission with its daily limit and reactivates the guard.
// What was already spent today still counts against the new limit.
func (g *SpendGuard) Grant(permissionID string, dailyLimit float64) {
	g.mu.Lock()
	g.permissionID = permissionID
	g.limit = decimal.NewFromFloat(dailyLimit)
	g.active = true
	g.mu.Unlock()
}

// SetLimit changes the daily limit without touching the permission state.
func (g *SpendGuard) SetLimit(dailyLimit float64) {
	g.mu.Lock()
	g.limit = decimal.NewFromFloat(dailyLimit)
	g.mu.Unlock()
}

// Revoke deactivates the permission; CanSpend is false until the next Grant.
func (g *SpendGuard) Revoke() {
	g.mu.Lock()
	g.active = false
	g.mu.Unlock()
}

// Snapshot returns a consistent copy of the budget.
func (g *SpendGuard) Snapshot() domain.BudgetSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := g.limit.Sub(g.spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return domain.BudgetSnapshot{
		PermissionID: g.permissionID,
		Active:       g.active,
		DailyLimit:   g.limit.InexactFloat64(),
		SpentToday:   g.spent.InexactFloat64(),
		Remaining:    remaining.InexactFloat64(),
		LastReset:    g.lastReset,
	}
}

// RemainingFraction is remaining / limit in [0,1]; 0 when inactive or the limit is zero.
func (g *SpendGuard) RemainingFraction() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.active || !g.limit.IsPositive() {
		return 0
	}
	f := g.limit.Sub(g.spent).Div(g.limit).InexactFloat64()
	if f < 0 {
		return 0
	}
	return f
}
