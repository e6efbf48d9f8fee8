// Package scheduler resets the per-day counters at UTC midnight.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbishark/internal/application/guard"
	"github.com/alejandrodnm/arbishark/internal/application/risk"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

// Daily clears spent_today and the daily loss once per UTC day, and refreshes the
// allowance when a source is configured. The guard and the risk manager never look
// at the wall clock themselves.
type Daily struct {
	guard      *guard.SpendGuard
	risk       *risk.Manager
	allowance  ports.AllowanceSource
	assumeZero bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewDaily creates the scheduler. allowance may be nil.
func NewDaily(g *guard.SpendGuard, r *risk.Manager, allowance ports.AllowanceSource, assumeZeroOnError bool) *Daily {
	return &Daily{
		guard:      g,
		risk:       r,
		allowance:  allowance,
		assumeZero: assumeZeroOnError,
		now:        time.Now,
		after:      time.After,
	}
}

// Run blocks until ctx is done, resetting at every UTC midnight.
func (d *Daily) Run(ctx context.Context) error {
	for {
		now := d.now()
		wait := NextMidnight(now).Sub(now)
		slog.Debug("next daily reset", "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return nil
		case <-d.after(wait):
			d.Reset(ctx)
		}
	}
}

// Reset runs one daily reset immediately.
func (d *Daily) Reset(ctx context.Context) {
	d.guard.Reset()
	d.risk.ResetDaily()
	if err := d.RefreshAllowance(ctx); err != nil {
		slog.Warn("allowance refresh failed", "err", err)
	}

	b := d.guard.Snapshot()
	slog.Info("daily reset",
		"daily_limit", fmt.Sprintf("$%.2f", b.DailyLimit),
		"permission_active", b.Active,
	)
}

// RefreshAllowance reads the allowance and installs it as the daily limit. On error
// the limit drops to zero when assumeZero is set and is left alone otherwise.
func (d *Daily) RefreshAllowance(ctx context.Context) error {
	if d.allowance == nil {
		return nil
	}

	amount, err := d.allowance.DailyAllowance(ctx)
	if err != nil {
		if d.assumeZero {
			d.guard.SetLimit(0)
		}
		return fmt.Errorf("scheduler.RefreshAllowance: %w", err)
	}
	d.guard.SetLimit(amount)
	return nil
}

// NextMidnight returns the first UTC midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}
