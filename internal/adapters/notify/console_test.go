package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/arbishark/internal/adapters/notify"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_Notify(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	err := c.Notify(context.Background(), domain.Notification{
		Level:   "warn",
		Title:   "Position closed: STOP_LOSS",
		Message: "pnl $-0.8000",
		At:      time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "[12:30:00] WARN")
	assert.Contains(t, out, "Position closed: STOP_LOSS: pnl $-0.8000")
}

func TestConsole_PrintCycle_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintCycle(notify.CycleInput{
		Summary: domain.CycleSummary{Backend: "mock", Markets: 2, Signals: 1, Opened: 2, Skipped: 3},
		Skipped: map[string]int{"edge": 2, "allowance": 1},
		Budget:  domain.BudgetSnapshot{DailyLimit: 100, SpentToday: 9.18},
		Opened:  []domain.Position{{MarketID: "0x123", TokenID: "a"}},
	})

	out := buf.String()
	assert.Contains(t, out, "[mock] 2 mkts → 1 signals | +2 legs")
	assert.Contains(t, out, "budget $9.18/$100.00")
	assert.Contains(t, out, "(allowance:1 edge:2)")
	assert.NotContains(t, out, "Token", "sin modo tabla no hay detalle")
}

func TestConsole_PrintCycle_TableAndHalt(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.PrintCycle(notify.CycleInput{
		Summary: domain.CycleSummary{Backend: "gamma", Exits: 1, Halted: true},
		Risk:    domain.RiskStatus{Halted: true, HaltReason: "daily loss limit"},
		Exits: []domain.ExitRecord{{
			Position:  domain.Position{MarketID: "0xabcdef0123456789", TokenID: "a", Size: 10, EntryPrice: 0.45},
			Reason:    domain.ExitTakeProfit,
			ExitPrice: 0.55,
			PnL:       0.95,
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "HALTED: daily loss limit")
	assert.Contains(t, out, "TAKE_PROFIT")
	assert.Contains(t, out, "$0.9500")
	assert.Contains(t, out, "0xabcdef0123...")
}

func TestConsole_PrintCycle_Error(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	c.PrintCycle(notify.CycleInput{
		Summary: domain.CycleSummary{Backend: "indexer"},
		Err:     errors.New("boom"),
	})
	assert.Contains(t, buf.String(), "cycle failed: boom")
}

func TestConsole_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.PrintReport(domain.JournalStats{
		StartDate:   day,
		EndDate:     day,
		DaysRunning: 1,
		Positions:   2,
		Exits:       2,
		Wins:        1,
		WinRate:     0.5,
		TotalPnL:    0.3,
		ByReason:    map[domain.ExitReason]int{domain.ExitTakeProfit: 1, domain.ExitStopLoss: 1},
		Dailies:     []domain.DailySummary{{Date: day, Opened: 2, Exits: 2, Wins: 1, PnL: 0.3}},
	})

	out := buf.String()
	assert.Contains(t, out, "2026-03-01 to 2026-03-01 (1 days)")
	assert.Contains(t, out, "Win rate:              50.0%")
	assert.Contains(t, out, "STOP_LOSS:")
	assert.Contains(t, out, "03-01")
}

func TestConsole_PrintReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintReport(domain.JournalStats{})
	assert.Contains(t, buf.String(), "No trading data yet")
}

func TestConsole_PrintStatus(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintStatus(
		domain.DashboardStats{Connected: true, TotalTrades: 4, WinRate: 75, TotalPnL: 1.25},
		domain.RiskStatus{Balance: 1001.25, PeakBalance: 1001.25},
		domain.BudgetSnapshot{PermissionID: "perm-1", Active: true, DailyLimit: 100, SpentToday: 20, Remaining: 80},
	)

	out := buf.String()
	assert.Contains(t, out, "perm-1 (active=true)")
	assert.Contains(t, out, "$20.00 spent of $100.00 ($80.00 left)")
	assert.Contains(t, out, "4 (win rate 75.0%)")
}
