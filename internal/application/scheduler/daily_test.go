package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/arbishark/internal/application/guard"
	"github.com/alejandrodnm/arbishark/internal/application/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedAllowance struct {
	amount float64
	err    error
}

func (f fixedAllowance) DailyAllowance(context.Context) (float64, error) {
	return f.amount, f.err
}

func TestNextMidnight(t *testing.T) {
	at := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), NextMidnight(at))

	midnight := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), NextMidnight(midnight))

	madrid := time.FixedZone("CET", 3600)
	local := time.Date(2026, 4, 1, 0, 30, 0, 0, madrid) // 23:30 UTC del día anterior
	assert.Equal(t, midnight, NextMidnight(local))
}

func TestDaily_Reset(t *testing.T) {
	g := guard.New("perm", 10)
	rm := risk.New(100, risk.DefaultConfig())
	require.NoError(t, g.RecordSpend(8))
	rm.RecordTrade(-3)

	NewDaily(g, rm, fixedAllowance{amount: 25}, true).Reset(context.Background())

	assert.Zero(t, g.Snapshot().SpentToday)
	assert.Equal(t, 25.0, g.Snapshot().DailyLimit)
	assert.Zero(t, rm.Status().DailyLoss)
	assert.InDelta(t, 97, rm.Status().Balance, 1e-12)
}

func TestDaily_RefreshAllowance_ErrorPolicy(t *testing.T) {
	boom := errors.New("rpc down")

	g := guard.New("perm", 10)
	err := NewDaily(g, risk.New(100, risk.DefaultConfig()), fixedAllowance{err: boom}, true).
		RefreshAllowance(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Zero(t, g.Snapshot().DailyLimit)
	assert.False(t, g.CanSpend(0.01))

	g = guard.New("perm", 10)
	err = NewDaily(g, risk.New(100, risk.DefaultConfig()), fixedAllowance{err: boom}, false).
		RefreshAllowance(context.Background())
	require.Error(t, err)
	assert.Equal(t, 10.0, g.Snapshot().DailyLimit)
}

func TestDaily_RefreshAllowance_NoSource(t *testing.T) {
	g := guard.New("perm", 10)
	d := NewDaily(g, risk.New(100, risk.DefaultConfig()), nil, true)

	assert.NoError(t, d.RefreshAllowance(context.Background()))
	assert.Equal(t, 10.0, g.Snapshot().DailyLimit)
}

func TestDaily_Run_ResetsOnTick(t *testing.T) {
	g := guard.New("perm", 10)
	require.NoError(t, g.RecordSpend(4))

	d := NewDaily(g, risk.New(100, risk.DefaultConfig()), nil, true)
	ticks := make(chan time.Time)
	var waits []time.Duration
	d.now = func() time.Time { return time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC) }
	d.after = func(w time.Duration) <-chan time.Time {
		waits = append(waits, w)
		return ticks
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	ticks <- time.Time{}
	// el segundo after se registra antes de cancelar: Run ya volvió a esperar
	ticks <- time.Time{}
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, g.Snapshot().SpentToday)
	require.GreaterOrEqual(t, len(waits), 2)
	assert.Equal(t, 2*time.Hour, waits[0])
}
