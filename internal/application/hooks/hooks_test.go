package hooks_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alejandrodnm/arbishark/internal/application/hooks"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/domain/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fixedHook struct {
	hooks.Base
	name     string
	decision hooks.Decision
	action   hooks.Action
	calls    *[]string
}

func (f fixedHook) Name() string { return f.name }

func (f fixedHook) OnSignal(context.Context, domain.Signal) hooks.Decision {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	return f.decision
}

func (f fixedHook) OnError(context.Context, error) hooks.Action { return f.action }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

var sig = domain.Signal{MarketID: "m1", Spread: 0.03, Edge: 0.03, Side: domain.SideBuy, PriceSum: 0.97}

// --- Pipeline ---

func TestPipeline_Signal_EmptyContinues(t *testing.T) {
	v := hooks.NewPipeline().Signal(context.Background(), sig)

	assert.False(t, v.Skip)
	assert.Equal(t, 1.0, v.SizeFactor)
	assert.Zero(t, v.MinEdge)
	assert.True(t, v.Allows(sig))
}

func TestPipeline_Signal_NilPipeline(t *testing.T) {
	var p *hooks.Pipeline
	assert.True(t, p.Signal(context.Background(), sig).Allows(sig))
	assert.Equal(t, hooks.ActionSkip, p.Error(context.Background(), errors.New("x")))
	assert.Zero(t, p.Len())
}

func TestPipeline_Signal_FirstSkipWins(t *testing.T) {
	var calls []string
	p := hooks.NewPipeline(
		fixedHook{name: "a", decision: hooks.Decision{Kind: hooks.ModifySize, Value: 0.5}, calls: &calls},
		fixedHook{name: "b", decision: hooks.Decision{Kind: hooks.Skip, Reason: "nope"}, calls: &calls},
		fixedHook{name: "c", decision: hooks.Decision{Kind: hooks.Continue}, calls: &calls},
	)

	v := p.Signal(context.Background(), sig)

	assert.True(t, v.Skip)
	assert.Equal(t, "b", v.SkippedBy)
	assert.Equal(t, "nope", v.Reason)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.False(t, v.Allows(sig))
}

func TestPipeline_Signal_CombinesSizeAndEdge(t *testing.T) {
	p := hooks.NewPipeline(
		fixedHook{name: "half", decision: hooks.Decision{Kind: hooks.ModifySize, Value: 0.5}},
		fixedHook{name: "edge1", decision: hooks.Decision{Kind: hooks.ModifyEdge, Value: 0.02}},
		fixedHook{name: "half2", decision: hooks.Decision{Kind: hooks.ModifySize, Value: 0.5}},
		fixedHook{name: "edge2", decision: hooks.Decision{Kind: hooks.ModifyEdge, Value: 0.01}},
	)

	v := p.Signal(context.Background(), sig)

	assert.False(t, v.Skip)
	assert.InDelta(t, 0.25, v.SizeFactor, 1e-12)
	assert.InDelta(t, 0.02, v.MinEdge, 1e-12)
	assert.True(t, v.Allows(sig))
	assert.False(t, v.Allows(domain.Signal{Edge: 0.015}))
}

func TestPipeline_Error_MostSevereAction(t *testing.T) {
	p := hooks.NewPipeline(
		fixedHook{name: "a", action: hooks.ActionRetry},
		fixedHook{name: "b", action: hooks.ActionHalt},
		fixedHook{name: "c", action: hooks.ActionSkip},
	)

	assert.Equal(t, hooks.ActionHalt, p.Error(context.Background(), errors.New("boom")))
	assert.Equal(t, []string{"a", "b", "c"}, p.Names())
}

// --- Built-ins ---

func TestAdaptiveEdge_FollowsRemainingAllowance(t *testing.T) {
	remaining := 1.0
	h := hooks.NewAdaptiveEdge(strategy.DefaultConfig(), func() float64 { return remaining })

	d := h.OnSignal(context.Background(), sig)
	assert.Equal(t, hooks.ModifyEdge, d.Kind)
	assert.Equal(t, 0.01, d.Value)
	assert.Equal(t, "aggressive", d.Reason)

	remaining = 0.5
	assert.Equal(t, 0.02, h.OnSignal(context.Background(), sig).Value)

	remaining = 0.1
	assert.Equal(t, 0.05, h.OnSignal(context.Background(), sig).Value)

	// con edge 0.03 y modo conservative la señal no pasa
	v := hooks.NewPipeline(h).Signal(context.Background(), sig)
	assert.False(t, v.Allows(sig))
}

func TestBlocklist(t *testing.T) {
	h := hooks.NewBlocklist([]string{"m1"})

	assert.Equal(t, hooks.Skip, h.OnSignal(context.Background(), sig).Kind)
	assert.Equal(t, hooks.Continue, h.OnSignal(context.Background(), domain.Signal{MarketID: "m2"}).Kind)
}

func TestNotify_ForwardsExitsAndErrors(t *testing.T) {
	n := &recordingNotifier{}
	h := hooks.NewNotify(n)

	h.OnTradeComplete(context.Background(), domain.ExitRecord{
		Position: domain.Position{MarketID: "m1", TokenID: "t1", Size: 10},
		Reason:   domain.ExitTakeProfit,
		PnL:      0.33,
	})
	action := h.OnError(context.Background(), fmt.Errorf("%w: Circuit breaker activated", domain.ErrRiskHalt))

	assert.Equal(t, hooks.ActionSkip, action)
	require.Len(t, n.sent, 2)
	assert.Equal(t, "info", n.sent[0].Level)
	assert.Contains(t, n.sent[0].Title, "TAKE_PROFIT")
	assert.Contains(t, n.sent[0].Message, "pnl $0.3300")
	assert.Equal(t, "Trading halted", n.sent[1].Title)
	assert.False(t, n.sent[1].At.IsZero())
}

func TestNotify_NotifierErrorDoesNotPropagate(t *testing.T) {
	n := &recordingNotifier{err: errors.New("webhook down")}
	h := hooks.NewNotify(n)

	assert.NotPanics(t, func() {
		h.OnTradeComplete(context.Background(), domain.ExitRecord{PnL: -1})
	})
	require.Len(t, n.sent, 1)
	assert.Equal(t, "warn", n.sent[0].Level)
}
