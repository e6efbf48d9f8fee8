package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/domain/strategy"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

// AdaptiveEdge raises the minimum edge as the daily allowance runs out.
type AdaptiveEdge struct {
	Base
	cfg       strategy.Config
	remaining func() float64
}

// NewAdaptiveEdge reads the remaining allowance fraction through remaining on every signal.
func NewAdaptiveEdge(cfg strategy.Config, remaining func() float64) *AdaptiveEdge {
	return &AdaptiveEdge{cfg: cfg, remaining: remaining}
}

func (a *AdaptiveEdge) Name() string { return "adaptive_edge" }

func (a *AdaptiveEdge) OnSignal(_ context.Context, _ domain.Signal) Decision {
	mode := a.cfg.Select(a.remaining())
	return Decision{
		Kind:   ModifyEdge,
		Reason: string(mode),
		Value:  a.cfg.MinEdge(mode),
	}
}

// Blocklist vetoes signals on the configured markets.
type Blocklist struct {
	Base
	blocked map[string]struct{}
}

func NewBlocklist(marketIDs []string) *Blocklist {
	b := &Blocklist{blocked: make(map[string]struct{}, len(marketIDs))}
	for _, id := range marketIDs {
		b.blocked[id] = struct{}{}
	}
	return b
}

func (b *Blocklist) Name() string { return "blocklist" }

func (b *Blocklist) OnSignal(_ context.Context, s domain.Signal) Decision {
	if _, ok := b.blocked[s.MarketID]; ok {
		return Decision{Kind: Skip, Reason: "market blocked"}
	}
	return Decision{Kind: Continue}
}

// Notify forwards closed positions, halts and errors to a notifier.
type Notify struct {
	Base
	notifier ports.Notifier
	now      func() time.Time
}

func NewNotify(n ports.Notifier) *Notify {
	return &Notify{notifier: n, now: time.Now}
}

func (n *Notify) Name() string { return "notify" }

func (n *Notify) OnTradeComplete(ctx context.Context, e domain.ExitRecord) {
	level := "info"
	if !e.Win() {
		level = "warn"
	}
	n.send(ctx, domain.Notification{
		Level: level,
		Title: fmt.Sprintf("Position closed: %s", e.Reason),
		Message: fmt.Sprintf("market %s token %s size %.2f exit $%.4f pnl $%.4f",
			e.Position.MarketID, e.Position.TokenID, e.Position.Size, e.ExitPrice, e.PnL),
	})
}

func (n *Notify) OnError(ctx context.Context, err error) Action {
	title := "Cycle error"
	if isHalt(err) {
		title = "Trading halted"
	}
	n.send(ctx, domain.Notification{Level: "error", Title: title, Message: err.Error()})
	return ActionSkip
}

func (n *Notify) send(ctx context.Context, msg domain.Notification) {
	msg.At = n.now()
	if err := n.notifier.Notify(ctx, msg); err != nil {
		slog.Warn("notification failed", "title", msg.Title, "error", err)
	}
}
