// Package hooks runs an ordered, synchronous chain of plugins around the trading loop.
//
// Hooks only ever see copies of signals, exits and errors. They have no handle on the
// ledger, the risk manager or the spend guard; the engine applies their verdicts.
package hooks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// DecisionKind is what a hook wants done with a signal.
type DecisionKind int

const (
	Continue DecisionKind = iota
	Skip
	ModifySize // Value multiplies the leg size
	ModifyEdge // Value is the minimum edge the signal must carry
)

func (k DecisionKind) String() string {
	switch k {
	case Skip:
		return "skip"
	case ModifySize:
		return "modify_size"
	case ModifyEdge:
		return "modify_edge"
	default:
		return "continue"
	}
}

// Decision is returned by OnSignal.
type Decision struct {
	Kind   DecisionKind
	Reason string
	Value  float64
}

// Action is returned by OnError.
type Action int

const (
	ActionSkip Action = iota
	ActionRetry
	ActionHalt
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionHalt:
		return "halt"
	default:
		return "skip"
	}
}

// Hook is a plugin. Embed Base to implement only the callbacks you need.
type Hook interface {
	Name() string
	OnSignal(ctx context.Context, s domain.Signal) Decision
	OnTradeComplete(ctx context.Context, e domain.ExitRecord)
	OnError(ctx context.Context, err error) Action
}

// Base provides no-op callbacks.
type Base struct{}

func (Base) OnSignal(context.Context, domain.Signal) Decision   { return Decision{Kind: Continue} }
func (Base) OnTradeComplete(context.Context, domain.ExitRecord) {}
func (Base) OnError(context.Context, error) Action              { return ActionSkip }

// Verdict is the combined outcome of every hook for one signal.
type Verdict struct {
	Skip       bool
	SkippedBy  string
	Reason     string
	SizeFactor float64
	MinEdge    float64
}

// Allows reports whether the signal survives the verdict.
func (v Verdict) Allows(s domain.Signal) bool {
	return !v.Skip && s.Edge >= v.MinEdge
}

// Pipeline evaluates hooks in registration order.
type Pipeline struct {
	hooks []Hook
}

// NewPipeline builds a pipeline; nil hooks are dropped.
func NewPipeline(hs ...Hook) *Pipeline {
	p := &Pipeline{}
	for _, h := range hs {
		if h != nil {
			p.hooks = append(p.hooks, h)
		}
	}
	return p
}

// Len returns the number of registered hooks.
func (p *Pipeline) Len() int {
	if p == nil {
		return 0
	}
	return len(p.hooks)
}

// Names returns the hook names in order.
func (p *Pipeline) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.hooks))
	for i, h := range p.hooks {
		names[i] = h.Name()
	}
	return names
}

// Signal runs OnSignal through the chain. The first Skip stops evaluation; size factors
// multiply and edge floors keep the highest.
func (p *Pipeline) Signal(ctx context.Context, s domain.Signal) Verdict {
	v := Verdict{SizeFactor: 1}
	if p == nil {
		return v
	}

	for _, h := range p.hooks {
		d := h.OnSignal(ctx, s)
		switch d.Kind {
		case Skip:
			v.Skip = true
			v.SkippedBy = h.Name()
			v.Reason = d.Reason
			return v
		case ModifySize:
			if d.Value < 0 {
				d.Value = 0
			}
			v.SizeFactor *= d.Value
		case ModifyEdge:
			if d.Value > v.MinEdge {
				v.MinEdge = d.Value
			}
		}
	}
	return v
}

// TradeComplete hands a copy of the exit to every hook.
func (p *Pipeline) TradeComplete(ctx context.Context, e domain.ExitRecord) {
	if p == nil {
		return
	}
	for _, h := range p.hooks {
		h.OnTradeComplete(ctx, e)
	}
}

// Error asks every hook and returns the most severe action (Halt > Retry > Skip).
func (p *Pipeline) Error(ctx context.Context, err error) Action {
	if p == nil || err == nil {
		return ActionSkip
	}

	action := ActionSkip
	for _, h := range p.hooks {
		a := h.OnError(ctx, err)
		if a > action {
			action = a
		}
		if a == ActionHalt {
			slog.Warn("hook requested halt", "hook", h.Name(), "error", err)
		}
	}
	return action
}

// isHalt reports whether err is a risk halt rather than a data problem.
func isHalt(err error) bool {
	return errors.Is(err, domain.ErrRiskHalt)
}
