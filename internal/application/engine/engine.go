// Package engine drives the trading cycle: fetch a snapshot, close positions whose
// exit conditions fired, then open new bundles on fresh signals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/arbishark/internal/application/execution"
	"github.com/alejandrodnm/arbishark/internal/application/guard"
	"github.com/alejandrodnm/arbishark/internal/application/hooks"
	"github.com/alejandrodnm/arbishark/internal/application/ledger"
	"github.com/alejandrodnm/arbishark/internal/application/risk"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultFetchTimeout = 10 * time.Second
)

// Config holds the trading loop settings.
type Config struct {
	MinSpreadThreshold float64
	MinProfitThreshold float64
	TradeSize          float64 // shares per leg before hook scaling
	MaxPositionValue   float64 // USDC cap per leg
	TakerFeeBps        float64 // used when a market reports no fee
	Latency            execution.LatencyModel
	PollInterval       time.Duration
	FetchTimeout       time.Duration
	MaxDataDelay       time.Duration // 0 disables the feed health check
}

// Engine owns one cooperative trading loop. It holds references to the ledger, the
// risk manager and the spend guard but never calls one while holding another's lock.
type Engine struct {
	source   ports.MarketDataSource
	ledger   *ledger.Ledger
	risk     *risk.Manager
	guard    *guard.SpendGuard
	sim      *execution.Simulator
	detector domain.Detector
	cfg      Config

	journal ports.TradeJournal
	metrics ports.MetricsRecorder
	hooks   *hooks.Pipeline
	safe    *SafeMode
	now     func() time.Time

	connected atomic.Bool
	wasHalted bool
	onCycle   func(*CycleResult, error)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithJournal persists positions, exits, spends and cycles.
func WithJournal(j ports.TradeJournal) Option {
	return func(e *Engine) {
		if j != nil {
			e.journal = j
		}
	}
}

// WithMetrics reports to a metrics backend.
func WithMetrics(m ports.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithHooks installs the plugin pipeline.
func WithHooks(p *hooks.Pipeline) Option {
	return func(e *Engine) { e.hooks = p }
}

// WithSafeMode installs the consecutive-failure breaker.
func WithSafeMode(s *SafeMode) Option {
	return func(e *Engine) {
		if s != nil {
			e.safe = s
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCycleObserver is called after every cycle run by Run.
func WithCycleObserver(fn func(*CycleResult, error)) Option {
	return func(e *Engine) { e.onCycle = fn }
}

// New creates an engine.
func New(
	source ports.MarketDataSource,
	lg *ledger.Ledger,
	rm *risk.Manager,
	g *guard.SpendGuard,
	sim *execution.Simulator,
	cfg Config,
	opts ...Option,
) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	e := &Engine{
		source:   source,
		ledger:   lg,
		risk:     rm,
		guard:    g,
		sim:      sim,
		detector: domain.Detector{Threshold: cfg.MinSpreadThreshold},
		cfg:      cfg,
		journal:  noopJournal{},
		metrics:  noopMetrics{},
		safe:     NewSafeMode(0, 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connected reports whether the last market fetch succeeded.
func (e *Engine) Connected() bool {
	return e.connected.Load()
}

// CycleResult contains everything produced by one cycle.
type CycleResult struct {
	StartedAt  time.Time
	Duration   time.Duration
	Markets    int
	Signals    []domain.Signal
	Opened     []domain.Position
	Exits      []domain.ExitRecord
	Skipped    map[string]int // reason → count
	Halted     bool
	HaltReason string
	FeedStale  bool
}

// SkippedTotal sums the skipped signals over every reason.
func (r *CycleResult) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Summary projects the result into the row persisted by the journal.
func (r *CycleResult) Summary(backend string, err error) domain.CycleSummary {
	summary := domain.CycleSummary{
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Backend:   backend,
		Markets:   r.Markets,
		Signals:   len(r.Signals),
		Opened:    len(r.Opened),
		Exits:     len(r.Exits),
		Skipped:   r.SkippedTotal(),
		Halted:    r.Halted,
	}
	if err != nil {
		summary.Err = err.Error()
	}
	return summary
}

func (r *CycleResult) skip(reason string) {
	r.Skipped[reason]++
}

// RunOnce executes a single cycle. Fetch failures end the cycle with an error wrapping
// domain.ErrFetch; everything after the market fetch is logged and skipped per signal.
func (e *Engine) RunOnce(ctx context.Context) (res *CycleResult, err error) {
	start := e.now()
	res = &CycleResult{StartedAt: start, Skipped: make(map[string]int)}
	defer func() {
		res.Duration = e.now().Sub(start)
		e.finishCycle(ctx, res, err)
	}()

	if e.safe.Active(start) {
		return res, fmt.Errorf("engine.RunOnce: %w until %s",
			domain.ErrSafeMode, e.safe.Until().Format(time.TimeOnly))
	}

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	markets, err := e.source.FetchMarkets(fctx)
	cancel()
	if err != nil {
		e.connected.Store(false)
		if e.safe.RecordFailure(start) {
			slog.Error("entering safe mode after consecutive fetch failures",
				"until", e.safe.Until().Format(time.TimeOnly))
		} else {
			slog.Debug("fetch failure recorded", "streak", e.safe.Failures())
		}
		err = fmt.Errorf("engine.RunOnce: fetch markets: %w: %w", domain.ErrFetch, err)
		e.applyAction(ctx, err)
		return res, err
	}
	e.safe.RecordSuccess()
	e.connected.Store(true)
	res.Markets = len(markets)

	canOpen := e.checkFeed(ctx, res)

	e.processExits(ctx, markets, res)

	if halted, reason := e.risk.ShouldHalt(); halted {
		res.Halted, res.HaltReason = true, reason
		canOpen = false
		if !e.wasHalted {
			slog.Warn("risk gate halted new trades", "reason", reason)
			e.hooks.Error(ctx, fmt.Errorf("%w: %s", domain.ErrRiskHalt, reason))
		}
	}
	e.wasHalted = res.Halted
	e.metrics.SetHalted(res.Halted)

	res.Signals = e.detector.Scan(markets)
	for _, s := range res.Signals {
		e.metrics.SignalDetected(s.Side)
	}
	if !canOpen {
		return res, nil
	}

	byID := domain.IndexMarkets(markets)
	for _, s := range res.Signals {
		if ctx.Err() != nil {
			break
		}
		e.handleSignal(ctx, s, byID[s.MarketID], res)
	}
	return res, nil
}

// Run executes cycles every poll interval until ctx is done. Cancellation is only
// observed between cycles.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started",
		"backend", e.source.Name(),
		"poll", e.cfg.PollInterval,
		"hooks", e.hooks.Names(),
	)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		res, err := e.RunOnce(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("cycle failed", "err", err)
		}
		if e.onCycle != nil {
			e.onCycle(res, err)
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "trades", e.ledger.TradeCount(),
				"pnl", fmt.Sprintf("$%.4f", e.ledger.TotalPnL()))
			return nil
		case <-ticker.C:
		}
	}
}

// checkFeed reports whether the backend data is fresh enough to open positions.
func (e *Engine) checkFeed(ctx context.Context, res *CycleResult) bool {
	hr, ok := e.source.(ports.HealthReporter)
	if !ok || e.cfg.MaxDataDelay <= 0 {
		return true
	}

	fctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	health, err := hr.Health(fctx)
	cancel()
	if err != nil {
		slog.Warn("feed health check failed, no opens this cycle", "err", err)
		res.FeedStale = true
		return false
	}
	if health.DataDelay > e.cfg.MaxDataDelay {
		slog.Warn("feed data too old, no opens this cycle",
			"delay", health.DataDelay, "max", e.cfg.MaxDataDelay, "block", health.BlockNumber)
		res.FeedStale = true
		return false
	}
	return true
}

func (e *Engine) processExits(ctx context.Context, markets []domain.Market, res *CycleResult) {
	defaultFeeRate := domain.FeeSchedule{TakerBps: e.cfg.TakerFeeBps}.TakerRate()
	res.Exits = e.ledger.CheckExits(markets, e.now(), defaultFeeRate)

	for _, x := range res.Exits {
		e.risk.RecordTrade(x.PnL)
		if err := e.journal.SaveExit(ctx, x); err != nil {
			slog.Warn("journal: save exit failed", "position", x.Position.ID, "err", err)
		}
		e.metrics.PositionClosed(x.Reason, x.PnL)
		slog.Info("position closed",
			"market", x.Position.MarketID,
			"token", x.Position.TokenID,
			"reason", x.Reason,
			"exit", fmt.Sprintf("$%.4f", x.ExitPrice),
			"pnl", fmt.Sprintf("$%.4f", x.PnL),
		)
		e.hooks.TradeComplete(ctx, x)
	}
}

// applyAction asks the hooks what to do about err. Halt trips the circuit breaker.
func (e *Engine) applyAction(ctx context.Context, err error) {
	if e.hooks.Error(ctx, err) == hooks.ActionHalt {
		e.risk.SetCircuitBreaker(true)
	}
}

func (e *Engine) finishCycle(ctx context.Context, res *CycleResult, err error) {
	e.metrics.ObserveCycle(e.source.Name(), res.Duration, err)
	e.metrics.SetOpenPositions(len(e.ledger.Positions()))
	budget := e.guard.Snapshot()
	e.metrics.SetBudget(budget.SpentToday, budget.Remaining)

	// los ciclos en safe mode no se registran: no hubo fetch
	if errors.Is(err, domain.ErrSafeMode) {
		return
	}

	summary := res.Summary(e.source.Name(), err)
	if jerr := e.journal.SaveCycle(ctx, summary); jerr != nil {
		slog.Warn("journal: save cycle failed", "err", jerr)
	}
}
