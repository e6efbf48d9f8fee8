package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/arbishark/config"
	"github.com/alejandrodnm/arbishark/internal/adapters/dashboard"
	"github.com/alejandrodnm/arbishark/internal/adapters/logbuf"
	"github.com/alejandrodnm/arbishark/internal/adapters/marketdata"
	"github.com/alejandrodnm/arbishark/internal/adapters/metrics"
	"github.com/alejandrodnm/arbishark/internal/adapters/notify"
	"github.com/alejandrodnm/arbishark/internal/adapters/onchain"
	"github.com/alejandrodnm/arbishark/internal/adapters/storage"
	"github.com/alejandrodnm/arbishark/internal/application/engine"
	"github.com/alejandrodnm/arbishark/internal/application/execution"
	"github.com/alejandrodnm/arbishark/internal/application/guard"
	"github.com/alejandrodnm/arbishark/internal/application/hooks"
	"github.com/alejandrodnm/arbishark/internal/application/ledger"
	"github.com/alejandrodnm/arbishark/internal/application/risk"
	"github.com/alejandrodnm/arbishark/internal/application/scheduler"
	"github.com/alejandrodnm/arbishark/internal/application/status"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

// app agrupa los componentes ya cableados.
type app struct {
	backend string
	guard   *guard.SpendGuard
	risk    *risk.Manager
	engine  *engine.Engine
	reader  *status.Reader
	daily   *scheduler.Daily
	server  *dashboard.Server // nil si el dashboard está desactivado
	console *notify.Console
}

func newApp(cfg *config.Config, store *storage.SQLiteStorage, ring *logbuf.Ring) (*app, error) {
	backend, err := marketdata.ParseBackend(cfg.API.Backend)
	if err != nil {
		return nil, err
	}
	source, err := marketdata.New(marketdata.Options{
		Backend:     backend,
		GammaBase:   cfg.API.GammaBase,
		CLOBBase:    cfg.API.CLOBBase,
		IndexerURL:  cfg.API.IndexerURL,
		MarketLimit: cfg.API.MarketLimit,
		Seed:        cfg.Timing.Seed,
		MockDrift:   cfg.API.MockDrift,
	})
	if err != nil {
		return nil, err
	}

	lg := ledger.New(ledger.ExitConfig{
		ProfitTargetSpread: cfg.Trading.ProfitTargetSpread,
		StopLossSpread:     cfg.Trading.StopLossSpread,
		Timeout:            cfg.PositionTimeout(),
	})
	rm := risk.New(cfg.Risk.InitialBalance, risk.Config{
		MaxDrawdown:          cfg.Risk.MaxDrawdown,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		VolatilityThreshold:  cfg.Risk.VolatilityThreshold,
		MinLiquidity:         cfg.Risk.MinLiquidity,
		MaxPositionSize:      cfg.Risk.MaxPositionSize,
	})
	g := guard.New(cfg.Permission.PermissionID, cfg.Permission.DailyLimitUSDC)

	sim := execution.NewLiveSimulator()
	if cfg.Timing.Seed != 0 {
		sim = execution.NewSimulator(cfg.Timing.Seed)
	}

	console := notify.NewConsole(cfg.Notify.Table)
	notifier := notify.Multi{console}
	if cfg.Notify.WebhookURL != "" {
		notifier = append(notifier, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Username))
	}

	pipeline := hooks.NewPipeline(
		hooks.NewAdaptiveEdge(cfg.Strategy.Modes(), g.RemainingFraction),
		blocklist(cfg.Strategy.BlockedMarkets),
		hooks.NewNotify(notifier),
	)

	var allowance ports.AllowanceSource
	if cfg.Permission.OnChain() {
		reader, err := onchain.NewAllowanceReader(onchain.AllowanceConfig{
			RPCURL:  cfg.Permission.RPCURL,
			Token:   cfg.Permission.USDCAddress,
			Owner:   cfg.Permission.OwnerAddress,
			Spender: cfg.Permission.SpenderAddress,
			Cap:     cfg.Permission.DailyLimitUSDC,
		})
		if err != nil {
			return nil, err
		}
		allowance = reader
	}

	m := metrics.New()
	a := &app{
		backend: source.Name(),
		guard:   g,
		risk:    rm,
		console: console,
		daily:   scheduler.NewDaily(g, rm, allowance, cfg.Safety.AssumeZero()),
	}

	a.engine = engine.New(source, lg, rm, g, sim, engine.Config{
		MinSpreadThreshold: cfg.Trading.MinSpreadThreshold,
		MinProfitThreshold: cfg.Trading.MinProfitThreshold,
		TradeSize:          cfg.Trading.TradeSize,
		MaxPositionValue:   cfg.Trading.MaxPositionValue,
		TakerFeeBps:        cfg.Trading.TakerFeeBps,
		Latency: execution.LatencyModel{
			Delay:      cfg.LatencyDelay(),
			CostPerMs:  cfg.Timing.LatencyCostPerMs,
			AdverseStd: cfg.Timing.AdverseSelectionStd,
		},
		PollInterval: cfg.PollInterval(),
		FetchTimeout: cfg.FetchTimeout(),
		MaxDataDelay: cfg.MaxDataDelay(),
	},
		engine.WithJournal(store),
		engine.WithMetrics(m),
		engine.WithHooks(pipeline),
		engine.WithSafeMode(engine.NewSafeMode(cfg.Safety.MaxConsecutiveFailures, cfg.SafeModeCooldown())),
		engine.WithCycleObserver(a.printCycle),
	)

	a.reader = status.NewReader(lg, rm, g, a.engine.Connected, status.WithBreakerStore(store))

	if cfg.Dashboard.Enabled {
		a.server = dashboard.New(
			dashboard.Config{Addr: cfg.Dashboard.Addr, WSInterval: cfg.WSInterval()},
			a.reader, a.reader,
			dashboard.WithLogs(ring),
			dashboard.WithMetrics(m),
		)
	}

	slog.Info("agent wired",
		"backend", a.backend,
		"hooks", pipeline.Names(),
		"onchain_allowance", allowance != nil,
		"webhook", cfg.Notify.WebhookURL != "",
	)
	return a, nil
}

// blocklist devuelve nil sin mercados bloqueados; NewPipeline descarta los nil.
func blocklist(ids []string) hooks.Hook {
	if len(ids) == 0 {
		return nil
	}
	return hooks.NewBlocklist(ids)
}

// prepare recupera el circuit breaker guardado y lee la allowance inicial.
func (a *app) prepare(ctx context.Context) {
	if err := a.reader.RestoreCircuitBreaker(ctx); err != nil {
		slog.Warn("could not restore circuit breaker", "err", err)
	}
	if err := a.daily.RefreshAllowance(ctx); err != nil {
		slog.Warn("initial allowance refresh failed", "err", err)
	}
}

func (a *app) printCycle(res *engine.CycleResult, err error) {
	if res == nil {
		return
	}
	a.console.PrintCycle(notify.CycleInput{
		Summary: res.Summary(a.backend, err),
		Opened:  res.Opened,
		Exits:   res.Exits,
		Skipped: res.Skipped,
		Budget:  a.guard.Snapshot(),
		Risk:    a.risk.Status(),
		Err:     err,
	})
}

func (a *app) printStatus() {
	a.console.PrintStatus(a.reader.Stats(), a.reader.Risk(), a.reader.Budget())
	fmt.Println()
}
