package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/arbishark/config"
	"github.com/alejandrodnm/arbishark/internal/adapters/logbuf"
	"github.com/alejandrodnm/arbishark/internal/adapters/storage"
)

const stopFile = "STOP"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one trading cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print opened/closed legs as tables after each cycle")
	report := flag.Bool("report", false, "print the journal report and exit")
	seed := flag.Uint64("seed", 0, "seed for the execution simulator and mock backend (0 = config/clock)")
	backend := flag.String("backend", "", "market data backend: gamma|indexer|mock (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *backend != "" {
		cfg.API.Backend = *backend
	}
	if *table {
		cfg.Notify.Table = true
	}
	if *seed != 0 {
		cfg.Timing.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ring := logbuf.NewRing(cfg.Log.BufferSize)
	setupLogger(cfg.Log, ring)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		if err := runReport(ctx, store, cfg.Notify.Table); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("arbishark starting",
		"config", *configPath,
		"backend", cfg.API.Backend,
		"poll", cfg.PollInterval(),
		"daily_limit", fmt.Sprintf("$%.2f", cfg.Permission.DailyLimitUSDC),
		"once", *once,
		"dashboard", cfg.Dashboard.Enabled,
	)

	a, err := newApp(cfg, store, ring)
	if err != nil {
		slog.Error("failed to build agent", "err", err)
		os.Exit(1)
	}
	a.prepare(ctx)

	if *once {
		res, err := a.engine.RunOnce(ctx)
		a.printCycle(res, err)
		a.printStatus()
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, a); err != nil {
		slog.Error("agent exited with error", "err", err)
		os.Exit(1)
	}
	a.printStatus()
	slog.Info("arbishark stopped cleanly")
}

// run supervisa el engine, el scheduler diario, el dashboard y el STOP file.
// Cualquiera que termine con error cancela al resto.
func run(ctx context.Context, a *app) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	slog.Info("trading started, press Ctrl+C or create STOP file to exit")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.engine.Run(gctx) })
	g.Go(func() error { return a.daily.Run(gctx) })
	if a.server != nil {
		g.Go(func() error { return a.server.Run(gctx) })
	}
	g.Go(func() error {
		watchStopFile(gctx, stopFile, time.Second, stop)
		return nil
	})
	return g.Wait()
}

// watchStopFile llama a stop cuando aparece path, y lo borra.
func watchStopFile(ctx context.Context, path string, every time.Duration, stop func()) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				slog.Info("STOP file detected, shutting down after the current cycle")
				os.Remove(path)
				stop()
				return
			}
		}
	}
}

func setupLogger(cfg config.LogConfig, ring *logbuf.Ring) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(ring.Handler(handler)))
}
