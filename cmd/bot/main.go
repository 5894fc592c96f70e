package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/engine"
	"github.com/baguette88/polymarket-trading-bot/internal/guard"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		once       = flag.Bool("once", false, "run a single cycle and exit")
		interval   = flag.Duration("interval", 0, "override cycle interval from config")
		paper      = flag.Bool("paper", false, "force DRY_RUN mode regardless of config")
	)
	flag.Parse()

	must(initializeSystem())
	defer func() { _ = trace.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx, *configPath)
	must(err)
	if *paper {
		cfg.Mode = "DRY_RUN"
	}

	// One live engine per state file.
	lock := guard.New(cfg.LockPath)
	if err := lock.Acquire(ctx); err != nil {
		if errors.Is(err, guard.ErrAlreadyRunning) {
			logger.Error(ctx, "Another instance holds the lock, exiting", "lock_path", cfg.LockPath)
			os.Exit(1)
		}
		log.Fatal(err)
	}
	defer func() { _ = lock.Release() }()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	eng, cleanup, err := buildEngine(ctx, cfg)
	must(err)
	defer cleanup()

	startMetricsServer(ctx, cfg)

	pollInterval := cfg.PollInterval()
	if *interval > 0 {
		pollInterval = *interval
	}

	runCycle := func() bool {
		result, err := eng.Cycle(ctx)
		if err != nil {
			if errors.Is(err, engine.ErrHalted) && result != nil {
				logger.Error(ctx, "Kill switch tripped, trading halted",
					"pnl", result.PnL, "open_positions", result.Open)
				return false
			}
			logger.ErrorWithErr(ctx, "Cycle failed", err)
			return true
		}
		if result != nil {
			b, _ := json.Marshal(result)
			fmt.Println(string(b))
		}
		return true
	}

	logger.Info(ctx, "Bot started", "mode", cfg.Mode, "interval", pollInterval.String())

	if *once {
		runCycle()
		return
	}

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	runCycle()
	for {
		select {
		case <-tick.C:
			if !runCycle() {
				// Halted: keep the process alive for inspection and
				// metrics, but stop driving cycles.
				tick.Stop()
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			return
		case <-ctx.Done():
			return
		}
	}
}
