package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/baguette88/polymarket-trading-bot/internal/backoff"
	"github.com/baguette88/polymarket-trading-bot/internal/clob"
	"github.com/baguette88/polymarket-trading-bot/internal/clob/clobobs"
	"github.com/baguette88/polymarket-trading-bot/internal/config"
	"github.com/baguette88/polymarket-trading-bot/internal/engine"
	"github.com/baguette88/polymarket-trading-bot/internal/guard"
	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/journal"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/metrics"
	"github.com/baguette88/polymarket-trading-bot/internal/signal"
	"github.com/baguette88/polymarket-trading-bot/internal/state"
	"github.com/baguette88/polymarket-trading-bot/internal/trace"
)

// initializeSystem initializes environment, logger, and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// buildEngine wires the exchange, state store, journal, signal
// provider, and websocket feed into a ready engine. The returned
// cleanup closes everything the build opened.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, func(), error) {
	exchange := initializeExchange(ctx, cfg)

	store, err := state.Open(cfg.State.Path, cfg.State.BackupDir)
	if err != nil {
		// Corrupt state is fatal: a silent reset would lose audit
		// history and double-spend the loss limits.
		logger.ErrorWithErr(ctx, "Failed to open state store", err, "path", cfg.State.Path)
		return nil, nil, err
	}

	var jrnl *journal.Store
	if cfg.JournalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating journal dir: %w", err)
		}
		jrnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			logger.Warn(ctx, "Audit journal unavailable, continuing without it", "error", err)
			jrnl = nil
		}
	}

	sig, err := signal.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(cfg, store, exchange, sig, jrnl, backoff.System())
	eng.SetHeartbeat(guard.NewHeartbeat(cfg.HeartbeatPath))

	var feedCancel context.CancelFunc
	if cfg.Exchange.UseWebsocket && cfg.Mode == "LIVE" {
		feed := clob.NewFeed(cfg.Exchange.WSHost)
		var feedCtx context.Context
		feedCtx, feedCancel = context.WithCancel(ctx)
		go func() {
			if err := feed.Run(feedCtx); err != nil && feedCtx.Err() == nil {
				logger.Warn(ctx, "websocket feed stopped", "error", err)
			}
		}()
		eng.SetQuoteCache(feed)
	}

	cleanup := func() {
		if feedCancel != nil {
			feedCancel()
		}
		if jrnl != nil {
			_ = jrnl.Close()
		}
	}
	return eng, cleanup, nil
}

func initializeExchange(ctx context.Context, cfg *config.Config) interfaces.Exchange {
	var exchange interfaces.Exchange
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
		exchange = clob.NewPaper()
	} else {
		exchange = clob.NewClient(clob.ClientConfig{
			ClobHost:  cfg.Exchange.ClobHost,
			GammaHost: cfg.Exchange.GammaHost,
			APIKey:    os.Getenv("POLY_API_KEY"),
			Timeout:   10 * time.Second,
		})
	}

	// Wrap with observability middleware
	return clobobs.Wrap(exchange)
}

// startMetricsServer serves /metrics if an address is configured.
func startMetricsServer(ctx context.Context, cfg *config.Config) {
	if cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		logger.Info(ctx, "Metrics server listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn(ctx, "metrics server stopped", "error", err)
		}
	}()
}
