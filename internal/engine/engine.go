// Package engine runs the trading cycle: reconcile settled markets,
// consult the risk gate, size and submit the order, and verify its
// fill. Exactly one cycle runs at a time; every state mutation goes
// through the state store's single-writer critical section.
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/backoff"
	"github.com/baguette88/polymarket-trading-bot/internal/config"
	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/journal"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/metrics"
	"github.com/baguette88/polymarket-trading-bot/internal/risk"
	"github.com/baguette88/polymarket-trading-bot/internal/state"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// ErrHalted means the kill switch has tripped and the engine refuses
// to trade until the operator resets state.
var ErrHalted = errors.New("trading halted by kill switch")

// QuoteCache serves recent books without a REST round trip. Optional;
// the websocket feed implements it.
type QuoteCache interface {
	Subscribe(tokenIDs []string)
	BestBook(tokenID string, maxAge time.Duration) (types.Orderbook, bool)
}

// Heartbeater records cycle liveness for external monitoring.
type Heartbeater interface {
	Beat(now time.Time) error
}

type Engine struct {
	cfg      *config.Config
	store    *state.Store
	exchange interfaces.Exchange
	signaler interfaces.Signaler
	limits   risk.Limits
	sizer    *risk.Sizer

	exec   *executor
	verify *verifier
	recon  *reconciler

	quotes    QuoteCache
	heartbeat Heartbeater
	halted    bool
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg *config.Config, store *state.Store, ex interfaces.Exchange, sig interfaces.Signaler, jrnl *journal.Store, clock backoff.Clock) *Engine {
	if clock == nil {
		clock = backoff.System()
	}
	sizer := risk.NewSizer(risk.SizerConfigFrom(cfg))
	policy := backoff.Policy{
		MaxAttempts: cfg.Execution.MaxRetries,
		BaseDelay:   cfg.RetryDelay(),
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		exchange: ex,
		signaler: sig,
		limits:   risk.LimitsFromConfig(cfg),
		sizer:    sizer,
		exec:     newExecutor(store, ex, jrnl, policy, clock),
		verify:   newVerifier(ex, clock, cfg.VerifyPollInterval()),
		recon:    newReconciler(store, ex, jrnl, sizer),
	}
}

// SetQuoteCache attaches a websocket book cache consulted before REST.
func (e *Engine) SetQuoteCache(q QuoteCache) { e.quotes = q }

// SetHeartbeat attaches a liveness writer updated once per cycle.
func (e *Engine) SetHeartbeat(h Heartbeater) { e.heartbeat = h }

// Halted reports whether the kill switch has stopped trading.
func (e *Engine) Halted() bool { return e.halted }

// Cycle executes one full trading cycle. It never panics the process:
// failed submissions and denials come back as a skip result, and only
// a tripped kill switch returns ErrHalted.
func (e *Engine) Cycle(ctx context.Context) (*types.CycleResult, error) {
	start := time.Now()
	metrics.IncCycle()

	// Settle anything the exchange has resolved since last cycle, and
	// re-check orders still waiting on a fill.
	e.recheckOpenOrders(ctx)
	reconciled := e.recon.reconcileAll(ctx)

	agg := e.store.Aggregates()
	open := e.store.OpenPositionCount()
	metrics.SetPnL(agg.PnL)
	metrics.SetOpenPositions(open)

	result := &types.CycleResult{
		PnL:        agg.PnL,
		Open:       open,
		Reconciled: reconciled,
	}

	if d := risk.CheckKillSwitch(agg, e.limits); !d.Approved {
		if !e.halted {
			logger.Risk(ctx, "", "KILL_SWITCH", "pnl", agg.PnL, "max_daily_loss", e.limits.MaxDailyLoss)
			if err := e.store.Backup("kill_switch"); err != nil {
				logger.Warn(ctx, "state backup failed", "error", err)
			}
		}
		e.halted = true
		metrics.SetKillSwitch(true)
		result.Action = "halt"
		result.Reason = string(d.Reason)
		e.finishCycle(ctx, result, start)
		return result, ErrHalted
	}

	if e.sizer.Paused(e.cfg.Risk.MaxConsecutiveLosses) {
		result.Action = "skip"
		result.Reason = "ConsecutiveLossPause"
		e.finishCycle(ctx, result, start)
		return result, nil
	}

	intent, err := e.signaler.Signal(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Signal provider failed", err)
		result.Action = "skip"
		result.Reason = "SignalError"
		e.finishCycle(ctx, result, start)
		return result, nil
	}
	if intent == nil {
		result.Action = "skip"
		result.Reason = "NoSignal"
		e.finishCycle(ctx, result, start)
		return result, nil
	}
	result.MarketID = intent.MarketID
	if err := e.store.SetLastSignal(intent.Direction); err != nil {
		logger.Warn(ctx, "recording signal failed", "error", err)
	}
	if e.quotes != nil {
		// Track this token on the feed so later cycles hit the cache.
		e.quotes.Subscribe([]string{intent.TokenID})
	}

	book, err := e.fetchBook(ctx, intent.TokenID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Orderbook fetch failed", err, "token_id", intent.TokenID)
		result.Action = "skip"
		result.Reason = "BookUnavailable"
		e.finishCycle(ctx, result, start)
		return result, nil
	}

	decision := risk.Authorize(*intent, book, e.limits, agg, open)
	if !decision.Approved {
		metrics.IncRiskDenial(string(decision.Reason))
		logger.Risk(ctx, intent.MarketID, string(decision.Reason), "detail", decision.Detail)
		result.Action = "skip"
		result.Reason = string(decision.Reason)
		e.finishCycle(ctx, result, start)
		return result, nil
	}

	amountUSD := e.sizer.PositionSize(book.Ask, e.cfg.Sizing.Bankroll)
	shares := math.Round(amountUSD/book.Ask*100) / 100
	intent.AmountUSD = amountUSD

	key := IdempotencyKey(*intent)
	handle, err := e.exec.submit(ctx, *intent, book.Ask, shares, key)
	if err != nil {
		if errors.Is(err, ErrDuplicateSubmit) {
			result.Action = "skip"
			result.Reason = "DuplicateSubmit"
			result.TradeID = handle.TradeID
		} else {
			logger.ErrorWithErr(ctx, "Order submission failed", err, "market_id", intent.MarketID)
			result.Action = "skip"
			result.Reason = "SubmitFailed"
			result.TradeID = handle.TradeID
		}
		e.finishCycle(ctx, result, start)
		return result, nil
	}
	result.Action = "trade"
	result.TradeID = handle.TradeID

	outcome, err := e.verify.verify(ctx, handle, e.cfg.VerifyTimeout())
	if err != nil {
		e.finishCycle(ctx, result, start)
		return result, err
	}
	e.applyFillOutcome(ctx, handle, outcome)

	agg = e.store.Aggregates()
	result.PnL = agg.PnL
	result.Open = e.store.OpenPositionCount()
	e.finishCycle(ctx, result, start)
	return result, nil
}

// recheckOpenOrders gives submitted and previously timed-out orders
// one status probe per cycle so late fills are picked up without
// blocking the cycle on a full verification window.
func (e *Engine) recheckOpenOrders(ctx context.Context) {
	for _, trade := range e.store.UnresolvedTrades() {
		if trade.OrderID == "" {
			continue
		}
		if trade.Status != types.StatusSubmitted && trade.Status != types.StatusTimedOut {
			continue
		}
		outcome, err := e.verify.verify(ctx, types.OrderHandle{TradeID: trade.ID, OrderID: trade.OrderID}, 0)
		if err != nil {
			return
		}
		e.applyFillOutcome(ctx, types.OrderHandle{TradeID: trade.ID, OrderID: trade.OrderID}, outcome)
	}
}

func (e *Engine) applyFillOutcome(ctx context.Context, handle types.OrderHandle, outcome types.FillOutcome) {
	trade, ok := e.store.Get(handle.TradeID)
	if !ok {
		return
	}

	switch {
	case outcome.Filled:
		trade.Status = types.StatusFilled
		if outcome.Size > 0 {
			trade.Size = outcome.Size
		}
		if outcome.Price > 0 {
			trade.EntryPrice = outcome.Price
			trade.AmountUSD = math.Round(outcome.Size*outcome.Price*10000) / 10000
		}
		trade.TxHash = outcome.TxHash
	case outcome.Reason == "timeout":
		// Inconclusive: stays eligible for the next cycle's recheck.
		trade.Status = types.StatusTimedOut
	default:
		trade.Status = types.StatusRejected
	}

	if err := e.store.AppendOrUpdate(trade); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist fill outcome", err, "trade_id", trade.ID)
		return
	}
	e.exec.recordOrder(ctx, trade)
	if outcome.Filled {
		e.exec.recordFill(ctx, trade)
		logger.Info(ctx, "order filled",
			"trade_id", trade.ID,
			"order_id", handle.OrderID,
			"size", trade.Size,
			"price", trade.EntryPrice,
			"tx_hash", trade.TxHash,
		)
	}
}

func (e *Engine) fetchBook(ctx context.Context, tokenID string) (types.Orderbook, error) {
	if e.quotes != nil {
		if book, ok := e.quotes.BestBook(tokenID, 10*time.Second); ok {
			return book, nil
		}
	}
	return e.exchange.GetOrderBook(ctx, tokenID)
}

func (e *Engine) finishCycle(ctx context.Context, result *types.CycleResult, start time.Time) {
	result.Duration = time.Since(start)
	metrics.SetLastCycleTime(time.Now().Unix())
	if e.heartbeat != nil {
		if err := e.heartbeat.Beat(time.Now()); err != nil {
			logger.Warn(ctx, "heartbeat write failed", "error", err)
		}
	}
	logger.Info(ctx, "cycle complete",
		"action", result.Action,
		"reason", result.Reason,
		"pnl", result.PnL,
		"open_positions", result.Open,
		"reconciled", result.Reconciled,
		"duration_ms", result.Duration.Milliseconds(),
	)
}
