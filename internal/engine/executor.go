package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/backoff"
	"github.com/baguette88/polymarket-trading-bot/internal/clob"
	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/journal"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/metrics"
	"github.com/baguette88/polymarket-trading-bot/internal/state"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// ErrDuplicateSubmit means the idempotency key already maps to a trade
// past the pending stage; the existing handle is returned alongside.
var ErrDuplicateSubmit = errors.New("intent already submitted")

// executor submits orders with bounded retry. A trade record is
// persisted in pending status before any network call so a crash
// between persist and ack is recognized on the retry instead of
// double-submitting.
type executor struct {
	store    *state.Store
	exchange interfaces.Exchange
	journal  *journal.Store
	policy   backoff.Policy
	clock    backoff.Clock
}

func newExecutor(store *state.Store, ex interfaces.Exchange, jrnl *journal.Store, policy backoff.Policy, clock backoff.Clock) *executor {
	if policy.Retryable == nil {
		policy.Retryable = clob.IsTransient
	}
	return &executor{store: store, exchange: ex, journal: jrnl, policy: policy, clock: clock}
}

// IdempotencyKey derives a deterministic key from the market and the
// decision timestamp, so a crash-and-retry of the same decision maps
// to the same trade record.
func IdempotencyKey(intent types.Intent) string {
	raw := fmt.Sprintf("%s|%s|%s|%d",
		intent.MarketID, intent.TokenID, intent.Direction,
		intent.DecidedAt.UTC().Unix())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:16])
}

// submit places an order for the intent at the given price and share
// size. On transient transport errors it retries per the policy; a
// terminal exchange rejection fails immediately. When retries are
// exhausted the trade stays pending for a later sweep.
func (e *executor) submit(ctx context.Context, intent types.Intent, price, size float64, key string) (types.OrderHandle, error) {
	if prior, ok := e.store.FindByIdempotencyKey(key); ok {
		if prior.Status != types.StatusPending {
			logger.Info(ctx, "submit recognized prior attempt",
				"trade_id", prior.ID, "status", string(prior.Status), "order_id", prior.OrderID)
			return types.OrderHandle{TradeID: prior.ID, OrderID: prior.OrderID}, ErrDuplicateSubmit
		}
		// Pending with no ack: the earlier attempt died before the
		// exchange answered. Resume it under the same trade ID.
		return e.place(ctx, prior, price, size)
	}

	trade := state.NewTrade(intent, key)
	trade.EntryPrice = price
	trade.Size = size
	if err := e.store.AppendOrUpdate(trade); err != nil {
		return types.OrderHandle{}, fmt.Errorf("persisting pending trade: %w", err)
	}
	e.recordOrder(ctx, trade)

	return e.place(ctx, trade, price, size)
}

func (e *executor) place(ctx context.Context, trade types.Trade, price, size float64) (types.OrderHandle, error) {
	trade.EntryPrice = price
	trade.Size = size

	req := types.OrderRequest{
		TokenID: trade.TokenID,
		Side:    "buy",
		Price:   price,
		Size:    size,
	}

	timer := logger.StartOperation(ctx, "order_submit", "market_id", trade.MarketID)

	var ack types.OrderAck
	err := e.policy.Do(ctx, e.clock, func() error {
		var submitErr error
		ack, submitErr = e.exchange.SubmitOrder(ctx, req)
		if submitErr != nil {
			logger.Warn(ctx, "order submit attempt failed",
				"market_id", trade.MarketID, "error", submitErr)
		}
		return submitErr
	})
	if err != nil {
		timer.EndWithError(err)
		if terminalSubmitError(err) {
			trade.Status = types.StatusFailed
			if saveErr := e.store.AppendOrUpdate(trade); saveErr != nil {
				logger.ErrorWithErr(ctx, "Failed to persist rejected trade", saveErr, "trade_id", trade.ID)
			}
			e.recordOrder(ctx, trade)
			metrics.IncOrder("rejected")
			return types.OrderHandle{TradeID: trade.ID}, fmt.Errorf("order rejected: %w", err)
		}
		// Trade remains pending: the reconciliation sweep owns it now.
		metrics.IncOrder("retries_exhausted")
		return types.OrderHandle{TradeID: trade.ID}, fmt.Errorf("submitting order for %s: %w", trade.MarketID, err)
	}

	trade.Status = types.StatusSubmitted
	trade.OrderID = ack.OrderID
	if err := e.store.AppendOrUpdate(trade); err != nil {
		return types.OrderHandle{}, fmt.Errorf("persisting submitted trade: %w", err)
	}
	e.recordOrder(ctx, trade)
	metrics.IncOrder("submitted")

	timer.End()
	logger.Trade(ctx, trade.MarketID, trade.TokenID, trade.Direction, size, price, ack.OrderID)
	return types.OrderHandle{TradeID: trade.ID, OrderID: ack.OrderID}, nil
}

// terminalSubmitError reports whether a submit failure can never
// succeed on retry: an explicit exchange rejection, or a client-side
// API error such as a 400 on a malformed order.
func terminalSubmitError(err error) bool {
	if clob.IsRejection(err) {
		return true
	}
	var apiErr *clob.APIError
	return errors.As(err, &apiErr) && !apiErr.Transient()
}

func (e *executor) recordFill(ctx context.Context, t types.Trade) {
	if e.journal == nil {
		return
	}
	err := e.journal.InsertFill(ctx, &journal.FillRecord{
		TradeID:     t.ID,
		OrderID:     t.OrderID,
		SizeMatched: t.Size,
		FillPrice:   t.EntryPrice,
		TxHash:      t.TxHash,
		FilledTime:  time.Now().UTC(),
	})
	if err != nil {
		logger.Warn(ctx, "journal fill write failed", "trade_id", t.ID, "error", err)
	}
}

// recordOrder mirrors the trade into the audit journal. Journal
// failures are logged, never fatal.
func (e *executor) recordOrder(ctx context.Context, t types.Trade) {
	if e.journal == nil {
		return
	}
	err := e.journal.UpsertOrder(ctx, &journal.OrderRecord{
		TradeID:     t.ID,
		OrderID:     t.OrderID,
		MarketID:    t.MarketID,
		TokenID:     t.TokenID,
		Direction:   t.Direction,
		Outcome:     t.Outcome,
		AmountUSD:   t.AmountUSD,
		Price:       t.EntryPrice,
		Size:        t.Size,
		Status:      string(t.Status),
		Strategy:    t.Strategy,
		CreatedTime: t.Timestamp,
		UpdatedTime: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn(ctx, "journal write failed", "trade_id", t.ID, "error", err)
	}
}
