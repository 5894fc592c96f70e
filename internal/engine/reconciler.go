package engine

import (
	"context"
	"math"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/journal"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/metrics"
	"github.com/baguette88/polymarket-trading-bot/internal/risk"
	"github.com/baguette88/polymarket-trading-bot/internal/state"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// reconciler sweeps unresolved filled trades against market resolution
// state and finalizes their profit or loss.
type reconciler struct {
	store    *state.Store
	exchange interfaces.Exchange
	journal  *journal.Store
	sizer    *risk.Sizer
}

func newReconciler(store *state.Store, ex interfaces.Exchange, jrnl *journal.Store, sizer *risk.Sizer) *reconciler {
	return &reconciler{store: store, exchange: ex, journal: jrnl, sizer: sizer}
}

// reconcileAll resolves every unresolved filled trade whose market has
// settled. A query failure for one trade never aborts the sweep;
// rerunning over already-resolved trades is a no-op. Returns the
// number of trades resolved this pass.
func (r *reconciler) reconcileAll(ctx context.Context) int {
	resolved := 0
	for _, trade := range r.store.UnresolvedFilled() {
		market, err := r.exchange.GetMarket(ctx, trade.MarketID)
		if err != nil {
			logger.Warn(ctx, "resolution query failed",
				"trade_id", trade.ID, "market_id", trade.MarketID, "error", err)
			continue
		}
		if !market.Resolved {
			continue
		}

		won := trade.TokenID == market.WinningTokenID
		var result string
		var pnl, exitPrice float64
		if won {
			result = "win"
			pnl = trade.Size - trade.AmountUSD
			exitPrice = 1
		} else {
			result = "loss"
			pnl = -trade.AmountUSD
			exitPrice = 0
		}
		pnl = math.Round(pnl*10000) / 10000

		if err := r.store.Resolve(trade.ID, result, pnl, exitPrice); err != nil {
			logger.ErrorWithErr(ctx, "Failed to resolve trade", err,
				"trade_id", trade.ID, "market_id", trade.MarketID)
			continue
		}
		resolved++
		metrics.IncTrade(result)
		if r.sizer != nil {
			r.sizer.RecordResult(result)
		}
		r.recordSettlement(ctx, trade, result, pnl, exitPrice)

		logger.Info(ctx, "trade resolved",
			"trade_id", trade.ID,
			"market_id", trade.MarketID,
			"result", result,
			"pnl", pnl,
		)
	}
	return resolved
}

func (r *reconciler) recordSettlement(ctx context.Context, t types.Trade, result string, pnl, exitPrice float64) {
	if r.journal == nil {
		return
	}
	err := r.journal.UpsertSettlement(ctx, &journal.SettlementRecord{
		TradeID:     t.ID,
		MarketID:    t.MarketID,
		Result:      result,
		PnL:         pnl,
		ExitPrice:   exitPrice,
		SettledTime: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn(ctx, "journal settlement write failed", "trade_id", t.ID, "error", err)
	}
}
