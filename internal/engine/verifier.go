package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/backoff"
	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/metrics"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// verifier polls an order until it reaches a terminal exchange state
// or the deadline passes. A timeout is an inconclusive outcome, not a
// failure: the order may still fill and the caller re-polls next cycle.
type verifier struct {
	exchange     interfaces.Exchange
	clock        backoff.Clock
	pollInterval time.Duration
}

func newVerifier(ex interfaces.Exchange, clock backoff.Clock, pollInterval time.Duration) *verifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &verifier{exchange: ex, clock: clock, pollInterval: pollInterval}
}

func (v *verifier) verify(ctx context.Context, handle types.OrderHandle, timeout time.Duration) (types.FillOutcome, error) {
	deadline := v.clock.Now().Add(timeout)

	for {
		order, err := v.exchange.GetOrder(ctx, handle.OrderID)
		if err != nil {
			// Transient query errors do not abort verification.
			logger.Warn(ctx, "order status query failed",
				"order_id", handle.OrderID, "error", err)
		} else {
			switch order.Status {
			case "MATCHED":
				metrics.IncVerification("filled")
				return types.FillOutcome{
					Filled: true,
					Size:   order.SizeMatched,
					Price:  order.Price,
					TxHash: order.TxHash,
				}, nil
			case "CANCELLED":
				metrics.IncVerification("cancelled")
				return types.FillOutcome{Reason: "cancelled"}, nil
			case "EXPIRED":
				metrics.IncVerification("cancelled")
				return types.FillOutcome{Reason: "expired"}, nil
			case "FAILED":
				metrics.IncVerification("failed")
				return types.FillOutcome{Reason: "failed"}, nil
			}
		}

		if !v.clock.Now().Add(v.pollInterval).Before(deadline) {
			metrics.IncVerification("timed_out")
			logger.Info(ctx, "fill verification timed out",
				"order_id", handle.OrderID, "timeout", timeout.String())
			return types.FillOutcome{Reason: "timeout"}, nil
		}
		if err := v.clock.Sleep(ctx, v.pollInterval); err != nil {
			return types.FillOutcome{}, fmt.Errorf("verification interrupted: %w", err)
		}
	}
}
