package risk

import (
	"fmt"

	"github.com/baguette88/polymarket-trading-bot/internal/config"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// Reason is the structured code attached to every authorization
// outcome. Callers never get a silent no-op.
type Reason string

const (
	ReasonApproved        Reason = "Approved"
	ReasonKillSwitch      Reason = "KillSwitchTriggered"
	ReasonPositionLimit   Reason = "PositionLimitReached"
	ReasonDuplicateMarket Reason = "DuplicateMarket"
	ReasonPriceLimit      Reason = "PriceLimitExceeded"
	ReasonSizeLimit       Reason = "SizeLimitExceeded"
	ReasonSpreadLimit     Reason = "SpreadOutOfBounds"
)

// Fatal reports whether the reason halts the trading loop entirely
// rather than skipping a cycle.
func (r Reason) Fatal() bool { return r == ReasonKillSwitch }

// Limits are the immutable risk parameters loaded at engine start.
type Limits struct {
	MaxBetSize           float64
	MaxDailyLoss         float64
	MaxTotalLoss         float64
	MaxOpenPositions     int
	MaxEntryPrice        float64
	MinSpread            float64
	MaxSpread            float64
	MaxConsecutiveLosses int
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxBetSize:           cfg.Risk.MaxBetSize,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxTotalLoss:         cfg.Risk.MaxTotalLoss,
		MaxOpenPositions:     cfg.Risk.MaxOpenPositions,
		MaxEntryPrice:        cfg.Risk.MaxEntryPrice,
		MinSpread:            cfg.Risk.MinSpread,
		MaxSpread:            cfg.Risk.MaxSpread,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
	}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Approved bool
	Reason   Reason
	Detail   string
}

func approved() Decision {
	return Decision{Approved: true, Reason: ReasonApproved}
}

func denied(reason Reason, format string, args ...any) Decision {
	return Decision{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Authorize evaluates the configured limits against the current
// aggregate state. It is a pure function: no I/O, no mutation. Checks
// short-circuit on the first failure, kill switch first.
func Authorize(intent types.Intent, book types.Orderbook, limits Limits, agg types.AggregateState, openPositions int) Decision {
	if d := CheckKillSwitch(agg, limits); !d.Approved {
		return d
	}

	if openPositions >= limits.MaxOpenPositions {
		return denied(ReasonPositionLimit, "open positions %d >= max %d", openPositions, limits.MaxOpenPositions)
	}

	if intent.MarketID != "" && intent.MarketID == agg.LastMarketID {
		return denied(ReasonDuplicateMarket, "already traded market %s", intent.MarketID)
	}

	if book.Ask > limits.MaxEntryPrice {
		return denied(ReasonPriceLimit, "ask %.4f > max entry price %.4f", book.Ask, limits.MaxEntryPrice)
	}
	if intent.AmountUSD > limits.MaxBetSize {
		return denied(ReasonSizeLimit, "bet %.2f > max bet size %.2f", intent.AmountUSD, limits.MaxBetSize)
	}
	if book.Spread < limits.MinSpread {
		return denied(ReasonSpreadLimit, "spread %.4f < min %.4f (suspicious book)", book.Spread, limits.MinSpread)
	}
	if book.Spread > limits.MaxSpread {
		return denied(ReasonSpreadLimit, "spread %.4f > max %.4f", book.Spread, limits.MaxSpread)
	}

	return approved()
}

// CheckKillSwitch evaluates only the loss limits. The engine calls it
// at the top of every cycle; a triggered switch halts trading until
// manual reset.
func CheckKillSwitch(agg types.AggregateState, limits Limits) Decision {
	if agg.PnL <= -limits.MaxDailyLoss {
		return denied(ReasonKillSwitch, "cumulative pnl %.2f <= -max daily loss %.2f", agg.PnL, limits.MaxDailyLoss)
	}
	if limits.MaxTotalLoss > 0 && agg.PnL <= -limits.MaxTotalLoss {
		return denied(ReasonKillSwitch, "cumulative pnl %.2f <= -max total loss %.2f", agg.PnL, limits.MaxTotalLoss)
	}
	return approved()
}
