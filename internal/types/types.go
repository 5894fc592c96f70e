package types

import "time"

// TradeStatus is the execution state of a trade attempt.
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusSubmitted TradeStatus = "submitted"
	StatusFilled    TradeStatus = "filled"
	StatusRejected  TradeStatus = "rejected"
	StatusTimedOut  TradeStatus = "timed_out"
	StatusFailed    TradeStatus = "failed"
)

// Terminal reports whether no further execution transition is possible.
func (s TradeStatus) Terminal() bool {
	return s == StatusFilled || s == StatusRejected || s == StatusFailed
}

// Intent is a proposed trade decision not yet executed.
type Intent struct {
	MarketID  string    `json:"market_id"`
	TokenID   string    `json:"token_id"`
	Direction string    `json:"direction"` // "long" or "short"
	Outcome   string    `json:"outcome"`   // "YES" or "NO"
	AmountUSD float64   `json:"amount_usd"`
	Strategy  string    `json:"strategy"`
	DecidedAt time.Time `json:"decided_at"`
}

// Trade is the unit of record. Intent fields are immutable after
// creation; execution and resolution fields are mutated through the
// state store only.
type Trade struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Timestamp      time.Time `json:"timestamp"`
	MarketID       string    `json:"market_id"`
	TokenID        string    `json:"token_id"`
	Direction      string    `json:"direction"`
	Outcome        string    `json:"outcome"`
	EntryPrice     float64   `json:"entry_price"`
	Size           float64   `json:"size"`       // shares
	AmountUSD      float64   `json:"amount_usd"` // cost
	Strategy       string    `json:"strategy"`

	OrderID string      `json:"order_id,omitempty"`
	Status  TradeStatus `json:"status"`
	TxHash  string      `json:"tx_hash,omitempty"`

	Resolved       bool       `json:"resolved"`
	Result         string     `json:"result,omitempty"` // "win" or "loss"
	PnL            *float64   `json:"pnl,omitempty"`
	ExitPrice      *float64   `json:"exit_price,omitempty"`
	ResolutionTime *time.Time `json:"resolution_time,omitempty"`
}

// AggregateState holds the derived counters over the trade set. It is
// a cached value refreshed on every store write and recomputable from
// the trades themselves.
type AggregateState struct {
	PnL           float64   `json:"pnl"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	TotalTrades   int       `json:"total_trades"`
	LastMarketID  string    `json:"last_market_id,omitempty"`
	LastSignal    string    `json:"last_signal,omitempty"`
	LastTradeTime time.Time `json:"last_trade_time,omitempty"`
}

// WinRate returns wins over resolved trades, 0 when nothing resolved.
func (a AggregateState) WinRate() float64 {
	total := a.Wins + a.Losses
	if total == 0 {
		return 0
	}
	return float64(a.Wins) / float64(total)
}

// PriceLevel is one level of an orderbook side.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Orderbook is the normalized view of an exchange book for one token.
type Orderbook struct {
	TokenID  string       `json:"token_id"`
	Bids     []PriceLevel `json:"bids"`
	Asks     []PriceLevel `json:"asks"`
	Bid      float64      `json:"bid"`
	Ask      float64      `json:"ask"`
	Spread   float64      `json:"spread"`
	Mid      float64      `json:"mid"`
	BidDepth float64      `json:"bid_depth"`
	AskDepth float64      `json:"ask_depth"`
}

// OrderRequest is what gets sent to the exchange.
type OrderRequest struct {
	TokenID string  `json:"token_id"`
	Side    string  `json:"side"` // "buy" or "sell"
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
}

// OrderAck is the exchange response to a submission.
type OrderAck struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Order is the exchange-side view of a submitted order.
type Order struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"` // MATCHED, LIVE, CANCELLED, EXPIRED, FAILED
	SizeMatched float64 `json:"size_matched"`
	Price       float64 `json:"price"`
	TxHash      string  `json:"tx_hash,omitempty"`
}

// Market is the exchange-side view of a market's resolution state.
type Market struct {
	ID             string    `json:"id"`
	Resolved       bool      `json:"resolved"`
	WinningTokenID string    `json:"winning_token_id,omitempty"`
	EndTime        time.Time `json:"end_time,omitempty"`
}

// OrderHandle identifies a submitted order and its backing trade.
type OrderHandle struct {
	TradeID string `json:"trade_id"`
	OrderID string `json:"order_id"`
}

// FillOutcome is the normalized result of fill verification.
type FillOutcome struct {
	Filled bool    `json:"filled"`
	Reason string  `json:"reason,omitempty"` // "cancelled", "expired", "failed", "timeout"
	Size   float64 `json:"size,omitempty"`
	Price  float64 `json:"price,omitempty"`
	TxHash string  `json:"tx_hash,omitempty"`
}

// CycleResult summarizes one trading cycle for logging and monitoring.
type CycleResult struct {
	Action     string        `json:"action"` // "trade", "skip", "halt"
	Reason     string        `json:"reason"`
	TradeID    string        `json:"trade_id,omitempty"`
	MarketID   string        `json:"market_id,omitempty"`
	PnL        float64       `json:"pnl"`
	Open       int           `json:"open_positions"`
	Reconciled int           `json:"reconciled"`
	Duration   time.Duration `json:"duration_ms"`
}
