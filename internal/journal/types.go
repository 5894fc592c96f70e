package journal

import "time"

// OrderRecord is one attempted order, keyed by the bot-side trade ID.
type OrderRecord struct {
	TradeID     string
	OrderID     string
	MarketID    string
	TokenID     string
	Direction   string
	Outcome     string
	AmountUSD   float64
	Price       float64
	Size        float64
	Status      string
	Strategy    string
	CreatedTime time.Time
	UpdatedTime time.Time
}

// FillRecord is the confirmed fill for an order.
type FillRecord struct {
	TradeID     string
	OrderID     string
	SizeMatched float64
	FillPrice   float64
	TxHash      string
	FilledTime  time.Time
}

// SettlementRecord is the resolution outcome for a trade.
type SettlementRecord struct {
	TradeID     string
	MarketID    string
	Result      string
	PnL         float64
	ExitPrice   float64
	SettledTime time.Time
}

// DailyPnL is one row of the daily aggregate view.
type DailyPnL struct {
	Date   string
	PnL    float64
	Wins   int
	Losses int
	Trades int
}

// Position is the merged order+settlement view of one trade.
type Position struct {
	TradeID     string
	MarketID    string
	TokenID     string
	Direction   string
	AmountUSD   float64
	Size        float64
	Status      string
	Result      string
	PnL         float64
	CreatedTime time.Time
}
