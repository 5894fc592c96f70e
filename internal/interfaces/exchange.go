package interfaces

import (
	"context"

	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// Exchange is the central-limit-order-book collaborator. Transport
// errors, rate limits and terminal rejections are distinguishable via
// the clob package's error types.
type Exchange interface {
	GetOrderBook(ctx context.Context, tokenID string) (types.Orderbook, error)
	SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderAck, error)
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
	GetMarket(ctx context.Context, marketID string) (types.Market, error)
	CancelOrder(ctx context.Context, orderID string) error
}
