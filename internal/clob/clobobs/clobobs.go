// Package clobobs wraps an Exchange with logging and tracing
// middleware so every exchange call shows up as a span with its
// arguments and outcome.
package clobobs

import (
	"context"

	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/trace"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

type observableExchange struct {
	exchange interfaces.Exchange
}

var _ interfaces.Exchange = (*observableExchange)(nil)

// Wrap wraps an exchange with observability middleware.
func Wrap(exchange interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{exchange: exchange}
}

func (oe *observableExchange) GetOrderBook(ctx context.Context, tokenID string) (types.Orderbook, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.GetOrderBook")
	defer span.End()

	logger.Debug(ctx, "Fetching orderbook", "token_id", tokenID)

	book, err := oe.exchange.GetOrderBook(ctx, tokenID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch orderbook", err, "token_id", tokenID)
		return types.Orderbook{}, err
	}

	logger.Debug(ctx, "Orderbook fetched",
		"token_id", tokenID, "bid", book.Bid, "ask", book.Ask, "spread", book.Spread)
	return book, nil
}

func (oe *observableExchange) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderAck, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.SubmitOrder")
	defer span.End()

	logger.Info(ctx, "Submitting order",
		"token_id", req.TokenID,
		"side", req.Side,
		"price", req.Price,
		"size", req.Size,
	)

	ack, err := oe.exchange.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to submit order", err,
			"token_id", req.TokenID,
			"side", req.Side,
			"size", req.Size,
		)
		return types.OrderAck{}, err
	}

	logger.Info(ctx, "Order submitted", "order_id", ack.OrderID, "status", ack.Status)
	return ack, nil
}

func (oe *observableExchange) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.GetOrder")
	defer span.End()

	order, err := oe.exchange.GetOrder(ctx, orderID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch order", err, "order_id", orderID)
		return types.Order{}, err
	}

	logger.Debug(ctx, "Order fetched",
		"order_id", orderID, "status", order.Status, "size_matched", order.SizeMatched)
	return order, nil
}

func (oe *observableExchange) GetMarket(ctx context.Context, marketID string) (types.Market, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.GetMarket")
	defer span.End()

	market, err := oe.exchange.GetMarket(ctx, marketID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to fetch market", err, "market_id", marketID)
		return types.Market{}, err
	}

	logger.Debug(ctx, "Market fetched",
		"market_id", marketID, "resolved", market.Resolved, "winning_token", market.WinningTokenID)
	return market, nil
}

func (oe *observableExchange) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := trace.StartSpan(ctx, "exchange.CancelOrder")
	defer span.End()

	logger.Info(ctx, "Cancelling order", "order_id", orderID)

	if err := oe.exchange.CancelOrder(ctx, orderID); err != nil {
		logger.ErrorWithErr(ctx, "Failed to cancel order", err, "order_id", orderID)
		return err
	}
	return nil
}
