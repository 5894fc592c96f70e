package clob

import (
	"context"
	"fmt"
	"sync"

	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// Paper is an in-memory Exchange for DRY_RUN mode. Orders fill
// instantly at their limit price and markets resolve only when the
// operator (or a test) says so.
type Paper struct {
	mu      sync.Mutex
	seq     int
	books   map[string]types.Orderbook
	markets map[string]types.Market
	orders  map[string]types.Order
}

var _ interfaces.Exchange = (*Paper)(nil)

func NewPaper() *Paper {
	return &Paper{
		books:   make(map[string]types.Orderbook),
		markets: make(map[string]types.Market),
		orders:  make(map[string]types.Order),
	}
}

// SetBook installs a fixture book for a token.
func (p *Paper) SetBook(book types.Orderbook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.books[book.TokenID] = book
}

// SetMarket installs a fixture market.
func (p *Paper) SetMarket(m types.Market) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.markets[m.ID] = m
}

// ResolveMarket marks a market as resolved with the given winner.
func (p *Paper) ResolveMarket(marketID, winningTokenID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.markets[marketID]
	m.ID = marketID
	m.Resolved = true
	m.WinningTokenID = winningTokenID
	p.markets[marketID] = m
}

func (p *Paper) GetOrderBook(_ context.Context, tokenID string) (types.Orderbook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	book, ok := p.books[tokenID]
	if !ok {
		// A flat synthetic book keeps dry runs moving without fixtures.
		return types.Orderbook{TokenID: tokenID, Bid: 0.49, Ask: 0.51, Spread: 0.02, Mid: 0.50}, nil
	}
	return book, nil
}

func (p *Paper) SubmitOrder(_ context.Context, req types.OrderRequest) (types.OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id := fmt.Sprintf("paper-%06d", p.seq)
	p.orders[id] = types.Order{
		ID:          id,
		Status:      "MATCHED",
		SizeMatched: req.Size,
		Price:       req.Price,
		TxHash:      "0xpaper",
	}
	return types.OrderAck{OrderID: id, Status: "matched"}, nil
}

func (p *Paper) GetOrder(_ context.Context, orderID string) (types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return types.Order{}, &APIError{Status: 404, Body: "order not found"}
	}
	return o, nil
}

func (p *Paper) GetMarket(_ context.Context, marketID string) (types.Market, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.markets[marketID]
	if !ok {
		return types.Market{ID: marketID}, nil
	}
	return m, nil
}

func (p *Paper) CancelOrder(_ context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return &APIError{Status: 404, Body: "order not found"}
	}
	o.Status = "CANCELLED"
	p.orders[orderID] = o
	return nil
}
