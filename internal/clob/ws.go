package clob

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// Feed is a WebSocket client for the CLOB market channel. It keeps a
// best-bid/ask cache per subscribed token so the engine can avoid a
// REST round trip on every cycle.
type Feed struct {
	wsURL string

	mu     sync.RWMutex
	quotes map[string]*quote // token → latest quote

	// Write-side state. Lock ordering: mu before writeMu.
	writeMu       sync.Mutex
	conn          *websocket.Conn
	desiredTokens map[string]bool

	connected atomic.Bool
}

type quote struct {
	bid, ask float64
	updated  time.Time
}

// NewFeed creates a market-channel feed client. wsURL is the
// subscriptions host, e.g. wss://ws-subscriptions-clob.polymarket.com.
func NewFeed(wsURL string) *Feed {
	return &Feed{
		wsURL:         wsURL + "/ws/market",
		quotes:        make(map[string]*quote),
		desiredTokens: make(map[string]bool),
	}
}

// Connected reports whether the feed currently has a live connection.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

// Subscribe sets the tokens the feed should track. Takes effect on the
// next (re)connect; if connected, resends the subscription now.
func (f *Feed) Subscribe(tokenIDs []string) {
	desired := make(map[string]bool, len(tokenIDs))
	for _, t := range tokenIDs {
		desired[t] = true
	}

	f.writeMu.Lock()
	f.desiredTokens = desired
	conn := f.conn
	if conn != nil {
		if err := f.subscribeLocked(); err != nil {
			logger.Warn(context.Background(), "ws subscribe failed", "error", err)
		}
	}
	f.writeMu.Unlock()
}

// BestBook returns the cached book for a token if it is fresher than
// maxAge. The second return is false when the cache is missing or stale
// and the caller should fall back to REST.
func (f *Feed) BestBook(tokenID string, maxAge time.Duration) (types.Orderbook, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	q, ok := f.quotes[tokenID]
	if !ok || time.Since(q.updated) > maxAge || q.bid == 0 || q.ask == 0 {
		return types.Orderbook{}, false
	}
	return types.Orderbook{
		TokenID: tokenID,
		Bid:     q.bid,
		Ask:     q.ask,
		Spread:  round4(q.ask - q.bid),
		Mid:     round4((q.ask + q.bid) / 2),
	}, true
}

// Run maintains the connection with automatic reconnection until ctx
// is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			logger.Warn(ctx, "ws disconnected", "error", err)
		}
		f.connected.Store(false)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			logger.Info(ctx, "ws reconnecting")
		}
	}
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	f.writeMu.Lock()
	f.conn = conn
	err = f.subscribeLocked()
	f.writeMu.Unlock()
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe: %w", err)
	}

	f.connected.Store(true)
	logger.Info(ctx, "ws connected", "url", f.wsURL)

	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()
	go f.pingLoop(ctx2, conn)
	return f.readLoop(ctx2, conn)
}

func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				logger.Debug(ctx, "ws ping failed", "error", err)
				return
			}
		}
	}
}

// subscribeLocked sends the market subscription. Caller holds writeMu.
func (f *Feed) subscribeLocked() error {
	if f.conn == nil || len(f.desiredTokens) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(f.desiredTokens))
	for t := range f.desiredTokens {
		tokens = append(tokens, t)
	}
	sub := map[string]any{"type": "market", "assets_ids": tokens}
	f.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := f.conn.WriteJSON(sub); err != nil {
		return err
	}
	f.conn.SetWriteDeadline(time.Time{})
	return nil
}

// --- WS message types ---

type wsEvent struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
	Changes   []struct {
		Price string `json:"price"`
		Side  string `json:"side"`
		Size  string `json:"size"`
	} `json:"price_changes"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		// The market channel delivers arrays of events.
		var events []wsEvent
		if err := json.Unmarshal(msg, &events); err != nil {
			var single wsEvent
			if err := json.Unmarshal(msg, &single); err != nil {
				logger.Debug(ctx, "ws: unmarshal error", "error", err)
				continue
			}
			events = []wsEvent{single}
		}

		for _, ev := range events {
			switch ev.EventType {
			case "book":
				f.handleBook(ctx, ev)
			case "price_change":
				f.handlePriceChange(ctx, ev)
			case "":
				// keepalive / ack
			default:
				logger.Debug(ctx, "ws: unknown event", "event_type", ev.EventType)
			}
		}
	}
}

func (f *Feed) handleBook(ctx context.Context, ev wsEvent) {
	var bid, ask float64
	for _, lvl := range ev.Bids {
		if p := parseFloat(lvl.Price); p > bid {
			bid = p
		}
	}
	ask = 1
	hasAsk := false
	for _, lvl := range ev.Asks {
		if p := parseFloat(lvl.Price); p < ask {
			ask = p
			hasAsk = true
		}
	}
	if !hasAsk {
		ask = 0
	}

	f.mu.Lock()
	f.quotes[ev.AssetID] = &quote{bid: bid, ask: ask, updated: time.Now()}
	f.mu.Unlock()

	logger.Debug(ctx, "ws book", "token", ev.AssetID, "bid", bid, "ask", ask)
}

func (f *Feed) handlePriceChange(ctx context.Context, ev wsEvent) {
	bid, ask := parseFloat(ev.BestBid), parseFloat(ev.BestAsk)
	if bid == 0 && ask == 0 {
		return
	}

	f.mu.Lock()
	q, ok := f.quotes[ev.AssetID]
	if !ok {
		q = &quote{}
		f.quotes[ev.AssetID] = q
	}
	if bid > 0 {
		q.bid = bid
	}
	if ask > 0 {
		q.ask = ask
	}
	q.updated = time.Now()
	f.mu.Unlock()
}
