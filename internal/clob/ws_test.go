package clob

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/config"
)

func TestNewFeedURL(t *testing.T) {
	f := NewFeed("wss://ws-subscriptions-clob.polymarket.com")
	want := "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	if f.wsURL != want {
		t.Fatalf("wsURL = %q, want %q", f.wsURL, want)
	}

	// The configured default is the bare host; the channel path is
	// appended exactly once here.
	f = NewFeed(config.Default().Exchange.WSHost)
	if n := strings.Count(f.wsURL, "/ws/market"); n != 1 {
		t.Fatalf("wsURL %q contains %d copies of the channel path, want 1", f.wsURL, n)
	}
}

func TestBestBookServesFedQuote(t *testing.T) {
	f := NewFeed("wss://example.com")
	f.Subscribe([]string{"tok-1"})

	f.handleBook(context.Background(), wsEvent{
		EventType: "book",
		AssetID:   "tok-1",
		Bids:      []wireLevel{{Price: "0.44", Size: "100"}, {Price: "0.46", Size: "50"}},
		Asks:      []wireLevel{{Price: "0.48", Size: "80"}, {Price: "0.52", Size: "10"}},
	})

	book, ok := f.BestBook("tok-1", 10*time.Second)
	if !ok {
		t.Fatal("expected cached book to be served")
	}
	if book.Bid != 0.46 || book.Ask != 0.48 {
		t.Errorf("best levels = %v/%v, want 0.46/0.48", book.Bid, book.Ask)
	}
	if book.Spread != 0.02 {
		t.Errorf("spread = %v, want 0.02", book.Spread)
	}

	if _, ok := f.BestBook("tok-2", 10*time.Second); ok {
		t.Error("unknown token should miss the cache")
	}
	if _, ok := f.BestBook("tok-1", 0); ok {
		t.Error("zero max age should treat every quote as stale")
	}
}

func TestBestBookPriceChangeUpdates(t *testing.T) {
	f := NewFeed("wss://example.com")
	f.handleBook(context.Background(), wsEvent{
		EventType: "book",
		AssetID:   "tok-1",
		Bids:      []wireLevel{{Price: "0.40", Size: "1"}},
		Asks:      []wireLevel{{Price: "0.60", Size: "1"}},
	})
	f.handlePriceChange(context.Background(), wsEvent{
		EventType: "price_change",
		AssetID:   "tok-1",
		BestBid:   "0.45",
		BestAsk:   "0.55",
	})

	book, ok := f.BestBook("tok-1", 10*time.Second)
	if !ok {
		t.Fatal("expected cached book to be served")
	}
	if book.Bid != 0.45 || book.Ask != 0.55 {
		t.Errorf("best levels = %v/%v, want 0.45/0.55", book.Bid, book.Ask)
	}
}
