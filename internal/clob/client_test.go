package clob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

func testClient(clobURL, gammaURL string) *Client {
	return NewClient(ClientConfig{
		ClobHost:  clobURL,
		GammaHost: gammaURL,
		Timeout:   2 * time.Second,
	})
}

func TestGetOrderBookNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("token_id"); got != "tok1" {
			t.Errorf("token_id = %s", got)
		}
		w.Write([]byte(`{
			"bids": [{"price":"0.45","size":"100"},{"price":"0.44","size":"50"}],
			"asks": [{"price":"0.47","size":"80"},{"price":"0.48","size":"20"}]
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	book, err := c.GetOrderBook(context.Background(), "tok1")
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if book.Bid != 0.45 || book.Ask != 0.47 {
		t.Errorf("best bid/ask = %v/%v, want 0.45/0.47", book.Bid, book.Ask)
	}
	if book.Spread != 0.02 {
		t.Errorf("spread = %v, want 0.02", book.Spread)
	}
	if book.Mid != 0.46 {
		t.Errorf("mid = %v, want 0.46", book.Mid)
	}
	if book.BidDepth != 150 || book.AskDepth != 100 {
		t.Errorf("depth = %v/%v, want 150/100", book.BidDepth, book.AskDepth)
	}
}

func TestSubmitOrderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"orderID":"ord-1","status":"live"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	ack, err := c.SubmitOrder(context.Background(), types.OrderRequest{
		TokenID: "tok1", Side: "buy", Price: 0.47, Size: 10,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if ack.OrderID != "ord-1" {
		t.Errorf("order id = %s", ack.OrderID)
	}
}

func TestSubmitOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"errorMsg":"not enough balance"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	_, err := c.SubmitOrder(context.Background(), types.OrderRequest{TokenID: "tok1"})
	if !IsRejection(err) {
		t.Fatalf("want rejection, got %v", err)
	}
	if IsTransient(err) {
		t.Error("rejection must not be transient")
	}
}

func TestSubmitOrderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	_, err := c.SubmitOrder(context.Background(), types.OrderRequest{TokenID: "tok1"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d", apiErr.Status)
	}
	if !IsTransient(err) {
		t.Error("502 should be transient")
	}
}

func TestGetOrderNormalizesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/order/ord-9" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"ord-9","status":"matched","size_matched":"10.5","price":"0.47","transaction_hash":"0xabc"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	o, err := c.GetOrder(context.Background(), "ord-9")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.Status != "MATCHED" {
		t.Errorf("status = %s, want MATCHED", o.Status)
	}
	if o.SizeMatched != 10.5 || o.Price != 0.47 {
		t.Errorf("size/price = %v/%v", o.SizeMatched, o.Price)
	}
	if o.TxHash != "0xabc" {
		t.Errorf("tx hash = %s", o.TxHash)
	}
}

func TestGetMarketResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "mkt-1",
			"closed": true,
			"umaResolutionStatus": "resolved",
			"clobTokenIds": "[\"tokYes\",\"tokNo\"]",
			"outcomePrices": "[\"1\",\"0\"]"
		}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	m, err := c.GetMarket(context.Background(), "mkt-1")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if !m.Resolved {
		t.Fatal("market should be resolved")
	}
	if m.WinningTokenID != "tokYes" {
		t.Errorf("winner = %s, want tokYes", m.WinningTokenID)
	}
}

func TestGetMarketUnresolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"mkt-2","closed":false,"umaResolutionStatus":""}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	m, err := c.GetMarket(context.Background(), "mkt-2")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Resolved {
		t.Error("open market must not report resolved")
	}
}

func TestPaperFillsInstantly(t *testing.T) {
	p := NewPaper()
	ctx := context.Background()

	ack, err := p.SubmitOrder(ctx, types.OrderRequest{TokenID: "tok1", Side: "buy", Price: 0.5, Size: 10})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	o, err := p.GetOrder(ctx, ack.OrderID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.Status != "MATCHED" || o.SizeMatched != 10 {
		t.Errorf("order = %+v", o)
	}

	p.ResolveMarket("mkt-1", "tok1")
	m, _ := p.GetMarket(ctx, "mkt-1")
	if !m.Resolved || m.WinningTokenID != "tok1" {
		t.Errorf("market = %+v", m)
	}
}
