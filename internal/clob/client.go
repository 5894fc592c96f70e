package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baguette88/polymarket-trading-bot/internal/interfaces"
	"github.com/baguette88/polymarket-trading-bot/internal/logger"
	"github.com/baguette88/polymarket-trading-bot/internal/types"
)

// ClientConfig configures the REST client. Hosts default to the
// production CLOB and Gamma endpoints.
type ClientConfig struct {
	ClobHost  string
	GammaHost string
	APIKey    string
	Timeout   time.Duration
}

// Client talks to the Polymarket CLOB for orders and books, and to the
// Gamma API for market resolution state.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

var _ interfaces.Exchange = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	if cfg.ClobHost == "" {
		cfg.ClobHost = "https://clob.polymarket.com"
	}
	if cfg.GammaHost == "" {
		cfg.GammaHost = "https://gamma-api.polymarket.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- wire types ---

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireBook struct {
	Bids []wireLevel `json:"bids"`
	Asks []wireLevel `json:"asks"`
}

type wireOrderAck struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

type wireOrder struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	SizeMatched     string `json:"size_matched"`
	Price           string `json:"price"`
	TransactionHash string `json:"transaction_hash"`
}

type wireMarket struct {
	ID                  string `json:"id"`
	Closed              bool   `json:"closed"`
	UmaResolutionStatus string `json:"umaResolutionStatus"`
	ClobTokenIDs        string `json:"clobTokenIds"`  // JSON-encoded array
	OutcomePrices       string `json:"outcomePrices"` // JSON-encoded array
	EndDate             string `json:"endDate"`
}

// GetOrderBook fetches and normalizes the book for a token: best bid
// and ask, spread, mid and top-of-book depth.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (types.Orderbook, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var wb wireBook
	if err := c.get(ctx, c.cfg.ClobHost, "/book", params, &wb); err != nil {
		return types.Orderbook{}, fmt.Errorf("fetching book for %s: %w", tokenID, err)
	}

	book := types.Orderbook{TokenID: tokenID}
	for _, lvl := range wb.Bids {
		p, s := parseLevel(lvl)
		book.Bids = append(book.Bids, types.PriceLevel{Price: p, Size: s})
		if p > book.Bid {
			book.Bid = p
		}
	}
	// The book endpoint does not guarantee level ordering.
	book.Ask = 1
	for _, lvl := range wb.Asks {
		p, s := parseLevel(lvl)
		book.Asks = append(book.Asks, types.PriceLevel{Price: p, Size: s})
		if p < book.Ask {
			book.Ask = p
		}
	}
	if len(book.Asks) == 0 {
		book.Ask = 0
	}
	book.Spread = round4(book.Ask - book.Bid)
	book.Mid = round4((book.Ask + book.Bid) / 2)
	book.BidDepth = depth(book.Bids)
	book.AskDepth = depth(book.Asks)
	return book, nil
}

// SubmitOrder posts an order. An unsuccessful ack is a terminal
// RejectionError: the exchange received the order and refused it.
func (c *Client) SubmitOrder(ctx context.Context, req types.OrderRequest) (types.OrderAck, error) {
	body := map[string]any{
		"token_id": req.TokenID,
		"side":     strings.ToUpper(req.Side),
		"price":    req.Price,
		"size":     req.Size,
	}

	var ack wireOrderAck
	if err := c.post(ctx, c.cfg.ClobHost, "/order", body, &ack); err != nil {
		return types.OrderAck{}, err
	}
	if !ack.Success || ack.OrderID == "" {
		return types.OrderAck{}, &RejectionError{Msg: ack.ErrorMsg}
	}
	return types.OrderAck{OrderID: ack.OrderID, Status: ack.Status}, nil
}

// GetOrder fetches the exchange-side status of an order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	var wo wireOrder
	if err := c.get(ctx, c.cfg.ClobHost, "/data/order/"+orderID, nil, &wo); err != nil {
		return types.Order{}, fmt.Errorf("fetching order %s: %w", orderID, err)
	}
	return types.Order{
		ID:          wo.ID,
		Status:      strings.ToUpper(wo.Status),
		SizeMatched: parseFloat(wo.SizeMatched),
		Price:       parseFloat(wo.Price),
		TxHash:      wo.TransactionHash,
	}, nil
}

// GetMarket fetches resolution state from the Gamma API. A market is
// resolved once it is closed and its UMA status reports resolved; the
// winning token is the one whose outcome price settled at 1.
func (c *Client) GetMarket(ctx context.Context, marketID string) (types.Market, error) {
	var wm wireMarket
	if err := c.get(ctx, c.cfg.GammaHost, "/markets/"+marketID, nil, &wm); err != nil {
		return types.Market{}, fmt.Errorf("fetching market %s: %w", marketID, err)
	}

	m := types.Market{ID: wm.ID}
	if wm.EndDate != "" {
		if t, err := time.Parse(time.RFC3339, wm.EndDate); err == nil {
			m.EndTime = t
		}
	}
	if !wm.Closed || wm.UmaResolutionStatus != "resolved" {
		return m, nil
	}

	tokens, prices := decodeStringArray(wm.ClobTokenIDs), decodeStringArray(wm.OutcomePrices)
	for i, p := range prices {
		if i < len(tokens) && parseFloat(p) == 1 {
			m.Resolved = true
			m.WinningTokenID = tokens[i]
			break
		}
	}
	return m, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]any{"orderID": orderID}
	return c.do(ctx, http.MethodDelete, c.cfg.ClobHost+"/order", body, nil)
}

// --- transport ---

func (c *Client) get(ctx context.Context, host, path string, params url.Values, out any) error {
	reqURL := host + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, reqURL, nil, out)
}

func (c *Client) post(ctx context.Context, host, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, host+path, body, out)
}

func (c *Client) do(ctx context.Context, method, reqURL string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("POLY-API-KEY", c.cfg.APIKey)
	}

	logger.Debug(ctx, "clob request", "method", method, "url", reqURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clob request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// --- helpers ---

func parseLevel(lvl wireLevel) (price, size float64) {
	return parseFloat(lvl.Price), parseFloat(lvl.Size)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// decodeStringArray handles gamma's JSON-encoded array strings, e.g.
// `["123","456"]` delivered inside a string field.
func decodeStringArray(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func depth(levels []types.PriceLevel) float64 {
	sum := 0.0
	for i, lvl := range levels {
		if i >= 5 {
			break
		}
		sum += lvl.Size
	}
	return sum
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
