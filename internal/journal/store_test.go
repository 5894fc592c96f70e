package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOrderFillSettlementLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := &OrderRecord{
		TradeID: "t1", MarketID: "mkt-1", TokenID: "tokYes",
		Direction: "buy", Outcome: "Yes",
		AmountUSD: 5, Price: 0.48, Size: 10.42,
		Status: "pending", Strategy: "momentum",
		CreatedTime: now, UpdatedTime: now,
	}
	if err := s.UpsertOrder(ctx, order); err != nil {
		t.Fatalf("UpsertOrder: %v", err)
	}

	// Status updates flow through the upsert.
	order.OrderID = "ord-1"
	order.Status = "filled"
	order.UpdatedTime = now.Add(time.Second)
	if err := s.UpsertOrder(ctx, order); err != nil {
		t.Fatalf("UpsertOrder update: %v", err)
	}

	if err := s.InsertFill(ctx, &FillRecord{
		TradeID: "t1", OrderID: "ord-1", SizeMatched: 10.42, FillPrice: 0.48,
		TxHash: "0xabc", FilledTime: now.Add(time.Second),
	}); err != nil {
		t.Fatalf("InsertFill: %v", err)
	}

	open, err := s.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(open) != 1 || open[0].TradeID != "t1" {
		t.Fatalf("open positions = %+v", open)
	}

	if err := s.UpsertSettlement(ctx, &SettlementRecord{
		TradeID: "t1", MarketID: "mkt-1", Result: "win",
		PnL: 5.42, ExitPrice: 1, SettledTime: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("UpsertSettlement: %v", err)
	}

	open, err = s.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("settled trade still open: %+v", open)
	}

	daily, err := s.GetDailyPnL(ctx)
	if err != nil {
		t.Fatalf("GetDailyPnL: %v", err)
	}
	if len(daily) != 1 || daily[0].PnL != 5.42 || daily[0].Wins != 1 {
		t.Errorf("daily pnl = %+v", daily)
	}
}

func TestInsertFillIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.UpsertOrder(ctx, &OrderRecord{
		TradeID: "t1", MarketID: "m", TokenID: "tok", Direction: "buy",
		Status: "filled", CreatedTime: now, UpdatedTime: now,
	}); err != nil {
		t.Fatalf("UpsertOrder: %v", err)
	}

	fill := &FillRecord{TradeID: "t1", OrderID: "ord-1", SizeMatched: 10, FilledTime: now}
	if err := s.InsertFill(ctx, fill); err != nil {
		t.Fatalf("first InsertFill: %v", err)
	}
	if err := s.InsertFill(ctx, fill); err != nil {
		t.Fatalf("duplicate InsertFill: %v", err)
	}
}

func TestRecentSettlements(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"t1", "t2", "t3"} {
		if err := s.UpsertOrder(ctx, &OrderRecord{
			TradeID: id, MarketID: "m", TokenID: "tok", Direction: "buy",
			Status: "filled", CreatedTime: base, UpdatedTime: base,
		}); err != nil {
			t.Fatalf("UpsertOrder: %v", err)
		}
		if err := s.UpsertSettlement(ctx, &SettlementRecord{
			TradeID: id, MarketID: "m", Result: "loss", PnL: -5,
			SettledTime: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("UpsertSettlement: %v", err)
		}
	}

	recent, err := s.RecentSettlements(ctx, 2)
	if err != nil {
		t.Fatalf("RecentSettlements: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].TradeID != "t3" {
		t.Errorf("newest first: got %s", recent[0].TradeID)
	}
}
