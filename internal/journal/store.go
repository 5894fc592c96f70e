// Package journal is a SQLite audit trail of every order, fill and
// settlement the bot touches. It exists alongside the JSON state file:
// the state file is the source of truth for the engine, the journal is
// append-mostly history for analysis and the tradelog CLI.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) UpsertOrder(ctx context.Context, o *OrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (trade_id, order_id, market_id, token_id, direction, outcome,
			amount_usd, price, size, status, strategy, created_time, updated_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			order_id = excluded.order_id,
			price = excluded.price,
			size = excluded.size,
			status = excluded.status,
			updated_time = excluded.updated_time`,
		o.TradeID, o.OrderID, o.MarketID, o.TokenID, o.Direction, o.Outcome,
		o.AmountUSD, o.Price, o.Size, o.Status, o.Strategy,
		o.CreatedTime, o.UpdatedTime,
	)
	return err
}

func (s *Store) InsertFill(ctx context.Context, f *FillRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO fills (trade_id, order_id, size_matched, fill_price, tx_hash, filled_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.TradeID, f.OrderID, f.SizeMatched, f.FillPrice, f.TxHash, f.FilledTime,
	)
	return err
}

func (s *Store) UpsertSettlement(ctx context.Context, st *SettlementRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (trade_id, market_id, result, pnl, exit_price, settled_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			result = excluded.result,
			pnl = excluded.pnl,
			exit_price = excluded.exit_price,
			settled_time = excluded.settled_time`,
		st.TradeID, st.MarketID, st.Result, st.PnL, st.ExitPrice, st.SettledTime,
	)
	return err
}

func (s *Store) GetDailyPnL(ctx context.Context) ([]DailyPnL, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, pnl, wins, losses, trades FROM v_daily_pnl`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DailyPnL
	for rows.Next() {
		var d DailyPnL
		if err := rows.Scan(&d.Date, &d.PnL, &d.Wins, &d.Losses, &d.Trades); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func (s *Store) GetPositions(ctx context.Context) ([]Position, error) {
	return s.queryPositions(ctx, `
		SELECT trade_id, market_id, token_id, direction, amount_usd, size, status, result, pnl, created_time
		FROM v_positions ORDER BY created_time DESC`)
}

func (s *Store) OpenPositions(ctx context.Context) ([]Position, error) {
	return s.queryPositions(ctx, `
		SELECT trade_id, market_id, token_id, direction, amount_usd, size, status, result, pnl, created_time
		FROM v_positions
		WHERE result = '' AND status = 'filled'
		ORDER BY created_time DESC`)
}

func (s *Store) queryPositions(ctx context.Context, query string) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.TradeID, &p.MarketID, &p.TokenID, &p.Direction,
			&p.AmountUSD, &p.Size, &p.Status, &p.Result, &p.PnL, &p.CreatedTime); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (s *Store) RecentSettlements(ctx context.Context, limit int) ([]SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, market_id, result, pnl, exit_price, settled_time
		FROM settlements ORDER BY settled_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SettlementRecord
	for rows.Next() {
		var st SettlementRecord
		if err := rows.Scan(&st.TradeID, &st.MarketID, &st.Result, &st.PnL,
			&st.ExitPrice, &st.SettledTime); err != nil {
			return nil, err
		}
		results = append(results, st)
	}
	return results, rows.Err()
}
