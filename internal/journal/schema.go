package journal

const schemaDDL = `
CREATE TABLE IF NOT EXISTS orders (
	trade_id     TEXT PRIMARY KEY,
	order_id     TEXT NOT NULL DEFAULT '',
	market_id    TEXT NOT NULL,
	token_id     TEXT NOT NULL,
	direction    TEXT NOT NULL,
	outcome      TEXT NOT NULL DEFAULT '',
	amount_usd   REAL NOT NULL DEFAULT 0,
	price        REAL NOT NULL DEFAULT 0,
	size         REAL NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT '',
	strategy     TEXT NOT NULL DEFAULT '',
	created_time DATETIME NOT NULL,
	updated_time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_market ON orders(market_id);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_time);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

CREATE TABLE IF NOT EXISTS fills (
	trade_id     TEXT PRIMARY KEY REFERENCES orders(trade_id),
	order_id     TEXT NOT NULL,
	size_matched REAL NOT NULL DEFAULT 0,
	fill_price   REAL NOT NULL DEFAULT 0,
	tx_hash      TEXT NOT NULL DEFAULT '',
	filled_time  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_order ON fills(order_id);
CREATE INDEX IF NOT EXISTS idx_fills_filled ON fills(filled_time);

CREATE TABLE IF NOT EXISTS settlements (
	trade_id     TEXT PRIMARY KEY REFERENCES orders(trade_id),
	market_id    TEXT NOT NULL,
	result       TEXT NOT NULL,
	pnl          REAL NOT NULL DEFAULT 0,
	exit_price   REAL NOT NULL DEFAULT 0,
	settled_time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settlements_market ON settlements(market_id);
CREATE INDEX IF NOT EXISTS idx_settlements_settled ON settlements(settled_time);

CREATE VIEW IF NOT EXISTS v_daily_pnl AS
SELECT
	DATE(s.settled_time) AS date,
	SUM(s.pnl) AS pnl,
	SUM(CASE WHEN s.result = 'win' THEN 1 ELSE 0 END) AS wins,
	SUM(CASE WHEN s.result = 'loss' THEN 1 ELSE 0 END) AS losses,
	COUNT(*) AS trades
FROM settlements s
GROUP BY DATE(s.settled_time)
ORDER BY date;

CREATE VIEW IF NOT EXISTS v_positions AS
SELECT
	o.trade_id,
	o.market_id,
	o.token_id,
	o.direction,
	o.amount_usd,
	o.size,
	o.status,
	COALESCE(s.result, '') AS result,
	COALESCE(s.pnl, 0) AS pnl,
	o.created_time
FROM orders o
LEFT JOIN settlements s ON o.trade_id = s.trade_id;
`
