// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	contracts INTEGER NOT NULL,
	raw_entry_price REAL NOT NULL,
	entry_price REAL NOT NULL,
	raw_exit_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	gross_pnl REAL NOT NULL,
	commission REAL NOT NULL,
	slippage REAL NOT NULL,
	spread REAL NOT NULL,
	gap_loss REAL NOT NULL,
	net_pnl REAL NOT NULL,
	latency_ms REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	strategy TEXT NOT NULL,
	confluence_score REAL NOT NULL,
	analytics TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	peak_balance REAL NOT NULL,
	drawdown REAL NOT NULL,
	open_trades INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
