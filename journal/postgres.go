package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the journal in PostgreSQL for multi-session setups where
// several simulation accounts share one database.
type Postgres struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	contracts INTEGER NOT NULL,
	raw_entry_price DOUBLE PRECISION NOT NULL,
	entry_price DOUBLE PRECISION NOT NULL,
	raw_exit_price DOUBLE PRECISION NOT NULL,
	exit_price DOUBLE PRECISION NOT NULL,
	open_time TIMESTAMPTZ NOT NULL,
	close_time TIMESTAMPTZ NOT NULL,
	gross_pnl DOUBLE PRECISION NOT NULL,
	commission DOUBLE PRECISION NOT NULL,
	slippage DOUBLE PRECISION NOT NULL,
	spread DOUBLE PRECISION NOT NULL,
	gap_loss DOUBLE PRECISION NOT NULL,
	net_pnl DOUBLE PRECISION NOT NULL,
	latency_ms DOUBLE PRECISION NOT NULL,
	exit_reason TEXT NOT NULL,
	strategy TEXT NOT NULL,
	confluence_score DOUBLE PRECISION NOT NULL,
	analytics JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time TIMESTAMPTZ NOT NULL,
	balance DOUBLE PRECISION NOT NULL,
	peak_balance DOUBLE PRECISION NOT NULL,
	drawdown DOUBLE PRECISION NOT NULL,
	open_trades INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (j *Postgres) RecordTrade(t TradeRecord) error {
	analytics := t.AnalyticsJSON
	if analytics == "" {
		analytics = "{}"
	}
	_, err := j.pool.Exec(context.Background(), `
		INSERT INTO trades
		(trade_id, instrument, direction, contracts,
		 raw_entry_price, entry_price, raw_exit_price, exit_price,
		 open_time, close_time,
		 gross_pnl, commission, slippage, spread, gap_loss, net_pnl,
		 latency_ms, exit_reason, strategy, confluence_score, analytics)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		t.TradeID, t.Instrument, t.Direction, t.Contracts,
		t.RawEntryPrice, t.EntryPrice, t.RawExitPrice, t.ExitPrice,
		t.OpenTime, t.CloseTime,
		t.GrossPnL, t.Commission, t.Slippage, t.Spread, t.GapLoss, t.NetPnL,
		t.LatencyMs, t.ExitReason, t.Strategy, t.ConfluenceScore, analytics,
	)
	return err
}

func (j *Postgres) RecordEquity(e EquitySnapshot) error {
	_, err := j.pool.Exec(context.Background(), `
		INSERT INTO equity (time, balance, peak_balance, drawdown, open_trades)
		VALUES ($1,$2,$3,$4,$5)`,
		e.Time, e.Balance, e.PeakBalance, e.Drawdown, e.OpenTrades,
	)
	return err
}

// Close is a no-op; the pool is owned by the caller.
func (j *Postgres) Close() error { return nil }
