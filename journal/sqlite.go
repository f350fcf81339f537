package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, instrument, direction, contracts,
		 raw_entry_price, entry_price, raw_exit_price, exit_price,
		 open_time, close_time,
		 gross_pnl, commission, slippage, spread, gap_loss, net_pnl,
		 latency_ms, exit_reason, strategy, confluence_score, analytics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Instrument, t.Direction, t.Contracts,
		t.RawEntryPrice, t.EntryPrice, t.RawExitPrice, t.ExitPrice,
		t.OpenTime, t.CloseTime,
		t.GrossPnL, t.Commission, t.Slippage, t.Spread, t.GapLoss, t.NetPnL,
		t.LatencyMs, t.ExitReason, t.Strategy, t.ConfluenceScore, t.AnalyticsJSON,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, balance, peak_balance, drawdown, open_trades)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.PeakBalance, e.Drawdown, e.OpenTrades,
	)
	return err
}

// ListTrades returns closed trades in close-time order, newest last.
func (j *SQLite) ListTrades(limit int) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, instrument, direction, contracts,
		       raw_entry_price, entry_price, raw_exit_price, exit_price,
		       open_time, close_time,
		       gross_pnl, commission, slippage, spread, gap_loss, net_pnl,
		       latency_ms, exit_reason, strategy, confluence_score, analytics
		FROM trades ORDER BY close_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(
			&t.TradeID, &t.Instrument, &t.Direction, &t.Contracts,
			&t.RawEntryPrice, &t.EntryPrice, &t.RawExitPrice, &t.ExitPrice,
			&t.OpenTime, &t.CloseTime,
			&t.GrossPnL, &t.Commission, &t.Slippage, &t.Spread, &t.GapLoss, &t.NetPnL,
			&t.LatencyMs, &t.ExitReason, &t.Strategy, &t.ConfluenceScore, &t.AnalyticsJSON,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first for callers that replay.
	for i, jj := 0, len(out)-1; i < jj; i, jj = i+1, jj-1 {
		out[i], out[jj] = out[jj], out[i]
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
