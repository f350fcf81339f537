// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{
		"trade_id", "instrument", "direction", "contracts",
		"raw_entry_price", "entry_price", "raw_exit_price", "exit_price",
		"open_time", "close_time",
		"gross_pnl", "commission", "slippage", "spread", "gap_loss", "net_pnl",
		"latency_ms", "exit_reason", "strategy", "confluence_score",
	}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "balance", "peak_balance", "drawdown", "open_trades"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{tw, ew, tf, ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	j.trades.Write([]string{
		t.TradeID,
		t.Instrument,
		t.Direction,
		strconv.Itoa(t.Contracts),
		f(t.RawEntryPrice),
		f(t.EntryPrice),
		f(t.RawExitPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.GrossPnL),
		f(t.Commission),
		f(t.Slippage),
		f(t.Spread),
		f(t.GapLoss),
		f(t.NetPnL),
		f(t.LatencyMs),
		t.ExitReason,
		t.Strategy,
		f(t.ConfluenceScore),
	})
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Balance),
		f(e.PeakBalance),
		f(e.Drawdown),
		strconv.Itoa(e.OpenTrades),
	})
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	if err := j.tf.Close(); err != nil {
		j.ef.Close()
		return err
	}
	return j.ef.Close()
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
