// Package journal records closed trades and equity snapshots.
package journal

import (
	"time"

	"futsim/position"
)

// TradeRecord is the persisted form of a closed trade.
type TradeRecord struct {
	TradeID    string
	Instrument string
	Direction  string
	Contracts  int

	RawEntryPrice float64
	EntryPrice    float64
	RawExitPrice  float64
	ExitPrice     float64

	OpenTime  time.Time
	CloseTime time.Time

	GrossPnL   float64
	Commission float64
	Slippage   float64
	Spread     float64
	GapLoss    float64
	NetPnL     float64

	LatencyMs       float64
	ExitReason      string
	Strategy        string
	ConfluenceScore float64
	AnalyticsJSON   string // serialized entry analytics
}

// EquitySnapshot is one point on the equity curve.
type EquitySnapshot struct {
	Time        time.Time
	Balance     float64
	PeakBalance float64
	Drawdown    float64
	OpenTrades  int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromTrade converts a closed position to its journal record.
// analyticsJSON is marshaled by the caller so the journal stays off the
// hot-path encoding decisions.
func FromTrade(t *position.Trade, analyticsJSON string) TradeRecord {
	return TradeRecord{
		TradeID:         t.ID,
		Instrument:      t.Instrument,
		Direction:       t.Direction.String(),
		Contracts:       t.Contracts,
		RawEntryPrice:   t.RawEntryPrice,
		EntryPrice:      t.EntryPrice,
		RawExitPrice:    t.RawExitPrice,
		ExitPrice:       t.ExitPrice,
		OpenTime:        t.EntryTime,
		CloseTime:       t.ExitTime,
		GrossPnL:        t.GrossPnL,
		Commission:      t.Costs.Commission,
		Slippage:        t.Costs.Slippage,
		Spread:          t.Costs.Spread,
		GapLoss:         t.Costs.GapLoss,
		NetPnL:          t.NetPnL,
		LatencyMs:       t.LatencyMs,
		ExitReason:      t.ExitReason,
		Strategy:        t.StrategyLabel,
		ConfluenceScore: t.ConfluenceScore,
		AnalyticsJSON:   analyticsJSON,
	}
}

// Nop discards everything; useful when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
