// Package sim drives the per-candle trading simulation: it owns all mutable
// session state and invokes the execution, lifecycle, confluence, risk, and
// schedule components in order, one candle fully processed before the next.
package sim

import (
	"time"

	"futsim/position"
	"futsim/risk"
	"futsim/schedule"
)

// State is the driver's mutable aggregate. The Session is its only writer.
type State struct {
	Running      bool    `json:"running"`
	CurrentIndex int     `json:"current_index"`
	Balance      float64 `json:"balance"`
	PeakBalance  float64 `json:"peak_balance"`
	MaxDrawdown  float64 `json:"max_drawdown"`

	Wins   int `json:"wins"`
	Losses int `json:"losses"`

	Costs position.CostBreakdown `json:"costs"`

	OrdersSubmitted int     `json:"orders_submitted"`
	OrdersRejected  int     `json:"orders_rejected"`
	PartialFills    int     `json:"partial_fills"`
	LatencySumMs    float64 `json:"latency_sum_ms"`

	StrategyPnL map[string]float64 `json:"strategy_pnl"`

	Trades []position.Trade `json:"trades"`
}

// ExecQuality summarizes execution realism statistics for reports.
type ExecQuality struct {
	OrdersSubmitted int     `json:"orders_submitted"`
	OrdersRejected  int     `json:"orders_rejected"`
	RejectRate      float64 `json:"reject_rate"`
	PartialFills    int     `json:"partial_fills"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}

// Report is the snapshot returned by every control-surface operation.
type Report struct {
	Running      bool      `json:"running"`
	Halted       bool      `json:"halted"`
	Unsynced     bool      `json:"unsynced"`
	CurrentIndex int       `json:"current_index"`
	LastCandle   time.Time `json:"last_candle,omitempty"`

	Balance     float64 `json:"balance"`
	PeakBalance float64 `json:"peak_balance"`
	NetPnL      float64 `json:"net_pnl"`
	MaxDrawdown float64 `json:"max_drawdown"`

	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`

	Risk     risk.State             `json:"risk"`
	Schedule schedule.State         `json:"schedule"`
	Costs    position.CostBreakdown `json:"costs"`
	Exec     ExecQuality            `json:"execution_quality"`

	OpenPosition *position.Position `json:"open_position,omitempty"`
	RecentTrades []position.Trade   `json:"recent_trades"`

	StrategyPnL map[string]float64 `json:"strategy_pnl"`
}

// snapshotPayload is the versioned persistence record for a session.
// Everything needed to resume mid-series after a restart.
type snapshotPayload struct {
	Instrument string             `json:"instrument"`
	State      State              `json:"state"`
	Risk       risk.State         `json:"risk"`
	Schedule   schedule.State     `json:"schedule"`
	Position   *position.Position `json:"position,omitempty"`

	LastCandle     time.Time `json:"last_candle"`
	DayPnL         float64   `json:"day_pnl"`
	TradesToday    int       `json:"trades_today"`
	BarsSinceTrade int       `json:"bars_since_trade"`
	BarsSinceLoss  int       `json:"bars_since_loss"`
	Halted         bool      `json:"halted"`
}
