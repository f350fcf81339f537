// Package position implements the per-instrument position lifecycle:
// partial profit-taking at two targets, breakeven move, ratcheting trailing
// stop, exit precedence, and the mandatory session-cutoff flatten.
package position

import (
	"time"

	"futsim/market"
)

// CostBreakdown itemizes the execution costs of a trade in account dollars.
// Gap loss is kept distinct from ordinary slippage.
type CostBreakdown struct {
	Commission float64 `json:"commission"`
	Slippage   float64 `json:"slippage"`
	Spread     float64 `json:"spread"`
	GapLoss    float64 `json:"gap_loss"`
}

func (c *CostBreakdown) Add(o CostBreakdown) {
	c.Commission += o.Commission
	c.Slippage += o.Slippage
	c.Spread += o.Spread
	c.GapLoss += o.GapLoss
}

func (c CostBreakdown) Total() float64 {
	return c.Commission + c.Slippage + c.Spread + c.GapLoss
}

// EntryAnalytics captures the market context at entry, exported per trade
// for downstream analysis. The core only produces this data.
type EntryAnalytics struct {
	StrategyID    string  `json:"strategy_id"`
	RSI           float64 `json:"rsi"`
	MACDHistogram float64 `json:"macd_histogram"`
	EMADistance   float64 `json:"ema_distance"` // close minus long EMA
	ATR           float64 `json:"atr"`
	TrendStrength float64 `json:"trend_strength"`
	Regime        string  `json:"regime"`
	Session       string  `json:"session"`
	Hour          int     `json:"hour"` // exchange-local hour of entry
}

// Position is the single open position on an instrument. Contracts only
// decrease while open (scale-outs); a full close converts it to a Trade.
type Position struct {
	ID         string           `json:"id"`
	Instrument string           `json:"instrument"`
	Direction  market.Direction `json:"direction"`

	RawEntryPrice float64   `json:"raw_entry_price"` // signal price before costs
	EntryPrice    float64   `json:"entry_price"`     // actual fill
	EntryTime     time.Time `json:"entry_time"`

	Contracts        int     `json:"contracts"`
	InitialContracts int     `json:"initial_contracts"`
	StopLoss         float64 `json:"stop_loss"`
	InitialStopLoss  float64 `json:"initial_stop_loss"`
	TakeProfit       float64 `json:"take_profit"`
	Target1          float64 `json:"target1"`
	Target2          float64 `json:"target2"`

	Target1Hit       bool    `json:"target1_hit"`
	Target2Hit       bool    `json:"target2_hit"`
	TrailingActive   bool    `json:"trailing_active"`
	TrailingDistance float64 `json:"trailing_distance"`

	HighestPrice float64 `json:"highest_price"`
	LowestPrice  float64 `json:"lowest_price"`

	ConfluenceScore float64        `json:"confluence_score"`
	StrategyLabel   string         `json:"strategy_label"`
	Analytics       EntryAnalytics `json:"analytics"`

	// Running totals across scale-outs, folded into the final Trade.
	RealizedGross float64       `json:"realized_gross"`
	Costs         CostBreakdown `json:"costs"`
	LatencyMs     float64       `json:"latency_ms"`
}

// InProfit reports whether price has moved past the entry in the position's
// favor.
func (p *Position) InProfit(price float64) bool {
	if p.Direction == market.Long {
		return price > p.EntryPrice
	}
	return price < p.EntryPrice
}

// UnrealizedPoints is the open PnL in price points per contract.
func (p *Position) UnrealizedPoints(price float64) float64 {
	return float64(p.Direction) * (price - p.EntryPrice)
}

// Trade is the immutable record of a fully closed position.
type Trade struct {
	ID         string           `json:"id"`
	Instrument string           `json:"instrument"`
	Direction  market.Direction `json:"direction"`
	Contracts  int              `json:"contracts"` // opened, before scale-outs

	RawEntryPrice float64 `json:"raw_entry_price"`
	EntryPrice    float64 `json:"entry_price"`
	RawExitPrice  float64 `json:"raw_exit_price"`
	ExitPrice     float64 `json:"exit_price"`

	EntryTime   time.Time     `json:"entry_time"`
	ExitTime    time.Time     `json:"exit_time"`
	HoldingTime time.Duration `json:"holding_time"`

	GrossPnL float64       `json:"gross_pnl"`
	Costs    CostBreakdown `json:"costs"`
	NetPnL   float64       `json:"net_pnl"`

	LatencyMs  float64 `json:"latency_ms"` // summed entry+exit latency
	ExitReason string  `json:"exit_reason"`

	StrategyLabel   string         `json:"strategy_label"`
	ConfluenceScore float64        `json:"confluence_score"`
	Analytics       EntryAnalytics `json:"analytics"`
}

// Exit reasons, exactly one recorded per closed trade.
const (
	ExitStopLoss   = "StopLoss"
	ExitTakeProfit = "TakeProfit"
	ExitReversal   = "ReversalSignal"
	ExitForceClose = "ForceClose"
)
