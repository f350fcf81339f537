package position

import (
	"fmt"
	"time"

	"futsim/execution"
	"futsim/market"
	"futsim/strategies"
)

// Config holds lifecycle parameters.
type Config struct {
	TrailATRMult       float64 `json:"trail-atr-mult" yaml:"trail-atr-mult"`             // trailing distance as an ATR multiple
	ReversalConfidence float64 `json:"reversal-confidence" yaml:"reversal-confidence"`   // opposite-signal confidence that exits a profitable position
	CommissionPerSide  float64 `json:"commission-per-side" yaml:"commission-per-side"`   // dollars per contract per side
	CutoffHour         int     `json:"cutoff-hour" yaml:"cutoff-hour"`                   // exchange-local hard flatten time
	CutoffMinute       int     `json:"cutoff-minute" yaml:"cutoff-minute"`
}

func DefaultConfig() Config {
	return Config{
		TrailATRMult:       1.5,
		ReversalConfidence: 85,
		CommissionPerSide:  2.25,
		CutoffHour:         15,
		CutoffMinute:       55,
	}
}

// StepOutcome reports what one candle did to the open position.
type StepOutcome struct {
	Trade        *Trade // non-nil iff the position fully closed this bar
	ScaledOut    int    // contracts scaled out this bar
	ExitRejected bool   // the simulator declined an exit order
	ForceClosed  bool
	StopMoved    bool
}

// Manager advances an open position one candle at a time. It owns no state
// of its own beyond configuration; all mutation happens on the Position the
// driver hands it.
type Manager struct {
	cfg  Config
	exec *execution.Simulator
	meta market.InstrumentMeta
}

func NewManager(cfg Config, exec *execution.Simulator, meta market.InstrumentMeta) *Manager {
	return &Manager{cfg: cfg, exec: exec, meta: meta}
}

// AfterCutoff reports whether t is at/after the session's hard flatten time.
func (m *Manager) AfterCutoff(t time.Time) bool {
	et := t.In(market.Eastern)
	return et.Hour()*60+et.Minute() >= m.cfg.CutoffHour*60+m.cfg.CutoffMinute
}

// Step applies one candle to an open position. The opposing signal, if any,
// is the strongest candidate in the opposite direction this bar.
//
// The mandatory cutoff flatten overrides every other rule. Otherwise:
// extremes, target1 (breakeven + trail + 50% scale-out), target2 (half the
// remainder), trail ratchet, then exits in stop -> target -> reversal order.
func (m *Manager) Step(p *Position, c market.Candle, window []market.Candle, atr float64, opposing *strategies.Signal) (StepOutcome, error) {
	var out StepOutcome

	if p == nil || p.Contracts <= 0 {
		return out, fmt.Errorf("position step: no open contracts (invariant violation)")
	}

	// Rule 6 first: at/after the hard cutoff nothing else matters.
	if m.AfterCutoff(c.Time) {
		return m.forceClose(p, c, window)
	}

	// 1. Track excursion extremes.
	if p.HighestPrice == 0 || c.High > p.HighestPrice {
		p.HighestPrice = c.High
	}
	if p.LowestPrice == 0 || c.Low < p.LowestPrice {
		p.LowestPrice = c.Low
	}

	// 2. Target 1: breakeven stop, start trailing, scale out half.
	if !p.Target1Hit && m.reached(p, c, p.Target1) {
		p.Target1Hit = true
		p.StopLoss = p.EntryPrice
		p.TrailingActive = true
		p.TrailingDistance = m.cfg.TrailATRMult * atr

		if n := p.Contracts / 2; n > 0 {
			if err := m.scaleOut(p, c, window, n, p.Target1, &out); err != nil {
				return out, err
			}
		}
	}

	// 3. Target 2: half of what's left.
	if p.Target1Hit && !p.Target2Hit && m.reached(p, c, p.Target2) {
		p.Target2Hit = true

		if n := p.Contracts / 2; n > 0 {
			if err := m.scaleOut(p, c, window, n, p.Target2, &out); err != nil {
				return out, err
			}
		}
	}

	// 4. Ratchet the trailing stop; it never loosens.
	if p.TrailingActive && p.TrailingDistance > 0 {
		if p.Direction == market.Long {
			if cand := c.Close - p.TrailingDistance; cand > p.StopLoss {
				p.StopLoss = cand
				out.StopMoved = true
			}
		} else {
			if cand := c.Close + p.TrailingDistance; cand < p.StopLoss {
				p.StopLoss = cand
				out.StopMoved = true
			}
		}
	}

	// 5. Exit checks, first match wins.
	switch {
	case m.stopHit(p, c):
		return m.exit(p, c, window, p.StopLoss, p.StopLoss, ExitStopLoss)

	case m.reached(p, c, p.TakeProfit):
		return m.exit(p, c, window, p.TakeProfit, 0, ExitTakeProfit)

	case opposing != nil &&
		opposing.Direction == p.Direction.Opposite() &&
		opposing.Confidence >= m.cfg.ReversalConfidence &&
		p.InProfit(c.Close):
		return m.exit(p, c, window, c.Close, 0, ExitReversal)
	}

	return out, nil
}

// reached reports whether the bar touched a favorable price level.
func (m *Manager) reached(p *Position, c market.Candle, level float64) bool {
	if level <= 0 {
		return false
	}
	if p.Direction == market.Long {
		return c.High >= level
	}
	return c.Low <= level
}

func (m *Manager) stopHit(p *Position, c market.Candle) bool {
	if p.StopLoss <= 0 {
		return false
	}
	if p.Direction == market.Long {
		return c.Low <= p.StopLoss
	}
	return c.High >= p.StopLoss
}

// scaleOut closes n contracts at a target level without emitting a Trade.
// A rejected scale-out order simply leaves the contracts on.
func (m *Manager) scaleOut(p *Position, c market.Candle, window []market.Candle, n int, level float64, out *StepOutcome) error {
	res := m.exec.Simulate(execution.Request{
		Candle:   c,
		Window:   window,
		Side:     p.Direction.Opposite(),
		Quantity: n,
		RefPrice: level,
	})
	p.LatencyMs += res.LatencyMs
	if res.Rejected {
		out.ExitRejected = true
		return nil
	}

	filled := res.FilledQuantity
	if filled > p.Contracts {
		return fmt.Errorf("scale-out filled %d of %d open contracts (invariant violation)", filled, p.Contracts)
	}

	p.RealizedGross += float64(p.Direction) * (level - p.EntryPrice) * m.meta.PointValue * float64(filled)
	m.addExitCosts(p, res, level, filled)
	p.Contracts -= filled
	out.ScaledOut += filled
	return nil
}

// exit fully closes the position and emits its Trade. stopPrice is non-zero
// only for stop exits, enabling gap-through detection in the simulator.
func (m *Manager) exit(p *Position, c market.Candle, window []market.Candle, ref, stopPrice float64, reason string) (StepOutcome, error) {
	var out StepOutcome

	res := m.exec.Simulate(execution.Request{
		Candle:    c,
		Window:    window,
		Side:      p.Direction.Opposite(),
		Quantity:  p.Contracts,
		RefPrice:  ref,
		StopPrice: stopPrice,
	})
	p.LatencyMs += res.LatencyMs

	if res.Rejected {
		// Expected steady-state behavior: the position stays on and the
		// next bar tries again.
		out.ExitRejected = true
		return out, nil
	}

	out.Trade = m.close(p, c, res, ref, reason)
	return out, nil
}

// ForceFlatten closes a position unconditionally, outside the normal exit
// ladder. Used when the account is halted mid-bar.
func (m *Manager) ForceFlatten(p *Position, c market.Candle, window []market.Candle) (StepOutcome, error) {
	return m.forceClose(p, c, window)
}

// forceClose flattens unconditionally at the cutoff. If the simulator
// rejects the order, the flatten still happens at the bar's close with no
// modeled costs; this path is never retried or deferred.
func (m *Manager) forceClose(p *Position, c market.Candle, window []market.Candle) (StepOutcome, error) {
	var out StepOutcome
	out.ForceClosed = true

	res := m.exec.Simulate(execution.Request{
		Candle:   c,
		Window:   window,
		Side:     p.Direction.Opposite(),
		Quantity: p.Contracts,
		RefPrice: c.Close,
	})
	p.LatencyMs += res.LatencyMs

	if res.Rejected {
		res = execution.Result{
			Executed:       true,
			FillPrice:      c.Close,
			FilledQuantity: p.Contracts,
		}
	}
	// Partial fills don't apply to a mandatory flatten.
	res.FilledQuantity = p.Contracts

	out.Trade = m.close(p, c, res, c.Close, ExitForceClose)
	return out, nil
}

// close realizes the remaining contracts and assembles the Trade record.
func (m *Manager) close(p *Position, c market.Candle, res execution.Result, rawExit float64, reason string) *Trade {
	n := p.Contracts
	p.RealizedGross += float64(p.Direction) * (rawExit - p.EntryPrice) * m.meta.PointValue * float64(n)
	m.addExitCosts(p, res, rawExit, n)
	p.Contracts = 0

	t := &Trade{
		ID:              p.ID,
		Instrument:      p.Instrument,
		Direction:       p.Direction,
		Contracts:       p.InitialContracts,
		RawEntryPrice:   p.RawEntryPrice,
		EntryPrice:      p.EntryPrice,
		RawExitPrice:    rawExit,
		ExitPrice:       res.FillPrice,
		EntryTime:       p.EntryTime,
		ExitTime:        c.Time,
		HoldingTime:     c.Time.Sub(p.EntryTime),
		GrossPnL:        p.RealizedGross,
		Costs:           p.Costs,
		LatencyMs:       p.LatencyMs,
		ExitReason:      reason,
		StrategyLabel:   p.StrategyLabel,
		ConfluenceScore: p.ConfluenceScore,
		Analytics:       p.Analytics,
	}
	t.NetPnL = t.GrossPnL - t.Costs.Total()
	return t
}

// addExitCosts converts a fill's frictions to dollars for n contracts.
func (m *Manager) addExitCosts(p *Position, res execution.Result, ref float64, n int) {
	fn := float64(n)
	p.Costs.Add(CostBreakdown{
		Commission: m.cfg.CommissionPerSide * fn,
		Slippage:   res.SlippageTicks * m.meta.TickValue * fn,
		Spread:     res.SpreadPoints * m.meta.PointValue * fn,
		GapLoss:    res.GapPoints * m.meta.PointValue * fn,
	})
}
