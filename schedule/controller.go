// Package schedule tracks a cumulative multi-day profit objective and
// shapes position size by pace against it, plus same-day target/loss-floor
// shaping.
package schedule

// Pace classifies progress against the objective.
type Pace string

const (
	PaceAhead             Pace = "ahead"
	PaceOnTrack           Pace = "on-track"
	PaceBehind            Pace = "behind"
	PaceFarBehind         Pace = "significantly-behind"
)

// Config holds the objective parameters.
type Config struct {
	TargetProfit   float64 `json:"target-profit" yaml:"target-profit"`       // cumulative objective
	TradingDays    int     `json:"trading-days" yaml:"trading-days"`         // days allotted
	DailyTarget    float64 `json:"daily-target" yaml:"daily-target"`         // baseline per-day pnl
	DailyLossFloor float64 `json:"daily-loss-floor" yaml:"daily-loss-floor"` // negative dollars
}

func DefaultConfig() Config {
	return Config{
		TargetProfit:   3000,
		TradingDays:    10,
		DailyTarget:    300,
		DailyLossFloor: -600,
	}
}

// State is the controller's serializable aggregate. Win/loss streaks live
// here; the risk throttle and threshold calculator read them from this one
// owner.
type State struct {
	DayIndex          int     `json:"day_index"`
	CumulativePnL     float64 `json:"cumulative_pnl"`
	RequiredDailyPnL  float64 `json:"required_daily_pnl"`
	ConsecutiveWins   int     `json:"consecutive_wins"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	LastResult        string  `json:"last_result,omitempty"` // "win" or "loss"
}

// Controller is mutated only by the simulation driver.
type Controller struct {
	cfg   Config
	state State
}

func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}
	c.recompute()
	return c
}

// State returns a snapshot copy.
func (c *Controller) State() State { return c.state }

// Restore replaces the state wholesale (persistence handoff).
func (c *Controller) Restore(s State) {
	c.state = s
	c.recompute()
}

// OnDayBoundary advances the day counter; the driver calls it exactly once
// per calendar-day crossing.
func (c *Controller) OnDayBoundary() {
	c.state.DayIndex++
	c.recompute()
}

// OnTradeClosed folds a finished trade into the objective and streaks.
func (c *Controller) OnTradeClosed(netPnL float64) {
	c.state.CumulativePnL += netPnL
	if netPnL >= 0 {
		c.state.ConsecutiveWins++
		c.state.ConsecutiveLosses = 0
		c.state.LastResult = "win"
	} else {
		c.state.ConsecutiveLosses++
		c.state.ConsecutiveWins = 0
		c.state.LastResult = "loss"
	}
	c.recompute()
}

func (c *Controller) recompute() {
	remaining := c.cfg.TradingDays - c.state.DayIndex
	if remaining < 1 {
		remaining = 1
	}
	c.state.RequiredDailyPnL = (c.cfg.TargetProfit - c.state.CumulativePnL) / float64(remaining)
}

// Pace compares the required daily pace to the baseline daily target.
func (c *Controller) Pace() Pace {
	if c.cfg.DailyTarget <= 0 {
		return PaceOnTrack
	}
	ratio := c.state.RequiredDailyPnL / c.cfg.DailyTarget
	switch {
	case ratio <= 0.5:
		return PaceAhead
	case ratio <= 1.1:
		return PaceOnTrack
	case ratio <= 1.8:
		return PaceBehind
	default:
		return PaceFarBehind
	}
}

// ScheduleMultiplier pushes modestly harder when behind schedule and eases
// off when ahead. Hard-capped to [0.5,1.5].
func (c *Controller) ScheduleMultiplier() float64 {
	var m float64
	switch c.Pace() {
	case PaceAhead:
		m = 0.8
	case PaceOnTrack:
		m = 1.0
	case PaceBehind:
		m = 1.25
	default:
		m = 1.5
	}
	if m < 0.5 {
		m = 0.5
	}
	if m > 1.5 {
		m = 1.5
	}
	return m
}

// ShapingMultiplier reduces size once the day's target is banked or the
// day's loss approaches its floor.
func (c *Controller) ShapingMultiplier(dayPnL float64) float64 {
	if c.cfg.DailyTarget > 0 && dayPnL >= c.cfg.DailyTarget {
		return 0.5 // target banked, protect it
	}
	if c.cfg.DailyLossFloor < 0 {
		switch {
		case dayPnL <= c.cfg.DailyLossFloor:
			return 0.25
		case dayPnL <= c.cfg.DailyLossFloor*0.8:
			return 0.5 // near the floor
		}
	}
	return 1.0
}

// Multiplier is the combined schedule and same-day shaping factor.
func (c *Controller) Multiplier(dayPnL float64) float64 {
	return c.ScheduleMultiplier() * c.ShapingMultiplier(dayPnL)
}
