// Package risk converts drawdown, trade frequency, and recent performance
// into continuous position-size multipliers. Only an account violation and
// the pre-close window block trading outright; everything else throttles.
package risk

import "futsim/market"

// Level is the drawdown ladder position.
type Level int

const (
	LevelSafe Level = iota
	LevelCaution
	LevelWarning
	LevelDanger
	LevelStopped
	LevelViolated
)

func (l Level) String() string {
	switch l {
	case LevelSafe:
		return "SAFE"
	case LevelCaution:
		return "CAUTION"
	case LevelWarning:
		return "WARNING"
	case LevelDanger:
		return "DANGER"
	case LevelStopped:
		return "STOPPED"
	default:
		return "VIOLATED"
	}
}

// State is the throttle's output for one candle.
type State struct {
	DrawdownPercent float64 `json:"drawdown_percent"` // of the hard ceiling
	Level           Level   `json:"level"`
	SizeMultiplier  float64 `json:"size_multiplier"` // [0,1]
	CanTrade        bool    `json:"can_trade"`
	StopReason      string  `json:"stop_reason,omitempty"`
}

// Config holds the risk limits.
type Config struct {
	MaxTrailingDrawdown float64 `json:"max-trailing-drawdown" yaml:"max-trailing-drawdown"` // dollars from peak equity
	DailyLossLimit      float64 `json:"daily-loss-limit" yaml:"daily-loss-limit"`           // dollars
	MaxTradesPerDay     int     `json:"max-trades-per-day" yaml:"max-trades-per-day"`
	CooldownBars        int     `json:"cooldown-bars" yaml:"cooldown-bars"`                       // between trades
	LossCooldownBars    int     `json:"loss-cooldown-bars" yaml:"loss-cooldown-bars"`             // after a loss streak
	LossStreakTrigger   int     `json:"loss-streak-trigger" yaml:"loss-streak-trigger"`           // consecutive losses that arm the cooldown
	RiskPercent         float64 `json:"risk-percent" yaml:"risk-percent"`                         // of equity per trade
	MaxContracts        int     `json:"max-contracts" yaml:"max-contracts"`
}

func DefaultConfig() Config {
	return Config{
		MaxTrailingDrawdown: 2500,
		DailyLossLimit:      1500,
		MaxTradesPerDay:     10,
		CooldownBars:        3,
		LossCooldownBars:    12,
		LossStreakTrigger:   3,
		RiskPercent:         0.01,
		MaxContracts:        5,
	}
}

// Inputs feed one throttle evaluation.
type Inputs struct {
	Balance     float64
	PeakBalance float64
	DailyPnL    float64

	TradesToday        int
	BarsSinceLastTrade int // -1 before the first trade
	ConsecutiveLosses  int
	BarsSinceLastLoss  int // -1 before the first loss

	TimeframeAligned bool // higher-timeframe trend agrees with the entry
	Session          market.Session
	SignalQuality    float64 // 0-100 from the selector

	PreCloseWindow bool // inside the mandatory no-new-entries window
}

// Throttle computes the composite size multiplier.
type Throttle struct {
	cfg Config
}

func NewThrottle(cfg Config) *Throttle {
	return &Throttle{cfg: cfg}
}

// Evaluate recomputes the risk state from scratch. It never mutates inputs.
func (t *Throttle) Evaluate(in Inputs) State {
	st := t.ladder(in)
	if !st.CanTrade {
		return st
	}

	// Binary block: the pre-close window is never throttled around.
	if in.PreCloseWindow {
		st.CanTrade = false
		st.SizeMultiplier = 0
		st.StopReason = "pre-close window"
		return st
	}

	mult := st.SizeMultiplier
	mult *= t.dailyLossMult(in.DailyPnL)
	mult *= t.frequencyMult(in.TradesToday)
	mult *= t.cooldownMult(in.BarsSinceLastTrade)
	mult *= t.lossStreakMult(in.ConsecutiveLosses, in.BarsSinceLastLoss)
	mult *= alignmentMult(in.TimeframeAligned)
	mult *= sessionMult(in.Session)
	mult *= clamp(in.SignalQuality/100, 0.1, 1.0)

	st.SizeMultiplier = clamp(mult, 0, 1)
	return st
}

// ladder maps trailing drawdown to a level. Thresholds are percentages of
// the hard ceiling: CAUTION from 40, WARNING 60, DANGER 80, STOPPED 90,
// VIOLATED at 100.
func (t *Throttle) ladder(in Inputs) State {
	dd := in.PeakBalance - in.Balance
	if dd < 0 {
		dd = 0
	}
	pct := 0.0
	if t.cfg.MaxTrailingDrawdown > 0 {
		pct = dd / t.cfg.MaxTrailingDrawdown * 100
	}

	st := State{DrawdownPercent: pct, CanTrade: true}

	switch {
	case pct >= 100:
		st.Level = LevelViolated
		st.SizeMultiplier = 0
		st.CanTrade = false
		st.StopReason = "account violated: trailing drawdown ceiling breached"
	case pct >= 90:
		st.Level = LevelStopped
		st.SizeMultiplier = 0
		st.CanTrade = false
		st.StopReason = "drawdown stop: within 10% of ceiling"
	case pct >= 80:
		st.Level = LevelDanger
		st.SizeMultiplier = 0.25
	case pct >= 60:
		st.Level = LevelWarning
		st.SizeMultiplier = 0.5
	case pct >= 40:
		st.Level = LevelCaution
		st.SizeMultiplier = 0.75
	default:
		st.Level = LevelSafe
		st.SizeMultiplier = 1.0
	}
	return st
}

// dailyLossMult shrinks as the day's loss approaches the daily limit.
func (t *Throttle) dailyLossMult(dailyPnL float64) float64 {
	if t.cfg.DailyLossLimit <= 0 || dailyPnL >= 0 {
		return 1
	}
	used := -dailyPnL / t.cfg.DailyLossLimit
	return clamp(1-used, 0.1, 1.0)
}

// frequencyMult penalizes overtrading quadratically toward the daily cap.
func (t *Throttle) frequencyMult(trades int) float64 {
	if t.cfg.MaxTradesPerDay <= 0 {
		return 1
	}
	ratio := float64(trades) / float64(t.cfg.MaxTradesPerDay)
	return clamp(1-ratio*ratio, 0.1, 1.0)
}

// cooldownMult ramps back to 1 over the inter-trade cooldown.
func (t *Throttle) cooldownMult(barsSince int) float64 {
	if t.cfg.CooldownBars <= 0 || barsSince < 0 || barsSince >= t.cfg.CooldownBars {
		return 1
	}
	return clamp(float64(barsSince+1)/float64(t.cfg.CooldownBars+1), 0.1, 1.0)
}

// lossStreakMult floors sizing after a loss streak until the cooldown
// elapses, then releases fully.
func (t *Throttle) lossStreakMult(losses, barsSinceLoss int) float64 {
	if t.cfg.LossStreakTrigger <= 0 || losses < t.cfg.LossStreakTrigger {
		return 1
	}
	if barsSinceLoss >= 0 && barsSinceLoss >= t.cfg.LossCooldownBars {
		return 1
	}
	return 0.1
}

func alignmentMult(aligned bool) float64 {
	if aligned {
		return 1
	}
	return 0.6
}

func sessionMult(s market.Session) float64 {
	switch s {
	case market.SessionMid:
		return 1.0
	case market.SessionOpen, market.SessionPower:
		return 0.9
	case market.SessionClose:
		return 0.85
	default:
		return 0.5
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
