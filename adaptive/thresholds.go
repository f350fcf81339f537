package adaptive

import "futsim/market"

// Thresholds are the entry gates a direction must clear in the signal
// selector.
type Thresholds struct {
	Confluence float64 `json:"confluence"`  // required confluence score, clamped [30,95]
	Confidence float64 `json:"confidence"`  // required mean confidence, clamped [40,95]
	RiskReward float64 `json:"risk_reward"` // required minimum R:R, clamped [1.2,4.0]
}

// Config holds the base gates before adjustments.
type Config struct {
	BaseConfluence float64 `json:"base-confluence" yaml:"base-confluence"`
	BaseConfidence float64 `json:"base-confidence" yaml:"base-confidence"`
	BaseRiskReward float64 `json:"base-risk-reward" yaml:"base-risk-reward"`
}

func DefaultConfig() Config {
	return Config{
		BaseConfluence: 62,
		BaseConfidence: 68,
		BaseRiskReward: 2.0,
	}
}

// Inputs feed one threshold computation.
type Inputs struct {
	Regime            Regime
	Session           market.Session
	Hour              int // exchange-local
	ConsecutiveWins   int
	ConsecutiveLosses int
}

// Calculator computes regime/session/performance-adjusted gates.
type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Thresholds applies signed adjustments to the base gates and clamps the
// result to fixed bands.
func (c *Calculator) Thresholds(in Inputs) Thresholds {
	conf := c.cfg.BaseConfluence
	cnf := c.cfg.BaseConfidence
	rr := c.cfg.BaseRiskReward

	// Regime: clean trends relax the gates, disorder tightens them.
	switch in.Regime {
	case RegimeTrendStrong:
		conf -= 6
		cnf -= 4
		rr -= 0.2
	case RegimeTrendWeak:
		conf -= 2
	case RegimeRangeTight:
		conf += 4
		cnf += 2
	case RegimeRangeWide:
		conf += 6
		cnf += 3
		rr += 0.2
	case RegimeVolatilityHigh:
		conf += 8
		cnf += 5
		rr += 0.4
	case RegimeVolatilityLow:
		conf += 2
		rr -= 0.1
	case RegimeNewsDriven:
		conf += 12
		cnf += 8
		rr += 0.5
	case RegimeIlliquid:
		conf += 10
		cnf += 6
		rr += 0.3
	}

	// Session bucket.
	switch in.Session {
	case market.SessionOpen:
		conf -= 3
	case market.SessionMid:
		conf += 5
		cnf += 3
	case market.SessionPower:
		conf -= 5
		cnf -= 2
	case market.SessionOvernight:
		conf += 8
		cnf += 4
		rr += 0.2
	}

	// Performance streaks: losses tighten before wins loosen.
	if in.ConsecutiveLosses >= 2 {
		conf += 8
		cnf += 5
		rr += 0.3
	} else if in.ConsecutiveWins >= 3 {
		conf -= 5
		cnf -= 3
		rr -= 0.2
	}

	// Hour-of-day shaping on top of the session bucket.
	switch {
	case in.Hour == 15: // power hour
		conf -= 2
	case in.Hour == 9: // opening drive
		conf -= 2
	case in.Hour >= 12 && in.Hour <= 13: // lunch chop
		conf += 4
		cnf += 2
	}

	return Thresholds{
		Confluence: clamp(conf, 30, 95),
		Confidence: clamp(cnf, 40, 95),
		RiskReward: clamp(rr, 1.2, 4.0),
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
