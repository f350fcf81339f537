package strategies

import (
	"time"

	"futsim/indicators"
	"futsim/market"
)

// Momentum is a reference provider: RSI recovering from an extreme while the
// MACD histogram agrees. It exists mainly to exercise the pipeline; serious
// providers live outside this module.
type Momentum struct {
	*MomentumConfig
}

type MomentumConfig struct {
	RSIPeriod  int     `json:"rsi-period" yaml:"rsi-period"`
	ATRPeriod  int     `json:"atr-period" yaml:"atr-period"`
	StopATR    float64 `json:"stop-atr" yaml:"stop-atr"`     // stop distance in ATR multiples
	TargetATR  float64 `json:"target-atr" yaml:"target-atr"` // target distance in ATR multiples
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
}

func MomentumDefaults() *MomentumConfig {
	return &MomentumConfig{
		RSIPeriod:  14,
		ATRPeriod:  14,
		StopATR:    1.5,
		TargetATR:  3.0,
		Oversold:   35,
		Overbought: 65,
	}
}

func NewMomentum(cfg *MomentumConfig) *Momentum {
	return &Momentum{MomentumConfig: cfg}
}

func (m *Momentum) ID() string { return "momentum" }

func (m *Momentum) Evaluate(candles []market.Candle) []Signal {
	rsi := indicators.NewRSI(m.RSIPeriod)
	macd := indicators.NewMACD(12, 26, 9)
	atr := indicators.NewATR(m.ATRPeriod)

	for _, c := range candles {
		rsi.Update(c)
		macd.Update(c)
		atr.Update(c)
	}
	if !rsi.Ready() || !macd.Ready() || !atr.Ready() {
		return nil
	}

	last := candles[len(candles)-1]
	r := rsi.Value()
	hist := macd.Histogram()
	a := atr.Value()
	if a <= 0 {
		return nil
	}

	var dir market.Direction
	var conf float64

	switch {
	case r < m.Oversold && hist > 0 && last.Bullish():
		dir = market.Long
		conf = 60 + (m.Oversold-r) + clampF(hist/a*20, 0, 20)
	case r > m.Overbought && hist < 0 && !last.Bullish():
		dir = market.Short
		conf = 60 + (r-m.Overbought) + clampF(-hist/a*20, 0, 20)
	default:
		return nil
	}

	stopDist := m.StopATR * a
	targetDist := m.TargetATR * a

	var stop, target float64
	if dir == market.Long {
		stop = last.Close - stopDist
		target = last.Close + targetDist
	} else {
		stop = last.Close + stopDist
		target = last.Close - targetDist
	}

	return []Signal{{
		Direction:     dir,
		Confidence:    clampF(conf, 0, 100),
		StopLoss:      stop,
		TakeProfit:    target,
		RiskReward:    targetDist / stopDist,
		Quality:       clampF(50+last.Body()/a*30, 0, 100),
		StrategyID:    m.ID(),
		RegimeOptimal: hist != 0,
		SessionBoost:  sessionBoost(last.Time),
	}}
}

// sessionBoost grades the candle's session: the open and power hour carry
// the most follow-through for momentum entries.
func sessionBoost(t time.Time) float64 {
	switch market.ClassifySession(t) {
	case market.SessionOpen:
		return 8
	case market.SessionPower:
		return 6
	case market.SessionMid:
		return 3
	case market.SessionClose:
		return 4
	default:
		return 0
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
