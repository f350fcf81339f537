package strategies

import (
	"math"
	"time"

	"futsim/indicators"
	"futsim/market"
)

// MeanReversion is a reference provider: price stretched a configurable
// number of ATRs away from its EMA, fading back toward the mean.
type MeanReversion struct {
	*MeanReversionConfig
}

type MeanReversionConfig struct {
	EMAPeriod  int     `json:"ema-period" yaml:"ema-period"`
	ATRPeriod  int     `json:"atr-period" yaml:"atr-period"`
	StretchATR float64 `json:"stretch-atr" yaml:"stretch-atr"` // entry trigger distance
	StopATR    float64 `json:"stop-atr" yaml:"stop-atr"`
}

func MeanReversionDefaults() *MeanReversionConfig {
	return &MeanReversionConfig{
		EMAPeriod:  20,
		ATRPeriod:  14,
		StretchATR: 2.0,
		StopATR:    1.2,
	}
}

func NewMeanReversion(cfg *MeanReversionConfig) *MeanReversion {
	return &MeanReversion{MeanReversionConfig: cfg}
}

func (m *MeanReversion) ID() string { return "meanrev" }

func (m *MeanReversion) Evaluate(candles []market.Candle) []Signal {
	ema := indicators.NewEMA(m.EMAPeriod)
	atr := indicators.NewATR(m.ATRPeriod)

	for _, c := range candles {
		ema.Update(c)
		atr.Update(c)
	}
	if !ema.Ready() || !atr.Ready() {
		return nil
	}

	last := candles[len(candles)-1]
	a := atr.Value()
	if a <= 0 {
		return nil
	}

	stretch := (last.Close - ema.Value()) / a

	var dir market.Direction
	switch {
	case stretch <= -m.StretchATR:
		dir = market.Long
	case stretch >= m.StretchATR:
		dir = market.Short
	default:
		return nil
	}

	// Target the mean; stop beyond the stretch extreme.
	target := ema.Value()
	stopDist := m.StopATR * a

	var stop float64
	if dir == market.Long {
		stop = last.Close - stopDist
	} else {
		stop = last.Close + stopDist
	}

	targetDist := math.Abs(target - last.Close)
	if targetDist < a*0.5 {
		return nil // mean too close to pay for the trade
	}

	over := math.Abs(stretch) - m.StretchATR

	return []Signal{{
		Direction:     dir,
		Confidence:    clampF(55+over*15, 0, 100),
		StopLoss:      stop,
		TakeProfit:    target,
		RiskReward:    targetDist / stopDist,
		Quality:       clampF(45+over*20, 0, 100),
		StrategyID:    m.ID(),
		RegimeOptimal: math.Abs(stretch) < m.StretchATR*2, // blown-out stretch is a breakout, not a fade
		SessionBoost:  meanrevBoost(last.Time),
	}}
}

// Mid-session chop is where fades work; avoid the open drive.
func meanrevBoost(t time.Time) float64 {
	switch market.ClassifySession(t) {
	case market.SessionMid:
		return 7
	case market.SessionClose:
		return 4
	case market.SessionOvernight:
		return 2
	default:
		return 0
	}
}
