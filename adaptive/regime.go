// Package adaptive classifies market regimes and computes the
// regime/session/performance-adjusted entry gates the signal selector
// enforces.
package adaptive

import (
	"math"

	"futsim/indicators"
	"futsim/market"
)

// Regime is a coarse classification of current market behavior.
type Regime int

const (
	RegimeUnknown Regime = iota
	RegimeTrendStrong
	RegimeTrendWeak
	RegimeRangeTight
	RegimeRangeWide
	RegimeVolatilityHigh
	RegimeVolatilityLow
	RegimeNewsDriven
	RegimeIlliquid
)

func (r Regime) String() string {
	switch r {
	case RegimeTrendStrong:
		return "trend-strong"
	case RegimeTrendWeak:
		return "trend-weak"
	case RegimeRangeTight:
		return "range-tight"
	case RegimeRangeWide:
		return "range-wide"
	case RegimeVolatilityHigh:
		return "volatility-high"
	case RegimeVolatilityLow:
		return "volatility-low"
	case RegimeNewsDriven:
		return "news-driven"
	case RegimeIlliquid:
		return "illiquid"
	default:
		return "unknown"
	}
}

// ClassifyRegime buckets the recent window. Precedence: a news-style
// volatility spike or dead tape wins over trend/range shape.
func ClassifyRegime(candles []market.Candle) Regime {
	const lookback = 20

	if len(candles) < lookback+1 {
		return RegimeUnknown
	}

	last := candles[len(candles)-1]
	avgRange := market.AvgRange(candles[:len(candles)-1], lookback)
	avgVol := market.AvgVolume(candles[:len(candles)-1], lookback)

	if avgRange <= 0 {
		return RegimeUnknown
	}

	rangeRatio := last.Range() / avgRange

	// A single bar several times the average range with a volume surge
	// reads as a news event.
	if rangeRatio > 3 && avgVol > 0 && last.Volume > avgVol*2.5 {
		return RegimeNewsDriven
	}
	if avgVol > 0 && last.Volume < avgVol*0.3 {
		return RegimeIlliquid
	}
	if rangeRatio > 2 {
		return RegimeVolatilityHigh
	}
	if rangeRatio < 0.4 {
		return RegimeVolatilityLow
	}

	// Trend strength: net move over the lookback relative to the path
	// traveled. Near 1 means one-way tape, near 0 chop.
	start := candles[len(candles)-lookback].Close
	net := math.Abs(last.Close - start)
	path := 0.0
	for i := len(candles) - lookback + 1; i < len(candles); i++ {
		path += math.Abs(candles[i].Close - candles[i-1].Close)
	}
	if path <= 0 {
		return RegimeRangeTight
	}
	efficiency := net / path

	switch {
	case efficiency > 0.6:
		return RegimeTrendStrong
	case efficiency > 0.35:
		return RegimeTrendWeak
	case rangeRatio > 1.2:
		return RegimeRangeWide
	default:
		return RegimeRangeTight
	}
}

// TrendStrength returns a signed [-1,1] measure: close vs the long EMA,
// scaled by ATR, positive when price is above the mean.
func TrendStrength(candles []market.Candle, emaPeriod, atrPeriod int) float64 {
	ema := indicators.NewEMA(emaPeriod)
	atr := indicators.NewATR(atrPeriod)
	for _, c := range candles {
		ema.Update(c)
		atr.Update(c)
	}
	if !ema.Ready() || !atr.Ready() || atr.Value() <= 0 {
		return 0
	}
	last := candles[len(candles)-1]
	s := (last.Close - ema.Value()) / (atr.Value() * 3)
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
