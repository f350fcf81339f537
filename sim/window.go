package sim

import (
	"futsim/indicators"
	"futsim/market"
)

// Window helpers replay streaming indicators over a candle slice. The
// driver keeps no indicator state between candles; the window is the state.

func windowATR(window []market.Candle) float64 {
	atr := indicators.NewATR(14)
	for _, c := range window {
		atr.Update(c)
	}
	if !atr.Ready() {
		return 0
	}
	return atr.Value()
}

func windowRSI(window []market.Candle) float64 {
	rsi := indicators.NewRSI(14)
	for _, c := range window {
		rsi.Update(c)
	}
	if !rsi.Ready() {
		return 50
	}
	return rsi.Value()
}

func windowMACDHist(window []market.Candle) float64 {
	macd := indicators.NewMACD(12, 26, 9)
	for _, c := range window {
		macd.Update(c)
	}
	if !macd.Ready() {
		return 0
	}
	return macd.Histogram()
}

// windowEMADistance returns (price-EMA)/EMA, the relative stretch from the
// trend line.
func windowEMADistance(window []market.Candle, period int, price float64) float64 {
	ema := indicators.NewEMA(period)
	for _, c := range window {
		ema.Update(c)
	}
	v := ema.Value()
	if v == 0 {
		return 0
	}
	return (price - v) / v
}
