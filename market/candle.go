// Package market holds the shared market-data types: candles, trade
// direction, trading sessions, and futures instrument metadata.
package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data for a
// single bar. Candles are immutable once produced by the data source.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Range returns the full high-low extent of the bar.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Body returns the absolute open-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// Direction is the side of a trade: +1 long, -1 short.
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "FLAT"
}

// Opposite returns the reverse side.
func (d Direction) Opposite() Direction {
	return -d
}

// AvgVolume returns the mean volume over the last n candles of the window.
// If fewer candles are available it averages what it has; an empty window
// returns 0.
func AvgVolume(candles []Candle, n int) float64 {
	if len(candles) == 0 || n <= 0 {
		return 0
	}
	if n > len(candles) {
		n = len(candles)
	}
	sum := 0.0
	for i := len(candles) - n; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(n)
}

// AvgRange returns the mean high-low range over the last n candles.
func AvgRange(candles []Candle, n int) float64 {
	if len(candles) == 0 || n <= 0 {
		return 0
	}
	if n > len(candles) {
		n = len(candles)
	}
	sum := 0.0
	for i := len(candles) - n; i < len(candles); i++ {
		sum += candles[i].Range()
	}
	return sum / float64(n)
}
