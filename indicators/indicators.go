// Package indicators provides streaming technical analysis indicators.
package indicators

import "futsim/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in replay and simulation.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value. Callers should always
	// check Ready() first; Value() returns 0 before warmup.
	Value() float64
}
