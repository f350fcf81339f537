package indicators

import (
	"fmt"

	"futsim/market"
)

// MACD is a streaming Moving Average Convergence Divergence indicator.
// Value() returns the MACD line (fast EMA - slow EMA); Signal() and
// Histogram() expose the signal line and their difference.
type MACD struct {
	fast, slow *ExponentialMA

	signalPeriod int
	signalMult   float64
	signal       float64
	signalCount  int
	signalSum    float64
}

// NewMACD creates a MACD indicator with the given fast, slow, and signal
// periods (classically 12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:         NewEMA(fast),
		slow:         NewEMA(slow),
		signalPeriod: signal,
		signalMult:   2.0 / float64(signal+1),
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD(%d,%d,%d)", m.fast.period, m.slow.period, m.signalPeriod)
}

func (m *MACD) Warmup() int {
	return m.slow.period + m.signalPeriod
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.signal = 0
	m.signalCount = 0
	m.signalSum = 0
}

func (m *MACD) Update(c market.Candle) {
	m.fast.Update(c)
	m.slow.Update(c)

	if !m.slow.Ready() {
		return
	}

	line := m.fast.Value() - m.slow.Value()

	if m.signalCount < m.signalPeriod {
		m.signalSum += line
		m.signalCount++
		if m.signalCount == m.signalPeriod {
			m.signal = m.signalSum / float64(m.signalPeriod)
		}
	} else {
		m.signal = (line-m.signal)*m.signalMult + m.signal
	}
}

func (m *MACD) Ready() bool {
	return m.slow.Ready() && m.signalCount >= m.signalPeriod
}

// Value returns the MACD line.
func (m *MACD) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.fast.Value() - m.slow.Value()
}

// Signal returns the signal line (EMA of the MACD line).
func (m *MACD) Signal() float64 {
	if !m.Ready() {
		return 0
	}
	return m.signal
}

// Histogram returns MACD line minus signal line.
func (m *MACD) Histogram() float64 {
	return m.Value() - m.Signal()
}
