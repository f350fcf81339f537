package risk

import "math"

// RR returns reward-to-risk: distance to target over distance to stop.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// Contracts sizes a futures position: the dollar risk budget
// (equity x risk% x throttle multiplier) over the per-contract dollar risk
// to the stop, floored to whole contracts and capped.
func (t *Throttle) Contracts(equity, entry, stop, pointValue, multiplier float64) int {
	perContract := math.Abs(entry-stop) * pointValue
	if perContract <= 0 || equity <= 0 || multiplier <= 0 {
		return 0
	}

	budget := equity * t.cfg.RiskPercent * multiplier
	n := int(budget / perContract)

	if t.cfg.MaxContracts > 0 && n > t.cfg.MaxContracts {
		n = t.cfg.MaxContracts
	}
	return n
}
