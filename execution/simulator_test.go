package execution

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"futsim/market"
)

// Mid-session ET so the session multipliers are the quiet ones.
var midSession = time.Date(2024, 3, 5, 12, 0, 0, 0, market.Eastern)

func midCandle(open, high, low, close, volume float64) market.Candle {
	return market.Candle{
		Time: midSession, Open: open, High: high, Low: low, Close: close, Volume: volume,
	}
}

func steadyWindow(n int) []market.Candle {
	w := make([]market.Candle, n)
	for i := range w {
		w[i] = midCandle(5000, 5001, 4999, 5000.5, 1000)
	}
	return w
}

func newSim(cfg Config, seed int64) *Simulator {
	return New(cfg, rand.New(rand.NewSource(seed)))
}

func TestSimulateNeverRejectsWithZeroProbability(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	cfg.MaxRejectionProb = 0
	sim := newSim(cfg, 1)

	for i := 0; i < 200; i++ {
		res := sim.Simulate(Request{
			Candle:   midCandle(5000, 5001, 4999, 5000.5, 1000),
			Window:   steadyWindow(20),
			Side:     market.Long,
			Quantity: 1,
			RefPrice: 5000.5,
		})
		assert.True(t, res.Executed)
		assert.False(t, res.Rejected)
	}
}

func TestSimulateExactlyOneOutcome(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0.5
	cfg.MaxRejectionProb = 0.5
	sim := newSim(cfg, 7)

	var executed, rejected int
	for i := 0; i < 500; i++ {
		res := sim.Simulate(Request{
			Candle:   midCandle(5000, 5001, 4999, 5000.5, 1000),
			Window:   steadyWindow(20),
			Side:     market.Long,
			Quantity: 1,
			RefPrice: 5000.5,
		})
		if res.Executed {
			executed++
		}
		if res.Rejected {
			rejected++
		}
		assert.NotEqual(t, res.Executed, res.Rejected, "exactly one of executed/rejected")
	}
	assert.Greater(t, executed, 0)
	assert.Greater(t, rejected, 0)
}

func TestBuysFillAboveReferenceSellsBelow(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	sim := newSim(cfg, 3)

	c := midCandle(5000, 5001, 4999, 5000.5, 1000)
	w := steadyWindow(20)

	for i := 0; i < 100; i++ {
		buy := sim.Simulate(Request{Candle: c, Window: w, Side: market.Long, Quantity: 1, RefPrice: 5000.5})
		assert.Greater(t, buy.FillPrice, 5000.5, "buy pays up")

		sell := sim.Simulate(Request{Candle: c, Window: w, Side: market.Short, Quantity: 1, RefPrice: 5000.5})
		assert.Less(t, sell.FillPrice, 5000.5, "sell receives less")
	}
}

func TestGapThroughStopFillsAtOpen(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	sim := newSim(cfg, 5)

	// Long position, stop at 5000, bar opens at 4990: exit (a sell) fills
	// off the gapped open, and 10 points are recorded as gap, not slippage.
	c := midCandle(4990, 4995, 4985, 4992, 800)
	res := sim.Simulate(Request{
		Candle:    c,
		Window:    steadyWindow(20),
		Side:      market.Short,
		Quantity:  2,
		RefPrice:  5000,
		StopPrice: 5000,
	})

	assert.True(t, res.Executed)
	assert.InDelta(t, 10.0, res.GapPoints, 1e-9)
	// Sell fills below the gapped open, never at the stop level.
	assert.Less(t, res.FillPrice, 4990.0)
}

func TestNoGapWhenOpenRespectsStop(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	sim := newSim(cfg, 5)

	c := midCandle(5001, 5002, 4998, 5000, 800)
	res := sim.Simulate(Request{
		Candle:    c,
		Window:    steadyWindow(20),
		Side:      market.Short,
		Quantity:  1,
		RefPrice:  5000,
		StopPrice: 5000,
	})
	assert.Zero(t, res.GapPoints)
}

func TestSlippageCapped(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	cfg.MaxSlippageTicks = 2
	sim := newSim(cfg, 11)

	// Thin, violent bar with a big order: every slippage factor maxed.
	c := midCandle(5000, 5030, 4970, 5010, 10)
	res := sim.Simulate(Request{
		Candle:   c,
		Window:   steadyWindow(20),
		Side:     market.Long,
		Quantity: 25,
		RefPrice: 5010,
	})
	assert.LessOrEqual(t, res.SlippageTicks, 2.0)
}

func TestFillQuantityFloor(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	cfg.MinFillRatio = 0.5
	sim := newSim(cfg, 13)

	for i := 0; i < 200; i++ {
		res := sim.Simulate(Request{
			Candle:   midCandle(5000, 5030, 4970, 5010, 10), // thin volume
			Window:   steadyWindow(20),
			Side:     market.Long,
			Quantity: 10,
			RefPrice: 5010,
		})
		assert.GreaterOrEqual(t, res.FilledQuantity, 5, "floor at MinFillRatio")
		assert.LessOrEqual(t, res.FilledQuantity, 10)
	}
}

func TestSingleContractAlwaysFullFill(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	sim := newSim(cfg, 17)

	res := sim.Simulate(Request{
		Candle:   midCandle(5000, 5030, 4970, 5010, 1),
		Window:   steadyWindow(20),
		Side:     market.Long,
		Quantity: 1,
		RefPrice: 5010,
	})
	assert.Equal(t, 1, res.FilledQuantity)
}

func TestLatencyClamped(t *testing.T) {
	cfg := Defaults()
	cfg.BaseRejectionProb = 0
	sim := newSim(cfg, 19)

	for i := 0; i < 500; i++ {
		res := sim.Simulate(Request{
			Candle:   midCandle(5000, 5001, 4999, 5000.5, 1000),
			Window:   steadyWindow(20),
			Side:     market.Long,
			Quantity: 1,
			RefPrice: 5000.5,
		})
		assert.GreaterOrEqual(t, res.LatencyMs, cfg.LatencyMinMs)
		assert.LessOrEqual(t, res.LatencyMs, cfg.LatencyMaxMs)
	}
}

func TestDeterministicWithSameSeed(t *testing.T) {
	req := Request{
		Candle:   midCandle(5000, 5004, 4997, 5002, 900),
		Window:   steadyWindow(20),
		Side:     market.Long,
		Quantity: 3,
		RefPrice: 5002,
	}

	a := newSim(Defaults(), 42)
	b := newSim(Defaults(), 42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Simulate(req), b.Simulate(req))
	}
}
