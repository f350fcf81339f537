package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"futsim/market"
)

// baseInputs is a clean mid-session account with nothing throttling.
func baseInputs() Inputs {
	return Inputs{
		Balance:            50000,
		PeakBalance:        50000,
		DailyPnL:           0,
		TradesToday:        0,
		BarsSinceLastTrade: -1,
		ConsecutiveLosses:  0,
		BarsSinceLastLoss:  -1,
		TimeframeAligned:   true,
		Session:            market.SessionMid,
		SignalQuality:      100,
	}
}

func TestLadderLevels(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // ceiling 2500

	cases := []struct {
		name     string
		drawdown float64
		level    Level
		mult     float64
		canTrade bool
	}{
		{"safe", 0, LevelSafe, 1.0, true},
		{"just under caution", 999, LevelSafe, 1.0, true},
		{"caution at 40%", 1000, LevelCaution, 0.75, true},
		{"warning at 60%", 1500, LevelWarning, 0.5, true},
		{"danger at 80%", 2000, LevelDanger, 0.25, true},
		{"stopped at 90%", 2250, LevelStopped, 0, false},
		{"violated at 100%", 2500, LevelViolated, 0, false},
		{"violated beyond", 3000, LevelViolated, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInputs()
			in.Balance = in.PeakBalance - tc.drawdown
			st := tr.Evaluate(in)
			assert.Equal(t, tc.level, st.Level)
			assert.Equal(t, tc.canTrade, st.CanTrade)
			assert.InDelta(t, tc.mult, st.SizeMultiplier, 1e-9)
		})
	}
}

func TestStoppedAndViolatedNeverTrade(t *testing.T) {
	tr := NewThrottle(DefaultConfig())

	in := baseInputs()
	in.Balance = in.PeakBalance - 2300 // 92%
	st := tr.Evaluate(in)
	assert.False(t, st.CanTrade)
	assert.Zero(t, st.SizeMultiplier)
	assert.NotEmpty(t, st.StopReason)
}

func TestPreCloseWindowBlocksOutright(t *testing.T) {
	tr := NewThrottle(DefaultConfig())

	in := baseInputs()
	in.PreCloseWindow = true
	st := tr.Evaluate(in)
	assert.False(t, st.CanTrade)
	assert.Zero(t, st.SizeMultiplier)
	assert.Equal(t, LevelSafe, st.Level, "the block is a window rule, not a drawdown level")
}

func TestDailyLossShrinksSizing(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // daily limit 1500

	clean := tr.Evaluate(baseInputs())

	in := baseInputs()
	in.DailyPnL = -750 // half the limit used
	st := tr.Evaluate(in)
	assert.True(t, st.CanTrade)
	assert.Less(t, st.SizeMultiplier, clean.SizeMultiplier)
	assert.InDelta(t, 0.5, st.SizeMultiplier, 1e-9)

	// Winning days never throttle on the daily-loss component.
	in.DailyPnL = 500
	assert.InDelta(t, 1.0, tr.Evaluate(in).SizeMultiplier, 1e-9)
}

func TestFrequencyPenaltyIsQuadratic(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // cap 10

	in := baseInputs()
	in.TradesToday = 5
	assert.InDelta(t, 0.75, tr.Evaluate(in).SizeMultiplier, 1e-9)

	in.TradesToday = 9
	assert.InDelta(t, 1-0.81, tr.Evaluate(in).SizeMultiplier, 1e-9)

	in.TradesToday = 10
	assert.InDelta(t, 0.1, tr.Evaluate(in).SizeMultiplier, 1e-9)
}

func TestCooldownRampsBack(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // cooldown 3 bars

	in := baseInputs()
	in.BarsSinceLastTrade = 0
	first := tr.Evaluate(in).SizeMultiplier

	in.BarsSinceLastTrade = 1
	second := tr.Evaluate(in).SizeMultiplier
	assert.Greater(t, second, first)

	in.BarsSinceLastTrade = 3
	assert.InDelta(t, 1.0, tr.Evaluate(in).SizeMultiplier, 1e-9)

	// Before any trade the cooldown does not apply.
	in.BarsSinceLastTrade = -1
	assert.InDelta(t, 1.0, tr.Evaluate(in).SizeMultiplier, 1e-9)
}

func TestLossStreakFloorsUntilCooldownElapses(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // trigger 3, cooldown 12 bars

	in := baseInputs()
	in.ConsecutiveLosses = 3
	in.BarsSinceLastLoss = 0
	assert.InDelta(t, 0.1, tr.Evaluate(in).SizeMultiplier, 1e-9)

	in.BarsSinceLastLoss = 11
	assert.InDelta(t, 0.1, tr.Evaluate(in).SizeMultiplier, 1e-9)

	// Cooldown elapsed: full size again, no lingering haircut.
	in.BarsSinceLastLoss = 12
	assert.InDelta(t, 1.0, tr.Evaluate(in).SizeMultiplier, 1e-9)

	// Two losses never arm the floor.
	in.ConsecutiveLosses = 2
	in.BarsSinceLastLoss = 0
	assert.InDelta(t, 1.0, tr.Evaluate(in).SizeMultiplier, 1e-9)
}

func TestMisalignmentAndSessionHaircuts(t *testing.T) {
	tr := NewThrottle(DefaultConfig())

	in := baseInputs()
	in.TimeframeAligned = false
	assert.InDelta(t, 0.6, tr.Evaluate(in).SizeMultiplier, 1e-9)

	in = baseInputs()
	in.Session = market.SessionOvernight
	assert.InDelta(t, 0.5, tr.Evaluate(in).SizeMultiplier, 1e-9)

	in = baseInputs()
	in.SignalQuality = 70
	assert.InDelta(t, 0.7, tr.Evaluate(in).SizeMultiplier, 1e-9)
}

func TestComponentsMultiply(t *testing.T) {
	tr := NewThrottle(DefaultConfig())

	in := baseInputs()
	in.DailyPnL = -750       // 0.5
	in.TimeframeAligned = false // 0.6
	in.SignalQuality = 80    // 0.8
	st := tr.Evaluate(in)
	assert.InDelta(t, 0.5*0.6*0.8, st.SizeMultiplier, 1e-9)
}

func TestRR(t *testing.T) {
	assert.InDelta(t, 2.0, RR(5000, 4990, 5020), 1e-9)
	assert.InDelta(t, 2.0, RR(5000, 5010, 4980), 1e-9) // short
	assert.Zero(t, RR(5000, 5000, 5020))
}

func TestContractsSizing(t *testing.T) {
	tr := NewThrottle(DefaultConfig()) // 1% risk, cap 5

	// $50k x 1% = $500 budget; 2 points to stop x $50 = $100/contract.
	assert.Equal(t, 5, tr.Contracts(50000, 5000, 4998, 50, 1.0))

	// Throttled to half the budget.
	assert.Equal(t, 2, tr.Contracts(50000, 5000, 4998, 50, 0.5))

	// Cap binds on tight stops.
	assert.Equal(t, 5, tr.Contracts(50000, 5000, 4999.5, 50, 1.0))

	// Never negative or fractional.
	assert.Equal(t, 0, tr.Contracts(50000, 5000, 5000, 50, 1.0))
	assert.Equal(t, 0, tr.Contracts(50000, 5000, 4998, 50, 0))
	assert.Equal(t, 0, tr.Contracts(1000, 5000, 4990, 50, 1.0))
}
